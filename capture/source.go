package capture

import (
	"context"
	"io"

	"inspection-pipeline/models"
)

// FrameSource produces raw encoded frames at a best-effort cadence. Grab
// returns io.EOF when the source is exhausted (replay sources only; a live
// source runs until the session stops it).
type FrameSource interface {
	Grab(ctx context.Context) ([]byte, error)
	Close() error
}

// LogReader is the slice of the log store a replay source needs.
type LogReader interface {
	ReadLog(runID string) ([]models.LogEntry, error)
	ResolveImage(ref models.ImageRef) ([]byte, error)
}

// ReplaySource replays the raw frames of a previously recorded run, in tick
// order. It lets the rest of the pipeline run against an existing detection
// log instead of a live feed.
type ReplaySource struct {
	reader  LogReader
	entries []models.LogEntry
	next    int
}

// NewReplaySource opens a recorded run for replay.
func NewReplaySource(reader LogReader, runID string) (*ReplaySource, error) {
	entries, err := reader.ReadLog(runID)
	if err != nil {
		return nil, err
	}
	return &ReplaySource{reader: reader, entries: entries}, nil
}

// Grab returns the next recorded frame, or io.EOF after the last tick.
func (r *ReplaySource) Grab(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.next >= len(r.entries) {
		return nil, io.EOF
	}
	entry := r.entries[r.next]
	r.next++
	return r.reader.ResolveImage(entry.ImageRef)
}

// Close is a no-op for replay sources.
func (r *ReplaySource) Close() error { return nil }
