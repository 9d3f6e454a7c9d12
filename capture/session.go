package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apex/log"

	"inspection-pipeline/detector"
	"inspection-pipeline/metrics"
	"inspection-pipeline/models"
)

// FrameStore is the slice of the log store a capture session writes to.
type FrameStore interface {
	SaveFrame(runID string, tick int, image []byte) (models.ImageRef, error)
	WriteLog(runID string, entries []models.LogEntry) error
}

// Session runs one bounded capture run: grab a frame, run inference, persist
// the raw frame, append a tick to the in-memory log. The loop is single
// threaded and makes no attempt to hit a fixed frame rate; it only
// guarantees a monotonically ordered tick sequence covering roughly the
// configured duration.
type Session struct {
	source   FrameSource
	engine   detector.Engine
	store    FrameStore
	length   time.Duration
	interval time.Duration
}

// NewSession creates a capture session. interval is an optional fixed
// inter-tick delay (zero for none); it adds directly to loop latency and is
// mainly useful for debugging.
func NewSession(source FrameSource, engine detector.Engine, store FrameStore, length, interval time.Duration) *Session {
	return &Session{
		source:   source,
		engine:   engine,
		store:    store,
		length:   length,
		interval: interval,
	}
}

// Run executes the capture loop and returns the run ID. The loop stops when
// elapsed wall-clock time exceeds the configured length, the source is
// exhausted, or ctx is cancelled; every exit path still performs the
// one-time terminal flush of the completed detection log.
func (s *Session) Run(ctx context.Context) (string, error) {
	start := time.Now()
	runID := start.Format("2006-01-02_15-04-05")
	logger := log.WithField("run", runID)
	logger.Infof("starting capture run (length=%s)", s.length)

	entries := []models.LogEntry{}
	var runErr error
	tick := 0

loop:
	for {
		select {
		case <-ctx.Done():
			logger.Info("capture cancelled")
			break loop
		default:
		}
		if time.Since(start) > s.length {
			break
		}
		tick++

		frame, err := s.source.Grab(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			break
		}
		if err != nil {
			runErr = fmt.Errorf("failed to grab frame %d: %w", tick, err)
			break
		}

		detections, err := s.engine.Detect(ctx, frame)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			runErr = fmt.Errorf("inference failed on frame %d: %w", tick, err)
			break
		}
		if detections == nil {
			detections = []models.Detection{}
		}

		ref, err := s.store.SaveFrame(runID, tick, frame)
		if err != nil {
			runErr = fmt.Errorf("failed to persist frame %d: %w", tick, err)
			break
		}

		entries = append(entries, models.LogEntry{
			Timestamp:  time.Now().Format(models.TimestampLayout),
			Detections: detections,
			ImageRef:   ref,
		})
		metrics.FramesCaptured.Inc()
		metrics.DetectionsLogged.Add(float64(len(detections)))

		if s.interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.interval):
			}
		}
	}

	// Terminal flush happens exactly once, on every exit path.
	if err := s.store.WriteLog(runID, entries); err != nil {
		if runErr == nil {
			runErr = fmt.Errorf("failed to flush detection log: %w", err)
		}
		return runID, runErr
	}

	logger.Infof("capture run complete: %d ticks logged", len(entries))
	return runID, runErr
}
