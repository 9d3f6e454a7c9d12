package logstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"inspection-pipeline/models"
)

// Store persists detection logs and their derived artifacts under a single
// data directory:
//
//	frames/<run>/frame_000001.jpg   raw frames, one per tick
//	logs/<run>.json                 detection log, flushed once per run
//	cleaned_logs/<run>.json         derived cleaned log
//
// A run's detection log is immutable once written; the cleaned log is a
// regenerable cache keyed by the same run ID.
type Store struct {
	dataDir string
}

// NewStore creates a log store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// SaveFrame writes one raw frame for the given run and tick and returns an
// opaque reference to it.
func (s *Store) SaveFrame(runID string, tick int, image []byte) (models.ImageRef, error) {
	dir := filepath.Join(s.dataDir, "frames", runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create frames dir: %w", err)
	}
	name := fmt.Sprintf("frame_%06d.jpg", tick)
	if err := os.WriteFile(filepath.Join(dir, name), image, 0o644); err != nil {
		return "", fmt.Errorf("failed to write frame: %w", err)
	}
	return models.ImageRef(runID + "/" + name), nil
}

// ResolveImage reads the raw frame bytes behind an opaque reference.
func (s *Store) ResolveImage(ref models.ImageRef) ([]byte, error) {
	rel := filepath.Clean(string(ref))
	if rel == "" || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return nil, fmt.Errorf("invalid image reference %q", ref)
	}
	data, err := os.ReadFile(filepath.Join(s.dataDir, "frames", rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %q: %w", ref, err)
	}
	return data, nil
}

// WriteLog materializes a completed run's detection log. It is called
// exactly once, at the end of a run.
func (s *Store) WriteLog(runID string, entries []models.LogEntry) error {
	return s.writeJSON(filepath.Join(s.dataDir, "logs", runID+".json"), entries)
}

// ReadLog loads a detection log by run ID.
func (s *Store) ReadLog(runID string) ([]models.LogEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.dataDir, "logs", runID+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read detection log %q: %w", runID, err)
	}
	var entries []models.LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse detection log %q: %w", runID, err)
	}
	return entries, nil
}

// WriteCleanedLog stores the derived cleaned log for a run, replacing any
// previous version.
func (s *Store) WriteCleanedLog(runID string, entries []models.CleanedEntry) error {
	return s.writeJSON(filepath.Join(s.dataDir, "cleaned_logs", runID+".json"), entries)
}

// ReadCleanedLog loads a cleaned log by run ID.
func (s *Store) ReadCleanedLog(runID string) ([]models.CleanedEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.dataDir, "cleaned_logs", runID+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read cleaned log %q: %w", runID, err)
	}
	var entries []models.CleanedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cleaned log %q: %w", runID, err)
	}
	return entries, nil
}

func (s *Store) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}
	return nil
}
