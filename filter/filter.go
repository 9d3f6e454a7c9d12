package filter

import (
	"encoding/base64"
	"fmt"
	"strings"

	"inspection-pipeline/models"
)

// DefectClass is one entry of the allowed defect vocabulary. When Substring
// is set, a detection label matches if it contains Name; otherwise the label
// must match exactly.
type DefectClass struct {
	Name      string
	Substring bool
}

// DefaultDefectClasses is the fixed vocabulary of structural/surface defect
// labels the pipeline forwards downstream.
var DefaultDefectClasses = []DefectClass{
	{Name: "stain", Substring: true},
	{Name: "crack"},
	{Name: "roof-damage"},
}

// ImageResolver resolves an opaque image reference to raw frame bytes.
type ImageResolver interface {
	ResolveImage(ref models.ImageRef) ([]byte, error)
}

// Clean reduces a detection log to the frames worth analyzing. A detection
// survives when its confidence is at or above threshold and its label is in
// the allowed vocabulary; frames left with no qualifying detection are
// dropped entirely. Retained frames carry the raw image re-encoded as
// base64 so later stages need no access to the frame store.
//
// Clean never mutates the source log, and identical inputs always produce
// byte-identical output.
func Clean(entries []models.LogEntry, threshold float64, classes []DefectClass, images ImageResolver) ([]models.CleanedEntry, error) {
	cleaned := make([]models.CleanedEntry, 0, len(entries))

	for _, entry := range entries {
		if len(entry.Detections) == 0 {
			continue
		}

		kept := make([]models.Detection, 0, len(entry.Detections))
		for _, det := range entry.Detections {
			if det.Confidence >= threshold && matchesVocabulary(det.Name, classes) {
				kept = append(kept, det)
			}
		}
		if len(kept) == 0 {
			continue
		}

		image, err := images.ResolveImage(entry.ImageRef)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve frame %q: %w", entry.ImageRef, err)
		}

		cleaned = append(cleaned, models.CleanedEntry{
			Timestamp:   entry.Timestamp,
			Detections:  kept,
			ImageBase64: base64.StdEncoding.EncodeToString(image),
		})
	}

	return cleaned, nil
}

func matchesVocabulary(label string, classes []DefectClass) bool {
	for _, class := range classes {
		if class.Substring {
			if strings.Contains(label, class.Name) {
				return true
			}
		} else if label == class.Name {
			return true
		}
	}
	return false
}
