package llm

import (
	"context"
	"fmt"
	"strings"

	"inspection-pipeline/models"
)

// Client abstracts the multimodal reasoning service used by the analyzer.
// Implementations must be concurrency-safe if used across goroutines.
type Client interface {
	// AnalyzeFrame takes raw image bytes and a textual detection summary,
	// and returns the raw response text for the parser to interpret.
	AnalyzeFrame(ctx context.Context, imageData []byte, detectionSummary string) (string, error)
	// SourceName returns a short provider label for logging.
	SourceName() string
}

// DetectionSummary renders the filtered detections of one frame as the
// structured text block embedded in the analysis prompt.
func DetectionSummary(detections []models.Detection) string {
	lines := make([]string, 0, len(detections))
	for _, d := range detections {
		lines = append(lines, fmt.Sprintf("- Object: %s (Confidence: %.2f, Box: [%d,%d → %d,%d])",
			d.Name, d.Confidence, d.XMin, d.YMin, d.XMax, d.YMax))
	}
	return strings.Join(lines, "\n")
}
