package detector

import (
	"context"

	"inspection-pipeline/models"
)

// Engine runs object detection inference on a single frame and returns
// zero or more labeled, confidence-scored bounding boxes.
type Engine interface {
	Detect(ctx context.Context, image []byte) ([]models.Detection, error)
}

// DefaultLabels is the class list of the bundled property-defect model,
// in training order.
var DefaultLabels = []string{
	"crack",
	"water-stain",
	"rust-stain",
	"roof-damage",
	"window",
	"door",
}
