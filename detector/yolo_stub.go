//go:build !gocv
// +build !gocv

package detector

import (
	"context"
	"errors"

	"inspection-pipeline/models"
)

// YOLO is a placeholder used when the binary is built without OpenCV.
type YOLO struct{}

// NewYOLO returns a detector stub (no OpenCV).
func NewYOLO(modelPath string, labels []string) (*YOLO, error) {
	return &YOLO{}, nil
}

// Close is a no-op on the stub.
func (y *YOLO) Close() error { return nil }

// Detect returns an error if the build lacks the gocv tag.
func (y *YOLO) Detect(ctx context.Context, imageData []byte) ([]models.Detection, error) {
	return nil, errors.New("gocv build tag is not enabled")
}
