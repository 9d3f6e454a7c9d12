//go:build !gocv
// +build !gocv

package capture

import (
	"context"
	"errors"
)

// VideoSource is a placeholder used when the binary is built without OpenCV.
type VideoSource struct{}

// NewVideoSource returns a live-capture stub (no OpenCV).
func NewVideoSource(source string, region [4]int) (*VideoSource, error) {
	return &VideoSource{}, nil
}

// Grab returns an error if the build lacks the gocv tag.
func (v *VideoSource) Grab(ctx context.Context) ([]byte, error) {
	return nil, errors.New("gocv build tag is not enabled")
}

// Close is a no-op on the stub.
func (v *VideoSource) Close() error { return nil }
