//go:build gocv
// +build gocv

package capture

import (
	"context"
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// VideoSource grabs frames from a live video device or stream URL and crops
// them to the configured region. Logging into and entering the feed itself
// is the operator's concern; this source only reads an already-open stream.
type VideoSource struct {
	cap    *gocv.VideoCapture
	region image.Rectangle
}

// NewVideoSource opens a video device index or stream URL. The region is
// given as top, left, width, height; a zero region keeps the full frame.
func NewVideoSource(source string, region [4]int) (*VideoSource, error) {
	cap, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, err
	}
	rect := image.Rect(region[1], region[0], region[1]+region[2], region[0]+region[3])
	return &VideoSource{cap: cap, region: rect}, nil
}

// Grab reads, crops and JPEG-encodes one frame.
func (v *VideoSource) Grab(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := v.cap.Read(&mat); !ok || mat.Empty() {
		return nil, errors.New("failed to read frame from video source")
	}

	frame := mat
	if !v.region.Empty() && v.region.In(image.Rect(0, 0, mat.Cols(), mat.Rows())) {
		cropped := mat.Region(v.region)
		defer cropped.Close()
		frame = cropped
	}

	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// Close releases the underlying capture device.
func (v *VideoSource) Close() error {
	return v.cap.Close()
}
