package replay

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"

	"inspection-pipeline/models"
)

type fakeReader struct {
	entries []models.LogEntry
	images  map[models.ImageRef][]byte
}

func (f *fakeReader) ReadLog(runID string) ([]models.LogEntry, error) {
	return f.entries, nil
}

func (f *fakeReader) ResolveImage(ref models.ImageRef) ([]byte, error) {
	data, ok := f.images[ref]
	if !ok {
		return nil, fmt.Errorf("no frame %q", ref)
	}
	return data, nil
}

func grayJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func testReader(t *testing.T, ticks int) *fakeReader {
	t.Helper()
	reader := &fakeReader{images: map[models.ImageRef][]byte{}}
	for i := 1; i <= ticks; i++ {
		ref := models.ImageRef(fmt.Sprintf("run/frame_%06d.jpg", i))
		reader.images[ref] = grayJPEG(t, 120, 100)
		reader.entries = append(reader.entries, models.LogEntry{
			Timestamp: fmt.Sprintf("10:00:0%d.000", i),
			Detections: []models.Detection{
				{XMin: 20, YMin: 30, XMax: 80, YMax: 70, Confidence: 0.87, Name: "crack"},
			},
			ImageRef: ref,
		})
	}
	return reader
}

func TestRenderEmitsOneFramePerTickInOrder(t *testing.T) {
	reader := testReader(t, 3)
	viewer := NewViewer(reader)

	frames, err := viewer.Render("run")
	require.NoError(t, err)
	require.Len(t, frames, 3)
	for i, frame := range frames {
		require.Equal(t, fmt.Sprintf("10:00:0%d.000", i+1), frame.Timestamp)
	}
}

func TestRenderDrawsBoxesAtDetectionCoordinates(t *testing.T) {
	reader := testReader(t, 1)
	viewer := NewViewer(reader)

	frames, err := viewer.Render("run")
	require.NoError(t, err)

	img := frames[0].Image
	green := color.RGBA{G: 255, A: 255}

	// Box edges carry the overlay color; the box interior does not.
	require.Equal(t, green, img.At(20, 30))
	require.Equal(t, green, img.At(80, 30))
	require.Equal(t, green, img.At(20, 70))
	require.Equal(t, green, img.At(50, 30))
	require.Equal(t, green, img.At(20, 50))
	require.NotEqual(t, green, img.At(50, 50))
}

func TestPlayPacesAllFrames(t *testing.T) {
	reader := testReader(t, 4)
	viewer := NewViewer(reader)

	var seen []string
	err := viewer.Play(context.Background(), "run", 200, func(frame Frame) error {
		seen = append(seen, frame.Timestamp)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 4)
}

func TestPlayRejectsNonPositiveRate(t *testing.T) {
	viewer := NewViewer(testReader(t, 1))
	err := viewer.Play(context.Background(), "run", 0, func(Frame) error { return nil })
	require.Error(t, err)
}

func TestEncodeJPEGRoundTrips(t *testing.T) {
	reader := testReader(t, 1)
	viewer := NewViewer(reader)

	frames, err := viewer.Render("run")
	require.NoError(t, err)

	data, err := EncodeJPEG(frames[0])
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, frames[0].Image.Bounds(), decoded.Bounds())
}
