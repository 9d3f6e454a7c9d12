package replay

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"inspection-pipeline/models"
)

// LogReader is the slice of the log store the viewer reads from.
type LogReader interface {
	ReadLog(runID string) ([]models.LogEntry, error)
	ResolveImage(ref models.ImageRef) ([]byte, error)
}

// Frame is one annotated replay frame.
type Frame struct {
	Timestamp string
	Image     image.Image
}

// Viewer regenerates an annotated frame sequence from a detection log. It
// is a read-only projection; the log is never mutated.
type Viewer struct {
	reader LogReader
}

// NewViewer creates a replay viewer over the given log store.
func NewViewer(reader LogReader) *Viewer {
	return &Viewer{reader: reader}
}

var boxColor = color.RGBA{G: 255, A: 255}

// Render produces one annotated frame per logged tick, in tick order: the
// stored raw image overlaid with each detection's box and a label of the
// class name plus confidence rounded to two decimal places.
func (v *Viewer) Render(runID string) ([]Frame, error) {
	entries, err := v.reader.ReadLog(runID)
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, 0, len(entries))
	for _, entry := range entries {
		raw, err := v.reader.ResolveImage(entry.ImageRef)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve frame %q: %w", entry.ImageRef, err)
		}
		decoded, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to decode frame %q: %w", entry.ImageRef, err)
		}

		annotated := annotate(decoded, entry.Detections)
		frames = append(frames, Frame{Timestamp: entry.Timestamp, Image: annotated})
	}
	return frames, nil
}

// Play renders the run and hands each annotated frame to emit, paced at the
// target playback rate in frames per second.
func (v *Viewer) Play(ctx context.Context, runID string, fps int, emit func(Frame) error) error {
	if fps <= 0 {
		return fmt.Errorf("playback rate must be positive, got %d", fps)
	}
	frames, err := v.Render(runID)
	if err != nil {
		return err
	}

	delay := time.Second / time.Duration(fps)
	for _, frame := range frames {
		if err := emit(frame); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil
}

// EncodeJPEG encodes an annotated frame for storage or transport.
func EncodeJPEG(frame Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func annotate(src image.Image, detections []models.Detection) *image.RGBA {
	out := image.NewRGBA(src.Bounds())
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, det := range detections {
		rect := image.Rect(det.XMin, det.YMin, det.XMax, det.YMax)
		drawRect(out, rect, 2)
		label := fmt.Sprintf("%s %.2f", det.Name, det.Confidence)
		drawLabel(out, label, det.XMin, det.YMin-5)
	}
	return out
}

// drawRect draws an unfilled rectangle with the given edge thickness.
func drawRect(img *image.RGBA, rect image.Rectangle, thickness int) {
	for t := 0; t < thickness; t++ {
		for x := rect.Min.X; x <= rect.Max.X; x++ {
			img.Set(x, rect.Min.Y+t, boxColor)
			img.Set(x, rect.Max.Y-t, boxColor)
		}
		for y := rect.Min.Y; y <= rect.Max.Y; y++ {
			img.Set(rect.Min.X+t, y, boxColor)
			img.Set(rect.Max.X-t, y, boxColor)
		}
	}
}

func drawLabel(img *image.RGBA, text string, x, y int) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(boxColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}
