//go:build gocv
// +build gocv

package detector

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"inspection-pipeline/models"
)

const (
	inputSize     = 640
	minObjectness = 0.10
	nmsThreshold  = 0.45
)

// YOLO runs a YOLO-family ONNX model through the OpenCV DNN module.
type YOLO struct {
	net    gocv.Net
	labels []string
}

// NewYOLO loads the detection model from an ONNX file.
func NewYOLO(modelPath string, labels []string) (*YOLO, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load detection model from %s", modelPath)
	}
	return &YOLO{net: net, labels: labels}, nil
}

// Close releases the underlying network.
func (y *YOLO) Close() error {
	return y.net.Close()
}

// Detect runs inference on a single encoded frame.
func (y *YOLO) Detect(ctx context.Context, imageData []byte) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		if !mat.Empty() {
			mat.Close()
		}
		return nil, errors.New("failed to decode frame")
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(inputSize, inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")
	output := y.net.Forward("")
	defer output.Close()

	return y.decode(output, mat.Cols(), mat.Rows()), nil
}

// decode parses YOLOv5-style rows [cx, cy, w, h, objectness, class scores...]
// and applies non-maximum suppression.
func (y *YOLO) decode(output gocv.Mat, frameW, frameH int) []models.Detection {
	rows := output.Total() / output.Size()[len(output.Size())-1]
	cols := output.Size()[len(output.Size())-1]
	flat := output.Reshape(1, rows)
	defer flat.Close()

	scaleX := float32(frameW) / float32(inputSize)
	scaleY := float32(frameH) / float32(inputSize)

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for r := 0; r < rows; r++ {
		objectness := flat.GetFloatAt(r, 4)
		if objectness < minObjectness {
			continue
		}

		bestClass := 0
		bestScore := float32(0)
		for c := 5; c < cols; c++ {
			if score := flat.GetFloatAt(r, c); score > bestScore {
				bestScore = score
				bestClass = c - 5
			}
		}
		confidence := objectness * bestScore
		if confidence < minObjectness {
			continue
		}

		cx := flat.GetFloatAt(r, 0) * scaleX
		cy := flat.GetFloatAt(r, 1) * scaleY
		w := flat.GetFloatAt(r, 2) * scaleX
		h := flat.GetFloatAt(r, 3) * scaleY

		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		scores = append(scores, confidence)
		classIDs = append(classIDs, bestClass)
	}

	if len(boxes) == 0 {
		return nil
	}

	keep := gocv.NMSBoxes(boxes, scores, minObjectness, nmsThreshold)
	detections := make([]models.Detection, 0, len(keep))
	for _, idx := range keep {
		name := "unknown"
		if classIDs[idx] < len(y.labels) {
			name = y.labels[classIDs[idx]]
		}
		detections = append(detections, models.Detection{
			XMin:       boxes[idx].Min.X,
			YMin:       boxes[idx].Min.Y,
			XMax:       boxes[idx].Max.X,
			YMax:       boxes[idx].Max.Y,
			Confidence: float64(scores[idx]),
			Name:       name,
		})
	}
	return detections
}
