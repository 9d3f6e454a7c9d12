package models

// Detection represents a single labeled bounding box produced by the
// detector for one frame. Confidence is in [0, 1].
type Detection struct {
	XMin       int     `json:"xmin"`
	YMin       int     `json:"ymin"`
	XMax       int     `json:"xmax"`
	YMax       int     `json:"ymax"`
	Confidence float64 `json:"confidence"`
	Name       string  `json:"name"`
}

// ImageRef is an opaque reference to a stored raw frame. Only the log store
// knows how to resolve it to bytes.
type ImageRef string

// LogEntry is one frame tick of a detection log: capture timestamp with
// millisecond precision, the detections observed on that frame, and a
// reference to the raw image.
type LogEntry struct {
	Timestamp  string      `json:"timestamp"`
	Detections []Detection `json:"detections"`
	ImageRef   ImageRef    `json:"image_ref"`
}

// CleanedEntry is a frame tick that survived confidence/class filtering.
// The image is embedded as base64 so downstream consumers do not need access
// to the frame store.
type CleanedEntry struct {
	Timestamp   string      `json:"timestamp"`
	Detections  []Detection `json:"detections"`
	ImageBase64 string      `json:"image_base64"`
}

// TimestampLayout is the frame tick timestamp format (HH:MM:SS.mmm).
const TimestampLayout = "15:04:05.000"
