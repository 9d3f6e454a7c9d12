package models

// AnalyzeImageRequest is the ingestion request submitted by the external
// log-processing driver, one cleaned frame at a time.
type AnalyzeImageRequest struct {
	PropertyID string      `json:"property_id"`
	Timestamp  string      `json:"timestamp"`
	Detections []Detection `json:"detections"`
	ImageRef   ImageRef    `json:"image_ref"`
}

// SavedIssue is the per-issue projection returned from an ingestion call.
type SavedIssue struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Priority     string `json:"priority"`
	ConcernLevel int    `json:"concern_level"`
	CostRange    string `json:"costRange"`
}

// AnalyzeImageResponse is the ingestion response. SuggestedPrice is null
// when the analysis service offered no price adjustment.
type AnalyzeImageResponse struct {
	Success            bool         `json:"success"`
	Timestamp          string       `json:"timestamp,omitempty"`
	DetectionsReceived int          `json:"detectionsReceived"`
	IssuesSaved        int          `json:"issuesSaved"`
	SuggestedPrice     *float64     `json:"suggestedPrice"`
	Data               []SavedIssue `json:"data"`
	Error              string       `json:"error,omitempty"`
}

// PropertyDetail nests the full current issue list into the property
// summary shape.
type PropertyDetail struct {
	Property
	Issues []Issue `json:"issues"`
}
