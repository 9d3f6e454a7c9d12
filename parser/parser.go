package parser

import (
	"encoding/json"
	"strings"

	"inspection-pipeline/models"
)

// AnalysisResult represents the parsed analysis from the reasoning service.
type AnalysisResult struct {
	Issues         []models.IssueDraft
	SuggestedPrice *float64
}

// rawIssue mirrors the upstream issue shape with every field optional, so
// defaults can be applied per field. Cost fields accept both camelCase and
// snake_case keys, as the upstream model emits either.
type rawIssue struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	Priority      *string  `json:"priority"`
	Category      *string  `json:"category"`
	ConcernLevel  *int     `json:"concernLevel"`
	CostLow       *float64 `json:"estimatedCostLow"`
	CostHigh      *float64 `json:"estimatedCostHigh"`
	CostLowSnake  *float64 `json:"estimated_cost_low"`
	CostHighSnake *float64 `json:"estimated_cost_high"`
}

type rawAnalysis struct {
	Issues         []rawIssue `json:"issues"`
	SuggestedPrice *float64   `json:"suggestedPrice"`
}

// extractJSONFromMarkdown extracts JSON from markdown code blocks
func extractJSONFromMarkdown(response string) string {
	// Look for JSON code blocks with ``` markers
	startMarker := "```"
	endMarker := "```"

	startIdx := strings.Index(response, startMarker)
	if startIdx == -1 {
		// No code block found, try to find JSON object directly
		startIdx = strings.Index(response, "{")
		if startIdx == -1 {
			return response
		}
		endIdx := strings.LastIndex(response, "}")
		if endIdx == -1 {
			return response
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	// Find the end of the first code block
	endIdx := strings.Index(response[startIdx+len(startMarker):], endMarker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(startMarker)

	// Extract content between the markers
	content := response[startIdx+len(startMarker) : endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(content)
}

// ParseAnalysis parses the reasoning service response into issue drafts.
// A malformed response is not an error: it degrades to an empty issue list
// and a nil suggested price so one bad upstream payload never aborts the
// enclosing ingestion request. Every returned draft is fully populated.
func ParseAnalysis(response string) *AnalysisResult {
	cleaned := strings.TrimSpace(response)
	jsonContent := extractJSONFromMarkdown(cleaned)

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return &AnalysisResult{Issues: []models.IssueDraft{}}
	}

	result := &AnalysisResult{
		Issues:         make([]models.IssueDraft, 0, len(raw.Issues)),
		SuggestedPrice: raw.SuggestedPrice,
	}
	for _, issue := range raw.Issues {
		result.Issues = append(result.Issues, applyDefaults(issue))
	}
	return result
}

func applyDefaults(issue rawIssue) models.IssueDraft {
	draft := models.IssueDraft{
		Title:        "Unknown Issue",
		Priority:     "Moderate",
		Category:     "General",
		ConcernLevel: 5,
	}
	if issue.Title != nil && *issue.Title != "" {
		draft.Title = *issue.Title
	}
	if issue.Description != nil {
		draft.Description = *issue.Description
	}
	if issue.Priority != nil && *issue.Priority != "" {
		draft.Priority = *issue.Priority
	}
	if issue.Category != nil && *issue.Category != "" {
		draft.Category = *issue.Category
	}
	if issue.ConcernLevel != nil {
		draft.ConcernLevel = *issue.ConcernLevel
	}
	switch {
	case issue.CostLow != nil:
		draft.CostLow = *issue.CostLow
	case issue.CostLowSnake != nil:
		draft.CostLow = *issue.CostLowSnake
	}
	switch {
	case issue.CostHigh != nil:
		draft.CostHigh = *issue.CostHigh
	case issue.CostHighSnake != nil:
		draft.CostHigh = *issue.CostHighSnake
	}
	return draft
}
