package parser

import (
	"testing"

	"inspection-pipeline/models"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantCount int
		expected  *models.IssueDraft
		wantPrice *float64
	}{
		{
			name: "valid JSON response",
			response: `{
				"issues": [{
					"title": "Concrete Floor Crack - Near Entrance",
					"description": "A horizontal crack measuring approximately 3 feet is visible on the concrete floor.",
					"priority": "High",
					"category": "Structural",
					"concernLevel": 7,
					"estimatedCostLow": 500,
					"estimatedCostHigh": 1500
				}],
				"suggestedPrice": -12000
			}`,
			wantCount: 1,
			expected: &models.IssueDraft{
				Title:        "Concrete Floor Crack - Near Entrance",
				Description:  "A horizontal crack measuring approximately 3 feet is visible on the concrete floor.",
				Priority:     "High",
				Category:     "Structural",
				ConcernLevel: 7,
				CostLow:      500,
				CostHigh:     1500,
			},
			wantPrice: floatPtr(-12000),
		},
		{
			name: "JSON wrapped in markdown fences",
			response: "```json\n" + `{
				"issues": [{
					"title": "Drywall Water Damage - Ceiling",
					"priority": "Critical",
					"concernLevel": 9
				}],
				"suggestedPrice": null
			}` + "\n```",
			wantCount: 1,
			expected: &models.IssueDraft{
				Title:        "Drywall Water Damage - Ceiling",
				Description:  "",
				Priority:     "Critical",
				Category:     "General",
				ConcernLevel: 9,
				CostLow:      0,
				CostHigh:     0,
			},
		},
		{
			name: "missing fields receive defaults",
			response: `{
				"issues": [{
					"title": "Surface Stain"
				}]
			}`,
			wantCount: 1,
			expected: &models.IssueDraft{
				Title:        "Surface Stain",
				Description:  "",
				Priority:     "Moderate",
				Category:     "General",
				ConcernLevel: 5,
				CostLow:      0,
				CostHigh:     0,
			},
		},
		{
			name: "snake_case cost keys accepted",
			response: `{
				"issues": [{
					"title": "Roof Damage",
					"estimated_cost_low": 2000,
					"estimated_cost_high": 8000
				}]
			}`,
			wantCount: 1,
			expected: &models.IssueDraft{
				Title:        "Roof Damage",
				Priority:     "Moderate",
				Category:     "General",
				ConcernLevel: 5,
				CostLow:      2000,
				CostHigh:     8000,
			},
		},
		{
			name:      "malformed response degrades to empty list",
			response:  "I could not analyze this image, sorry!",
			wantCount: 0,
		},
		{
			name:      "truncated JSON degrades to empty list",
			response:  `{"issues": [{"title": "Crack", "concern`,
			wantCount: 0,
		},
		{
			name:      "empty issues list",
			response:  `{"issues": [], "suggestedPrice": null}`,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseAnalysis(tt.response)
			if result == nil {
				t.Fatal("ParseAnalysis returned nil")
			}
			if len(result.Issues) != tt.wantCount {
				t.Fatalf("got %d issues, want %d", len(result.Issues), tt.wantCount)
			}
			if tt.expected != nil {
				got := result.Issues[0]
				if got != *tt.expected {
					t.Errorf("issue mismatch:\n got %+v\nwant %+v", got, *tt.expected)
				}
			}
			if tt.wantPrice != nil {
				if result.SuggestedPrice == nil || *result.SuggestedPrice != *tt.wantPrice {
					t.Errorf("suggested price mismatch: got %v, want %v", result.SuggestedPrice, *tt.wantPrice)
				}
			} else if result.SuggestedPrice != nil {
				t.Errorf("expected nil suggested price, got %v", *result.SuggestedPrice)
			}
		})
	}
}

func TestExtractJSONFromMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare JSON passes through",
			input:    `{"issues": []}`,
			expected: `{"issues": []}`,
		},
		{
			name:     "fenced with language tag",
			input:    "```json\n{\"issues\": []}\n```",
			expected: `{"issues": []}`,
		},
		{
			name:     "fenced without language tag",
			input:    "```\n{\"issues\": []}\n```",
			expected: `{"issues": []}`,
		},
		{
			name:     "prose around JSON object",
			input:    "Here is the analysis: {\"issues\": []} Hope this helps.",
			expected: `{"issues": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSONFromMarkdown(tt.input)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func floatPtr(f float64) *float64 { return &f }
