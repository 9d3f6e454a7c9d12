package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
)

const promptTemplate = `
You are a professional home inspector with 20+ years of experience. Analyze this property inspection image carefully.

DETECTION DATA:
%s

CRITICAL INSTRUCTIONS:
1. Look at the ACTUAL image content, not just the detection labels
2. Identify what you actually see - be SPECIFIC about the type of surface (concrete floor, drywall ceiling, wood beam, tile wall, etc.)
3. DO NOT use generic terms - instead of "window frame" say "concrete wall", "floor surface", "ceiling", etc.
4. Provide detailed, actionable descriptions
5. Include professional recommendations

ANALYSIS REQUIREMENTS FOR EACH ISSUE:

**Title Format**: [Material Type] + [Issue Type] + [Location if notable]
Examples: "Concrete Floor Crack - Near Entrance", "Drywall Water Damage - Ceiling", "Wood Beam Structural Crack"

**Description Format** (3-4 sentences):
1. Physical description of the damage and its approximate size.
2. Assessment of what this type of damage typically indicates.
3. A specific recommendation (e.g. "consulting a structural engineer", "monitoring for changes", "immediate repair").
4. Urgency timeline (e.g. "Address within 30 days", "Requires immediate attention").

**Category Options**: Structural, Exterior, Interior, Plumbing, Electrical, HVAC, Safety, Cosmetic
**Priority**: Low/Moderate/High/Critical
**Concern Level**: 1-10 (1=minor cosmetic, 10=immediate safety hazard)

IMPORTANT: Make each description UNIQUE. Vary your language and provide different details for similar issues.

Respond ONLY with valid JSON:
{
  "issues": [
    {
      "title": "Specific Material + Issue + Location",
      "description": "4-sentence detailed description with physical details, assessment, recommendation, and timeline",
      "priority": "Priority level",
      "category": "Category",
      "concernLevel": 1-10,
      "estimatedCostLow": realistic_low_estimate,
      "estimatedCostHigh": realistic_high_estimate
    }
  ],
  "suggestedPrice": property_value_adjustment
}
`

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Client calls the Anthropic messages API with a multimodal payload. Every
// call carries a bounded timeout; on expiry the call fails like any other
// non-success response.
type Client struct {
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	baseURL   string // overrides the API endpoint in tests
}

// NewClient creates a new Anthropic client. timeout bounds each call.
func NewClient(apiKey, model string, maxTokens int, timeout time.Duration) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
	}
}

// SourceName identifies this provider in logs.
func (c *Client) SourceName() string {
	return "Claude"
}

// AnalyzeFrame sends one frame image plus its detection summary and returns
// the raw response text. No retry is performed here; a failed call fails
// only the frame in flight.
func (c *Client) AnalyzeFrame(ctx context.Context, imageData []byte, detectionSummary string) (string, error) {
	reqBody := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []message{
			{
				Role: "user",
				Content: []contentBlock{
					{Type: "text", Text: fmt.Sprintf(promptTemplate, detectionSummary)},
					{
						Type: "image",
						Source: &imageSource{
							Type:      "base64",
							MediaType: "image/jpeg",
							Data:      base64.StdEncoding.EncodeToString(imageData),
						},
					},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(msgResp.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return msgResp.Content[0].Text, nil
}

// endpoint is overridable for tests via baseURL.
func (c *Client) endpoint() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return anthropicEndpoint
}
