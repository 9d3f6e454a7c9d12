package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspection-pipeline/config"
	"inspection-pipeline/database"
	"inspection-pipeline/models"
	"inspection-pipeline/service"
)

type stubStore struct {
	exists bool
}

func (s *stubStore) PropertyExists(string) (bool, error) { return s.exists, nil }

func (s *stubStore) SaveIssues(propertyID, imageURL string, drafts []models.IssueDraft) ([]models.SavedIssue, error) {
	saved := make([]models.SavedIssue, len(drafts))
	for i, d := range drafts {
		saved[i] = models.SavedIssue{ID: "id", Title: d.Title, Priority: d.Priority, ConcernLevel: d.ConcernLevel}
	}
	return saved, nil
}

func (s *stubStore) RecomputeRollup(string) (models.Rollup, error) { return models.Rollup{}, nil }

func (s *stubStore) GetProperty(id string) (*models.Property, error) {
	if !s.exists {
		return nil, database.ErrPropertyNotFound
	}
	return &models.Property{ID: id, Address: "1 Main St", TotalIssues: 2}, nil
}

func (s *stubStore) GetPropertyIssues(string) ([]models.Issue, error) {
	return []models.Issue{{ID: "i1", Title: "Crack"}, {ID: "i2", Title: "Stain"}}, nil
}

func (s *stubStore) ListProperties() ([]models.Property, error) {
	return []models.Property{{ID: "prop-1"}}, nil
}

type stubFrames struct{ image []byte }

func (f *stubFrames) ResolveImage(models.ImageRef) ([]byte, error) {
	if f.image == nil {
		return nil, errors.New("no such frame")
	}
	return f.image, nil
}

func (f *stubFrames) ReadCleanedLog(string) ([]models.CleanedEntry, error) {
	return nil, errors.New("no such run")
}

type stubLLM struct{ response string }

func (l *stubLLM) AnalyzeFrame(context.Context, []byte, string) (string, error) {
	return l.response, nil
}

func (l *stubLLM) SourceName() string { return "stub" }

func newRouter(store *stubStore, frames *stubFrames, client *stubLLM) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{AnalysisTimeout: time.Second, AnthropicModel: "test"}
	h := NewHandlers(service.NewService(cfg, store, frames, client))

	router := gin.New()
	api := router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.POST("/analyze-image", h.AnalyzeImage)
		api.POST("/process-log", h.ProcessLog)
		api.GET("/properties", h.ListProperties)
		api.GET("/properties/:id", h.GetProperty)
	}
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := newRouter(&stubStore{}, &stubFrames{}, &stubLLM{})
	w := doJSON(router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestAnalyzeImageSuccess(t *testing.T) {
	store := &stubStore{exists: true}
	frames := &stubFrames{image: []byte("jpeg")}
	client := &stubLLM{response: `{"issues": [{"title": "Crack", "concernLevel": 7}], "suggestedPrice": null}`}
	router := newRouter(store, frames, client)

	w := doJSON(router, http.MethodPost, "/api/analyze-image", models.AnalyzeImageRequest{
		PropertyID: "prop-1",
		Timestamp:  "14:30:00.000",
		Detections: []models.Detection{{Confidence: 0.9, Name: "crack"}},
		ImageRef:   "run/frame_000001.jpg",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.AnalyzeImageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.IssuesSaved)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Crack", resp.Data[0].Title)
}

func TestAnalyzeImageStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		store  *stubStore
		frames *stubFrames
		req    models.AnalyzeImageRequest
		want   int
	}{
		{
			name:   "missing property_id",
			store:  &stubStore{exists: true},
			frames: &stubFrames{image: []byte("jpeg")},
			req: models.AnalyzeImageRequest{
				Detections: []models.Detection{{Name: "crack"}},
				ImageRef:   "ref",
			},
			want: http.StatusBadRequest,
		},
		{
			name:   "unknown property",
			store:  &stubStore{exists: false},
			frames: &stubFrames{image: []byte("jpeg")},
			req: models.AnalyzeImageRequest{
				PropertyID: "nope",
				Detections: []models.Detection{{Name: "crack"}},
				ImageRef:   "ref",
			},
			want: http.StatusNotFound,
		},
		{
			name:   "unresolvable image",
			store:  &stubStore{exists: true},
			frames: &stubFrames{},
			req: models.AnalyzeImageRequest{
				PropertyID: "prop-1",
				Detections: []models.Detection{{Name: "crack"}},
				ImageRef:   "ref",
			},
			want: http.StatusNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter(tc.store, tc.frames, &stubLLM{response: "{}"})
			w := doJSON(router, http.MethodPost, "/api/analyze-image", tc.req)
			assert.Equal(t, tc.want, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestProcessLogUnknownRun(t *testing.T) {
	router := newRouter(&stubStore{exists: true}, &stubFrames{}, &stubLLM{})
	w := doJSON(router, http.MethodPost, "/api/process-log",
		processLogRequest{PropertyID: "prop-1", RunID: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProperties(t *testing.T) {
	router := newRouter(&stubStore{exists: true}, &stubFrames{}, &stubLLM{})
	w := doJSON(router, http.MethodGet, "/api/properties", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool              `json:"success"`
		Data    []models.Property `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "prop-1", envelope.Data[0].ID)
}

func TestGetPropertyDetail(t *testing.T) {
	router := newRouter(&stubStore{exists: true}, &stubFrames{}, &stubLLM{})
	w := doJSON(router, http.MethodGet, "/api/properties/prop-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool                  `json:"success"`
		Data    models.PropertyDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "prop-1", envelope.Data.ID)
	assert.Len(t, envelope.Data.Issues, 2)
}

func TestGetPropertyNotFound(t *testing.T) {
	router := newRouter(&stubStore{exists: false}, &stubFrames{}, &stubLLM{})
	w := doJSON(router, http.MethodGet, "/api/properties/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}
