package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"

	"inspection-pipeline/apperrors"
	"inspection-pipeline/config"
	"inspection-pipeline/database"
	"inspection-pipeline/llm"
	"inspection-pipeline/metrics"
	"inspection-pipeline/models"
	"inspection-pipeline/parser"
)

// IssueStore is the persistence surface the analyzer depends on.
type IssueStore interface {
	PropertyExists(propertyID string) (bool, error)
	SaveIssues(propertyID, imageURL string, drafts []models.IssueDraft) ([]models.SavedIssue, error)
	RecomputeRollup(propertyID string) (models.Rollup, error)
	GetProperty(propertyID string) (*models.Property, error)
	GetPropertyIssues(propertyID string) ([]models.Issue, error)
	ListProperties() ([]models.Property, error)
}

// FrameStore resolves frame images and cleaned logs produced by the capture
// side of the pipeline.
type FrameStore interface {
	ResolveImage(ref models.ImageRef) ([]byte, error)
	ReadCleanedLog(runID string) ([]models.CleanedEntry, error)
}

// FrameResult is the outcome of one frame inside a batch run.
type FrameResult struct {
	Timestamp   string `json:"timestamp"`
	IssuesSaved int    `json:"issuesSaved"`
	Error       string `json:"error,omitempty"`
}

// BatchResult summarizes the ingestion of one cleaned log.
type BatchResult struct {
	RunID           string        `json:"runId"`
	PropertyID      string        `json:"propertyId"`
	FramesProcessed int           `json:"framesProcessed"`
	FramesFailed    int           `json:"framesFailed"`
	IssuesSaved     int           `json:"issuesSaved"`
	Frames          []FrameResult `json:"frames"`
}

// Service runs the frame analysis pipeline: it hands filtered frames to the
// reasoning service, parses the response into issues, persists them, and
// recomputes the owning property's rollup.
type Service struct {
	config    *config.Config
	store     IssueStore
	frames    FrameStore
	llmClient llm.Client

	// Writes and rollup recomputation are serialized per property so
	// concurrent ingestion for the same property cannot interleave.
	mu        sync.Mutex
	propLocks map[string]*sync.Mutex
}

// NewService creates a new analysis service.
func NewService(cfg *config.Config, store IssueStore, frames FrameStore, client llm.Client) *Service {
	log.Infof("analyzer LLM provider=%s model=%s", client.SourceName(), cfg.AnthropicModel)
	return &Service{
		config:    cfg,
		store:     store,
		frames:    frames,
		llmClient: client,
		propLocks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) propertyLock(propertyID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.propLocks[propertyID]
	if !ok {
		l = &sync.Mutex{}
		s.propLocks[propertyID] = l
	}
	return l
}

// AnalyzeImage ingests one cleaned frame referenced by its stored image.
func (s *Service) AnalyzeImage(ctx context.Context, req *models.AnalyzeImageRequest) (*models.AnalyzeImageResponse, error) {
	start := time.Now()
	resp, err := s.analyzeImage(ctx, req)
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.IngestDurationSeconds.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return resp, err
}

func (s *Service) analyzeImage(ctx context.Context, req *models.AnalyzeImageRequest) (*models.AnalyzeImageResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.checkProperty(req.PropertyID); err != nil {
		return nil, err
	}

	image, err := s.frames.ResolveImage(req.ImageRef)
	if err != nil {
		return nil, apperrors.NotFound(fmt.Errorf("image %q not found: %w", req.ImageRef, err))
	}

	return s.analyzeFrame(ctx, req.PropertyID, req.Timestamp, req.Detections, image, string(req.ImageRef))
}

// ProcessCleanedLog ingests every frame of a cleaned log against one
// property. A failed upstream call fails only its frame; the batch carries
// on. Persistence failures abort the batch.
func (s *Service) ProcessCleanedLog(ctx context.Context, propertyID, runID string) (*BatchResult, error) {
	if propertyID == "" {
		return nil, apperrors.Input(errors.New("property_id is required"))
	}
	if runID == "" {
		return nil, apperrors.Input(errors.New("run_id is required"))
	}
	if err := s.checkProperty(propertyID); err != nil {
		return nil, err
	}

	entries, err := s.frames.ReadCleanedLog(runID)
	if err != nil {
		return nil, apperrors.NotFound(fmt.Errorf("cleaned log %q not found: %w", runID, err))
	}

	batch := &BatchResult{RunID: runID, PropertyID: propertyID}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		image, err := base64.StdEncoding.DecodeString(entry.ImageBase64)
		if err != nil {
			batch.FramesFailed++
			batch.Frames = append(batch.Frames, FrameResult{
				Timestamp: entry.Timestamp,
				Error:     fmt.Sprintf("undecodable frame image: %v", err),
			})
			continue
		}

		resp, err := s.analyzeFrame(ctx, propertyID, entry.Timestamp, entry.Detections, image, "")
		if err != nil {
			if apperrors.IsUpstream(err) {
				log.WithField("timestamp", entry.Timestamp).
					Warnf("frame analysis failed, continuing batch: %v", err)
				batch.FramesFailed++
				batch.Frames = append(batch.Frames, FrameResult{
					Timestamp: entry.Timestamp,
					Error:     err.Error(),
				})
				continue
			}
			return batch, err
		}

		batch.FramesProcessed++
		batch.IssuesSaved += resp.IssuesSaved
		batch.Frames = append(batch.Frames, FrameResult{
			Timestamp:   entry.Timestamp,
			IssuesSaved: resp.IssuesSaved,
		})
	}

	log.WithFields(log.Fields{
		"run_id":      runID,
		"property_id": propertyID,
		"processed":   batch.FramesProcessed,
		"failed":      batch.FramesFailed,
		"issues":      batch.IssuesSaved,
	}).Info("cleaned log ingested")
	return batch, nil
}

// analyzeFrame is the shared per-frame pipeline: reasoning call, parse,
// persist, rollup.
func (s *Service) analyzeFrame(ctx context.Context, propertyID, timestamp string, detections []models.Detection, image []byte, imageURL string) (*models.AnalyzeImageResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.AnalysisTimeout)
	defer cancel()

	raw, err := s.llmClient.AnalyzeFrame(callCtx, image, llm.DetectionSummary(detections))
	if err != nil {
		metrics.AnalysisCallsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Upstream(fmt.Errorf("%s analysis failed: %w", s.llmClient.SourceName(), err))
	}
	metrics.AnalysisCallsTotal.WithLabelValues("success").Inc()

	// A malformed payload degrades to zero issues; the frame still succeeds.
	result := parser.ParseAnalysis(raw)

	resp := &models.AnalyzeImageResponse{
		Success:            true,
		Timestamp:          timestamp,
		DetectionsReceived: len(detections),
		SuggestedPrice:     result.SuggestedPrice,
		Data:               []models.SavedIssue{},
	}
	if len(result.Issues) == 0 {
		log.WithFields(log.Fields{
			"property_id": propertyID,
			"timestamp":   timestamp,
		}).Info("analysis produced no issues")
		return resp, nil
	}

	lock := s.propertyLock(propertyID)
	lock.Lock()
	defer lock.Unlock()

	saved, err := s.store.SaveIssues(propertyID, imageURL, result.Issues)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to save issues: %w", err))
	}
	rollup, err := s.store.RecomputeRollup(propertyID)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to recompute rollup: %w", err))
	}

	metrics.IssuesSavedTotal.Add(float64(len(saved)))
	log.WithFields(log.Fields{
		"property_id":  propertyID,
		"timestamp":    timestamp,
		"issues_saved": len(saved),
		"total_issues": rollup.TotalIssues,
	}).Info("frame analyzed")

	resp.IssuesSaved = len(saved)
	resp.Data = saved
	return resp, nil
}

// GetProperty returns one property with its full issue list.
func (s *Service) GetProperty(propertyID string) (*models.PropertyDetail, error) {
	if propertyID == "" {
		return nil, apperrors.Input(errors.New("property_id is required"))
	}
	property, err := s.store.GetProperty(propertyID)
	if errors.Is(err, database.ErrPropertyNotFound) {
		return nil, apperrors.NotFound(err)
	}
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	issues, err := s.store.GetPropertyIssues(propertyID)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	return &models.PropertyDetail{Property: *property, Issues: issues}, nil
}

// ListProperties returns every property with its current rollup.
func (s *Service) ListProperties() ([]models.Property, error) {
	properties, err := s.store.ListProperties()
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if properties == nil {
		properties = []models.Property{}
	}
	return properties, nil
}

func (s *Service) checkProperty(propertyID string) error {
	exists, err := s.store.PropertyExists(propertyID)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to check property: %w", err))
	}
	if !exists {
		return apperrors.NotFound(fmt.Errorf("property %q not found", propertyID))
	}
	return nil
}

func validateRequest(req *models.AnalyzeImageRequest) error {
	if req == nil {
		return apperrors.Input(errors.New("request body is required"))
	}
	if req.PropertyID == "" {
		return apperrors.Input(errors.New("property_id is required"))
	}
	if req.ImageRef == "" {
		return apperrors.Input(errors.New("image_ref is required"))
	}
	if len(req.Detections) == 0 {
		return apperrors.Input(errors.New("at least one detection is required"))
	}
	return nil
}
