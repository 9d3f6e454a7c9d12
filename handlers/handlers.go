package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inspection-pipeline/apperrors"
	"inspection-pipeline/models"
	"inspection-pipeline/service"
)

// Handlers represents the HTTP handlers
type Handlers struct {
	svc *service.Service
}

// NewHandlers creates new HTTP handlers
func NewHandlers(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "inspection-pipeline",
	})
}

// AnalyzeImage ingests one cleaned frame.
func (h *Handlers) AnalyzeImage(c *gin.Context) {
	var req models.AnalyzeImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.AnalyzeImageResponse{
			Success: false,
			Error:   "Invalid JSON body",
		})
		return
	}

	resp, err := h.svc.AnalyzeImage(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusFor(err), models.AnalyzeImageResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type processLogRequest struct {
	PropertyID string `json:"property_id"`
	RunID      string `json:"run_id"`
}

// ProcessLog ingests a full cleaned log against one property.
func (h *Handlers) ProcessLog(c *gin.Context) {
	var req processLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	batch, err := h.svc.ProcessCleanedLog(c.Request.Context(), req.PropertyID, req.RunID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, batch)
}

// ListProperties returns all properties with their rollup fields.
func (h *Handlers) ListProperties(c *gin.Context) {
	properties, err := h.svc.ListProperties()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": properties})
}

// GetProperty returns one property with its full issue list.
func (h *Handlers) GetProperty(c *gin.Context) {
	detail, err := h.svc.GetProperty(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": detail})
}

func statusFor(err error) int {
	switch {
	case apperrors.IsInput(err):
		return http.StatusBadRequest
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
