package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/drugshield-risk-server/internal/domain"
	"github.com/drugshield-risk-server/internal/scoring"
	"github.com/drugshield-risk-server/internal/service"
)

// analyzeRequest is the transport shape of the analyze endpoint.
type analyzeRequest struct {
	PatientName string              `json:"patient_name" binding:"max=60"`
	Age         int                 `json:"age" binding:"required,gte=1,lte=120"`
	Meds        []medicationPayload `json:"meds" binding:"required,min=1,max=100,dive"`
}

type medicationPayload struct {
	Name      string `json:"name" binding:"required,max=100"`
	Dose      string `json:"dose" binding:"max=50"`
	Frequency string `json:"frequency" binding:"max=50"`
}

// handleHealth reports liveness plus the contract and engine versions.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":                   true,
		"api_version":          service.APIVersion,
		"score_engine_version": scoring.EngineVersion,
	})
}

// handleAnalyze runs one full risk analysis.
func (s *Server) handleAnalyze(c *gin.Context) {
	requestID := c.GetString("request_id")

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.ErrValidation, "Invalid request body.", err.Error(), requestID))
		return
	}

	meds := make([]domain.MedicationInput, 0, len(req.Meds))
	for _, m := range req.Meds {
		meds = append(meds, domain.MedicationInput{
			Name:      m.Name,
			Dose:      m.Dose,
			Frequency: m.Frequency,
		})
	}

	resp, err := s.analyzer.Analyze(c.Request.Context(), service.AnalysisRequest{
		RequestID:   requestID,
		PatientName: req.PatientName,
		Age:         req.Age,
		Medications: meds,
	})
	if err != nil {
		s.writeAnalyzeError(c, err, requestID)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleGetAssessment retrieves a persisted assessment by ID.
func (s *Server) handleGetAssessment(c *gin.Context) {
	requestID := c.GetString("request_id")
	id := strings.TrimSpace(c.Param("id"))

	record, err := s.analyzer.GetAssessment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, domain.NewAPIError(
				domain.ErrInvalidInput, "Assessment not found.", id, requestID))
			return
		}
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadRequest, apiErr)
			return
		}
		s.logger.WithError(err).WithField("assessment_id", id).Error("Failed to load assessment")
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(
			domain.ErrDatabaseError, "Failed to load assessment.", "", requestID))
		return
	}

	c.JSON(http.StatusOK, record)
}

// writeAnalyzeError maps pipeline errors to HTTP responses.
func (s *Server) writeAnalyzeError(c *gin.Context, err error, requestID string) {
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		c.JSON(http.StatusBadRequest, domain.NewAPIError(
			domain.ErrValidation, valErr.Message, valErr.Field, requestID))
		return
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case domain.ErrNoResolvableMeds:
			c.JSON(http.StatusUnprocessableEntity, apiErr)
		case domain.ErrExternalAPI:
			c.JSON(http.StatusServiceUnavailable, apiErr)
		default:
			c.JSON(http.StatusInternalServerError, apiErr)
		}
		return
	}

	s.logger.WithError(err).Error("Analysis failed")
	c.JSON(http.StatusInternalServerError, domain.NewAPIError(
		domain.ErrInternalServer, "Analysis failed.", "", requestID))
}
