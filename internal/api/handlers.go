package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/symptom-dx-server/internal/domain"
	"github.com/symptom-dx-server/internal/history"
	"github.com/symptom-dx-server/internal/middleware"
	"github.com/symptom-dx-server/internal/service"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// DiagnoseRequest is the body of POST /api/diagnose.
type DiagnoseRequest struct {
	Symptoms *domain.Submission `json:"symptoms"`
	// AutoAccept applies fuzzy suggestions without confirmation.
	AutoAccept *bool `json:"auto_accept_suggestions"`
	// AutoUse is the older name of AutoAccept.
	AutoUse *bool `json:"auto_use_suggestions"`
}

func (r DiagnoseRequest) autoAccept() bool {
	if r.AutoAccept != nil {
		return *r.AutoAccept
	}
	if r.AutoUse != nil {
		return *r.AutoUse
	}
	return false
}

// CandidateResponse is one ranked diagnosis in a response.
type CandidateResponse struct {
	Disease         string                `json:"disease"`
	Confidence      float64               `json:"confidence"`
	ConfidenceLevel domain.ConfidenceTier `json:"confidence_level"`
}

// DiagnoseResponse is the success body of POST /api/diagnose.
type DiagnoseResponse struct {
	Status            string              `json:"status"`
	ProcessedSymptoms []string            `json:"processed_symptoms"`
	Suggestions       domain.Suggestions  `json:"suggestions"`
	TopDiagnosis      string              `json:"top_diagnosis"`
	Results           []CandidateResponse `json:"results"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status            string              `json:"status"`
	Code              string              `json:"code"`
	Message           string              `json:"message"`
	Details           string              `json:"details,omitempty"`
	RequestID         string              `json:"request_id"`
	Suggestions       *domain.Suggestions `json:"suggestions,omitempty"`
	ProcessedSymptoms *[]string           `json:"processed_symptoms,omitempty"`
}

// handleHome reports whether the service is up and the model loaded
func (s *Server) handleHome(c *gin.Context) {
	body := gin.H{
		"status":         "online",
		"message":        "Symptom diagnosis API is running",
		"model_loaded":   false,
		"symptoms_count": 0,
		"state":          s.engine.State().String(),
	}
	if ctrl, err := s.engine.Controller(); err == nil {
		body["model_loaded"] = true
		body["symptoms_count"] = ctrl.Runtime().Catalogue.Len()
	}
	c.JSON(http.StatusOK, body)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if s.engine.State() != service.EngineReady {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	body := gin.H{
		"status":    status,
		"state":     s.engine.State().String(),
		"timestamp": time.Now().UTC(),
		"version":   s.version,
	}
	if ctrl, err := s.engine.Controller(); err == nil {
		body["components"] = ctrl.Runtime().Stats(c.Request.Context())
	}
	c.JSON(code, body)
}

// handleSymptoms lists the catalogue
func (s *Server) handleSymptoms(c *gin.Context) {
	ctrl, err := s.engine.Controller()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"symptoms": ctrl.List(),
	})
}

// handleSearchSymptoms searches the catalogue by substring
func (s *Server) handleSearchSymptoms(c *gin.Context) {
	ctrl, err := s.engine.Controller()
	if err != nil {
		s.respondError(c, err)
		return
	}

	term, ok := c.GetQuery("term")
	if !ok || term == "" {
		s.respondError(c, domain.NewDiagnosisError(domain.ErrCodeInvalidInput, "Search term is required", ""))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": ctrl.Search(term),
	})
}

// handleDiagnose runs a single-shot diagnosis
func (s *Server) handleDiagnose(c *gin.Context) {
	ctrl, err := s.engine.Controller()
	if err != nil {
		s.respondError(c, err)
		return
	}

	var req DiagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, invalidBody(err))
		return
	}
	if req.Symptoms == nil {
		s.respondError(c, domain.NewDiagnosisError(domain.ErrCodeEmptyInput, "Symptoms are required", ""))
		return
	}

	diagnosis, err := ctrl.Diagnose(s.requestContext(c), *req.Symptoms, req.autoAccept())
	if err != nil {
		s.respondError(c, err)
		return
	}

	results := make([]CandidateResponse, 0, len(diagnosis.Candidates))
	for _, cand := range diagnosis.Candidates {
		results = append(results, CandidateResponse{
			Disease:         cand.Disease,
			Confidence:      cand.Confidence,
			ConfidenceLevel: cand.Tier(),
		})
	}

	c.JSON(http.StatusOK, DiagnoseResponse{
		Status:            "success",
		ProcessedSymptoms: diagnosis.Resolution.Resolved,
		Suggestions:       diagnosis.Resolution.Suggestions,
		TopDiagnosis:      diagnosis.TopLabel,
		Results:           results,
	})
}

// handleHistory pages through recorded diagnoses
func (s *Server) handleHistory(c *gin.Context) {
	ctrl, err := s.engine.Controller()
	if err != nil {
		s.respondError(c, err)
		return
	}

	store := ctrl.History()
	if store == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Status:    "error",
			Code:      domain.ErrCodeHistoryDisabled,
			Message:   "Diagnosis history is not enabled",
			RequestID: c.GetString(middleware.RequestIDKey),
		})
		return
	}

	limit, err := queryInt(c, "limit", defaultHistoryLimit)
	if err != nil || limit <= 0 || limit > maxHistoryLimit {
		s.respondError(c, domain.NewDiagnosisError(domain.ErrCodeInvalidInput, "limit must be between 1 and 100", ""))
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(c, domain.NewDiagnosisError(domain.ErrCodeInvalidInput, "offset must be a non-negative integer", ""))
		return
	}

	ctx := s.requestContext(c)
	records, err := store.List(ctx, limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	total, err := store.Count(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if records == nil {
		records = []*history.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"total":   total,
		"limit":   limit,
		"offset":  offset,
		"records": records,
	})
}

func (s *Server) requestContext(c *gin.Context) context.Context {
	return service.ContextWithRequestID(c.Request.Context(), c.GetString(middleware.RequestIDKey))
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
