package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/symptom-dx-server/internal/domain"
	"github.com/symptom-dx-server/internal/middleware"
)

// statusByCode maps error codes to HTTP status codes.
var statusByCode = map[string]int{
	domain.ErrCodeEmptyInput:             http.StatusBadRequest,
	domain.ErrCodeNoValidSymptoms:        http.StatusBadRequest,
	domain.ErrCodeInvalidInput:           http.StatusBadRequest,
	domain.ErrCodeInsufficientConfidence: http.StatusUnprocessableEntity,
	domain.ErrCodeNotReady:               http.StatusServiceUnavailable,
	domain.ErrCodeClassifierFailure:      http.StatusBadGateway,
	domain.ErrCodeRateLimit:              http.StatusTooManyRequests,
	domain.ErrCodeHistoryDisabled:        http.StatusNotFound,
	domain.ErrCodeInternalServer:         http.StatusInternalServerError,
}

// StatusFor returns the HTTP status for an error code.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// invalidBody converts a request decoding failure into INVALID_INPUT.
func invalidBody(err error) *domain.DiagnosisError {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return domain.NewDiagnosisError(domain.ErrCodeInvalidInput, ve.Message, "field: "+ve.Field)
	}
	return domain.NewDiagnosisError(domain.ErrCodeInvalidInput, "Invalid request body", err.Error())
}

// respondError renders err as an ErrorResponse. Unknown errors become
// INTERNAL_SERVER_ERROR and are logged.
func (s *Server) respondError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.RequestIDKey)

	var de *domain.DiagnosisError
	if !errors.As(err, &de) {
		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       c.FullPath(),
		}).WithError(err).Error("Unhandled request error")
		de = domain.NewDiagnosisError(domain.ErrCodeInternalServer, "Internal server error", "")
	}

	body := ErrorResponse{
		Status:    "error",
		Code:      de.Code,
		Message:   de.Message,
		Details:   de.Details,
		RequestID: requestID,
	}
	if de.Resolution != nil {
		suggestions := de.Resolution.Suggestions
		body.Suggestions = &suggestions
		resolved := de.Resolution.Resolved
		if resolved == nil {
			resolved = []string{}
		}
		body.ProcessedSymptoms = &resolved
	}

	status := StatusFor(de.Code)
	if status >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"code":       de.Code,
			"status":     status,
		}).Warn(de.Message)
	}
	c.AbortWithStatusJSON(status, body)
}
