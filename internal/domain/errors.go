package domain

import (
	"fmt"
	"time"
)

// DiagnosisError represents a reported, recoverable outcome of a diagnosis
// attempt. None of these crash the process; transports render them verbatim.
type DiagnosisError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`

	// Resolution is the partial state of the attempt, when one exists.
	Resolution *ResolutionResult `json:"-"`
	cause      error
}

// Error implements the error interface
func (e *DiagnosisError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *DiagnosisError) Unwrap() error {
	return e.cause
}

// Is matches any DiagnosisError carrying the same code, so callers can use
// errors.Is(err, domain.ErrNoValidSymptoms).
func (e *DiagnosisError) Is(target error) bool {
	t, ok := target.(*DiagnosisError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Error codes for the diagnosis pipeline and its transports
const (
	ErrCodeEmptyInput             = "EMPTY_INPUT"
	ErrCodeNoValidSymptoms        = "NO_VALID_SYMPTOMS"
	ErrCodeInsufficientConfidence = "INSUFFICIENT_CONFIDENCE"
	ErrCodeNotReady               = "NOT_READY"
	ErrCodeClassifierFailure      = "CLASSIFIER_FAILURE"
	ErrCodeInvalidInput           = "INVALID_INPUT"
	ErrCodeRateLimit              = "RATE_LIMIT_EXCEEDED"
	ErrCodeHistoryDisabled        = "HISTORY_DISABLED"
	ErrCodeInternalServer         = "INTERNAL_SERVER_ERROR"
)

// Sentinels for errors.Is comparisons.
var (
	ErrEmptyInput             = &DiagnosisError{Code: ErrCodeEmptyInput}
	ErrNoValidSymptoms        = &DiagnosisError{Code: ErrCodeNoValidSymptoms}
	ErrInsufficientConfidence = &DiagnosisError{Code: ErrCodeInsufficientConfidence}
	ErrNotReady               = &DiagnosisError{Code: ErrCodeNotReady}
	ErrClassifierFailure      = &DiagnosisError{Code: ErrCodeClassifierFailure}
)

// NewDiagnosisError creates a new DiagnosisError with timestamp
func NewDiagnosisError(code, message, details string) *DiagnosisError {
	return &DiagnosisError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// WithResolution attaches the attempt's resolution state.
func (e *DiagnosisError) WithResolution(res ResolutionResult) *DiagnosisError {
	e.Resolution = &res
	return e
}

// WithCause records the underlying error.
func (e *DiagnosisError) WithCause(err error) *DiagnosisError {
	e.cause = err
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
}

// WithRequestID tags the error with the transport request identifier.
func (e *DiagnosisError) WithRequestID(requestID string) *DiagnosisError {
	e.RequestID = requestID
	return e
}

// NewEmptyInputError reports a submission with no usable tokens.
func NewEmptyInputError() *DiagnosisError {
	return NewDiagnosisError(ErrCodeEmptyInput, "No symptoms were provided", "")
}

// NewNoValidSymptomsError reports a submission where nothing resolved.
func NewNoValidSymptomsError() *DiagnosisError {
	return NewDiagnosisError(ErrCodeNoValidSymptoms, "No valid symptoms found", "")
}

// NewInsufficientConfidenceError reports an empty ranking after thresholding.
func NewInsufficientConfidenceError() *DiagnosisError {
	return NewDiagnosisError(ErrCodeInsufficientConfidence, InsufficientConfidenceLabel, "")
}

// NewNotReadyError reports a request received before initialization completed.
func NewNotReadyError(details string) *DiagnosisError {
	return NewDiagnosisError(ErrCodeNotReady, "Model or required components not loaded", details)
}

// NewClassifierFailureError reports an error raised by the classifier adapter.
func NewClassifierFailureError(cause error) *DiagnosisError {
	return NewDiagnosisError(ErrCodeClassifierFailure, "Classifier failed to produce a distribution", "").WithCause(cause)
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
