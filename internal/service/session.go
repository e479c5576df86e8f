package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/symptom-dx-server/internal/domain"
	"github.com/symptom-dx-server/internal/history"
)

// State is the position of an attempt in the diagnosis session.
type State int

const (
	StateAwaitingInput State = iota
	StateResolving
	StateAwaitingSuggestionConfirmation
	StateResolved
	StateDiagnosing
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateAwaitingInput:                  "AWAITING_INPUT",
	StateResolving:                      "RESOLVING",
	StateAwaitingSuggestionConfirmation: "AWAITING_SUGGESTION_CONFIRMATION",
	StateResolved:                       "RESOLVED",
	StateDiagnosing:                     "DIAGNOSING",
	StateCompleted:                      "COMPLETED",
	StateFailed:                         "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var (
	// ErrConfirmationPending is returned by Complete while suggestions await a decision.
	ErrConfirmationPending = errors.New("suggestions are awaiting confirmation")
	// ErrInvalidTransition is returned when an operation does not apply to the attempt's state.
	ErrInvalidTransition = errors.New("invalid session state transition")
)

type requestIDKey struct{}

// ContextWithRequestID tags ctx with a transport request identifier.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the identifier set by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Attempt is one pass through the session state machine. It is owned by a
// single caller and is not safe for concurrent use.
type Attempt struct {
	submission domain.Submission
	autoAccept bool
	state      State
	resolution domain.ResolutionResult
	diagnosis  *domain.Diagnosis
	err        error
	recorded   bool
}

// State returns the current state.
func (a *Attempt) State() State { return a.state }

// Resolution returns the resolution computed so far.
func (a *Attempt) Resolution() domain.ResolutionResult { return a.resolution }

// PendingSuggestions returns the suggestions awaiting confirmation, if any.
func (a *Attempt) PendingSuggestions() []domain.Suggestion {
	if a.state != StateAwaitingSuggestionConfirmation {
		return nil
	}
	return a.resolution.Suggestions.Entries()
}

// Err returns the failure of a Failed attempt.
func (a *Attempt) Err() error { return a.err }

// Diagnosis returns the result of a Completed attempt.
func (a *Attempt) Diagnosis() *domain.Diagnosis { return a.diagnosis }

// Confirm answers the suggestion prompt. Accepted suggestions are appended to
// the resolved set in suggestion order; declined ones are discarded from it
// but stay visible in the resolution.
func (a *Attempt) Confirm(accept bool) error {
	if a.state != StateAwaitingSuggestionConfirmation {
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, a.state)
	}
	if accept {
		a.resolution.Resolved = append(a.resolution.Resolved, a.resolution.Suggestions.Values()...)
	}
	a.state = StateResolved
	return nil
}

func (a *Attempt) fail(err *domain.DiagnosisError) error {
	a.err = err.WithResolution(a.resolution)
	a.state = StateFailed
	return a.err
}

// ControllerConfig holds the tunables of a Controller. Zero thresholds are
// honoured; negative ones select the package defaults.
type ControllerConfig struct {
	SimilarityThreshold float64
	ConfidenceThreshold float64
	FuzzyCacheSize      int
}

// DefaultControllerConfig returns the default thresholds and cache size.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		SimilarityThreshold: domain.DefaultSimilarityThreshold,
		ConfidenceThreshold: domain.DefaultConfidenceThreshold,
		FuzzyCacheSize:      defaultFuzzyCacheSize,
	}
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithHistory records every terminal attempt in store.
func WithHistory(store history.Store) ControllerOption {
	return func(c *Controller) {
		c.history = store
	}
}

// Controller drives diagnosis attempts against one runtime.
type Controller struct {
	runtime             *Runtime
	resolver            *Resolver
	ranker              *Ranker
	confidenceThreshold float64
	history             history.Store
	logger              *logrus.Logger
}

// NewController creates a session controller over an initialized runtime.
func NewController(rt *Runtime, cfg ControllerConfig, logger *logrus.Logger, opts ...ControllerOption) (*Controller, error) {
	if rt == nil || rt.Catalogue == nil || rt.Classifier == nil {
		return nil, fmt.Errorf("runtime requires a catalogue and a classifier")
	}

	fuzzy, err := NewFuzzyResolver(rt.Catalogue, cfg.FuzzyCacheSize, logger)
	if err != nil {
		return nil, err
	}

	threshold := cfg.ConfidenceThreshold
	if threshold < 0 {
		threshold = domain.DefaultConfidenceThreshold
	}

	c := &Controller{
		runtime:             rt,
		resolver:            NewResolver(rt.Catalogue, fuzzy, cfg.SimilarityThreshold, logger),
		ranker:              NewRanker(rt.Classifier, logger),
		confidenceThreshold: threshold,
		logger:              logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Runtime returns the handle the controller was built on.
func (c *Controller) Runtime() *Runtime { return c.runtime }

// Begin resolves sub. The attempt ends in AwaitingSuggestionConfirmation when
// suggestions exist and autoAccept is false, in Failed when the submission
// holds no tokens, and in Resolved otherwise.
func (c *Controller) Begin(sub domain.Submission, autoAccept bool) *Attempt {
	a := &Attempt{submission: sub, autoAccept: autoAccept, state: StateResolving}
	a.resolution = c.resolver.ResolveSubmission(sub, autoAccept)

	switch {
	case len(a.resolution.Tokens) == 0:
		a.fail(domain.NewEmptyInputError())
	case !autoAccept && a.resolution.Suggestions.Len() > 0:
		a.state = StateAwaitingSuggestionConfirmation
	default:
		a.state = StateResolved
	}
	return a
}

// Complete runs the ranking step of a Resolved attempt. Calling it on a
// terminal attempt returns the stored outcome.
func (c *Controller) Complete(ctx context.Context, a *Attempt) (*domain.Diagnosis, error) {
	switch a.state {
	case StateCompleted:
		return a.diagnosis, nil
	case StateFailed:
		var de *domain.DiagnosisError
		if errors.As(a.err, &de) && de.RequestID == "" {
			de.WithRequestID(RequestIDFromContext(ctx))
		}
		c.record(ctx, a)
		return nil, a.err
	case StateAwaitingSuggestionConfirmation:
		return nil, ErrConfirmationPending
	case StateResolved:
	default:
		return nil, fmt.Errorf("%w: complete from %s", ErrInvalidTransition, a.state)
	}

	requestID := RequestIDFromContext(ctx)
	if len(a.resolution.Resolved) == 0 {
		a.fail(domain.NewNoValidSymptomsError().WithRequestID(requestID))
		c.record(ctx, a)
		return nil, a.err
	}

	a.state = StateDiagnosing
	topLabel, candidates, err := c.ranker.Rank(ctx, a.resolution.Resolved, c.confidenceThreshold)
	if err != nil {
		var de *domain.DiagnosisError
		if !errors.As(err, &de) {
			de = domain.NewClassifierFailureError(err)
		}
		c.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"code":       de.Code,
			"symptoms":   len(a.resolution.Resolved),
		}).WithError(err).Warn("Diagnosis failed")
		a.fail(de.WithRequestID(requestID))
		c.record(ctx, a)
		return nil, a.err
	}

	if len(candidates) == 0 {
		a.fail(domain.NewInsufficientConfidenceError().WithRequestID(requestID))
		c.record(ctx, a)
		return nil, a.err
	}

	a.diagnosis = &domain.Diagnosis{
		Resolution: a.resolution,
		TopLabel:   topLabel,
		Candidates: candidates,
	}
	a.state = StateCompleted

	c.logger.WithFields(logrus.Fields{
		"request_id":    requestID,
		"top_diagnosis": topLabel,
		"candidates":    len(candidates),
	}).Info("Diagnosis completed")

	c.record(ctx, a)
	return a.diagnosis, nil
}

// Diagnose is the single-shot path used by the HTTP API. Pending suggestions
// are declined, so only exact matches reach the classifier unless autoAccept
// is set. Failures are *domain.DiagnosisError values carrying the resolution.
func (c *Controller) Diagnose(ctx context.Context, sub domain.Submission, autoAccept bool) (*domain.Diagnosis, error) {
	a := c.Begin(sub, autoAccept)
	if a.State() == StateAwaitingSuggestionConfirmation {
		if err := a.Confirm(false); err != nil {
			return nil, err
		}
	}
	return c.Complete(ctx, a)
}

// List returns the catalogue in its canonical order.
func (c *Controller) List() []string {
	return c.runtime.Catalogue.Entries()
}

// Search returns the catalogue entries containing term, case-insensitively,
// in catalogue order.
func (c *Controller) Search(term string) []string {
	return c.runtime.Catalogue.Search(term)
}

// History returns the configured history store, or nil.
func (c *Controller) History() history.Store {
	return c.history
}

func (c *Controller) record(ctx context.Context, a *Attempt) {
	if c.history == nil || a.recorded || !a.state.Terminal() {
		return
	}
	a.recorded = true

	rec := &history.Record{
		RequestID:   RequestIDFromContext(ctx),
		Input:       submissionText(a.submission),
		Resolved:    a.resolution.Resolved,
		Suggestions: a.resolution.Suggestions,
	}
	if a.state == StateCompleted {
		rec.Outcome = history.OutcomeCompleted
		rec.TopLabel = a.diagnosis.TopLabel
		rec.Candidates = a.diagnosis.Candidates
	} else {
		rec.Outcome = domain.ErrCodeInternalServer
		var de *domain.DiagnosisError
		if errors.As(a.err, &de) {
			rec.Outcome = de.Code
		}
	}

	if err := c.history.Record(ctx, rec); err != nil {
		c.logger.WithError(err).WithField("request_id", rec.RequestID).Warn("Failed to record diagnosis history")
	}
}

func submissionText(sub domain.Submission) string {
	if sub.IsList {
		return strings.Join(sub.Items, ", ")
	}
	return sub.Text
}
