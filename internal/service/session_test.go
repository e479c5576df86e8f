package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/symptom-dx-server/internal/catalogue"
	"github.com/symptom-dx-server/internal/domain"
	"github.com/symptom-dx-server/internal/history"
)

// memoryHistory is an in-memory history.Store.
type memoryHistory struct {
	mu      sync.Mutex
	records []*history.Record
	err     error
}

func (m *memoryHistory) Record(_ context.Context, r *history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	r.ID = int64(len(m.records) + 1)
	m.records = append(m.records, r)
	return nil
}

func (m *memoryHistory) List(_ context.Context, limit, offset int) ([]*history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.records) {
		end = len(m.records)
	}
	return m.records[offset:end], nil
}

func (m *memoryHistory) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.records)), nil
}

func (m *memoryHistory) Close() error { return nil }

func newTestController(t *testing.T, classifier domain.Classifier, opts ...ControllerOption) *Controller {
	t.Helper()
	rt := &Runtime{
		Catalogue:  catalogue.New([]string{"fever", "cough", "headache"}),
		Classifier: classifier,
	}
	c, err := NewController(rt, DefaultControllerConfig(), quietLogger(), opts...)
	require.NoError(t, err)
	return c
}

func fluClassifier() *mockClassifier {
	classifier := new(mockClassifier)
	classifier.On("PredictDistribution", mock.Anything, mock.Anything).Return(fluColdMigraine(), nil)
	return classifier
}

func TestNewController_RequiresRuntime(t *testing.T) {
	_, err := NewController(nil, DefaultControllerConfig(), quietLogger())
	assert.Error(t, err)

	_, err = NewController(&Runtime{Catalogue: catalogue.New(nil)}, DefaultControllerConfig(), quietLogger())
	assert.Error(t, err)
}

func TestController_Begin(t *testing.T) {
	c := newTestController(t, fluClassifier())

	tests := []struct {
		name       string
		submission domain.Submission
		autoAccept bool
		want       State
	}{
		{"exact matches", domain.TextSubmission("fever, cough"), false, StateResolved},
		{"suggestions pending", domain.TextSubmission("Fevr, caugh"), false, StateAwaitingSuggestionConfirmation},
		{"suggestions auto-accepted", domain.TextSubmission("Fevr, caugh"), true, StateResolved},
		{"nothing matches", domain.TextSubmission("zzz"), false, StateResolved},
		{"empty string", domain.TextSubmission(""), false, StateFailed},
		{"only separators", domain.TextSubmission(" , ,"), true, StateFailed},
		{"empty list", domain.ListSubmission(), false, StateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := c.Begin(tt.submission, tt.autoAccept)
			assert.Equal(t, tt.want, a.State())
		})
	}
}

func TestAttempt_Confirm(t *testing.T) {
	c := newTestController(t, fluClassifier())

	t.Run("accept merges suggestions", func(t *testing.T) {
		a := c.Begin(domain.TextSubmission("headache, Fevr, caugh"), false)
		require.Equal(t, StateAwaitingSuggestionConfirmation, a.State())
		assert.Len(t, a.PendingSuggestions(), 2)

		require.NoError(t, a.Confirm(true))

		assert.Equal(t, StateResolved, a.State())
		assert.Equal(t, []string{"headache", "fever", "cough"}, a.Resolution().Resolved)
		assert.Nil(t, a.PendingSuggestions())
	})

	t.Run("decline keeps exact matches only", func(t *testing.T) {
		a := c.Begin(domain.TextSubmission("headache, Fevr"), false)

		require.NoError(t, a.Confirm(false))

		assert.Equal(t, []string{"headache"}, a.Resolution().Resolved)
		assert.Equal(t, 1, a.Resolution().Suggestions.Len())
	})

	t.Run("confirm without pending suggestions", func(t *testing.T) {
		a := c.Begin(domain.TextSubmission("fever"), false)

		err := a.Confirm(true)

		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, StateResolved, a.State())
	})
}

func TestController_Complete(t *testing.T) {
	t.Run("pending confirmation", func(t *testing.T) {
		classifier := new(mockClassifier)
		c := newTestController(t, classifier)
		a := c.Begin(domain.TextSubmission("Fevr"), false)

		_, err := c.Complete(context.Background(), a)

		assert.ErrorIs(t, err, ErrConfirmationPending)
		assert.Equal(t, StateAwaitingSuggestionConfirmation, a.State())
	})

	t.Run("completed attempt", func(t *testing.T) {
		classifier := fluClassifier()
		c := newTestController(t, classifier)
		a := c.Begin(domain.TextSubmission("fever, cough"), false)

		d, err := c.Complete(context.Background(), a)

		require.NoError(t, err)
		assert.Equal(t, StateCompleted, a.State())
		assert.Equal(t, "flu", d.TopLabel)
		assert.Equal(t, []string{"fever", "cough"}, d.Resolution.Resolved)
		assert.Same(t, d, a.Diagnosis())

		again, err := c.Complete(context.Background(), a)
		require.NoError(t, err)
		assert.Same(t, d, again)
		classifier.AssertNumberOfCalls(t, "PredictDistribution", 1)
	})
}

func TestController_Diagnose(t *testing.T) {
	t.Run("flu scenario", func(t *testing.T) {
		classifier := fluClassifier()
		c := newTestController(t, classifier)

		d, err := c.Diagnose(context.Background(), domain.TextSubmission("Fever, Cough"), false)

		require.NoError(t, err)
		assert.Equal(t, "flu", d.TopLabel)
		assert.Equal(t, []domain.Candidate{
			{Disease: "flu", Confidence: 0.6},
			{Disease: "cold", Confidence: 0.3},
		}, d.Candidates)
		classifier.AssertCalled(t, "PredictDistribution", mock.Anything, []string{"fever", "cough"})
	})

	t.Run("misspellings declined in single-shot mode", func(t *testing.T) {
		classifier := new(mockClassifier)
		c := newTestController(t, classifier)

		_, err := c.Diagnose(context.Background(), domain.TextSubmission("Fevr, caugh"), false)

		require.ErrorIs(t, err, domain.ErrNoValidSymptoms)
		var de *domain.DiagnosisError
		require.True(t, errors.As(err, &de))
		require.NotNil(t, de.Resolution)
		assert.Empty(t, de.Resolution.Resolved)
		assert.Equal(t, map[string]string{"fevr": "fever", "caugh": "cough"}, de.Resolution.Suggestions.Map())
		classifier.AssertNotCalled(t, "PredictDistribution", mock.Anything, mock.Anything)
	})

	t.Run("misspellings auto-accepted", func(t *testing.T) {
		classifier := fluClassifier()
		c := newTestController(t, classifier)

		d, err := c.Diagnose(context.Background(), domain.TextSubmission("Fevr, caugh"), true)

		require.NoError(t, err)
		assert.Equal(t, []string{"fever", "cough"}, d.Resolution.Resolved)
		classifier.AssertCalled(t, "PredictDistribution", mock.Anything, []string{"fever", "cough"})
	})

	t.Run("empty input", func(t *testing.T) {
		classifier := new(mockClassifier)
		c := newTestController(t, classifier)

		_, err := c.Diagnose(context.Background(), domain.TextSubmission(""), false)

		assert.ErrorIs(t, err, domain.ErrEmptyInput)
		classifier.AssertNotCalled(t, "PredictDistribution", mock.Anything, mock.Anything)
	})

	t.Run("insufficient confidence", func(t *testing.T) {
		classifier := new(mockClassifier)
		classifier.On("PredictDistribution", mock.Anything, mock.Anything).Return(domain.Distribution{
			{Label: "flu", Probability: 0.04},
			{Label: "cold", Probability: 0.01},
		}, nil)
		c := newTestController(t, classifier)

		_, err := c.Diagnose(context.Background(), domain.TextSubmission("fever"), false)

		require.ErrorIs(t, err, domain.ErrInsufficientConfidence)
		var de *domain.DiagnosisError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, domain.InsufficientConfidenceLabel, de.Message)
		assert.Equal(t, []string{"fever"}, de.Resolution.Resolved)
	})

	t.Run("classifier failure", func(t *testing.T) {
		classifier := new(mockClassifier)
		classifier.On("PredictDistribution", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
		c := newTestController(t, classifier)

		_, err := c.Diagnose(context.Background(), domain.TextSubmission("fever"), false)

		assert.ErrorIs(t, err, domain.ErrClassifierFailure)
	})

	t.Run("request id is attached to failures", func(t *testing.T) {
		c := newTestController(t, new(mockClassifier))
		ctx := ContextWithRequestID(context.Background(), "req-42")

		_, err := c.Diagnose(ctx, domain.TextSubmission(" "), false)

		var de *domain.DiagnosisError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "req-42", de.RequestID)
	})
}

func TestController_DiagnoseIsDeterministic(t *testing.T) {
	c := newTestController(t, fluClassifier())

	first, err := c.Diagnose(context.Background(), domain.TextSubmission("fevr, cough"), true)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		d, err := c.Diagnose(context.Background(), domain.TextSubmission("fevr, cough"), true)
		require.NoError(t, err)
		assert.Equal(t, first, d)
	}
}

func TestController_ListAndSearch(t *testing.T) {
	c := newTestController(t, new(mockClassifier))

	assert.Equal(t, []string{"cough", "fever", "headache"}, c.List())
	assert.Equal(t, []string{"headache"}, c.Search("HEAD"))
	assert.Equal(t, []string{"cough", "headache"}, c.Search("h"))
	assert.Empty(t, c.Search("zzz"))
}

func TestController_History(t *testing.T) {
	t.Run("records completed and failed attempts", func(t *testing.T) {
		store := &memoryHistory{}
		c := newTestController(t, fluClassifier(), WithHistory(store))
		ctx := ContextWithRequestID(context.Background(), "req-1")

		_, err := c.Diagnose(ctx, domain.TextSubmission("fever"), false)
		require.NoError(t, err)
		_, err = c.Diagnose(ctx, domain.TextSubmission("zzz"), false)
		require.Error(t, err)

		require.Len(t, store.records, 2)
		assert.Equal(t, history.OutcomeCompleted, store.records[0].Outcome)
		assert.Equal(t, "flu", store.records[0].TopLabel)
		assert.Equal(t, "req-1", store.records[0].RequestID)
		assert.Equal(t, domain.ErrCodeNoValidSymptoms, store.records[1].Outcome)
		assert.Equal(t, "zzz", store.records[1].Input)
		assert.Same(t, store, c.History())
	})

	t.Run("terminal attempts are recorded once", func(t *testing.T) {
		store := &memoryHistory{}
		c := newTestController(t, fluClassifier(), WithHistory(store))
		a := c.Begin(domain.ListSubmission("fever", "cough"), false)

		_, err := c.Complete(context.Background(), a)
		require.NoError(t, err)
		_, err = c.Complete(context.Background(), a)
		require.NoError(t, err)

		require.Len(t, store.records, 1)
		assert.Equal(t, "fever, cough", store.records[0].Input)
	})

	t.Run("store failures do not fail the diagnosis", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		store := &memoryHistory{err: errors.New("disk full")}
		rt := &Runtime{
			Catalogue:  catalogue.New([]string{"fever"}),
			Classifier: fluClassifier(),
		}
		c, err := NewController(rt, DefaultControllerConfig(), logger, WithHistory(store))
		require.NoError(t, err)

		d, err := c.Diagnose(context.Background(), domain.TextSubmission("fever"), false)

		require.NoError(t, err)
		assert.Equal(t, "flu", d.TopLabel)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
		assert.Equal(t, "Failed to record diagnosis history", hook.LastEntry().Message)
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "AWAITING_SUGGESTION_CONFIRMATION", StateAwaitingSuggestionConfirmation.String())
	assert.Equal(t, "State(99)", State(99).String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateResolved.Terminal())
}

func TestNewController_Thresholds(t *testing.T) {
	rt := &Runtime{
		Catalogue:  catalogue.New([]string{"fever", "cough", "headache"}),
		Classifier: fluClassifier(),
	}

	tests := []struct {
		name      string
		threshold float64
		want      []string
	}{
		{"zero keeps every label", 0, []string{"flu", "cold", "migraine"}},
		{"negative selects the default", -1, []string{"flu", "cold"}},
		{"explicit threshold", 0.5, []string{"flu"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultControllerConfig()
			cfg.ConfidenceThreshold = tt.threshold
			c, err := NewController(rt, cfg, quietLogger())
			require.NoError(t, err)

			diagnosis, err := c.Diagnose(context.Background(), domain.TextSubmission("fever"), false)
			require.NoError(t, err)

			var labels []string
			for _, cand := range diagnosis.Candidates {
				labels = append(labels, cand.Disease)
			}
			assert.Equal(t, tt.want, labels)
		})
	}
}
