package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-dx-server/internal/catalogue"
	"github.com/symptom-dx-server/internal/domain"
)

func newTestResolver(t *testing.T, symptoms ...string) *Resolver {
	t.Helper()
	cat := catalogue.New(symptoms)
	fuzzy, err := NewFuzzyResolver(cat, 16, quietLogger())
	require.NoError(t, err)
	return NewResolver(cat, fuzzy, domain.DefaultSimilarityThreshold, quietLogger())
}

func TestResolver_ResolveSubmission(t *testing.T) {
	r := newTestResolver(t, "fever", "cough", "headache")

	t.Run("misspellings become suggestions", func(t *testing.T) {
		res := r.ResolveSubmission(domain.TextSubmission("Fevr, caugh"), false)

		assert.Empty(t, res.Resolved)
		assert.Equal(t, []domain.Suggestion{
			{Original: "fevr", Suggested: "fever"},
			{Original: "caugh", Suggested: "cough"},
		}, res.Suggestions.Entries())
	})

	t.Run("auto-accept appends suggestions", func(t *testing.T) {
		res := r.ResolveSubmission(domain.TextSubmission("Fevr, caugh"), true)

		assert.Equal(t, []string{"fever", "cough"}, res.Resolved)
		assert.Equal(t, 2, res.Suggestions.Len())
	})

	t.Run("exact matches come before accepted suggestions", func(t *testing.T) {
		res := r.ResolveSubmission(domain.TextSubmission("caugh, Headache, fever"), true)

		assert.Equal(t, []string{"headache", "fever", "cough"}, res.Resolved)
	})

	t.Run("unmatched tokens are dropped", func(t *testing.T) {
		res := r.ResolveSubmission(domain.TextSubmission("fever, zzz"), false)

		assert.Equal(t, []string{"fever"}, res.Resolved)
		assert.Equal(t, 0, res.Suggestions.Len())
		assert.Equal(t, []string{"fever", "zzz"}, res.Tokens)
	})

	t.Run("decomposed catalogue entries match composed input", func(t *testing.T) {
		r := newTestResolver(t, "Fie\u0301vre")
		res := r.ResolveSubmission(domain.TextSubmission("fi\u00e9vre"), false)

		assert.Equal(t, []string{"fi\u00e9vre"}, res.Resolved)
		assert.Equal(t, 0, res.Suggestions.Len())
	})

	t.Run("duplicates are kept", func(t *testing.T) {
		res := r.ResolveSubmission(domain.TextSubmission("fever, FEVER"), false)

		assert.Equal(t, []string{"fever", "fever"}, res.Resolved)
	})

	t.Run("list items with commas are single tokens", func(t *testing.T) {
		res := r.ResolveSubmission(domain.ListSubmission("fever, cough"), false)

		assert.Empty(t, res.Resolved)
		assert.Equal(t, 0, res.Suggestions.Len())
	})

	t.Run("empty string", func(t *testing.T) {
		res := r.ResolveSubmission(domain.TextSubmission(""), false)

		assert.Empty(t, res.Tokens)
		assert.Empty(t, res.Resolved)
		assert.Equal(t, 0, res.Suggestions.Len())
	})
}

func TestResolver_ExactMembersAlwaysResolve(t *testing.T) {
	symptoms := []string{"fever", "cough", "headache", "chills", "skin rash"}
	r := newTestResolver(t, symptoms...)

	for _, s := range symptoms {
		t.Run(s, func(t *testing.T) {
			res := r.ResolveSubmission(domain.ListSubmission(s), false)
			assert.Equal(t, []string{s}, res.Resolved)
			assert.Equal(t, 0, res.Suggestions.Len())
		})
	}
}

func TestResolver_EmptyCatalogue(t *testing.T) {
	r := newTestResolver(t)

	res := r.ResolveSubmission(domain.TextSubmission("fever, cough"), true)

	assert.Empty(t, res.Resolved)
	assert.Len(t, res.Tokens, 2)
}

func TestNewResolver_Thresholds(t *testing.T) {
	cat := catalogue.New([]string{"fever", "cough"})
	fuzzy, err := NewFuzzyResolver(cat, 16, quietLogger())
	require.NoError(t, err)

	t.Run("zero threshold accepts any closest entry", func(t *testing.T) {
		r := NewResolver(cat, fuzzy, 0, quietLogger())
		res := r.ResolveSubmission(domain.TextSubmission("fx"), false)

		suggested, ok := res.Suggestions.Get("fx")
		assert.True(t, ok)
		assert.Equal(t, "fever", suggested)
	})

	t.Run("negative threshold selects the default", func(t *testing.T) {
		r := NewResolver(cat, fuzzy, -1, quietLogger())
		res := r.ResolveSubmission(domain.TextSubmission("fx"), false)

		assert.Equal(t, 0, res.Suggestions.Len())
	})
}
