package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		expected    ConfidenceTier
	}{
		{"Certain", 1.0, TierHigh},
		{"Just above high boundary", 0.7001, TierHigh},
		{"High boundary is medium", 0.70, TierMedium},
		{"Middle", 0.55, TierMedium},
		{"Medium boundary is low", 0.40, TierLow},
		{"Low", 0.06, TierLow},
		{"Zero", 0, TierLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TierFor(tt.probability))
			assert.Equal(t, tt.expected, Candidate{Confidence: tt.probability}.Tier())
		})
	}
}

func TestSubmission_Tokens(t *testing.T) {
	t.Run("Text_Split_On_Commas", func(t *testing.T) {
		s := TextSubmission("Fevr, caugh,,")
		assert.Equal(t, []string{"Fevr", " caugh", "", ""}, s.Tokens())
	})

	t.Run("List_Passed_Through", func(t *testing.T) {
		s := ListSubmission("skin rash, itching", "fever")
		assert.Equal(t, []string{"skin rash, itching", "fever"}, s.Tokens())
	})

	t.Run("Empty_Text", func(t *testing.T) {
		assert.Equal(t, []string{""}, TextSubmission("").Tokens())
	})
}

func TestSubmission_UnmarshalJSON(t *testing.T) {
	var req struct {
		Symptoms *Submission `json:"symptoms"`
	}

	t.Run("String", func(t *testing.T) {
		require.NoError(t, json.Unmarshal([]byte(`{"symptoms":"fever, cough"}`), &req))
		require.NotNil(t, req.Symptoms)
		assert.False(t, req.Symptoms.IsList)
		assert.Equal(t, "fever, cough", req.Symptoms.Text)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, json.Unmarshal([]byte(`{"symptoms":["fever","cough"]}`), &req))
		require.NotNil(t, req.Symptoms)
		assert.True(t, req.Symptoms.IsList)
		assert.Equal(t, []string{"fever", "cough"}, req.Symptoms.Items)
	})

	t.Run("Invalid_Shape", func(t *testing.T) {
		err := json.Unmarshal([]byte(`{"symptoms":42}`), &req)
		require.Error(t, err)

		var validationErr *ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "symptoms", validationErr.Field)
	})

	t.Run("Missing", func(t *testing.T) {
		req.Symptoms = nil
		require.NoError(t, json.Unmarshal([]byte(`{}`), &req))
		assert.Nil(t, req.Symptoms)
	})
}

func TestSuggestions(t *testing.T) {
	var s Suggestions
	s.Set("fevr", "fever")
	s.Set("caugh", "cough")
	s.Set("fevr", "fatigue")

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"fatigue", "cough"}, s.Values())
	assert.Equal(t, map[string]string{"fevr": "fatigue", "caugh": "cough"}, s.Map())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{"fevr":"fatigue","caugh":"cough"}`, string(data))

	var decoded Suggestions
	require.NoError(t, json.Unmarshal([]byte(`{"b":"x","a":"y"}`), &decoded))
	assert.Equal(t, []Suggestion{{Original: "b", Suggested: "x"}, {Original: "a", Suggested: "y"}}, decoded.Entries())
}

func TestSuggestions_ZeroValue(t *testing.T) {
	var s Suggestions

	_, ok := s.Get("anything")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestDiagnosis_Top(t *testing.T) {
	d := &Diagnosis{Candidates: []Candidate{
		{Disease: "a", Confidence: 0.5},
		{Disease: "b", Confidence: 0.3},
		{Disease: "c", Confidence: 0.1},
	}}

	assert.Len(t, d.Top(2), 2)
	assert.Len(t, d.Top(5), 3)
	assert.Len(t, d.Top(-1), 3)
}
