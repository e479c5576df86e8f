// Package domain contains the core entities shared by the symptom resolution and
// diagnosis ranking pipeline: submissions, resolution results, classifier
// predictions, ranked candidates and their confidence tiers.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ConfidenceTier is the presentational bucket derived from a probability.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// Tier boundaries are exclusive: exactly 0.70 is medium, exactly 0.40 is low.
const (
	HighConfidenceBoundary   = 0.70
	MediumConfidenceBoundary = 0.40
)

// Defaults used by the resolution protocol and the ranker.
const (
	DefaultSimilarityThreshold = 0.6
	DefaultConfidenceThreshold = 0.05
)

// InsufficientConfidenceLabel is the sentinel top label returned by the ranker
// when no class clears the confidence threshold.
const InsufficientConfidenceLabel = "Cannot diagnose with sufficient confidence"

// TierFor buckets a probability. It is recomputed on every read and never stored.
func TierFor(probability float64) ConfidenceTier {
	switch {
	case probability > HighConfidenceBoundary:
		return TierHigh
	case probability > MediumConfidenceBoundary:
		return TierMedium
	default:
		return TierLow
	}
}

// String returns the string representation of the tier.
func (t ConfidenceTier) String() string {
	return string(t)
}

// Submission is the raw user input as received by a transport: either one
// comma separated string or an explicit list of tokens.
type Submission struct {
	Text  string
	Items []string
	// IsList records which form was received.
	IsList bool
}

// TextSubmission wraps a comma separated string.
func TextSubmission(text string) Submission {
	return Submission{Text: text}
}

// ListSubmission wraps an explicit list of symptom tokens.
func ListSubmission(items ...string) Submission {
	return Submission{Items: items, IsList: true}
}

// Tokens returns the raw token sequence. Text submissions are split on commas;
// list items are passed through untouched, even when they contain commas.
func (s Submission) Tokens() []string {
	if s.IsList {
		out := make([]string, len(s.Items))
		copy(out, s.Items)
		return out
	}
	return strings.Split(s.Text, ",")
}

// UnmarshalJSON accepts either a JSON string or an array of strings.
func (s *Submission) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return NewValidationError("symptoms", "Invalid symptoms format", nil)
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return NewValidationError("symptoms", "Invalid symptoms format", string(trimmed))
		}
		*s = TextSubmission(text)
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return NewValidationError("symptoms", "Invalid symptoms format", string(trimmed))
		}
		*s = ListSubmission(items...)
		return nil
	default:
		return NewValidationError("symptoms", "Invalid symptoms format", string(trimmed))
	}
}

// MarshalJSON writes the submission back in the form it was received.
func (s Submission) MarshalJSON() ([]byte, error) {
	if s.IsList {
		if s.Items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.Items)
	}
	return json.Marshal(s.Text)
}

// Suggestion maps an unresolved input token to its closest catalogue entry.
type Suggestion struct {
	Original  string `json:"original"`
	Suggested string `json:"suggested"`
}

// Suggestions is an insertion-ordered mapping from original token to suggested
// symptom. A repeated key keeps its first position and takes the latest value.
type Suggestions struct {
	entries []Suggestion
	index   map[string]int
}

// Set records or overwrites the suggestion for original.
func (s *Suggestions) Set(original, suggested string) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[original]; ok {
		s.entries[i].Suggested = suggested
		return
	}
	s.index[original] = len(s.entries)
	s.entries = append(s.entries, Suggestion{Original: original, Suggested: suggested})
}

// Get returns the suggestion recorded for original.
func (s Suggestions) Get(original string) (string, bool) {
	i, ok := s.index[original]
	if !ok {
		return "", false
	}
	return s.entries[i].Suggested, true
}

// Len returns the number of distinct original tokens.
func (s Suggestions) Len() int {
	return len(s.entries)
}

// Entries returns the suggestions in insertion order.
func (s Suggestions) Entries() []Suggestion {
	out := make([]Suggestion, len(s.entries))
	copy(out, s.entries)
	return out
}

// Values returns the suggested symptoms in insertion order.
func (s Suggestions) Values() []string {
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Suggested)
	}
	return out
}

// Map returns the suggestions as a plain map.
func (s Suggestions) Map() map[string]string {
	out := make(map[string]string, len(s.entries))
	for _, e := range s.entries {
		out[e.Original] = e.Suggested
	}
	return out
}

// MarshalJSON encodes the suggestions as a JSON object, preserving insertion order.
func (s Suggestions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Original)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Suggested)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of original -> suggested. Key order is
// taken from the document.
func (s *Suggestions) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = Suggestions{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("suggestions: expected object, got %v", tok)
	}

	var out Suggestions
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("suggestions: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out.Set(key, value)
	}
	*s = out
	return nil
}

// ResolutionResult is the outcome of resolving one submission against the catalogue.
type ResolutionResult struct {
	// Tokens holds the normalized, non-empty candidate tokens.
	Tokens      []string    `json:"-"`
	Resolved    []string    `json:"processed_symptoms"`
	Suggestions Suggestions `json:"suggestions"`
}

// Prediction is one class probability reported by a classifier.
type Prediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Distribution is a full class distribution in the classifier's native label order.
type Distribution []Prediction

// Candidate is a ranked diagnosis.
type Candidate struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

// Tier returns the confidence tier of the candidate.
func (c Candidate) Tier() ConfidenceTier {
	return TierFor(c.Confidence)
}

// Diagnosis is the terminal state of a successful attempt.
type Diagnosis struct {
	Resolution ResolutionResult `json:"resolution"`
	TopLabel   string           `json:"top_diagnosis"`
	Candidates []Candidate      `json:"results"`
}

// Top returns at most n leading candidates.
func (d *Diagnosis) Top(n int) []Candidate {
	if n < 0 || n >= len(d.Candidates) {
		return d.Candidates
	}
	return d.Candidates[:n]
}
