package service

import (
	"github.com/symptom-dx-server/internal/catalogue"
	"github.com/symptom-dx-server/internal/domain"
)

// NormalizeToken turns one raw token into a candidate symptom with the same
// normalization the catalogue applies to its entries.
func NormalizeToken(raw string) string {
	return catalogue.Normalize(raw)
}

// NormalizeTokens normalizes every token independently and drops the empty
// ones produced by blank input or consecutive commas.
func NormalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if n := NormalizeToken(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// NormalizeSubmission normalizes the token sequence of sub: text submissions
// are split on commas, list submissions are taken as given.
func NormalizeSubmission(sub domain.Submission) []string {
	return NormalizeTokens(sub.Tokens())
}
