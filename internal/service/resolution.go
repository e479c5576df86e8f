package service

import (
	"github.com/sirupsen/logrus"

	"github.com/symptom-dx-server/internal/catalogue"
	"github.com/symptom-dx-server/internal/domain"
)

// Resolver maps a whole submission onto the catalogue.
type Resolver struct {
	catalogue *catalogue.Catalogue
	fuzzy     *FuzzyResolver
	threshold float64
	logger    *logrus.Logger
}

// NewResolver creates a submission resolver. A negative threshold selects
// domain.DefaultSimilarityThreshold.
func NewResolver(cat *catalogue.Catalogue, fuzzy *FuzzyResolver, threshold float64, logger *logrus.Logger) *Resolver {
	if threshold < 0 {
		threshold = domain.DefaultSimilarityThreshold
	}
	return &Resolver{
		catalogue: cat,
		fuzzy:     fuzzy,
		threshold: threshold,
		logger:    logger,
	}
}

// ResolveSubmission resolves every token of sub. Exact members go straight to
// Resolved in input order. Other tokens get a fuzzy suggestion keyed by the
// normalized token, or are dropped when nothing clears the threshold. With
// autoAccept the suggested values are appended after the exact matches.
// Duplicates are kept.
func (r *Resolver) ResolveSubmission(sub domain.Submission, autoAccept bool) domain.ResolutionResult {
	tokens := NormalizeSubmission(sub)

	result := domain.ResolutionResult{
		Tokens:   tokens,
		Resolved: make([]string, 0, len(tokens)),
	}

	dropped := 0
	for _, token := range tokens {
		if r.catalogue.Contains(token) {
			result.Resolved = append(result.Resolved, token)
			continue
		}
		if match, ok := r.fuzzy.Resolve(token, r.threshold); ok {
			result.Suggestions.Set(token, match)
			continue
		}
		dropped++
	}

	if autoAccept {
		result.Resolved = append(result.Resolved, result.Suggestions.Values()...)
	}

	r.logger.WithFields(logrus.Fields{
		"tokens":      len(tokens),
		"resolved":    len(result.Resolved),
		"suggestions": result.Suggestions.Len(),
		"dropped":     dropped,
		"auto_accept": autoAccept,
	}).Debug("Resolved symptom submission")

	return result
}
