package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/symptom-dx-server/internal/domain"
)

// Ranker turns a classifier distribution into an ordered, thresholded list of
// diagnosis candidates.
type Ranker struct {
	classifier domain.Classifier
	logger     *logrus.Logger
}

// NewRanker creates a ranker backed by classifier.
func NewRanker(classifier domain.Classifier, logger *logrus.Logger) *Ranker {
	return &Ranker{classifier: classifier, logger: logger}
}

// Rank asks the classifier for the full distribution over resolved, keeps the
// labels with probability >= threshold and sorts them by descending
// probability. Ties keep the classifier's native label order.
//
// An empty result is not an error: the top label is then
// domain.InsufficientConfidenceLabel and the candidate slice is empty.
func (r *Ranker) Rank(ctx context.Context, resolved []string, threshold float64) (string, []domain.Candidate, error) {
	if len(resolved) == 0 {
		return "", nil, domain.NewNoValidSymptomsError()
	}

	dist, err := r.classifier.PredictDistribution(ctx, resolved)
	if err != nil {
		return "", nil, domain.NewClassifierFailureError(err)
	}

	candidates := make([]domain.Candidate, 0, len(dist))
	for _, p := range dist {
		if math.IsNaN(p.Probability) || p.Probability < 0 || p.Probability > 1 {
			return "", nil, domain.NewClassifierFailureError(
				fmt.Errorf("probability %v for label %q is outside [0,1]", p.Probability, p.Label))
		}
		if p.Probability >= threshold {
			candidates = append(candidates, domain.Candidate{Disease: p.Label, Confidence: p.Probability})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	r.logger.WithFields(logrus.Fields{
		"symptoms":   len(resolved),
		"labels":     len(dist),
		"candidates": len(candidates),
		"threshold":  threshold,
	}).Debug("Ranked classifier distribution")

	if len(candidates) == 0 {
		return domain.InsufficientConfidenceLabel, []domain.Candidate{}, nil
	}
	return candidates[0].Disease, candidates, nil
}
