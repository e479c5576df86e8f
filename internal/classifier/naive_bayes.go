package classifier

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/symptom-dx-server/internal/domain"
)

// DefaultAlpha is the additive (Laplace) smoothing parameter.
const DefaultAlpha = 1.0

// Model is a trained multinomial naive Bayes classifier over TF-IDF features.
// It is immutable after training and safe for concurrent use.
type Model struct {
	Version        int         `json:"version"`
	Vectorizer     *Vectorizer `json:"vectorizer"`
	Labels         []string    `json:"labels"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
	Alpha          float64     `json:"alpha"`
	Samples        int         `json:"samples"`
	TrainedAt      time.Time   `json:"trained_at"`
}

const modelVersion = 1

// fit estimates class priors and per-class term probabilities. Labels are
// sorted, which fixes the native order of every distribution.
func fit(vectors []map[int]float64, labels []string, vocabSize int, alpha float64) (*Model, error) {
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("got %d vectors and %d labels", len(vectors), len(labels))
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no training samples")
	}
	if alpha <= 0 {
		alpha = DefaultAlpha
	}

	classIndex := make(map[string]int)
	for _, l := range labels {
		classIndex[l] = 0
	}
	classes := make([]string, 0, len(classIndex))
	for l := range classIndex {
		classes = append(classes, l)
	}
	sort.Strings(classes)
	for i, l := range classes {
		classIndex[l] = i
	}

	classCount := make([]float64, len(classes))
	featureCount := make([][]float64, len(classes))
	for i := range featureCount {
		featureCount[i] = make([]float64, vocabSize)
	}
	for n, vec := range vectors {
		c := classIndex[labels[n]]
		classCount[c]++
		for j, w := range vec {
			featureCount[c][j] += w
		}
	}

	m := &Model{
		Version:        modelVersion,
		Labels:         classes,
		ClassLogPrior:  make([]float64, len(classes)),
		FeatureLogProb: make([][]float64, len(classes)),
		Alpha:          alpha,
		Samples:        len(vectors),
	}
	total := float64(len(vectors))
	for c := range classes {
		m.ClassLogPrior[c] = math.Log(classCount[c] / total)

		var sum float64
		for _, w := range featureCount[c] {
			sum += w
		}
		denom := math.Log(sum + alpha*float64(vocabSize))
		m.FeatureLogProb[c] = make([]float64, vocabSize)
		for j, w := range featureCount[c] {
			m.FeatureLogProb[c][j] = math.Log(w+alpha) - denom
		}
	}
	return m, nil
}

// validate checks that every table agrees with the vocabulary and label set.
func (m *Model) validate() error {
	if m.Vectorizer == nil || len(m.Labels) == 0 {
		return fmt.Errorf("model is incomplete")
	}
	size := m.Vectorizer.Size()
	for term, i := range m.Vectorizer.Vocabulary {
		if i < 0 || i >= size {
			return fmt.Errorf("term %q has index %d outside %d idf weights", term, i, size)
		}
	}
	if len(m.ClassLogPrior) != len(m.Labels) {
		return fmt.Errorf("%d class priors for %d labels", len(m.ClassLogPrior), len(m.Labels))
	}
	if len(m.FeatureLogProb) != len(m.Labels) {
		return fmt.Errorf("%d feature rows for %d labels", len(m.FeatureLogProb), len(m.Labels))
	}
	for c, row := range m.FeatureLogProb {
		if len(row) != size {
			return fmt.Errorf("feature row %d has %d weights, want %d", c, len(row), size)
		}
	}
	return nil
}

// PredictDistribution returns the posterior over every label, in sorted label
// order. The symptoms are joined with spaces before vectorizing.
func (m *Model) PredictDistribution(ctx context.Context, symptoms []string) (domain.Distribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Vectorizer == nil || len(m.Labels) == 0 {
		return nil, fmt.Errorf("model is not trained")
	}
	if len(m.ClassLogPrior) != len(m.Labels) || len(m.FeatureLogProb) != len(m.Labels) {
		return nil, fmt.Errorf("model is malformed: %d labels, %d priors, %d feature rows",
			len(m.Labels), len(m.ClassLogPrior), len(m.FeatureLogProb))
	}

	vec := m.Vectorizer.Transform(strings.Join(symptoms, " "))

	jll := make([]float64, len(m.Labels))
	maxLL := math.Inf(-1)
	for c := range m.Labels {
		ll := m.ClassLogPrior[c]
		for j, w := range vec {
			if j >= len(m.FeatureLogProb[c]) {
				return nil, fmt.Errorf("feature %d outside model vocabulary", j)
			}
			ll += w * m.FeatureLogProb[c][j]
		}
		jll[c] = ll
		if ll > maxLL {
			maxLL = ll
		}
	}

	var sum float64
	for c := range jll {
		jll[c] = math.Exp(jll[c] - maxLL)
		sum += jll[c]
	}

	dist := make(domain.Distribution, len(m.Labels))
	for c, label := range m.Labels {
		dist[c] = domain.Prediction{Label: label, Probability: jll[c] / sum}
	}
	return dist, nil
}

// GetStats describes the loaded model.
func (m *Model) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{
		"mode":       "local",
		"version":    m.Version,
		"labels":     len(m.Labels),
		"samples":    m.Samples,
		"trained_at": m.TrainedAt,
	}
	if m.Vectorizer != nil {
		stats["vocabulary"] = m.Vectorizer.Size()
	}
	return stats, nil
}

// Predict returns the most probable label. Ties go to the first label.
func (m *Model) Predict(ctx context.Context, symptoms []string) (string, error) {
	dist, err := m.PredictDistribution(ctx, symptoms)
	if err != nil {
		return "", err
	}
	best := 0
	for i := range dist {
		if dist[i].Probability > dist[best].Probability {
			best = i
		}
	}
	return dist[best].Label, nil
}
