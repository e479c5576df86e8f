package service

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sirupsen/logrus"

	"github.com/symptom-dx-server/internal/catalogue"
)

const defaultFuzzyCacheSize = 4096

// FuzzyResolver finds the closest catalogue entry for a candidate that is not
// an exact member.
type FuzzyResolver struct {
	catalogue *catalogue.Catalogue
	memo      *lru.Cache[fuzzyKey, fuzzyMatch]
	logger    *logrus.Logger
}

type fuzzyKey struct {
	candidate string
	threshold float64
}

type fuzzyMatch struct {
	symptom string
	score   float64
	found   bool
}

// NewFuzzyResolver creates a resolver over an immutable catalogue. Results are
// memoized in an LRU of cacheSize entries; zero selects the default size.
func NewFuzzyResolver(cat *catalogue.Catalogue, cacheSize int, logger *logrus.Logger) (*FuzzyResolver, error) {
	if cacheSize <= 0 {
		cacheSize = defaultFuzzyCacheSize
	}
	memo, err := lru.New[fuzzyKey, fuzzyMatch](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create fuzzy match cache: %w", err)
	}

	return &FuzzyResolver{
		catalogue: cat,
		memo:      memo,
		logger:    logger,
	}, nil
}

// Resolve returns the highest scoring catalogue entry when its similarity to
// candidate is at least threshold. When several entries share the best score
// the first one in catalogue order wins.
func (r *FuzzyResolver) Resolve(candidate string, threshold float64) (string, bool) {
	key := fuzzyKey{candidate: candidate, threshold: threshold}
	if m, ok := r.memo.Get(key); ok {
		return m.symptom, m.found
	}

	m := r.scan(candidate, threshold)
	r.memo.Add(key, m)

	r.logger.WithFields(logrus.Fields{
		"candidate": candidate,
		"match":     m.symptom,
		"score":     m.score,
		"threshold": threshold,
		"found":     m.found,
	}).Debug("Fuzzy symptom resolution")

	return m.symptom, m.found
}

func (r *FuzzyResolver) scan(candidate string, threshold float64) fuzzyMatch {
	matcher := difflib.NewMatcher(nil, characters(candidate))

	best := fuzzyMatch{score: -1}
	r.catalogue.Each(func(_ int, entry string) bool {
		matcher.SetSeq1(characters(entry))
		// Cheap upper bounds first, exactly like a close-match lookup.
		if matcher.RealQuickRatio() < threshold || matcher.QuickRatio() < threshold {
			return true
		}
		score := matcher.Ratio()
		if score >= threshold && score > best.score {
			best = fuzzyMatch{symptom: entry, score: score, found: true}
		}
		return true
	})

	if !best.found {
		return fuzzyMatch{}
	}
	return best
}

// Similarity is the sequence-matching ratio 2*M/T between a and b, where M is
// the number of matched characters and T the combined length.
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(characters(a), characters(b)).Ratio()
}

func characters(s string) []string {
	return strings.Split(s, "")
}
