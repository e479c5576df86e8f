// Package classifier implements the classifier adapters: a local multinomial
// naive Bayes model over TF-IDF features, an HTTP adapter for an external
// model server, and a caching decorator.
package classifier

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern keeps words of two or more word characters.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

func tokenize(doc string) []string {
	return tokenPattern.FindAllString(strings.ToLower(doc), -1)
}

// Vectorizer maps symptom text to L2-normalized TF-IDF vectors.
type Vectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// FitVectorizer learns the vocabulary and smoothed IDF weights of docs.
// Terms are indexed in sorted order.
func FitVectorizer(docs []string) *Vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range tokenize(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v := &Vectorizer{
		Vocabulary: make(map[string]int, len(terms)),
		IDF:        make([]float64, len(terms)),
	}
	for i, term := range terms {
		v.Vocabulary[term] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// Size returns the vocabulary size.
func (v *Vectorizer) Size() int {
	return len(v.IDF)
}

// Transform returns the sparse TF-IDF vector of doc. Unknown terms, and terms
// indexed outside the IDF table, are ignored.
func (v *Vectorizer) Transform(doc string) map[int]float64 {
	vec := make(map[int]float64)
	for _, term := range tokenize(doc) {
		if i, ok := v.Vocabulary[term]; ok && i >= 0 && i < len(v.IDF) {
			vec[i]++
		}
	}

	var norm float64
	for i, tf := range vec {
		w := tf * v.IDF[i]
		vec[i] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
