// Package catalogue holds the immutable vocabulary of canonical symptoms that
// user input is resolved against.
package catalogue

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Catalogue is a sorted, deduplicated set of canonical symptom strings. It is
// built once and is safe for concurrent readers.
type Catalogue struct {
	entries []string
	members map[string]struct{}
}

// Normalize NFC-composes, trims and lowercases s. Catalogue entries and user
// tokens both pass through it.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// New builds a catalogue from raw symptom strings. Entries are normalized;
// blanks and duplicates are dropped.
func New(symptoms []string) *Catalogue {
	members := make(map[string]struct{}, len(symptoms))
	entries := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		s = Normalize(s)
		if s == "" {
			continue
		}
		if _, seen := members[s]; seen {
			continue
		}
		members[s] = struct{}{}
		entries = append(entries, s)
	}
	sort.Strings(entries)

	return &Catalogue{entries: entries, members: members}
}

// Contains reports whether symptom is an exact member.
func (c *Catalogue) Contains(symptom string) bool {
	_, ok := c.members[symptom]
	return ok
}

// Len returns the number of entries.
func (c *Catalogue) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the entries in catalogue order.
func (c *Catalogue) Entries() []string {
	out := make([]string, len(c.entries))
	copy(out, c.entries)
	return out
}

// Each calls fn for every entry in catalogue order until fn returns false.
func (c *Catalogue) Each(fn func(i int, symptom string) bool) {
	for i, s := range c.entries {
		if !fn(i, s) {
			return
		}
	}
}

// Search returns the entries containing term, case-insensitively, in catalogue
// order. Results are never ranked.
func (c *Catalogue) Search(term string) []string {
	needle := strings.ToLower(term)
	results := make([]string, 0)
	for _, s := range c.entries {
		if strings.Contains(strings.ToLower(s), needle) {
			results = append(results, s)
		}
	}
	return results
}
