// Package match scores how well a candidate result name matches a search
// query, gating acceptance of likely mismatches.
package match

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/pmezard/go-difflib/difflib"
)

// Scorer returns a similarity score in [0, 1] between a query and a
// candidate name. Implementations must be case-insensitive. Keeping this an
// interface lets alternate algorithms be swapped without touching the crawl
// loop.
type Scorer interface {
	Score(query, candidate string) float64
}

// PartialRatioScorer scores with fuzzywuzzy's partial ratio, so a query that
// is a clean substring of a longer candidate ("Taco Bell" vs
// "Taco Bell - South Lamar") still scores high.
type PartialRatioScorer struct{}

// Score returns the partial ratio scaled to [0, 1].
func (PartialRatioScorer) Score(query, candidate string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if q == "" || c == "" {
		return 0
	}
	return float64(fuzzy.PartialRatio(q, c)) / 100.0
}

// SequenceScorer is the alternate implementation: a straight
// sequence-matcher ratio over the full strings. It punishes length
// differences harder than PartialRatioScorer.
type SequenceScorer struct{}

// Score returns 2*M/T where M is the total size of matched blocks and T the
// combined length.
func (SequenceScorer) Score(query, candidate string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if q == "" || c == "" {
		return 0
	}
	m := difflib.NewMatcher(strings.Split(q, ""), strings.Split(c, ""))
	return m.Ratio()
}
