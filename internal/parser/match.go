// Package parser turns free text (quick-entry lines and bank SMS) into
// transaction candidates.
package parser

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Candidate is a named entity a token may refer to.
type Candidate struct {
	ID   string
	Name string
}

// Match is the candidate picked for a token. Hint is set when the name
// came from the alias table and no such entity exists yet; ID is empty then.
type Match struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Hint       bool    `json:"hint,omitempty"`
}

// Thresholds holds every confidence constant the parsers use.
type Thresholds struct {
	Exact     float64 // case-insensitive name equality
	Initials  float64 // "DB" for "Deutsche Bank"
	Substring float64 // either contains the other

	// Edit-distance matches need at least MinFuzzyLen runes and a
	// similarity strictly above MinSimilarity.
	MinFuzzyLen   int
	MinSimilarity float64

	// A match is kept only when its confidence reaches these.
	AccountMin  float64
	CategoryMin float64

	Alias     float64 // alias hit on an existing category
	AliasHint float64 // alias hit, category not created yet

	// SMS results at or above this score may be submitted automatically.
	AutoSubmit int
}

// DefaultThresholds returns the tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Exact:         1.0,
		Initials:      0.9,
		Substring:     0.8,
		MinFuzzyLen:   3,
		MinSimilarity: 0.6,
		AccountMin:    0.7,
		CategoryMin:   0.6,
		Alias:         0.85,
		AliasHint:     0.7,
		AutoSubmit:    70,
	}
}

// Similarity is 1 minus the edit distance over the longer length, in [0, 1].
func Similarity(a, b string) float64 {
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(n)
}

func initials(name string) string {
	var b strings.Builder
	for _, w := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(r)
	}
	return b.String()
}

// Best returns the best candidate for token. An exact match wins at once;
// otherwise the highest scoring rule wins and ties keep the earlier
// candidate, so the result depends only on the inputs.
func (th Thresholds) Best(token string, cands []Candidate) (Match, bool) {
	tok := strings.ToLower(strings.TrimSpace(token))
	if tok == "" {
		return Match{}, false
	}

	var best Match
	found := false
	consider := func(c Candidate, score float64) {
		if !found || score > best.Confidence {
			best = Match{ID: c.ID, Name: c.Name, Confidence: score}
			found = true
		}
	}

	for _, c := range cands {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			continue
		}
		switch {
		case name == tok:
			return Match{ID: c.ID, Name: c.Name, Confidence: th.Exact}, true
		case initials(name) == tok:
			consider(c, th.Initials)
		case strings.Contains(name, tok) || strings.Contains(tok, name):
			consider(c, th.Substring)
		case utf8.RuneCountInString(tok) >= th.MinFuzzyLen:
			if sim := Similarity(tok, name); sim > th.MinSimilarity {
				consider(c, math.Round(sim*100)/100)
			}
		}
	}
	return best, found
}
