// Package matcher decides whether an incoming transaction record corresponds to a
// transaction that is already stored.
package matcher

import "github.com/Veraticus/hearth/internal/model"

// Matcher finds the stored counterpart of a candidate.
type Matcher interface {
	// Match returns the best stored transaction in pool for candidate, if any clears
	// the acceptance threshold.
	Match(candidate model.Candidate, pool []model.Transaction) model.MatchResult
}

var _ Matcher = (*FuzzyMatcher)(nil)
