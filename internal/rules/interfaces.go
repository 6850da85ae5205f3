// Package rules evaluates user-defined categorization rules against transactions.
package rules

import "github.com/Veraticus/hearth/internal/model"

// Categorizer picks the category a candidate should receive.
type Categorizer interface {
	// Evaluate returns the decision of the first matching rule, or nil when no rule matches.
	Evaluate(candidate model.Candidate) *Decision
}

// Decision is the outcome of a matching rule.
type Decision struct {
	RuleName   string
	RuleID     int64
	CategoryID int64
}

var _ Categorizer = (*Evaluator)(nil)
