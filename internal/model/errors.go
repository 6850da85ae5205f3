package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition is returned for a lifecycle change the pattern state machine forbids.
var ErrInvalidTransition = errors.New("invalid status transition")

// ParseError reports a row whose required fields could not be parsed.
type ParseError struct {
	Field  string
	Value  string
	Reason string
	Row    int
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Field, e.Value, e.Reason)
}

// ThresholdUnmetError records the best score a candidate reached when no stored
// transaction cleared the acceptance threshold. It is informational.
type ThresholdUnmetError struct {
	BestID    int64
	BestScore float64
	Threshold float64
}

func (e *ThresholdUnmetError) Error() string {
	return fmt.Sprintf("best match %d scored %.2f, below threshold %.2f", e.BestID, e.BestScore, e.Threshold)
}

// InvalidRuleConfigurationError reports a rule whose conditions cannot be satisfied
// or cannot be interpreted.
type InvalidRuleConfigurationError struct {
	RuleName string
	Problems []string
	RuleID   int64
}

func (e *InvalidRuleConfigurationError) Error() string {
	return fmt.Sprintf("rule %d (%s) is invalid: %s", e.RuleID, e.RuleName, strings.Join(e.Problems, "; "))
}
