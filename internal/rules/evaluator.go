package rules

import (
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/similarity"
)

// Evaluator applies rules in precedence order; the first matching rule wins.
type Evaluator struct {
	logger  *slog.Logger
	rules   []model.CategorizationRule
	skipped []*model.InvalidRuleConfigurationError
}

// NewEvaluator prepares rules for evaluation. Disabled rules are dropped and invalid
// rules are skipped and recorded.
func NewEvaluator(rules []model.CategorizationRule, logger *slog.Logger) *Evaluator {
	e := &Evaluator{logger: common.ComponentLogger(logger, "rules")}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if err := Validate(rule); err != nil {
			e.skipped = append(e.skipped, err)
			e.logger.Warn("Skipping invalid rule", "rule_id", rule.ID, "rule", rule.Name, "error", err)
			continue
		}
		e.rules = append(e.rules, rule)
	}

	SortByPrecedence(e.rules)
	return e
}

// Evaluate returns the decision of the first matching rule, or nil.
func (e *Evaluator) Evaluate(candidate model.Candidate) *Decision {
	for _, rule := range e.rules {
		if Matches(rule.Conditions, candidate) {
			return &Decision{RuleID: rule.ID, RuleName: rule.Name, CategoryID: rule.CategoryID}
		}
	}
	return nil
}

// Rules returns the active rules in evaluation order.
func (e *Evaluator) Rules() []model.CategorizationRule {
	return e.rules
}

// Skipped returns the rules that were dropped as invalid.
func (e *Evaluator) Skipped() []*model.InvalidRuleConfigurationError {
	return e.skipped
}

// Evaluate is a convenience wrapper building a one-off Evaluator.
func Evaluate(candidate model.Candidate, rules []model.CategorizationRule) *Decision {
	return NewEvaluator(rules, nil).Evaluate(candidate)
}

// ForHousehold returns the rules that apply to accounts of householdID: rules without
// a household and rules scoped to that household.
func ForHousehold(list []model.CategorizationRule, householdID string) []model.CategorizationRule {
	out := make([]model.CategorizationRule, 0, len(list))
	for _, rule := range list {
		if rule.HouseholdID == "" || rule.HouseholdID == householdID {
			out = append(out, rule)
		}
	}
	return out
}

// SortByPrecedence orders rules by ascending priority, then creation time, then id.
func SortByPrecedence(rules []model.CategorizationRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Matches reports whether the candidate satisfies the conditions. Conditions with no
// predicates never match.
func Matches(cond model.RuleConditions, candidate model.Candidate) bool {
	results := predicateResults(cond, candidate)
	if len(results) == 0 {
		return false
	}

	if cond.EffectiveOperator() == model.OperatorOr {
		return slices.Contains(results, true)
	}
	return !slices.Contains(results, false)
}

func predicateResults(cond model.RuleConditions, candidate model.Candidate) []bool {
	results := make([]bool, 0, cond.PredicateCount())

	merchant := candidate.Merchant
	if strings.TrimSpace(merchant) == "" {
		merchant = candidate.Description
	}

	if cond.MerchantContains != "" {
		results = append(results, similarity.Contains(merchant, cond.MerchantContains))
	}
	if cond.MerchantEquals != "" {
		results = append(results, similarity.Equal(merchant, cond.MerchantEquals))
	}
	if cond.DescriptionContains != "" {
		results = append(results, similarity.Contains(candidate.Description, cond.DescriptionContains))
	}
	if cond.DescriptionEquals != "" {
		results = append(results, similarity.Equal(candidate.Description, cond.DescriptionEquals))
	}

	amount := candidate.Amount.Abs()
	if cond.AmountEquals != nil {
		results = append(results, amount.Equal(*cond.AmountEquals))
	}
	if cond.HasAmountRange() {
		results = append(results, inRange(amount, cond.AmountMin, cond.AmountMax))
	}

	if len(cond.AccountIDs) > 0 {
		results = append(results, slices.Contains(cond.AccountIDs, candidate.AccountID))
	}
	if len(cond.AccountTypes) > 0 {
		results = append(results, slices.ContainsFunc(cond.AccountTypes, func(t string) bool {
			return similarity.Equal(t, candidate.AccountType)
		}))
	}
	if len(cond.OwnerIDs) > 0 {
		results = append(results, slices.Contains(cond.OwnerIDs, candidate.OwnerID))
	}

	return results
}

func inRange(amount decimal.Decimal, lo, hi *decimal.Decimal) bool {
	if lo != nil && amount.LessThan(*lo) {
		return false
	}
	if hi != nil && amount.GreaterThan(*hi) {
		return false
	}
	return true
}
