package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Veraticus/hearth/internal/model"
)

// Validate checks that a rule can be interpreted and is satisfiable. It returns nil or
// an *model.InvalidRuleConfigurationError listing every problem found.
func Validate(rule model.CategorizationRule) *model.InvalidRuleConfigurationError {
	var problems []string
	c := rule.Conditions

	if rule.CategoryID <= 0 {
		problems = append(problems, "category is required")
	}

	switch c.Operator {
	case "", model.OperatorAnd, model.OperatorOr:
	default:
		problems = append(problems, fmt.Sprintf("unknown operator %q", c.Operator))
	}

	if c.AmountEquals != nil && c.AmountEquals.IsNegative() {
		problems = append(problems, "amount_equals must not be negative")
	}
	if c.AmountMin != nil && c.AmountMin.IsNegative() {
		problems = append(problems, "amount_min must not be negative")
	}
	if c.AmountMax != nil && c.AmountMax.IsNegative() {
		problems = append(problems, "amount_max must not be negative")
	}
	if c.AmountMin != nil && c.AmountMax != nil && c.AmountMin.GreaterThan(*c.AmountMax) {
		problems = append(problems, fmt.Sprintf("amount_min %s exceeds amount_max %s", c.AmountMin, c.AmountMax))
	}

	if c.EffectiveOperator() == model.OperatorAnd {
		if c.AmountEquals != nil && c.HasAmountRange() && !inRange(*c.AmountEquals, c.AmountMin, c.AmountMax) {
			problems = append(problems, fmt.Sprintf("amount_equals %s lies outside the amount range", c.AmountEquals))
		}
		if conflict(c.MerchantEquals, c.MerchantContains) {
			problems = append(problems, "merchant_equals can never contain merchant_contains")
		}
		if conflict(c.DescriptionEquals, c.DescriptionContains) {
			problems = append(problems, "description_equals can never contain description_contains")
		}
	}

	for field, list := range map[string][]string{
		"account_ids":   c.AccountIDs,
		"account_types": c.AccountTypes,
		"owner_ids":     c.OwnerIDs,
	} {
		if slices.ContainsFunc(list, func(s string) bool { return strings.TrimSpace(s) == "" }) {
			problems = append(problems, field+" contains an empty value")
		}
	}

	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return &model.InvalidRuleConfigurationError{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Problems: problems,
	}
}

func conflict(equals, contains string) bool {
	if equals == "" || contains == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(strings.TrimSpace(equals)), strings.ToLower(contains))
}
