package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operator combines the predicates of a rule.
type Operator string

// Operator constants.
const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// CategorizationRule assigns a category to transactions matching its conditions.
// Lower Priority numbers are evaluated first.
type CategorizationRule struct {
	CreatedAt   time.Time      `json:"createdAt" yaml:"-"`
	Name        string         `json:"name" yaml:"name"`
	HouseholdID string         `json:"householdId,omitempty" yaml:"household_id,omitempty"`
	Conditions  RuleConditions `json:"conditions" yaml:"conditions"`
	ID          int64          `json:"id" yaml:"-"`
	CategoryID  int64          `json:"categoryId" yaml:"category_id"`
	Priority    int            `json:"priority" yaml:"priority"`
	Enabled     bool           `json:"enabled" yaml:"enabled"`
}

// RuleConditions is the closed set of predicates a rule may test.
// A nil or empty field means the predicate is not specified.
type RuleConditions struct {
	AmountEquals        *decimal.Decimal `json:"amount_equals,omitempty" yaml:"amount_equals,omitempty"`
	AmountMin           *decimal.Decimal `json:"amount_min,omitempty" yaml:"amount_min,omitempty"`
	AmountMax           *decimal.Decimal `json:"amount_max,omitempty" yaml:"amount_max,omitempty"`
	Operator            Operator         `json:"operator,omitempty" yaml:"operator,omitempty"`
	MerchantContains    string           `json:"merchant_contains,omitempty" yaml:"merchant_contains,omitempty"`
	MerchantEquals      string           `json:"merchant_equals,omitempty" yaml:"merchant_equals,omitempty"`
	DescriptionContains string           `json:"description_contains,omitempty" yaml:"description_contains,omitempty"`
	DescriptionEquals   string           `json:"description_equals,omitempty" yaml:"description_equals,omitempty"`
	AccountIDs          []string         `json:"account_ids,omitempty" yaml:"account_ids,omitempty"`
	AccountTypes        []string         `json:"account_types,omitempty" yaml:"account_types,omitempty"`
	OwnerIDs            []string         `json:"owner_ids,omitempty" yaml:"owner_ids,omitempty"`
}

// EffectiveOperator returns the operator, defaulting to AND.
func (c RuleConditions) EffectiveOperator() Operator {
	if c.Operator == "" {
		return OperatorAnd
	}
	return c.Operator
}

// HasAmountRange reports whether amount_min or amount_max is set. Together they form
// a single range predicate.
func (c RuleConditions) HasAmountRange() bool {
	return c.AmountMin != nil || c.AmountMax != nil
}

// PredicateCount returns how many predicates are specified.
func (c RuleConditions) PredicateCount() int {
	n := 0
	for _, s := range []string{c.MerchantContains, c.MerchantEquals, c.DescriptionContains, c.DescriptionEquals} {
		if s != "" {
			n++
		}
	}
	if c.AmountEquals != nil {
		n++
	}
	if c.HasAmountRange() {
		n++
	}
	for _, l := range [][]string{c.AccountIDs, c.AccountTypes, c.OwnerIDs} {
		if len(l) > 0 {
			n++
		}
	}
	return n
}
