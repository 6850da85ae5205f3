package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hearth/internal/model"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cond    model.RuleConditions
		wantErr string
	}{
		{name: "valid", cond: model.RuleConditions{MerchantContains: "shell", AmountMax: dec("100")}},
		{name: "empty conditions are valid", cond: model.RuleConditions{}},
		{name: "unknown operator", cond: model.RuleConditions{Operator: "NOT"}, wantErr: "unknown operator"},
		{name: "min above max", cond: model.RuleConditions{AmountMin: dec("10"), AmountMax: dec("5")}, wantErr: "exceeds amount_max"},
		{
			name:    "equals outside range",
			cond:    model.RuleConditions{AmountEquals: dec("50"), AmountMax: dec("20")},
			wantErr: "outside the amount range",
		},
		{
			name: "equals outside range allowed with OR",
			cond: model.RuleConditions{Operator: model.OperatorOr, AmountEquals: dec("50"), AmountMax: dec("20")},
		},
		{
			name:    "contradictory merchant predicates",
			cond:    model.RuleConditions{MerchantEquals: "Netflix", MerchantContains: "hulu"},
			wantErr: "merchant_equals can never contain",
		},
		{
			name: "consistent merchant predicates",
			cond: model.RuleConditions{MerchantEquals: "Netflix", MerchantContains: "FLIX"},
		},
		{name: "negative amount", cond: model.RuleConditions{AmountMin: dec("-1")}, wantErr: "must not be negative"},
		{name: "empty list value", cond: model.RuleConditions{OwnerIDs: []string{""}}, wantErr: "owner_ids contains an empty value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(model.CategorizationRule{ID: 7, Name: tt.name, CategoryID: 1, Conditions: tt.cond})
			if tt.wantErr == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, int64(7), err.RuleID)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_RequiresCategory(t *testing.T) {
	err := Validate(model.CategorizationRule{Name: "orphan", Conditions: model.RuleConditions{MerchantContains: "x"}})
	require.NotNil(t, err)
	assert.Contains(t, err.Problems, "category is required")
}
