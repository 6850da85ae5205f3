package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hearth/internal/model"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestEvaluator_Evaluate(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	coffee := model.CategorizationRule{
		ID: 1, Name: "coffee", CategoryID: 10, Priority: 1, Enabled: true, CreatedAt: created,
		Conditions: model.RuleConditions{MerchantContains: "STARBUCKS"},
	}
	snacks := model.CategorizationRule{
		ID: 2, Name: "small purchases", CategoryID: 20, Priority: 2, Enabled: true, CreatedAt: created,
		Conditions: model.RuleConditions{AmountMax: dec("9.99")},
	}

	tests := []struct {
		name      string
		rules     []model.CategorizationRule
		candidate model.Candidate
		wantRule  int64
	}{
		{
			name:      "lower priority number wins",
			rules:     []model.CategorizationRule{snacks, coffee},
			candidate: model.Candidate{Description: "STARBUCKS #123", Amount: decimal.RequireFromString("-5.00")},
			wantRule:  1,
		},
		{
			name:      "falls through to next rule",
			rules:     []model.CategorizationRule{coffee, snacks},
			candidate: model.Candidate{Description: "Corner Store", Amount: decimal.RequireFromString("-5.00")},
			wantRule:  2,
		},
		{
			name:      "no rule matches",
			rules:     []model.CategorizationRule{coffee, snacks},
			candidate: model.Candidate{Description: "Corner Store", Amount: decimal.RequireFromString("-50.00")},
		},
		{
			name: "disabled rule ignored",
			rules: func() []model.CategorizationRule {
				off := coffee
				off.Enabled = false
				return []model.CategorizationRule{off}
			}(),
			candidate: model.Candidate{Description: "STARBUCKS", Amount: decimal.RequireFromString("-5.00")},
		},
		{
			name: "zero predicates never match",
			rules: []model.CategorizationRule{
				{ID: 3, Name: "empty", CategoryID: 30, Priority: 0, Enabled: true},
			},
			candidate: model.Candidate{Description: "anything", Amount: decimal.RequireFromString("-1.00")},
		},
		{
			name: "invalid rule skipped",
			rules: []model.CategorizationRule{
				{
					ID: 4, Name: "impossible", CategoryID: 40, Priority: 0, Enabled: true,
					Conditions: model.RuleConditions{AmountMin: dec("20"), AmountMax: dec("10")},
				},
				coffee,
			},
			candidate: model.Candidate{Description: "STARBUCKS", Amount: decimal.RequireFromString("-15.00")},
			wantRule:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Evaluate(tt.candidate, tt.rules)
			if tt.wantRule == 0 {
				assert.Nil(t, decision)
				return
			}
			require.NotNil(t, decision)
			assert.Equal(t, tt.wantRule, decision.RuleID)
		})
	}
}

func TestEvaluator_TieBreak(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	cond := model.RuleConditions{DescriptionContains: "rent"}

	rules := []model.CategorizationRule{
		{ID: 5, Name: "late", CategoryID: 1, Priority: 1, Enabled: true, CreatedAt: late, Conditions: cond},
		{ID: 9, Name: "early-b", CategoryID: 2, Priority: 1, Enabled: true, CreatedAt: early, Conditions: cond},
		{ID: 8, Name: "early-a", CategoryID: 3, Priority: 1, Enabled: true, CreatedAt: early, Conditions: cond},
	}
	c := model.Candidate{Description: "RENT JANUARY", Amount: decimal.RequireFromString("-1500")}

	for i := 0; i < 10; i++ {
		decision := Evaluate(c, rules)
		require.NotNil(t, decision)
		assert.Equal(t, int64(8), decision.RuleID)
	}
}

func TestEvaluator_SkippedReported(t *testing.T) {
	e := NewEvaluator([]model.CategorizationRule{
		{ID: 1, Name: "bad operator", CategoryID: 1, Enabled: true, Conditions: model.RuleConditions{Operator: "XOR", MerchantContains: "a"}},
		{ID: 2, Name: "ok", CategoryID: 1, Enabled: true, Conditions: model.RuleConditions{MerchantContains: "a"}},
	}, nil)

	require.Len(t, e.Skipped(), 1)
	assert.Equal(t, int64(1), e.Skipped()[0].RuleID)
	assert.Len(t, e.Rules(), 1)
}

func TestForHousehold(t *testing.T) {
	list := []model.CategorizationRule{
		{ID: 1, Name: "shared"},
		{ID: 2, Name: "ours", HouseholdID: "A"},
		{ID: 3, Name: "theirs", HouseholdID: "B"},
	}

	ids := func(rules []model.CategorizationRule) []int64 {
		var out []int64
		for _, r := range rules {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []int64{1, 2}, ids(ForHousehold(list, "A")))
	assert.Equal(t, []int64{1, 3}, ids(ForHousehold(list, "B")))
	assert.Equal(t, []int64{1}, ids(ForHousehold(list, "")))
	assert.Len(t, list, 3)
}

func TestMatches(t *testing.T) {
	candidate := model.Candidate{
		Description: "NETFLIX.COM",
		Amount:      decimal.RequireFromString("-15.99"),
		AccountID:   "acct-1",
		AccountType: "credit",
		OwnerID:     "alice",
	}

	tests := []struct {
		name string
		cond model.RuleConditions
		want bool
	}{
		{"merchant falls back to description", model.RuleConditions{MerchantContains: "netflix"}, true},
		{"merchant equals", model.RuleConditions{MerchantEquals: "netflix.com"}, true},
		{"description equals mismatch", model.RuleConditions{DescriptionEquals: "netflix"}, false},
		{"amount equals uses magnitude", model.RuleConditions{AmountEquals: dec("15.99")}, true},
		{"amount range inclusive", model.RuleConditions{AmountMin: dec("15.99"), AmountMax: dec("15.99")}, true},
		{"amount below min", model.RuleConditions{AmountMin: dec("16")}, false},
		{"account ids", model.RuleConditions{AccountIDs: []string{"acct-2", "acct-1"}}, true},
		{"account types ignore case", model.RuleConditions{AccountTypes: []string{"CREDIT"}}, true},
		{"owner ids", model.RuleConditions{OwnerIDs: []string{"bob"}}, false},
		{
			"and requires all",
			model.RuleConditions{MerchantContains: "netflix", OwnerIDs: []string{"bob"}},
			false,
		},
		{
			"or requires one",
			model.RuleConditions{Operator: model.OperatorOr, MerchantContains: "hulu", OwnerIDs: []string{"alice"}},
			true,
		},
		{
			"or with nothing true",
			model.RuleConditions{Operator: model.OperatorOr, MerchantContains: "hulu", OwnerIDs: []string{"bob"}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.cond, candidate))
		})
	}
}
