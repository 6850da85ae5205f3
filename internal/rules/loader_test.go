package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hearth/internal/model"
)

const ruleYAML = `
rules:
  - name: coffee
    category: Coffee
    priority: 1
    conditions:
      merchant_contains: starbucks
  - name: utilities
    category_id: 42
    priority: 5
    enabled: false
    conditions:
      operator: OR
      description_contains: electric
      amount_min: 80.50
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ruleYAML), 0o600))

	specs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	categories := model.NewCategoryIndex([]model.Category{{ID: 3, Name: "Coffee"}})

	coffee, err := specs[0].Resolve(categories)
	require.NoError(t, err)
	assert.Equal(t, int64(3), coffee.CategoryID)
	assert.True(t, coffee.Enabled)
	assert.Equal(t, "starbucks", coffee.Conditions.MerchantContains)

	utilities, err := specs[1].Resolve(categories)
	require.NoError(t, err)
	assert.False(t, utilities.Enabled)
	assert.Equal(t, model.OperatorOr, utilities.Conditions.Operator)
	require.NotNil(t, utilities.Conditions.AmountMin)
	assert.Equal(t, "80.5", utilities.Conditions.AmountMin.String())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("rules: [{priority: 1}]"))
	assert.Error(t, err)

	_, err = Parse([]byte("rules: ["))
	assert.Error(t, err)

	specs, err := Parse([]byte("rules:\n  - name: x\n    category: Missing\n"))
	require.NoError(t, err)
	_, err = specs[0].Resolve(model.NewCategoryIndex(nil))
	assert.ErrorContains(t, err, "unknown category")
}
