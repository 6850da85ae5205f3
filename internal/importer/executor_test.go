package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/testutil"
)

func newTestExecutor(t *testing.T, opts ...ExecutorOption) (*Executor, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t, "Coffee", "Groceries")
	db.MustCreateAccount(testutil.ManualAccount("acct-1", "Joint Checking"))

	opts = append([]ExecutorOption{WithClock(&common.FixedClock{T: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)})}, opts...)
	return NewExecutor(db.Storage, NewBuilder(nil, nil), nil, opts...), db
}

func statementRows() []RawRow {
	return []RawRow{
		rawRow(1, "2024-03-01", "-42.50", "Coffee Shop", "Dining"),
		rawRow(2, "2024-03-02", "-88.10", "Whole Foods", "Groceries"),
		rawRow(3, "2024-03-03", "2500.00", "Payroll ACME", ""),
	}
}

func TestExecutor_ExecuteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	exec, db := newTestExecutor(t)
	req := ExecuteRequest{AccountID: "acct-1", Source: "march.csv", Rows: statementRows()}

	first, err := exec.Execute(ctx, req)
	require.NoError(t, err)
	assert.Len(t, first.Created, 3)
	assert.Empty(t, first.Updated)
	assert.Equal(t, 3, first.Committed)
	assert.NotEmpty(t, first.BatchID)

	stored := db.MustTransactions("acct-1")
	require.Len(t, stored, 3)

	second, err := exec.Execute(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Empty(t, second.Updated)
	assert.Equal(t, 0, second.Committed)
	assert.Equal(t, model.ImportSummary{Unchanged: 3}, second.Preview.Summary)

	assert.Len(t, db.MustTransactions("acct-1"), 3)
}

func TestExecutor_ResolvesCategories(t *testing.T) {
	ctx := context.Background()
	exec, db := newTestExecutor(t)
	coffee := db.MustCategory("Coffee")
	db.MustCreateRule(model.CategorizationRule{
		Name: "payroll", CategoryID: db.MustCategory("Groceries").ID, Priority: 5, Enabled: true,
		Conditions: model.RuleConditions{DescriptionContains: "no such payee"},
	})
	db.MustCreateRule(model.CategorizationRule{
		Name: "starbucks", CategoryID: coffee.ID, Priority: 1, Enabled: true,
		Conditions: model.RuleConditions{MerchantContains: "starbucks"},
	})

	result, err := exec.Execute(ctx, ExecuteRequest{AccountID: "acct-1", Rows: []RawRow{
		rawRow(1, "2024-03-01", "-4.75", "STARBUCKS #1024", ""),
		rawRow(2, "2024-03-01", "-19.00", "Cinema", "Entertainment"),
		rawRow(3, "2024-03-02", "-11.00", "Cinema", "entertainment"),
	}})
	require.NoError(t, err)
	require.Len(t, result.Created, 3)

	byDesc := make(map[string]model.Transaction)
	for _, txn := range db.MustTransactions("acct-1") {
		byDesc[txn.Description+txn.Amount.String()] = txn
	}

	starbucks := byDesc["STARBUCKS #1024-4.75"]
	require.NotNil(t, starbucks.CategoryID)
	assert.Equal(t, coffee.ID, *starbucks.CategoryID)

	entertainment := db.MustCategory("Entertainment")
	for _, key := range []string{"Cinema-19", "Cinema-11"} {
		txn := byDesc[key]
		require.NotNil(t, txn.CategoryID, key)
		assert.Equal(t, entertainment.ID, *txn.CategoryID, key)
	}
}

func TestExecutor_AppliesUpdates(t *testing.T) {
	ctx := context.Background()
	exec, db := newTestExecutor(t)
	existing := db.MustCreateTransaction(testutil.Txn("acct-1", "2024-03-01", "-42.50", "Coffee Shop"))

	result, err := exec.Execute(ctx, ExecuteRequest{AccountID: "acct-1", Rows: []RawRow{
		{Number: 1, Fields: map[string]string{
			ColDate: "2024-03-02", ColAmount: "-42.50", ColDescription: "Coffee Shop",
			ColCategory: "Coffee", ColNotes: "with Sam",
		}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []int64{existing.ID}, result.Updated)

	got, err := db.Storage.GetTransactionByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "with Sam", got.Notes)
	assert.Equal(t, "Coffee", got.CategoryName)
	assert.Equal(t, "2024-03-01", got.Date.Format("2006-01-02"))
}

func TestExecutor_SkipsRequestedAndProtectedRows(t *testing.T) {
	ctx := context.Background()
	var progress []int
	exec, db := newTestExecutor(t, WithProgress(func(done, total int) {
		progress = append(progress, done)
		assert.Equal(t, 1, total)
	}))

	manual := testutil.Txn("acct-1", "2024-03-02", "-88.10", "Whole Foods")
	manual.IsManual = true
	db.MustCreateTransaction(manual)

	result, err := exec.Execute(ctx, ExecuteRequest{
		AccountID:      "acct-1",
		Rows:           statementRows(),
		SkipRowNumbers: []int{3},
	})
	require.NoError(t, err)

	assert.Len(t, result.Created, 1)
	assert.Equal(t, model.ImportSummary{Create: 1, Skip: 2}, result.Preview.Summary)
	assert.Contains(t, result.Preview.Rows[1].Warnings, WarnManualProtected)
	assert.Contains(t, result.Preview.Rows[2].Warnings, WarnSkipRequested)
	assert.Equal(t, []int{1}, progress)
	assert.Len(t, db.MustTransactions("acct-1"), 2)
}

func TestExecutor_UnknownAccount(t *testing.T) {
	exec, _ := newTestExecutor(t)
	_, err := exec.Execute(context.Background(), ExecuteRequest{AccountID: "missing", Rows: statementRows()})
	assert.ErrorIs(t, err, common.ErrNotFound)
}
