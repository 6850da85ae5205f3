package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/plaid"
	"github.com/Veraticus/hearth/internal/sheets"
)

const statementCSV = `Date,Description,Amount
2024-01-05,Corner Coffee,-4.50
2024-01-06,Green Grocer,-52.10
2024-01-09,Payroll Deposit,2400.00
`

func seedAccount(t *testing.T, id, name string) {
	t.Helper()
	mustExecute(t, accountsCmd(), "add", name, "--id", id, "--type", "checking", "--balance", "1000")
}

func TestAccountsAddAndList(t *testing.T) {
	setupViper(t)

	seedAccount(t, "chk", "Joint Checking")

	var accounts []model.Account
	out := mustExecute(t, accountsCmd(), "list", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "chk", accounts[0].ID)
	assert.Equal(t, model.AccountChecking, accounts[0].Type)
	assert.True(t, accounts[0].IsManual)
	assert.True(t, decimal.NewFromInt(1000).Equal(accounts[0].Balance))

	_, err := execute(t, accountsCmd(), "", "add", "Broken", "--balance", "lots")
	assert.Error(t, err)
}

func TestCategoriesAddAndList(t *testing.T) {
	setupViper(t)

	mustExecute(t, categoriesCmd(), "add", "Groceries")
	mustExecute(t, categoriesCmd(), "add", "Salary", "--type", "income")

	var categories []model.Category
	out := mustExecute(t, categoriesCmd(), "list", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &categories))

	types := make(map[string]model.CategoryType)
	for _, c := range categories {
		types[c.Name] = c.Type
	}
	assert.Equal(t, model.CategoryTypeExpense, types["Groceries"])
	assert.Equal(t, model.CategoryTypeIncome, types["Salary"])

	_, err := execute(t, categoriesCmd(), "", "add", "Odd", "--type", "savings")
	assert.Error(t, err)
}

func TestImportPreviewDoesNotWrite(t *testing.T) {
	setupViper(t)
	seedAccount(t, "chk", "Joint Checking")
	file := writeFile(t, "statement.csv", statementCSV)

	var preview model.ImportPreview
	out := mustExecute(t, importCmd(), "preview", file, "--account", "chk", "--skip", "2", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &preview))

	assert.Equal(t, 3, preview.TotalRows)
	assert.Equal(t, 2, preview.Summary.Create)
	assert.Equal(t, 1, preview.Summary.Skip)
	assert.Equal(t, model.ActionSkip, preview.Rows[1].Action)

	out = mustExecute(t, importCmd(), "preview", file, "--account", "chk", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	assert.Equal(t, 3, preview.Summary.Create, "preview must not commit rows")
}

func TestImportApply(t *testing.T) {
	setupViper(t)
	seedAccount(t, "chk", "Joint Checking")
	file := writeFile(t, "statement.csv", statementCSV)

	var result model.ImportResult
	out := mustExecute(t, importCmd(), "apply", file, "--account", "chk", "--yes", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.NotEmpty(t, result.BatchID)
	assert.Len(t, result.Created, 3)
	assert.Equal(t, 3, result.Committed)

	// Applying the same file again finds every row already present.
	out = mustExecute(t, importCmd(), "apply", file, "--account", "chk", "--yes", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Empty(t, result.Created)
	assert.Equal(t, 0, result.Preview.Summary.Create)
}

func TestImportApplyDeclined(t *testing.T) {
	setupViper(t)
	seedAccount(t, "chk", "Joint Checking")
	file := writeFile(t, "statement.csv", statementCSV)

	out, err := execute(t, importCmd(), "n\n", "apply", file, "--account", "chk")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing was imported")

	var preview model.ImportPreview
	out = mustExecute(t, importCmd(), "preview", file, "--account", "chk", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	assert.Equal(t, 3, preview.Summary.Create)
}

func TestImportErrors(t *testing.T) {
	setupViper(t)
	seedAccount(t, "chk", "Joint Checking")
	csv := writeFile(t, "statement.csv", statementCSV)
	pdf := writeFile(t, "statement.pdf", "%PDF")

	tests := []struct {
		name string
		args []string
	}{
		{"missing account flag", []string{"preview", csv}},
		{"unknown account", []string{"preview", csv, "--account", "nope"}},
		{"unsupported file", []string{"preview", pdf, "--account", "chk"}},
		{"bad skip list", []string{"preview", csv, "--account", "chk", "--skip", "x"}},
		{"missing file", []string{"apply", "/does/not/exist.csv", "--account", "chk", "--yes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, importCmd(), "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestRulesAddListAndTest(t *testing.T) {
	setupViper(t)
	mustExecute(t, categoriesCmd(), "add", "Dining")

	out := mustExecute(t, rulesCmd(), "add", "Coffee", "--category", "Dining", "--merchant-contains", "coffee", "--description-contains", "coffee", "--operator", "or", "--priority", "5")
	assert.Contains(t, out, "Coffee")

	var list []model.CategorizationRule
	out = mustExecute(t, rulesCmd(), "list", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Priority)
	assert.Equal(t, model.OperatorOr, list[0].Conditions.Operator)
	assert.True(t, list[0].Enabled)

	out = mustExecute(t, rulesCmd(), "test", "CORNER COFFEE #12", "--amount", "-4.50")
	assert.Contains(t, out, "Dining")

	out = mustExecute(t, rulesCmd(), "test", "Hardware store", "--amount", "-30")
	assert.Contains(t, out, "No rule matches")

	_, err := execute(t, rulesCmd(), "", "add", "Ghost", "--category", "Nowhere", "--merchant-contains", "x")
	assert.Error(t, err)
}

func TestRulesLoadIsAllOrNothing(t *testing.T) {
	setupViper(t)
	mustExecute(t, categoriesCmd(), "add", "Dining")
	mustExecute(t, categoriesCmd(), "add", "Housing")

	good := writeFile(t, "rules.yaml", `rules:
  - name: Coffee
    category: Dining
    priority: 10
    conditions:
      merchant_contains: coffee
  - name: Rent
    category: Housing
    priority: 1
    conditions:
      amount_equals: "1800"
`)
	out := mustExecute(t, rulesCmd(), "load", good)
	assert.Contains(t, out, "Loaded 2 rules")

	bad := writeFile(t, "bad.yaml", `rules:
  - name: Utilities
    category: Housing
    conditions:
      description_contains: power
  - name: Mystery
    category: Unknown
    conditions:
      merchant_contains: x
`)
	_, err := execute(t, rulesCmd(), "", "load", bad)
	require.Error(t, err)

	var list []model.CategorizationRule
	out = mustExecute(t, rulesCmd(), "list", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list, 2)
}

func TestRecurringLifecycle(t *testing.T) {
	dbPath := setupViper(t)
	seedAccount(t, "chk", "Joint Checking")

	store, err := initStorage(context.Background(), dbPath)
	require.NoError(t, err)
	start := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := range 4 {
		txn := model.Transaction{
			AccountID:   "chk",
			Date:        start.AddDate(0, i, 0),
			Amount:      decimal.RequireFromString("-15.99"),
			Description: "STREAMFLIX",
			Merchant:    "Streamflix",
		}
		require.NoError(t, store.CreateTransaction(context.Background(), &txn))
	}
	require.NoError(t, store.Close())

	var report struct {
		Patterns []model.RecurringPattern
		Created  int
	}
	out := mustExecute(t, recurringCmd(), "detect", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, 1, report.Created)
	require.Len(t, report.Patterns, 1)
	assert.Equal(t, model.FrequencyMonthly, report.Patterns[0].Frequency)

	id := report.Patterns[0].ID
	out = mustExecute(t, recurringCmd(), "confirm", strconv.FormatInt(id, 10))
	assert.Contains(t, out, string(model.PatternConfirmed))

	out = mustExecute(t, recurringCmd(), "pause", strconv.FormatInt(id, 10))
	assert.Contains(t, out, string(model.PatternPaused))

	var patterns []model.RecurringPattern
	out = mustExecute(t, recurringCmd(), "list", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &patterns))
	require.Len(t, patterns, 1)
	assert.Equal(t, model.PatternPaused, patterns[0].Status)

	_, err = execute(t, recurringCmd(), "", "confirm", "999")
	assert.Error(t, err)
	_, err = execute(t, recurringCmd(), "", "end", "abc")
	assert.Error(t, err)
}

func TestRecurringWatchRejectsBadSchedule(t *testing.T) {
	setupViper(t)

	_, err := execute(t, recurringCmd(), "", "watch", "--schedule", "every tuesday")
	assert.Error(t, err)
}

func useFetcher(t *testing.T, mock *plaid.MockClient) {
	t.Helper()
	orig := newFetcher
	newFetcher = func(context.Context, *slog.Logger) (plaid.Fetcher, error) { return mock, nil }
	t.Cleanup(func() { newFetcher = orig })
}

func TestSyncAccountsLinksSuggestions(t *testing.T) {
	setupViper(t)
	seedAccount(t, "chk", "Joint Checking")

	mock := plaid.NewMockClient()
	mock.GetAccountsFn = func(context.Context) ([]model.ExternalAccount, error) {
		return []model.ExternalAccount{{
			ExternalID: "plaid-1",
			Name:       "Joint Checking",
			Type:       model.AccountChecking,
			Balance:    decimal.NewFromInt(1000),
		}}, nil
	}
	useFetcher(t, mock)

	var pairs []struct {
		Suggestion *struct {
			LocalAccountID string `json:"localAccountId"`
		} `json:"suggestion"`
	}
	out := mustExecute(t, syncCmd(), "accounts", "--json", "--link")
	require.NoError(t, json.Unmarshal([]byte(out), &pairs))
	require.Len(t, pairs, 1)
	require.NotNil(t, pairs[0].Suggestion)
	assert.Equal(t, "chk", pairs[0].Suggestion.LocalAccountID)

	var accounts []model.Account
	out = mustExecute(t, accountsCmd(), "list", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &accounts))
	assert.Equal(t, "plaid-1", accounts[0].ExternalID)
}

func TestSyncPreview(t *testing.T) {
	setupViper(t)
	seedAccount(t, "chk", "Joint Checking")

	today := model.DayOf(time.Now())
	mock := plaid.NewMockClient()
	mock.GetAccountsFn = func(context.Context) ([]model.ExternalAccount, error) {
		return []model.ExternalAccount{{ExternalID: "plaid-1", Name: "Joint Checking", Type: model.AccountChecking, Balance: decimal.NewFromInt(1000)}}, nil
	}
	mock.GetTransactionsFn = func(context.Context, time.Time, time.Time) ([]model.Candidate, error) {
		return []model.Candidate{
			{AccountID: "plaid-1", ExternalID: "tx-1", Date: today, Amount: decimal.RequireFromString("-9.99"), Description: "Music Service"},
		}, nil
	}
	useFetcher(t, mock)

	var previews []struct {
		Preview model.ImportPreview `json:"preview"`
	}
	out := mustExecute(t, syncCmd(), "preview", "--days", "7", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &previews))
	require.Len(t, previews, 1)
	assert.Equal(t, 1, previews[0].Preview.Summary.Create)

	require.Len(t, mock.GetTransactionsCalls, 1)
	call := mock.GetTransactionsCalls[0]
	assert.Equal(t, 7*24*time.Hour, call.EndDate.Sub(call.StartDate))

	_, err := execute(t, syncCmd(), "", "preview", "--days", "0")
	assert.Error(t, err)
}

func TestSyncApply(t *testing.T) {
	setupViper(t)
	seedAccount(t, "chk", "Joint Checking")

	today := model.DayOf(time.Now())
	mock := plaid.NewMockClient()
	mock.Accounts = []model.ExternalAccount{{ExternalID: "plaid-1", Name: "Joint Checking", Type: model.AccountChecking}}
	mock.Transactions = []model.Candidate{
		{AccountID: "plaid-1", ExternalID: "tx-1", Date: today, Amount: decimal.RequireFromString("-9.99"), Description: "Music Service"},
		{AccountID: "plaid-1", ExternalID: "tx-2", Date: today.AddDate(0, 0, -1), Amount: decimal.RequireFromString("-40.00"), Description: "Fuel Stop"},
		{AccountID: "plaid-2", ExternalID: "tx-3", Date: today, Amount: decimal.RequireFromString("-1.00"), Description: "Other Card"},
	}
	useFetcher(t, mock)

	_, err := execute(t, syncCmd(), "", "apply", "--account", "chk", "--yes")
	require.Error(t, err, "an unlinked account needs --external")

	var result model.ImportResult
	out := mustExecute(t, syncCmd(), "apply", "--account", "chk", "--external", "plaid-1", "--skip", "2", "--yes", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Created, 1)
	assert.Equal(t, 1, result.Preview.Summary.Skip)

	var accounts []model.Account
	out = mustExecute(t, accountsCmd(), "list", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &accounts))
	assert.Equal(t, "plaid-1", accounts[0].ExternalID)

	// The link is used from now on, and rows already imported are found again.
	out = mustExecute(t, syncCmd(), "apply", "--account", "chk", "--yes", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Created, 1)
	assert.Equal(t, 1, result.Preview.Summary.Unchanged)

	_, err = execute(t, syncCmd(), "", "apply", "--account", "chk", "--external", "plaid-2", "--yes")
	assert.Error(t, err, "a linked account cannot be applied from another feed")

	_, err = execute(t, syncCmd(), "", "apply", "--account", "chk", "--external", "missing", "--yes")
	assert.Error(t, err)
}

func TestSyncApplyDeclined(t *testing.T) {
	setupViper(t)
	seedAccount(t, "chk", "Joint Checking")

	mock := plaid.NewMockClient()
	mock.Accounts = []model.ExternalAccount{{ExternalID: "plaid-1", Name: "Joint Checking", Type: model.AccountChecking}}
	mock.Transactions = []model.Candidate{
		{AccountID: "plaid-1", ExternalID: "tx-1", Date: model.DayOf(time.Now()), Amount: decimal.RequireFromString("-9.99"), Description: "Music Service"},
	}
	useFetcher(t, mock)

	out, err := execute(t, syncCmd(), "n\n", "apply", "--account", "chk", "--external", "plaid-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing was imported")

	var accounts []model.Account
	out = mustExecute(t, accountsCmd(), "list", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &accounts))
	assert.Empty(t, accounts[0].ExternalID, "a declined apply does not link")
}

func TestExportSheets(t *testing.T) {
	setupViper(t)
	seedAccount(t, "chk", "Joint Checking")
	file := writeFile(t, "statement.csv", statementCSV)

	mock := sheets.NewMockExporter("sheet-123")
	orig := newExporter
	newExporter = func(context.Context, *slog.Logger) (sheets.Exporter, error) { return mock, nil }
	t.Cleanup(func() { newExporter = orig })

	out := mustExecute(t, exportCmd(), "sheets", "--file", file, "--account", "chk")
	assert.Contains(t, out, "sheet-123")
	require.Equal(t, 1, mock.Calls())
	require.NotNil(t, mock.Reports[0].Preview)
	assert.Equal(t, 3, mock.Reports[0].Preview.TotalRows)

	_, err := execute(t, exportCmd(), "", "sheets")
	assert.Error(t, err)
	_, err = execute(t, exportCmd(), "", "sheets", "--file", file)
	assert.Error(t, err)
}

func TestMigrateStatus(t *testing.T) {
	setupViper(t)

	mustExecute(t, migrateCmd())
	out := mustExecute(t, migrateCmd(), "--status")
	assert.Contains(t, out, "Current version: 4")
	assert.Contains(t, out, "Latest version: 4")
}
