// Package testutil provides database fixtures for hearth tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/service"
	"github.com/Veraticus/hearth/internal/storage"
)

// TestDB is a migrated in-memory database with fixture helpers.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database and seeds the given categories.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T, categories ...string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, name := range categories {
		if _, err := store.CreateCategory(ctx, name, model.CategoryTypeExpense); err != nil {
			t.Fatalf("failed to seed category %q: %v", name, err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustCreateAccount inserts an account or fails the test.
func (db *TestDB) MustCreateAccount(account model.Account) model.Account {
	db.t.Helper()
	if err := db.Storage.CreateAccount(context.Background(), &account); err != nil {
		db.t.Fatalf("failed to create account %s: %v", account.ID, err)
	}
	return account
}

// MustCategory returns the seeded category with the given name or fails the test.
func (db *TestDB) MustCategory(name string) model.Category {
	db.t.Helper()
	cat, err := db.Storage.GetCategoryByName(context.Background(), name)
	if err != nil {
		db.t.Fatalf("category %q: %v", name, err)
	}
	return *cat
}

// MustCreateTransaction inserts a transaction or fails the test.
func (db *TestDB) MustCreateTransaction(txn model.Transaction) model.Transaction {
	db.t.Helper()
	if err := db.Storage.CreateTransaction(context.Background(), &txn); err != nil {
		db.t.Fatalf("failed to create transaction: %v", err)
	}
	return txn
}

// MustCreateRule inserts a rule or fails the test.
func (db *TestDB) MustCreateRule(rule model.CategorizationRule) model.CategorizationRule {
	db.t.Helper()
	if err := db.Storage.CreateRule(context.Background(), &rule); err != nil {
		db.t.Fatalf("failed to create rule %q: %v", rule.Name, err)
	}
	return rule
}

// MustTransactions returns every transaction of an account or fails the test.
func (db *TestDB) MustTransactions(accountID string) []model.Transaction {
	db.t.Helper()
	txns, err := db.Storage.GetTransactions(context.Background(), service.TransactionFilter{AccountID: accountID})
	if err != nil {
		db.t.Fatalf("failed to list transactions: %v", err)
	}
	return txns
}

// WithTransaction executes fn within a database transaction that is always rolled back.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

// Txn builds a stored transaction for account on the given ISO date.
func Txn(accountID, date, amount, description string) model.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(fmt.Sprintf("testutil: bad date %q: %v", date, err))
	}
	return model.Transaction{
		AccountID:   accountID,
		Date:        d,
		Amount:      decimal.RequireFromString(amount),
		Description: description,
	}
}

// ManualAccount builds a manual checking account.
func ManualAccount(id, name string) model.Account {
	return model.Account{
		ID:       id,
		Name:     name,
		Type:     model.AccountChecking,
		Balance:  decimal.Zero,
		IsManual: true,
	}
}
