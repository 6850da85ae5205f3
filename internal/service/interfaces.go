// Package service defines the persistence contracts the engine runs against.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/hearth/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AccountID string
	Limit     int
	Offset    int
}

// ImportBatch records one committed import.
type ImportBatch struct {
	CreatedAt time.Time
	ID        string
	AccountID string
	Source    string
	RowCount  int
	Created   int
	Updated   int
	Skipped   int
}

// AccountStore persists local accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetAccounts(ctx context.Context) ([]model.Account, error)
	LinkAccount(ctx context.Context, id, externalID string) error
}

// CategoryStore persists categories.
type CategoryStore interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name string, categoryType model.CategoryType) (*model.Category, error)
}

// TransactionStore persists transactions.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	SaveImportBatch(ctx context.Context, batch *ImportBatch) error
}

// RuleStore persists categorization rules.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *model.CategorizationRule) error
	GetRule(ctx context.Context, id int64) (*model.CategorizationRule, error)
	GetRules(ctx context.Context) ([]model.CategorizationRule, error)
	UpdateRule(ctx context.Context, rule *model.CategorizationRule) error
	DeleteRule(ctx context.Context, id int64) error
}

// PatternStore persists recurring patterns.
type PatternStore interface {
	CreatePattern(ctx context.Context, pattern *model.RecurringPattern) error
	GetPattern(ctx context.Context, id int64) (*model.RecurringPattern, error)
	GetPatterns(ctx context.Context, accountID string) ([]model.RecurringPattern, error)
	UpdatePattern(ctx context.Context, pattern *model.RecurringPattern) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	AccountStore
	CategoryStore
	TransactionStore
	RuleStore
	PatternStore

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}
