package plaid

import (
	"context"
	"time"

	"github.com/Veraticus/hearth/internal/model"
)

// Fetcher defines the contract for pulling accounts and transactions from a bank feed.
// This interface allows for easy mocking in tests and swapping data sources.
type Fetcher interface {
	GetAccounts(ctx context.Context) ([]model.ExternalAccount, error)
	GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Candidate, error)
}
