package plaid

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/hearth/internal/model"
)

// MockClient is a Fetcher that serves canned data. Transactions are filtered to the
// requested range the way a real feed would. The Fn hooks take precedence when set.
type MockClient struct {
	GetTransactionsFn func(ctx context.Context, startDate, endDate time.Time) ([]model.Candidate, error)
	GetAccountsFn     func(ctx context.Context) ([]model.ExternalAccount, error)

	// Err, when set, is returned by every call.
	Err          error
	Accounts     []model.ExternalAccount
	Transactions []model.Candidate

	GetTransactionsCalls []GetTransactionsCall
	GetAccountsCalls     int
	mu                   sync.Mutex
}

// GetTransactionsCall records the range of one GetTransactions call.
type GetTransactionsCall struct {
	StartDate time.Time
	EndDate   time.Time
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Candidate, error) {
	m.mu.Lock()
	m.GetTransactionsCalls = append(m.GetTransactionsCalls, GetTransactionsCall{StartDate: startDate, EndDate: endDate})
	m.mu.Unlock()

	if m.GetTransactionsFn != nil {
		return m.GetTransactionsFn(ctx, startDate, endDate)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	from, to := model.DayOf(startDate), model.DayOf(endDate)
	out := make([]model.Candidate, 0, len(m.Transactions))
	for _, c := range m.Transactions {
		if d := model.DayOf(c.Date); !d.Before(from) && !d.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockClient) GetAccounts(ctx context.Context) ([]model.ExternalAccount, error) {
	m.mu.Lock()
	m.GetAccountsCalls++
	m.mu.Unlock()

	if m.GetAccountsFn != nil {
		return m.GetAccountsFn(ctx)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]model.ExternalAccount(nil), m.Accounts...), nil
}

var _ Fetcher = (*MockClient)(nil)
