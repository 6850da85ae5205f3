package plaid

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hearth/internal/cache"
	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
)

func validConfig() Config {
	return Config{
		ClientID:    "test-client-id",
		Secret:      "test-secret",
		Environment: "sandbox",
		AccessToken: "test-token",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		name    string
		errMsg  string
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing client ID", mutate: func(c *Config) { c.ClientID = "" }, wantErr: true, errMsg: "plaid client ID is required"},
		{name: "missing secret", mutate: func(c *Config) { c.Secret = "" }, wantErr: true, errMsg: "plaid secret is required"},
		{name: "missing access token", mutate: func(c *Config) { c.AccessToken = "" }, wantErr: true, errMsg: "plaid access token is required"},
		{name: "missing environment", mutate: func(c *Config) { c.Environment = "" }, wantErr: true, errMsg: "plaid environment is required"},
		{name: "invalid environment", mutate: func(c *Config) { c.Environment = "invalid" }, wantErr: true, errMsg: "invalid Plaid environment"},
		{name: "valid production environment", mutate: func(c *Config) { c.Environment = "production" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(validConfig(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, client.accounts)

	cfg := validConfig()
	cfg.Secret = ""
	_, err = NewClient(cfg, nil, nil)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestClient_GetTransactions_Validation(t *testing.T) {
	client := &Client{
		accessToken: "test-token",
		logger:      slog.Default().With("component", "plaid-test"),
	}

	//nolint:staticcheck // nil context is the case under test
	_, err := client.GetTransactions(nil, time.Now().AddDate(0, -1, 0), time.Now())
	assert.ErrorContains(t, err, "context cannot be nil")

	_, err = client.GetTransactions(context.Background(), time.Now(), time.Now().AddDate(0, -1, 0))
	assert.ErrorContains(t, err, "start date must be before end date")
}

func TestClient_GetAccountsUsesCache(t *testing.T) {
	clock := &common.FixedClock{T: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	accounts := []model.ExternalAccount{{ExternalID: "acc-1", Name: "Checking", Type: model.AccountChecking}}

	client := &Client{
		accessToken: "test-token",
		logger:      slog.Default(),
		accounts:    cache.New[string, []model.ExternalAccount](time.Hour, cache.WithClock(clock)),
	}
	client.accounts.Set("test-token", accounts)

	got, err := client.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, accounts, got)
}

func TestToCandidate(t *testing.T) {
	tests := []struct {
		name   string
		fields transactionFields
		want   model.Candidate
		ok     bool
	}{
		{
			name: "outflow becomes negative",
			fields: transactionFields{
				ID: "tx-1", AccountID: "acc-1", Date: "2024-03-01",
				Name: "NETFLIX.COM", MerchantName: "netflix inc", Amount: 15.99,
			},
			want: model.Candidate{
				Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("-15.99"),
				Description: "NETFLIX.COM", Merchant: "Netflix", AccountID: "acc-1", ExternalID: "tx-1",
			},
			ok: true,
		},
		{
			name: "inflow becomes positive",
			fields: transactionFields{
				ID: "tx-2", AccountID: "acc-1", Date: "2024-03-15", Name: "ACME PAYROLL", Amount: -2500,
			},
			want: model.Candidate{
				Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("2500"),
				Description: "ACME PAYROLL", AccountID: "acc-1", ExternalID: "tx-2",
			},
			ok: true,
		},
		{
			name:   "pending transactions are skipped",
			fields: transactionFields{ID: "tx-3", Date: "2024-03-01", Name: "Pending", Amount: 4, Pending: true},
		},
		{
			name:   "unparseable date",
			fields: transactionFields{ID: "tx-4", Date: "soon", Name: "Mystery", Amount: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toCandidate(tt.fields)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.True(t, tt.want.Amount.Equal(got.Amount), "amount %s", got.Amount)
			got.Amount = tt.want.Amount
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("falls back to authorized date", func(t *testing.T) {
		got, ok := toCandidate(transactionFields{ID: "tx-5", AuthorizedDate: "2024-02-28", Name: "Gas", Amount: 30})
		require.True(t, ok)
		assert.Equal(t, "2024-02-28", got.Date.Format("2006-01-02"))
	})
}

func TestToExternalAccount(t *testing.T) {
	tests := []struct {
		name        string
		fields      accountFields
		wantType    model.AccountType
		wantBalance string
	}{
		{"checking", accountFields{ID: "a1", Name: "Plaid Checking", Type: "depository", Subtype: "checking", Current: 110.5}, model.AccountChecking, "110.5"},
		{"savings", accountFields{ID: "a2", Name: "Plaid Saving", Type: "depository", Subtype: "savings", Current: 210}, model.AccountSavings, "210"},
		{"credit card owed", accountFields{ID: "a3", Name: "Plaid Credit Card", Type: "credit", Subtype: "credit card", Current: 410}, model.AccountCredit, "-410"},
		{"unknown subtype uses type", accountFields{ID: "a4", Name: "Plaid Mortgage", Type: "loan", Subtype: "weird", Current: 56302.06}, model.AccountLoan, "-56302.06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toExternalAccount(tt.fields)
			assert.Equal(t, tt.fields.ID, got.ExternalID)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantBalance, got.Balance.String())
		})
	}
}

func TestByAccount(t *testing.T) {
	candidates := []model.Candidate{
		{AccountID: "a", Description: "one"},
		{AccountID: "b", Description: "two"},
		{AccountID: "a", Description: "three"},
	}
	got := ByAccount(candidates)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"one", "three"}, []string{got["a"][0].Description, got["a"][1].Description})
}

func TestCleanMerchantName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"basic name", "Starbucks", "Starbucks"},
		{"lowercase to title case", "starbucks coffee", "Starbucks Coffee"},
		{"remove LLC suffix", "Amazon LLC", "Amazon"},
		{"remove Inc suffix", "Apple Inc", "Apple"},
		{"remove transaction ID", "PAYPAL 123456789", "Paypal"},
		{"preserve short numbers", "7-ELEVEN 2345", "7-Eleven 2345"},
		{"multiple cleanups", "amazon.com llc 987654321", "Amazon.Com"},
		{"extra spaces", "  Google   Cloud   ", "Google Cloud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanMerchantName(tt.input))
		})
	}
}

func TestMockClient(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC) }

	mock := NewMockClient()
	mock.Accounts = []model.ExternalAccount{{ExternalID: "acc-1", Name: "Checking"}}
	mock.Transactions = []model.Candidate{
		{ExternalID: "early", Date: day(1)},
		{ExternalID: "inside", Date: day(5)},
		{ExternalID: "edge", Date: day(10).Add(15 * time.Hour)},
		{ExternalID: "late", Date: day(11)},
	}

	got, err := mock.GetTransactions(context.Background(), day(5), day(10))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "inside", got[0].ExternalID)
	assert.Equal(t, "edge", got[1].ExternalID)
	require.Len(t, mock.GetTransactionsCalls, 1)
	assert.Equal(t, day(5), mock.GetTransactionsCalls[0].StartDate)

	accounts, err := mock.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, 1, mock.GetAccountsCalls)

	mock.Err = errors.New("feed down")
	_, err = mock.GetAccounts(context.Background())
	assert.EqualError(t, err, "feed down")

	mock.GetTransactionsFn = func(context.Context, time.Time, time.Time) ([]model.Candidate, error) {
		return []model.Candidate{{ExternalID: "hooked"}}, nil
	}
	got, err = mock.GetTransactions(context.Background(), day(1), day(2))
	require.NoError(t, err)
	assert.Equal(t, "hooked", got[0].ExternalID)
}
