// Package plaid provides a client for interacting with the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/Veraticus/hearth/internal/cache"
	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID        string        `mapstructure:"client_id"`
	Secret          string        `mapstructure:"secret"`
	Environment     string        `mapstructure:"environment"` // sandbox or production
	AccessToken     string        `mapstructure:"access_token"`
	AccountCacheTTL time.Duration `mapstructure:"account_cache_ttl"`
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: plaid access token is required", common.ErrMissingConfig)
	}
	if c.Environment == "" {
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	}

	validEnvs := map[string]bool{
		"sandbox":    true,
		"production": true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("%w: invalid Plaid environment: must be sandbox or production", common.ErrInvalidConfig)
	}

	return nil
}

// Client implements the Fetcher interface.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	accounts    *cache.TTL[string, []model.ExternalAccount]
	retryOpts   common.RetryOptions
	accessToken string
}

// NewClient creates a new Plaid client with the given configuration. Account lists are
// cached for AccountCacheTTL.
func NewClient(cfg Config, clock common.Clock, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	var cacheOpts []cache.Option
	if clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(clock))
	}

	logger = common.ComponentLogger(logger, "plaid")
	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		logger:      logger,
		accounts:    cache.New[string, []model.ExternalAccount](cfg.AccountCacheTTL, cacheOpts...),
		retryOpts: common.RetryOptions{
			Logger:       logger,
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// GetTransactions fetches posted transactions within the date range as candidates.
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Candidate, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date must be before end date")
	}

	c.logger.Info("Fetching transactions from Plaid",
		"start_date", startDate.Format("2006-01-02"),
		"end_date", endDate.Format("2006-01-02"))

	var all []plaid.Transaction
	offset := int32(0)
	const pageSize = int32(500) // Plaid's max page size

	for {
		var page []plaid.Transaction

		err := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(
				c.accessToken,
				startDate.Format("2006-01-02"),
				endDate.Format("2006-01-02"),
			)
			request.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return c.classifyError(err, "failed to fetch transactions")
			}

			page = resp.GetTransactions()
			c.logger.Debug("Fetched transaction batch",
				"count", len(page),
				"offset", offset,
				"total", resp.GetTotalTransactions())
			return nil
		}, c.retryOpts)
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	candidates := make([]model.Candidate, 0, len(all))
	pending := 0
	for _, pt := range all {
		candidate, ok := toCandidate(transactionFieldsOf(pt))
		if !ok {
			pending++
			continue
		}
		candidates = append(candidates, candidate)
	}

	c.logger.Info("Fetched all transactions", "count", len(candidates), "pending_skipped", pending)
	return candidates, nil
}

// GetAccounts fetches the accounts of the linked item. Results are cached.
func (c *Client) GetAccounts(ctx context.Context) ([]model.ExternalAccount, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	return c.accounts.GetOrLoad(ctx, c.accessToken, func(ctx context.Context) ([]model.ExternalAccount, error) {
		c.logger.Info("Fetching accounts from Plaid")

		var accounts []plaid.AccountBase
		err := common.WithRetry(ctx, func() error {
			request := plaid.NewAccountsGetRequest(c.accessToken)
			resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
			if err != nil {
				return c.classifyError(err, "failed to fetch accounts")
			}
			accounts = resp.GetAccounts()
			return nil
		}, c.retryOpts)
		if err != nil {
			return nil, err
		}

		out := make([]model.ExternalAccount, 0, len(accounts))
		for _, account := range accounts {
			out = append(out, toExternalAccount(accountFieldsOf(account)))
		}
		c.logger.Info("Fetched accounts", "count", len(out))
		return out, nil
	})
}

// classifyError marks rate limits as retryable and every other Plaid API error as
// permanent.
func (c *Client) classifyError(err error, msg string) error {
	plaidError := extractPlaidError(err)
	if plaidError == nil {
		return fmt.Errorf("%s: %w: %w", msg, common.ErrFeedConnection, err)
	}
	switch plaidError.ErrorCode {
	case "RATE_LIMIT_EXCEEDED":
		c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
		return common.Transient(fmt.Errorf("%w: %s", common.ErrRateLimit, plaidError.ErrorMessage))
	case "ITEM_LOGIN_REQUIRED", "INVALID_ACCESS_TOKEN":
		return common.Permanentf("%w: %s", common.ErrAccessRevoked, plaidError.ErrorMessage)
	}
	return &common.RetryableError{
		Err:       fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage),
		Retryable: false,
	}
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}

// Ensure Client implements Fetcher interface.
var _ Fetcher = (*Client)(nil)
