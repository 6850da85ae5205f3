// Package simplefin provides a bank feed client for the SimpleFIN Bridge protocol.
package simplefin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
)

// Config holds SimpleFIN settings. Either an access URL or a setup token is needed;
// a claimed setup token is remembered in AuthFile.
type Config struct {
	AccessURL  string        `mapstructure:"access_url"`
	SetupToken string        `mapstructure:"setup_token"`
	AuthFile   string        `mapstructure:"auth_file"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Validate ensures a way to reach the bridge is configured.
func (c *Config) Validate() error {
	if c.AccessURL == "" && c.SetupToken == "" {
		return fmt.Errorf("%w: simplefin access_url or setup_token is required", common.ErrMissingConfig)
	}
	if c.AccessURL != "" {
		if _, err := parseAccessURL(c.AccessURL); err != nil {
			return fmt.Errorf("%w: simplefin access_url: %v", common.ErrInvalidConfig, err)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: simplefin timeout must not be negative", common.ErrInvalidConfig)
	}
	return nil
}

// Client implements plaid.Fetcher against a SimpleFIN bridge.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   *url.URL
	user       *url.Userinfo
	retryOpts  common.RetryOptions
}

type accountSet struct {
	Errors   []string  `json:"errors"`
	Accounts []account `json:"accounts"`
}

type account struct {
	Org          organization  `json:"org"`
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Currency     string        `json:"currency"`
	Balance      string        `json:"balance"`
	Transactions []transaction `json:"transactions"`
}

type organization struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

type transaction struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Payee       string `json:"payee"`
	Memo        string `json:"memo"`
	Posted      int64  `json:"posted"`
	Pending     bool   `json:"pending"`
}

// NewClient creates a client, claiming the setup token first when no access URL is
// configured or saved.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	logger = common.ComponentLogger(logger, "simplefin")

	accessURL := cfg.AccessURL
	if accessURL == "" {
		auth, err := LoadOrClaim(ctx, httpClient, cfg.SetupToken, cfg.AuthFile, logger)
		if err != nil {
			return nil, err
		}
		accessURL = auth.AccessURL
	}

	endpoint, err := parseAccessURL(accessURL)
	if err != nil {
		return nil, err
	}
	user := endpoint.User
	endpoint.User = nil

	retryOpts := common.DefaultRetryOptions()
	retryOpts.Logger = logger
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		user:       user,
		retryOpts:  retryOpts,
	}, nil
}

func parseAccessURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid access URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("access URL must be http or https")
	}
	return u, nil
}

// GetAccounts returns the accounts the bridge exposes with their balances.
func (c *Client) GetAccounts(ctx context.Context) ([]model.ExternalAccount, error) {
	set, err := c.fetch(ctx, url.Values{"balances-only": {"1"}})
	if err != nil {
		return nil, err
	}

	accounts := make([]model.ExternalAccount, 0, len(set.Accounts))
	for _, a := range set.Accounts {
		balance, err := decimal.NewFromString(a.Balance)
		if err != nil {
			return nil, fmt.Errorf("account %s has invalid balance %q: %w", a.ID, a.Balance, err)
		}
		accounts = append(accounts, model.ExternalAccount{
			ExternalID:  a.ID,
			Name:        a.Name,
			Type:        guessAccountType(a.Name),
			Balance:     balance,
			Institution: a.Org.Name,
		})
	}

	c.logger.Info("Retrieved accounts", "count", len(accounts))
	return accounts, nil
}

// GetTransactions returns posted transactions dated within [startDate, endDate].
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Candidate, error) {
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	from := model.DayOf(startDate)
	to := model.DayOf(endDate)
	set, err := c.fetch(ctx, url.Values{
		"start-date": {strconv.FormatInt(from.Unix(), 10)},
		// end-date is exclusive
		"end-date": {strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10)},
	})
	if err != nil {
		return nil, err
	}

	var candidates []model.Candidate
	for _, a := range set.Accounts {
		for _, tx := range a.Transactions {
			if tx.Pending {
				continue
			}
			date := model.DayOf(time.Unix(tx.Posted, 0).UTC())
			if date.Before(from) || date.After(to) {
				continue
			}
			amount, err := decimal.NewFromString(tx.Amount)
			if err != nil {
				return nil, fmt.Errorf("transaction %s has invalid amount %q: %w", tx.ID, tx.Amount, err)
			}
			candidates = append(candidates, model.Candidate{
				Date:        date,
				Amount:      amount,
				Description: tx.Description,
				Merchant:    cleanPayee(tx.Payee),
				Notes:       tx.Memo,
				AccountID:   a.ID,
				ExternalID:  tx.ID,
			})
		}
	}

	c.logger.Info("Retrieved transactions",
		"count", len(candidates),
		"start", from.Format("2006-01-02"),
		"end", to.Format("2006-01-02"))
	return candidates, nil
}

func (c *Client) fetch(ctx context.Context, query url.Values) (*accountSet, error) {
	u := c.endpoint.JoinPath("accounts")
	u.RawQuery = query.Encode()

	var set accountSet
	err := common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return common.Permanent(err)
		}
		if c.user != nil {
			password, _ := c.user.Password()
			req.SetBasicAuth(c.user.Username(), password)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return common.Transient(fmt.Errorf("%w: %w", common.ErrFeedConnection, err))
		}
		defer func() { _ = resp.Body.Close() }()

		if err := statusError(resp); err != nil {
			return err
		}
		set = accountSet{}
		if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
			return common.Permanentf("failed to decode response: %w", err)
		}
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("simplefin: %w", err)
	}

	for _, msg := range set.Errors {
		c.logger.Warn("Bridge reported a problem", "message", msg)
	}
	return &set, nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return common.Transient(errors.Join(common.ErrRateLimit, err))
	case resp.StatusCode >= 500:
		return common.Transient(err)
	case resp.StatusCode == http.StatusForbidden:
		return common.Permanentf("%w: %w", common.ErrAccessRevoked, err)
	default:
		return common.Permanent(err)
	}
}

// guessAccountType infers the account type from its name, which is all the protocol
// reports.
func guessAccountType(name string) model.AccountType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "credit") || strings.Contains(lower, "card"):
		return model.AccountCredit
	case strings.Contains(lower, "saving") || strings.Contains(lower, "money market"):
		return model.AccountSavings
	case strings.Contains(lower, "checking"):
		return model.AccountChecking
	case strings.Contains(lower, "loan") || strings.Contains(lower, "mortgage"):
		return model.AccountLoan
	case strings.Contains(lower, "brokerage") || strings.Contains(lower, "401k") || strings.Contains(lower, "ira"):
		return model.AccountInvestment
	default:
		return model.AccountOther
	}
}

func cleanPayee(raw string) string {
	payee := strings.TrimSpace(raw)
	for _, suffix := range []string{" LLC", " INC", " CORP", " CO"} {
		if len(payee) > len(suffix) && strings.EqualFold(payee[len(payee)-len(suffix):], suffix) {
			payee = strings.TrimSpace(payee[:len(payee)-len(suffix)])
		}
	}
	return payee
}
