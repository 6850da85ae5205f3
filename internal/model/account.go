package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AccountType is the kind of a financial account.
type AccountType string

// Account type constants.
const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountLoan       AccountType = "loan"
	AccountInvestment AccountType = "investment"
	AccountCash       AccountType = "cash"
	AccountOther      AccountType = "other"
)

// NormalizeAccountType maps institution-specific type names onto AccountType.
func NormalizeAccountType(raw string) AccountType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "checking", "depository", "current":
		return AccountChecking
	case "savings", "money market", "cd", "hsa":
		return AccountSavings
	case "credit", "credit card", "creditcard", "credit_card":
		return AccountCredit
	case "loan", "mortgage", "student", "auto":
		return AccountLoan
	case "investment", "brokerage", "401k", "ira":
		return AccountInvestment
	case "cash", "wallet":
		return AccountCash
	default:
		return AccountOther
	}
}

// Account is a local household account.
type Account struct {
	Balance     decimal.Decimal `json:"balance"`
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	OwnerID     string          `json:"ownerId,omitempty"`
	HouseholdID string          `json:"householdId,omitempty"`
	Institution string          `json:"institution,omitempty"`
	ExternalID  string          `json:"externalId,omitempty"`
	IsManual    bool            `json:"isManual"`
}

// ExternalAccount is an account reported by a bank-sync provider.
type ExternalAccount struct {
	Balance      decimal.Decimal `json:"balance"`
	ExternalID   string          `json:"externalId"`
	Name         string          `json:"name"`
	OfficialName string          `json:"officialName,omitempty"`
	Type         AccountType     `json:"type"`
	Subtype      string          `json:"subtype,omitempty"`
	Mask         string          `json:"mask,omitempty"`
	Institution  string          `json:"institution,omitempty"`
}

// DisplayName returns the most descriptive name the provider reported.
func (a ExternalAccount) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.OfficialName
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
