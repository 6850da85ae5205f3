// Package model defines the core data structures for the hearth engine.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candidate is an incoming transaction record from a CSV row or a bank-sync feed
// before it has been persisted.
type Candidate struct {
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Merchant     string          `json:"merchant,omitempty"`
	CategoryHint string          `json:"category,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	AccountID    string          `json:"accountId"`
	ExternalID   string          `json:"externalId,omitempty"`

	// Filled from the account context so rules can test account attributes.
	AccountType string `json:"-"`
	OwnerID     string `json:"-"`
}

// Transaction is a persisted transaction.
type Transaction struct {
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Date         time.Time       `json:"date"`
	CategoryID   *int64          `json:"categoryId,omitempty"`
	ExternalID   *string         `json:"externalId,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	AccountID    string          `json:"accountId"`
	Description  string          `json:"description"`
	Merchant     string          `json:"merchant,omitempty"`
	CategoryName string          `json:"categoryName,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	ID           int64           `json:"id"`
	IsManual     bool            `json:"isManual"`
	IsAdjustment bool            `json:"isAdjustment"`
	IsPending    bool            `json:"isPending"`
}

// ExternalIDValue returns the external id or "" when none is recorded.
func (t *Transaction) ExternalIDValue() string {
	if t.ExternalID == nil {
		return ""
	}
	return *t.ExternalID
}

// Field names used in FieldChange.
const (
	FieldDescription = "description"
	FieldMerchant    = "merchant"
	FieldCategory    = "category"
	FieldNotes       = "notes"
)

// FieldChange is a single field difference between a stored transaction and a candidate.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the absolute number of calendar days between a and b.
func DaysBetween(a, b time.Time) int {
	days := int(DayOf(a).Sub(DayOf(b)).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
