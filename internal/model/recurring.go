package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the detected cadence of a recurring pattern.
type Frequency string

// Frequency constants.
const (
	FrequencyWeekly     Frequency = "WEEKLY"
	FrequencyBiweekly   Frequency = "BIWEEKLY"
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencyQuarterly  Frequency = "QUARTERLY"
	FrequencySemiannual Frequency = "SEMIANNUAL"
	FrequencyAnnual     Frequency = "ANNUAL"
)

// Frequencies lists every frequency from shortest to longest interval.
var Frequencies = []Frequency{
	FrequencyWeekly,
	FrequencyBiweekly,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencySemiannual,
	FrequencyAnnual,
}

// NominalDays returns the nominal interval of the frequency in days.
func (f Frequency) NominalDays() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyBiweekly:
		return 14
	case FrequencyMonthly:
		return 30
	case FrequencyQuarterly:
		return 91
	case FrequencySemiannual:
		return 182
	case FrequencyAnnual:
		return 365
	default:
		return 0
	}
}

// Months returns the calendar month step for month-based frequencies, or 0.
func (f Frequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencySemiannual:
		return 6
	case FrequencyAnnual:
		return 12
	default:
		return 0
	}
}

// PatternStatus is the lifecycle state of a recurring pattern.
type PatternStatus string

// Pattern status constants.
const (
	PatternDetected  PatternStatus = "DETECTED"
	PatternConfirmed PatternStatus = "CONFIRMED"
	PatternDismissed PatternStatus = "DISMISSED"
	PatternPaused    PatternStatus = "PAUSED"
	PatternEnded     PatternStatus = "ENDED"
)

var patternTransitions = map[PatternStatus][]PatternStatus{
	PatternDetected:  {PatternConfirmed, PatternDismissed},
	PatternConfirmed: {PatternPaused, PatternEnded},
	PatternPaused:    {PatternConfirmed, PatternEnded},
}

// CanTransition reports whether a pattern may move from s to next.
func (s PatternStatus) CanTransition(next PatternStatus) bool {
	for _, allowed := range patternTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RecurringPattern is a detected or user-managed recurring payment.
type RecurringPattern struct {
	LastOccurrence   time.Time       `json:"lastOccurrence"`
	NextExpectedDate time.Time       `json:"nextExpectedDate"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	DayOfMonth       *int            `json:"dayOfMonth,omitempty"`
	DayOfWeek        *time.Weekday   `json:"dayOfWeek,omitempty"`
	ExpectedAmount   decimal.Decimal `json:"expectedAmount"`
	AmountVariance   decimal.Decimal `json:"amountVariance"`
	MerchantKey      string          `json:"merchantKey"`
	DisplayName      string          `json:"displayName"`
	AccountID        string          `json:"accountId,omitempty"`
	Frequency        Frequency       `json:"frequency"`
	Status           PatternStatus   `json:"status"`
	ID               int64           `json:"id"`
	Confidence       float64         `json:"confidence"`
	OccurrenceCount  int             `json:"occurrenceCount"`
}

// Transition moves the pattern to next, enforcing the lifecycle.
func (p *RecurringPattern) Transition(next PatternStatus) error {
	if !p.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	return nil
}

// GroupKey identifies the merchant/amount group a pattern was built from.
func (p *RecurringPattern) GroupKey() string {
	return GroupKey(p.MerchantKey, p.ExpectedAmount)
}

// GroupKey combines a merchant key and an amount rounded to the whole unit.
func GroupKey(merchantKey string, amount decimal.Decimal) string {
	return merchantKey + "|" + amount.Round(0).String()
}
