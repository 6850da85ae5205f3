package matcher

import (
	"fmt"
	"math"
)

// Weights are the score contributions of the amount, date and text signals.
type Weights struct {
	Amount float64 `mapstructure:"amount"`
	Date   float64 `mapstructure:"date"`
	Text   float64 `mapstructure:"text"`
}

// Config holds matcher configuration.
type Config struct {
	Weights         Weights `mapstructure:"weights"`
	DateWindowDays  int     `mapstructure:"date_window_days"`
	AcceptThreshold float64 `mapstructure:"accept_threshold"`

	// MinTextSimilarity is the text similarity below which the text signal
	// contributes nothing to the score.
	MinTextSimilarity float64 `mapstructure:"min_text_similarity"`
}

// DefaultConfig returns the standard matching parameters.
func DefaultConfig() Config {
	return Config{
		DateWindowDays:    3,
		AcceptThreshold:   0.5,
		MinTextSimilarity: 0.3,
		Weights: Weights{
			Amount: 0.15,
			Date:   0.3,
			Text:   0.55,
		},
	}
}

// Validate checks that the configuration can produce scores in [0,1] and that
// amount and date agreement alone never reach the threshold.
func (c Config) Validate() error {
	if c.DateWindowDays < 0 {
		return fmt.Errorf("date window must not be negative, got %d", c.DateWindowDays)
	}
	if c.AcceptThreshold < 0 || c.AcceptThreshold > 1 {
		return fmt.Errorf("accept threshold must be within [0,1], got %.2f", c.AcceptThreshold)
	}
	w := c.Weights
	if w.Amount < 0 || w.Date < 0 || w.Text < 0 {
		return fmt.Errorf("weights must not be negative")
	}
	if sum := w.Amount + w.Date + w.Text; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %.3f", sum)
	}
	if c.MinTextSimilarity < 0 || c.MinTextSimilarity > 1 {
		return fmt.Errorf("min text similarity must be within [0,1], got %.2f", c.MinTextSimilarity)
	}
	if w.Amount+w.Date >= c.AcceptThreshold {
		return fmt.Errorf("amount and date weights (%.2f) must stay below the accept threshold %.2f",
			w.Amount+w.Date, c.AcceptThreshold)
	}
	return nil
}
