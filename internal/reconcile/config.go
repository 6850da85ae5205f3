// Package reconcile maps bank-sync accounts onto local manual accounts and previews
// each account's transactions before anything is linked.
package reconcile

import (
	"fmt"

	"github.com/Veraticus/hearth/internal/common"
)

// Config holds reconciliation parameters.
type Config struct {
	MinScore          float64 `mapstructure:"min_score"`
	BalanceTolerance  float64 `mapstructure:"balance_tolerance"`
	RelativeTolerance float64 `mapstructure:"relative_tolerance"`
	Workers           int     `mapstructure:"workers"`
}

// DefaultConfig returns the standard reconciliation parameters.
func DefaultConfig() Config {
	return Config{
		MinScore:          0.6,
		BalanceTolerance:  1.00,
		RelativeTolerance: 0.01,
		Workers:           4,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("%w: reconcile.min_score must be within [0,1], got %.2f", common.ErrInvalidConfig, c.MinScore)
	}
	if c.BalanceTolerance < 0 || c.RelativeTolerance < 0 {
		return fmt.Errorf("%w: reconcile balance tolerances must not be negative", common.ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: reconcile.workers must be at least 1, got %d", common.ErrInvalidConfig, c.Workers)
	}
	return nil
}
