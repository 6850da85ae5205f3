// Package recurring detects recurring payments in transaction history and manages
// the lifecycle of the detected patterns.
package recurring

import (
	"fmt"

	"github.com/Veraticus/hearth/internal/common"
)

// Config holds detector and scheduler configuration.
type Config struct {
	Schedule       string  `mapstructure:"schedule"`
	MinOccurrences int     `mapstructure:"min_occurrences"`
	Tolerance      float64 `mapstructure:"tolerance"`
}

// DefaultConfig returns the standard detection parameters.
func DefaultConfig() Config {
	return Config{
		MinOccurrences: 3,
		Tolerance:      0.15,
		Schedule:       "@daily",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinOccurrences < 3 {
		return fmt.Errorf("%w: recurring.min_occurrences must be at least 3, got %d", common.ErrInvalidConfig, c.MinOccurrences)
	}
	if c.Tolerance <= 0 || c.Tolerance >= 0.5 {
		return fmt.Errorf("%w: recurring.tolerance must be within (0, 0.5), got %.2f", common.ErrInvalidConfig, c.Tolerance)
	}
	return nil
}
