// internal/workers/loan/verify-agreement/config.go
package verifyagreement

import (
	"time"

	"loanflow/internal/common/config"
)

type Config struct {
	MaxMonthlyPayment float64
	MaxDurationYears  int
	MaxRepaymentRatio float64
	// RulesPath points at an optional JSON file overriding the limits.
	RulesPath string
	Timeout   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxMonthlyPayment: 10000.00,
		MaxDurationYears:  30,
		MaxRepaymentRatio: 1.6,
		Timeout:           30 * time.Second,
	}
}

// NewConfig builds a worker config from the central compliance settings,
// keeping the defaults where the settings are unset.
func NewConfig(rules config.ComplianceConfig) *Config {
	cfg := LoadConfig()
	if rules.MaxMonthlyPayment > 0 {
		cfg.MaxMonthlyPayment = rules.MaxMonthlyPayment
	}
	if rules.MaxDurationYears > 0 {
		cfg.MaxDurationYears = rules.MaxDurationYears
	}
	if rules.MaxRepaymentRatio > 0 {
		cfg.MaxRepaymentRatio = rules.MaxRepaymentRatio
	}
	cfg.RulesPath = rules.RulesPath
	return cfg
}
