// internal/workers/loan/evaluate-eligibility/config.go
package evaluateeligibility

import (
	"time"

	"loanflow/internal/common/config"
)

type Config struct {
	MinCreditScore      int
	MaxDebtToIncome     float64
	MinIncomeMultiplier int
	MaxDurationYears    int
	Timeout             time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinCreditScore:      650,
		MaxDebtToIncome:     0.43,
		MinIncomeMultiplier: 3,
		MaxDurationYears:    30,
		Timeout:             30 * time.Second,
	}
}

// NewConfig maps the application-level eligibility rules onto the worker.
func NewConfig(rules config.EligibilityConfig) *Config {
	cfg := LoadConfig()
	if rules.MinCreditScore > 0 {
		cfg.MinCreditScore = rules.MinCreditScore
	}
	if rules.MaxDebtToIncome > 0 {
		cfg.MaxDebtToIncome = rules.MaxDebtToIncome
	}
	if rules.MinIncomeMultiplier > 0 {
		cfg.MinIncomeMultiplier = rules.MinIncomeMultiplier
	}
	if rules.MaxDurationYears > 0 {
		cfg.MaxDurationYears = rules.MaxDurationYears
	}
	return cfg
}
