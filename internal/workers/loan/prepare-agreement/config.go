// internal/workers/loan/prepare-agreement/config.go
package prepareagreement

import (
	"time"

	"loanflow/internal/common/config"
)

type Config struct {
	BaseAnnualRate float64
	RiskPremium    float64
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		BaseAnnualRate: 0.03,
		RiskPremium:    0.01,
		Timeout:        30 * time.Second,
	}
}

// NewConfig builds a worker config from the central rate settings,
// keeping the defaults where the settings are unset.
func NewConfig(rates config.RatesConfig) *Config {
	cfg := LoadConfig()
	if rates.BaseAnnualRate > 0 {
		cfg.BaseAnnualRate = rates.BaseAnnualRate
	}
	if rates.RiskPremium > 0 {
		cfg.RiskPremium = rates.RiskPremium
	}
	return cfg
}
