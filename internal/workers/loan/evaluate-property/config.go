// internal/workers/loan/evaluate-property/config.go
package evaluateproperty

import "time"

type Config struct {
	// ValueMultiplier converts the requested amount into the estimated
	// property value during the simulated appraisal.
	ValueMultiplier float64
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		ValueMultiplier: 1.2,
		Timeout:         30 * time.Second,
	}
}
