// internal/workers/loan/verify-completeness/config.go
package verifycompleteness

import "time"

// The required field list is fixed; struct provided for consistency
type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
