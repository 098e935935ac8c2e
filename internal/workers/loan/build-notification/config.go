// internal/workers/loan/build-notification/config.go
package buildnotification

import "time"

type Config struct {
	TemplateRegistry  string
	DefaultTemplateID string
	CacheTTL          time.Duration
	Timeout           time.Duration
}

func LoadConfig() *Config {
	return &Config{
		TemplateRegistry:  "configs/notification-templates.json",
		DefaultTemplateID: "loan_approval",
		CacheTTL:          5 * time.Minute,
		Timeout:           30 * time.Second,
	}
}
