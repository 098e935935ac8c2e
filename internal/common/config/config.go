// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Process      ProcessConfig           `mapstructure:"process"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Loan         LoanConfig              `mapstructure:"loan"`
	Compliance   ComplianceConfig        `mapstructure:"compliance"`
	Audit        AuditConfig             `mapstructure:"audit"`
	Batch        BatchConfig             `mapstructure:"batch"`
	Template     TemplateConfig          `mapstructure:"template"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Metrics      MetricsConfig           `mapstructure:"metrics"`
	Notification NotificationConfig      `mapstructure:"notification"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ProcessConfig controls the approval workflow itself.
type ProcessConfig struct {
	MaxVerificationAttempts int `mapstructure:"max_verification_attempts"`
	UpdateRequestPause      int `mapstructure:"update_request_pause"` // milliseconds
	BranchTimeout           int `mapstructure:"branch_timeout"`       // milliseconds, per eligibility branch
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // seconds, summary cache expiry
}

// WorkerConfig holds the core settings applicable to every evaluator.
type WorkerConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Timeout    int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries int  `mapstructure:"max_retries"` // For error handling
}

// --- Loan Rule Configuration Sections ---

// LoanConfig holds the lending rules applied during eligibility and
// agreement preparation.
type LoanConfig struct {
	Rates       RatesConfig       `mapstructure:"rates"`
	Eligibility EligibilityConfig `mapstructure:"eligibility"`
}

// RatesConfig holds the interest rate components used for amortization.
type RatesConfig struct {
	BaseAnnualRate float64 `mapstructure:"base_annual_rate"`
	RiskPremium    float64 `mapstructure:"risk_premium"`
}

// AnnualRate returns the effective annual interest rate.
func (r RatesConfig) AnnualRate() float64 {
	return r.BaseAnnualRate + r.RiskPremium
}

// EligibilityConfig holds the thresholds for the credit evaluation branch.
type EligibilityConfig struct {
	MinCreditScore      int     `mapstructure:"min_credit_score"`
	MaxDebtToIncome     float64 `mapstructure:"max_debt_to_income"`
	MinIncomeMultiplier int     `mapstructure:"min_income_multiplier"`
	MaxDurationYears    int     `mapstructure:"max_duration_years"`
}

// ComplianceConfig holds the hard limits an agreement is verified against
// before the process can complete.
type ComplianceConfig struct {
	MaxMonthlyPayment float64 `mapstructure:"max_monthly_payment"`
	MaxDurationYears  int     `mapstructure:"max_duration_years"`
	MaxRepaymentRatio float64 `mapstructure:"max_repayment_ratio"`
	RulesPath         string  `mapstructure:"rules_path"` // optional JSON override file
}

// AuditConfig controls the per-run process log and its sinks.
type AuditConfig struct {
	Directory            string `mapstructure:"directory"`
	FileEnabled          bool   `mapstructure:"file_enabled"`
	PostgresEnabled      bool   `mapstructure:"postgres_enabled"`
	ElasticsearchEnabled bool   `mapstructure:"elasticsearch_enabled"`
	IndexName            string `mapstructure:"index_name"`
}

// BatchConfig controls the concurrent batch runner.
type BatchConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// TemplateConfig holds settings for the notification template registry.
type TemplateConfig struct {
	RegistryPath       string `mapstructure:"registry_path"`
	ApprovalTemplateID string `mapstructure:"approval_template_id"`
}

// NotificationConfig holds settings for approval notification construction.
// Delivery channels are out of scope; the worker only builds the payload.
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Channel string `mapstructure:"channel"` // log | none
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds settings for the health/metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}
