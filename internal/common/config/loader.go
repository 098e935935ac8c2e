// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	// 🔧 FIX: Load .env from multiple possible locations
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DB_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1️⃣ LOAD BASE CONFIG
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2️⃣ LOAD ENV CONFIG
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	// 3️⃣ EXPAND ENV PLACEHOLDERS
	expandEnvVars(viper.GetViper())

	// 4️⃣ Unmarshal final config
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// 5️⃣ DIRECT OVERRIDE IF STILL EMPTY
	overrideEmptyConfig(&cfg)

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// 🔥 FIX: Load .env from multiple possible locations
func loadEnvFile() {
	// Try multiple paths (for running from different directories)
	possiblePaths := []string{
		".env",          // Current directory
		"../.env",       // Parent directory
		"../../.env",    // Two levels up (for tests in test/e2e/)
		"../../../.env", // Three levels up
	}

	// Also try to find project root by looking for go.mod
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Printf("✅ Loaded .env from: %s\n", path)
				return
			}
		}
	}

	fmt.Printf("⚠️  .env file not found in any location, using system environment variables\n")
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Walk up directories looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// Improved environment variable expansion
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		// Only process string values
		if strVal, ok := val.(string); ok {
			// Check if it contains environment variable pattern
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	// Database overrides
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}

	// Redis override
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}

	// Elasticsearch overrides
	if cfg.Database.Elasticsearch.Username == "" {
		if val := os.Getenv("ELASTICSEARCH_USERNAME"); val != "" {
			cfg.Database.Elasticsearch.Username = val
		}
	}
	if cfg.Database.Elasticsearch.Password == "" {
		if val := os.Getenv("ELASTICSEARCH_PASSWORD"); val != "" {
			cfg.Database.Elasticsearch.Password = val
		}
	}

	// Audit directory override
	if cfg.Audit.Directory == "" {
		if val := os.Getenv("AUDIT_LOG_DIR"); val != "" {
			cfg.Audit.Directory = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile() // Load env file first

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Expand environment variables before unmarshal
	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Process defaults
	if cfg.Process.MaxVerificationAttempts == 0 {
		cfg.Process.MaxVerificationAttempts = 3
	}
	if cfg.Process.UpdateRequestPause == 0 {
		cfg.Process.UpdateRequestPause = 1000
	}
	if cfg.Process.BranchTimeout == 0 {
		cfg.Process.BranchTimeout = 30000
	}

	// Lending rule defaults
	if cfg.Loan.Rates.BaseAnnualRate == 0 {
		cfg.Loan.Rates.BaseAnnualRate = 0.03
	}
	if cfg.Loan.Rates.RiskPremium == 0 {
		cfg.Loan.Rates.RiskPremium = 0.01
	}
	if cfg.Loan.Eligibility.MinCreditScore == 0 {
		cfg.Loan.Eligibility.MinCreditScore = 650
	}
	if cfg.Loan.Eligibility.MaxDebtToIncome == 0 {
		cfg.Loan.Eligibility.MaxDebtToIncome = 0.43
	}
	if cfg.Loan.Eligibility.MinIncomeMultiplier == 0 {
		cfg.Loan.Eligibility.MinIncomeMultiplier = 3
	}
	if cfg.Loan.Eligibility.MaxDurationYears == 0 {
		cfg.Loan.Eligibility.MaxDurationYears = 30
	}

	// Compliance defaults
	if cfg.Compliance.MaxMonthlyPayment == 0 {
		cfg.Compliance.MaxMonthlyPayment = 10000.00
	}
	if cfg.Compliance.MaxDurationYears == 0 {
		cfg.Compliance.MaxDurationYears = 30
	}
	if cfg.Compliance.MaxRepaymentRatio == 0 {
		cfg.Compliance.MaxRepaymentRatio = 1.6
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.TTL == 0 {
		cfg.Database.Redis.TTL = 3600
	}

	// Elasticsearch URL fallback
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// Audit defaults
	if cfg.Audit.Directory == "" {
		cfg.Audit.Directory = "logs"
	}
	if cfg.Audit.IndexName == "" {
		cfg.Audit.IndexName = "loan-process-logs"
	}

	// Batch defaults
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = 4
	}
	if cfg.Batch.QueueSize == 0 {
		cfg.Batch.QueueSize = 16
	}

	// Template defaults
	if cfg.Template.RegistryPath == "" {
		cfg.Template.RegistryPath = "configs/notification-templates.json"
	}
	if cfg.Template.ApprovalTemplateID == "" {
		cfg.Template.ApprovalTemplateID = "loan_approval"
	}
	if cfg.Notification.Channel == "" {
		cfg.Notification.Channel = "log"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Metrics defaults
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 8080
	}

	// Worker defaults - CRITICAL FIX!
	for key, worker := range cfg.Workers {
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Process.MaxVerificationAttempts < 1 {
		return fmt.Errorf("process.max_verification_attempts must be at least 1")
	}

	if cfg.Loan.Rates.AnnualRate() <= 0 {
		return fmt.Errorf("loan.rates must produce a positive annual rate")
	}
	if cfg.Loan.Eligibility.MaxDebtToIncome <= 0 || cfg.Loan.Eligibility.MaxDebtToIncome > 1 {
		return fmt.Errorf("loan.eligibility.max_debt_to_income must be in (0, 1]")
	}

	if cfg.Compliance.MaxMonthlyPayment <= 0 {
		return fmt.Errorf("compliance.max_monthly_payment must be positive")
	}
	if cfg.Compliance.MaxDurationYears < 1 {
		return fmt.Errorf("compliance.max_duration_years must be at least 1")
	}
	if cfg.Compliance.MaxRepaymentRatio <= 0 {
		return fmt.Errorf("compliance.max_repayment_ratio must be positive")
	}

	// Store backends are optional; validate connection settings only when enabled.
	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Database.Elasticsearch.Enabled {
		if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required")
		}
	}

	if cfg.Database.Redis.Enabled {
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required")
		}
	}

	if cfg.Audit.PostgresEnabled && !cfg.Database.Postgres.Enabled {
		return fmt.Errorf("audit.postgres_enabled requires database.postgres.enabled")
	}
	if cfg.Audit.ElasticsearchEnabled && !cfg.Database.Elasticsearch.Enabled {
		return fmt.Errorf("audit.elasticsearch_enabled requires database.elasticsearch.enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves evaluator-specific configuration. Evaluators
// without an explicit entry inherit the process-wide branch timeout.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:    true,
		Timeout:    cfg.Process.BranchTimeout,
		MaxRetries: 3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
