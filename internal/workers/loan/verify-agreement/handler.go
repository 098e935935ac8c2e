// internal/workers/loan/verify-agreement/handler.go
package verifyagreement

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/models"

	"github.com/shopspring/decimal"
)

const (
	TaskType = "verify-agreement"
)

type Handler struct {
	config *Config
	logger logger.Logger

	rulesOnce sync.Once
	rules     complianceRules
	rulesErr  error
}

// complianceRules is the on-disk shape of the optional rules override file.
type complianceRules struct {
	MaxMonthlyPayment float64 `json:"max_monthly_payment"`
	MaxDurationYears  int     `json:"max_duration_years"`
	MaxRepaymentRatio float64 `json:"max_repayment_ratio"`
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input.Agreement == nil {
		return nil, fmt.Errorf("agreement details are required")
	}

	rules, err := h.loadRules()
	if err != nil {
		return nil, err
	}

	agreement := input.Agreement

	paymentOK := decimal.NewFromFloat(agreement.MonthlyPayment).
		LessThanOrEqual(decimal.NewFromFloat(rules.MaxMonthlyPayment))
	durationOK := agreement.DurationYears <= rules.MaxDurationYears
	maxRepayment := decimal.NewFromFloat(agreement.LoanAmount).
		Mul(decimal.NewFromFloat(rules.MaxRepaymentRatio))
	ratioOK := decimal.NewFromFloat(agreement.TotalRepayment).LessThanOrEqual(maxRepayment)

	checks := models.ComplianceChecks{
		models.CheckMonthlyPayment: paymentOK,
		models.CheckLoanDuration:   durationOK,
		models.CheckRepaymentRatio: ratioOK,
	}

	output := &Output{
		ApplicationID: input.ApplicationID,
		Approved:      paymentOK && durationOK && ratioOK,
		Checks:        checks,
	}
	if !output.Approved {
		output.Reason = h.failureReason(paymentOK, durationOK, ratioOK)
	}

	h.logger.Info("agreement verified", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"approved":      output.Approved,
		"checks":        checks,
	})

	return output, nil
}

// loadRules resolves the effective rules table: the configured limits,
// overridden by the JSON rules file when one is configured. The file is
// read once per handler.
func (h *Handler) loadRules() (complianceRules, error) {
	h.rulesOnce.Do(func() {
		h.rules = complianceRules{
			MaxMonthlyPayment: h.config.MaxMonthlyPayment,
			MaxDurationYears:  h.config.MaxDurationYears,
			MaxRepaymentRatio: h.config.MaxRepaymentRatio,
		}

		if h.config.RulesPath != "" {
			data, err := os.ReadFile(h.config.RulesPath)
			if err != nil {
				h.rulesErr = errors.NewComplianceRulesInvalidError(fmt.Sprintf("read %s: %v", h.config.RulesPath, err))
				return
			}
			if err := json.Unmarshal(data, &h.rules); err != nil {
				h.rulesErr = errors.NewComplianceRulesInvalidError(fmt.Sprintf("parse %s: %v", h.config.RulesPath, err))
				return
			}
		}

		if h.rules.MaxMonthlyPayment <= 0 || h.rules.MaxDurationYears <= 0 || h.rules.MaxRepaymentRatio <= 0 {
			h.rulesErr = errors.NewComplianceRulesInvalidError(fmt.Sprintf("limits must be positive: %+v", h.rules))
		}
	})
	return h.rules, h.rulesErr
}

func (h *Handler) failureReason(paymentOK, durationOK, ratioOK bool) string {
	switch {
	case !paymentOK:
		return "Monthly payment exceeds maximum allowed"
	case !durationOK:
		return "Loan duration exceeds maximum allowed"
	default:
		return "Total repayment exceeds maximum allowed ratio"
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
