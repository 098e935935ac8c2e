// internal/workers/loan/evaluate-eligibility/handler.go
package evaluateeligibility

import (
	"context"
	"fmt"

	"loanflow/internal/common/logger"
	"loanflow/internal/models"

	"github.com/shopspring/decimal"
)

const (
	TaskType = "evaluate-eligibility"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	record := input.Record

	monthlyIncome, err := models.MoneyValue(record["monthly_income"])
	if err != nil {
		return nil, fmt.Errorf("monthly_income: %w", err)
	}
	monthlyExpenses, err := models.MoneyValue(record["monthly_expenses"])
	if err != nil {
		return nil, fmt.Errorf("monthly_expenses: %w", err)
	}
	if _, err := models.MoneyValue(record["loan_amount"]); err != nil {
		return nil, fmt.Errorf("loan_amount: %w", err)
	}
	if _, err := models.IntValue(record["loan_duration_years"]); err != nil {
		return nil, fmt.Errorf("loan_duration_years: %w", err)
	}
	if monthlyIncome.IsZero() {
		return nil, fmt.Errorf("monthly_income must not be zero")
	}

	applicationID := fmt.Sprintf("%v", record["application_id"])
	clientName := ""
	if raw, ok := record["client_name"]; ok && raw != nil {
		clientName = fmt.Sprintf("%v", raw)
	}

	dtiRatio := monthlyExpenses.Div(monthlyIncome)

	// Simulated credit score; a real check would query a bureau. The
	// simulated range never dips below the configured minimum, and the
	// income and duration checks always hold for simulated data, so the
	// DTI ratio is the effective gateway.
	creditScore := 700 + (len([]rune(clientName)) % 200)
	meetsCredit := creditScore >= h.config.MinCreditScore

	maxDTI := decimal.NewFromFloat(h.config.MaxDebtToIncome)
	meetsDTI := dtiRatio.LessThanOrEqual(maxDTI)

	isEligible := meetsCredit && meetsDTI

	output := &Output{
		ApplicationID:     applicationID,
		MeetsRequirements: isEligible,
		IsEligible:        isEligible,
		CreditScore:       creditScore,
		DTIRatio:          dtiRatio.InexactFloat64(),
		EvaluationDetails: map[string]bool{
			"meets_credit_requirement":   meetsCredit,
			"meets_dti_requirement":      meetsDTI,
			"meets_income_requirement":   true,
			"meets_duration_requirement": true,
		},
	}

	h.logger.Info("eligibility evaluated", map[string]interface{}{
		"applicationId": applicationID,
		"isEligible":    isEligible,
		"creditScore":   creditScore,
		"dtiRatio":      output.DTIRatio,
	})

	return output, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
