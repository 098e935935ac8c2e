// internal/workers/loan/prepare-agreement/handler.go
package prepareagreement

import (
	"context"
	"fmt"
	"time"

	"loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/models"

	"github.com/shopspring/decimal"
)

const (
	TaskType = "prepare-agreement"
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

	applicationID := fmt.Sprintf("%v", record["application_id"])

	loanAmount, err := models.MoneyValue(record["loan_amount"])
	if err != nil {
		return nil, errors.NewInvalidLoanAmountError(fmt.Sprintf("loan_amount: %v", err))
	}
	if !loanAmount.IsPositive() {
		return nil, errors.NewInvalidLoanAmountError(fmt.Sprintf("loan_amount: %s", loanAmount))
	}

	durationYears, err := models.IntValue(record["loan_duration_years"])
	if err != nil || durationYears <= 0 {
		return nil, errors.NewInvalidLoanTermError(durationYears)
	}

	annualRate := decimal.NewFromFloat(h.config.BaseAnnualRate).
		Add(decimal.NewFromFloat(h.config.RiskPremium))
	monthlyRate := annualRate.Div(decimal.NewFromInt(12))
	numPayments := durationYears * 12

	monthlyPayment := h.amortizedPayment(loanAmount, monthlyRate, numPayments)
	totalRepayment := monthlyPayment.Mul(decimal.NewFromInt(int64(numPayments)))

	details := &models.AgreementDetails{
		LoanAmount:         loanAmount.InexactFloat64(),
		DurationYears:      durationYears,
		AnnualInterestRate: annualRate.InexactFloat64(),
		MonthlyPayment:     monthlyPayment.Round(2).InexactFloat64(),
		TotalPayments:      numPayments,
		FirstPaymentDate:   firstPaymentDate(time.Now()),
		TotalRepayment:     totalRepayment.Round(2).InexactFloat64(),
	}

	h.logger.Info("reimbursement agreement prepared", map[string]interface{}{
		"applicationId":  applicationID,
		"monthlyPayment": details.MonthlyPayment,
		"totalPayments":  details.TotalPayments,
	})

	return &Output{
		ApplicationID:    applicationID,
		AgreementDetails: details,
		Status:           models.AgreementPending,
	}, nil
}

// amortizedPayment computes M = P * r(1+r)^n / ((1+r)^n - 1) in exact
// decimal arithmetic.
func (h *Handler) amortizedPayment(principal, monthlyRate decimal.Decimal, numPayments int) decimal.Decimal {
	one := decimal.NewFromInt(1)
	factor := one.Add(monthlyRate).Pow(decimal.NewFromInt(int64(numPayments)))
	return principal.Mul(monthlyRate.Mul(factor)).Div(factor.Sub(one))
}

// firstPaymentDate returns the first day of the month following now.
func firstPaymentDate(now time.Time) string {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return firstOfMonth.AddDate(0, 1, 0).Format("2006-01-02")
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
