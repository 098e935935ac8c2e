// internal/workers/loan/prepare-agreement/handler_test.go
package prepareagreement

import (
	"context"
	"testing"
	"time"

	"loanflow/internal/common/logger"
	"loanflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return LoadConfig()
}

func createAgreementRecord(amount interface{}, years interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application_id":      "LOAN_TEST_AGREEMENT",
		"loan_amount":         amount,
		"loan_duration_years": years,
	}
}

// Create a test logger that implements your logger.Logger interface
type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return tl
}

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl.WithFields(map[string]interface{}{"error": err})
}

func (tl *testLogger) With(fields map[string]interface{}) logger.Logger {
	return tl
}

func newTestLogger(t *testing.T) logger.Logger {
	return &testLogger{t: t}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_AmortizesLoan(t *testing.T) {
	tests := []struct {
		name            string
		amount          interface{}
		years           interface{}
		expectedMonthly float64
		expectedTotal   float64
	}{
		{
			// 750000 at 4% over 300 payments
			name:            "mid-size loan over twenty five years",
			amount:          750000.0,
			years:           25,
			expectedMonthly: 3958.78,
			expectedTotal:   1187632.96,
		},
		{
			// 2500000 at 4% over 300 payments
			name:            "large loan over twenty five years",
			amount:          2500000.0,
			years:           25,
			expectedMonthly: 13195.92,
			expectedTotal:   3958776.53,
		},
		{
			name:            "string inputs parse like numbers",
			amount:          "750000",
			years:           "25",
			expectedMonthly: 3958.78,
			expectedTotal:   1187632.96,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(createTestConfig(), newTestLogger(t))

			output, err := handler.Execute(context.Background(), &Input{Record: createAgreementRecord(tt.amount, tt.years)})

			require.NoError(t, err)
			require.NotNil(t, output.AgreementDetails)
			assert.Equal(t, "LOAN_TEST_AGREEMENT", output.ApplicationID)
			assert.Equal(t, models.AgreementPending, output.Status)

			details := output.AgreementDetails
			assert.Equal(t, 25, details.DurationYears)
			assert.Equal(t, 300, details.TotalPayments) // 25 * 12
			assert.InDelta(t, 0.04, details.AnnualInterestRate, 0.0001)
			assert.InDelta(t, tt.expectedMonthly, details.MonthlyPayment, 0.01)
			assert.InDelta(t, tt.expectedTotal, details.TotalRepayment, 1.0)
		})
	}
}

func TestHandler_Execute_AmortizationIsPure(t *testing.T) {
	handler := NewHandler(createTestConfig(), newTestLogger(t))
	record := createAgreementRecord(750000.0, 25)

	first, err := handler.Execute(context.Background(), &Input{Record: record})
	require.NoError(t, err)
	second, err := handler.Execute(context.Background(), &Input{Record: record})
	require.NoError(t, err)

	assert.Equal(t, first.AgreementDetails.MonthlyPayment, second.AgreementDetails.MonthlyPayment)
	assert.Equal(t, first.AgreementDetails.TotalRepayment, second.AgreementDetails.TotalRepayment)
}

func TestFirstPaymentDate(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		expected string
	}{
		{
			name:     "mid month rolls to next month",
			now:      time.Date(2026, time.August, 23, 14, 30, 0, 0, time.UTC),
			expected: "2026-09-01",
		},
		{
			name:     "december rolls into next year",
			now:      time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC),
			expected: "2027-01-01",
		},
		{
			name:     "first of month still rolls forward",
			now:      time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
			expected: "2026-04-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, firstPaymentDate(tt.now))
		})
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_InvalidInputs(t *testing.T) {
	tests := []struct {
		name        string
		amount      interface{}
		years       interface{}
		errContains string
	}{
		{name: "zero amount", amount: 0.0, years: 25, errContains: "INVALID_LOAN_AMOUNT"},
		{name: "negative amount", amount: -1000.0, years: 25, errContains: "INVALID_LOAN_AMOUNT"},
		{name: "unparseable amount", amount: "a lot", years: 25, errContains: "INVALID_LOAN_AMOUNT"},
		{name: "zero duration", amount: 750000.0, years: 0, errContains: "INVALID_LOAN_TERM"},
		{name: "negative duration", amount: 750000.0, years: -5, errContains: "INVALID_LOAN_TERM"},
		{name: "unparseable duration", amount: 750000.0, years: "twenty", errContains: "INVALID_LOAN_TERM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(createTestConfig(), newTestLogger(t))

			output, err := handler.Execute(context.Background(), &Input{Record: createAgreementRecord(tt.amount, tt.years)})

			assert.Error(t, err)
			assert.Nil(t, output)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
