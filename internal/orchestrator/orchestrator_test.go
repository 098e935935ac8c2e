// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"loanflow/internal/audit"
	"loanflow/internal/common/config"
	"loanflow/internal/common/logger"
	"loanflow/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig(t *testing.T) *config.Config {
	return &config.Config{
		Process: config.ProcessConfig{
			MaxVerificationAttempts: 3,
			UpdateRequestPause:      1, // keep retry pauses out of test time
			BranchTimeout:           5000,
		},
		Loan: config.LoanConfig{
			Rates: config.RatesConfig{BaseAnnualRate: 0.03, RiskPremium: 0.01},
			Eligibility: config.EligibilityConfig{
				MinCreditScore:      650,
				MaxDebtToIncome:     0.43,
				MinIncomeMultiplier: 3,
				MaxDurationYears:    30,
			},
		},
		Compliance: config.ComplianceConfig{
			MaxMonthlyPayment: 10000.00,
			MaxDurationYears:  30,
			MaxRepaymentRatio: 1.6,
		},
		Template: config.TemplateConfig{
			RegistryPath:       writeApprovalTemplateRegistry(t),
			ApprovalTemplateID: "loan_approval",
		},
	}
}

func writeApprovalTemplateRegistry(t *testing.T) string {
	registry := map[string]interface{}{
		"templates": []map[string]interface{}{
			{
				"id":      "loan_approval",
				"type":    "approval",
				"subject": "Congratulations {{client_name}}! Your loan application has been approved",
				"body":    "Monthly payment {{monthly_payment}} over {{total_payments}} payments starting {{first_payment_date}}.",
				"version": "1.0",
			},
		},
	}
	data, err := json.Marshal(registry)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "notification-templates.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func completeFields() map[string]interface{} {
	return map[string]interface{}{
		"application_id":       "LOAN_TEST_PROCESS",
		"client_name":          "Alexandre Dubois",
		"address":              "25 Avenue Montaigne, 75008 Paris, France",
		"email":                "alexandre.dubois@email.fr",
		"phone":                "+33 6 12 34 56 78",
		"loan_amount":          decimal.NewFromInt(750000),
		"loan_duration_years":  25,
		"property_description": "Appartement haussmannien, 8ème arrondissement",
		"monthly_income":       decimal.NewFromInt(35000),
		"monthly_expenses":     decimal.NewFromInt(8000),
	}
}

// createTestOrchestrator wires an orchestrator with a file sink so tests
// can reload the persisted trail.
func createTestOrchestrator(t *testing.T) (*Orchestrator, *audit.FileSink) {
	sink, err := audit.NewFileSink(t.TempDir())
	require.NoError(t, err)
	return New(createTestConfig(t), logger.NewTestLogger(t), sink), sink
}

func loadTrail(t *testing.T, sink *audit.FileSink, processID string) *audit.Trail {
	trail, err := audit.LoadTrail(sink.Path(processID))
	require.NoError(t, err)
	return trail
}

func stepNames(trail *audit.Trail) []string {
	names := make([]string, len(trail.Steps))
	for i, step := range trail.Steps {
		names[i] = step.Step
	}
	return names
}

func stepIndex(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// ==========================
// Full Workflow Scenarios
// ==========================

func TestProcessApplication_CompletesCompliantApplication(t *testing.T) {
	orch, sink := createTestOrchestrator(t)
	app := models.NewApplication(completeFields())

	summary := orch.ProcessApplication(context.Background(), app)

	require.NotNil(t, summary)
	assert.Equal(t, models.StatusCompleted, summary.FinalStatus)
	assert.Equal(t, "LOAN_TEST_PROCESS", summary.ApplicationID)
	assert.Equal(t, "Alexandre Dubois", summary.ClientName)
	assert.Equal(t, "750000", summary.LoanAmount)
	assert.Equal(t, 1, summary.VerificationAttempts)
	assert.NotEmpty(t, summary.ProcessCompletionTime)
	assert.Empty(t, summary.RejectionReason)

	// 750000 over 25 years at 4%
	require.NotNil(t, summary.AgreementDetails)
	assert.InDelta(t, 3958.78, summary.AgreementDetails.MonthlyPayment, 0.01)
	assert.Equal(t, 300, summary.AgreementDetails.TotalPayments)

	require.NotNil(t, summary.Notification)
	assert.Equal(t, "Congratulations Alexandre Dubois! Your loan application has been approved", summary.Notification.Subject)

	assert.Equal(t, models.StatusCompleted, app.Status)
	require.NotEmpty(t, summary.StatusHistory)
	assert.Equal(t, models.StatusCompleted, summary.StatusHistory[len(summary.StatusHistory)-1].Status)

	trail := loadTrail(t, sink, app.ApplicationID)
	assert.Equal(t, "COMPLETED", trail.CompletionStatus)

	names := stepNames(trail)
	for _, expected := range []string{
		"Loan Application Process Initiated",
		"Completeness Verification Attempt 1",
		"Calling verify_completion with loan_data",
		"Received response from verify_completion",
		"Verification result",
		"Application Verified Complete",
		"Starting Parallel Eligibility Evaluation",
		"Starting Credit History Verification",
		"Credit History Verification Complete",
		"Starting Property Evaluation",
		"Property Data",
		"Property Evaluation Complete",
		"Eligibility Evaluation Complete",
		"Starting Reimbursement Agreement Process",
		"Reimbursement Agreement Prepared",
		"Verifying Agreement Compliance",
		"Agreement Compliance Verified",
		"Approval Notification Built",
		"Process Completed",
	} {
		assert.Contains(t, names, expected)
	}
	assert.Equal(t, "Process Completed", names[len(names)-1])
}

func TestProcessApplication_RejectsIncompleteAfterMaxAttempts(t *testing.T) {
	orch, sink := createTestOrchestrator(t)
	fields := completeFields()
	delete(fields, "email")
	app := models.NewApplication(fields)

	summary := orch.ProcessApplication(context.Background(), app)

	assert.Equal(t, models.StatusRejectedIncomplete, summary.FinalStatus)
	assert.Equal(t, 3, summary.VerificationAttempts)
	assert.Nil(t, summary.AgreementDetails)
	assert.Equal(t, models.StatusRejectedIncomplete, app.Status)

	trail := loadTrail(t, sink, app.ApplicationID)
	names := stepNames(trail)
	assert.Contains(t, names, "Completeness Verification Attempt 1")
	assert.Contains(t, names, "Completeness Verification Attempt 2")
	assert.Contains(t, names, "Completeness Verification Attempt 3")
	assert.Contains(t, names, "Max Verification Attempts Reached")
	assert.NotContains(t, names, "Starting Parallel Eligibility Evaluation")

	// Two update requests: after attempts 1 and 2 but not after the last.
	updates := 0
	for _, step := range trail.Steps {
		if step.Step == "Requesting Application Updates" {
			updates++
			assert.Equal(t, []interface{}{"email"}, step.Details["missing_fields"])
		}
	}
	assert.Equal(t, 2, updates)
}

func TestProcessApplication_RejectsIneligibleOnHighDTI(t *testing.T) {
	orch, sink := createTestOrchestrator(t)
	fields := completeFields()
	fields["monthly_income"] = decimal.NewFromInt(5000)
	fields["monthly_expenses"] = decimal.NewFromInt(4000)
	app := models.NewApplication(fields)

	summary := orch.ProcessApplication(context.Background(), app)

	assert.Equal(t, models.StatusRejectedIneligible, summary.FinalStatus)
	assert.Equal(t, 1, summary.VerificationAttempts)

	trail := loadTrail(t, sink, app.ApplicationID)
	names := stepNames(trail)

	// Both branches always run and are logged before the join entry.
	joinAt := stepIndex(names, "Eligibility Evaluation Complete")
	require.GreaterOrEqual(t, joinAt, 0)
	creditAt := stepIndex(names, "Credit History Verification Complete")
	propertyAt := stepIndex(names, "Property Evaluation Complete")
	assert.Less(t, creditAt, joinAt)
	assert.Less(t, propertyAt, joinAt)

	join := trail.Steps[joinAt]
	assert.Equal(t, false, join.Details["is_eligible"])
	assert.NotContains(t, names, "Starting Reimbursement Agreement Process")
}

func TestProcessApplication_RejectsNonCompliantAgreement(t *testing.T) {
	orch, sink := createTestOrchestrator(t)
	fields := completeFields()
	// 1500000 over 15 years: payment ~11095 breaches the 10000 cap.
	fields["loan_amount"] = decimal.NewFromInt(1500000)
	fields["loan_duration_years"] = 15
	app := models.NewApplication(fields)

	summary := orch.ProcessApplication(context.Background(), app)

	assert.Equal(t, models.StatusRejected, summary.FinalStatus)
	assert.Equal(t, "Monthly payment exceeds maximum allowed", summary.RejectionReason)
	require.NotNil(t, summary.AgreementDetails)
	assert.InDelta(t, 11095.32, summary.AgreementDetails.MonthlyPayment, 0.01)
	assert.Nil(t, summary.Notification)

	trail := loadTrail(t, sink, app.ApplicationID)
	names := stepNames(trail)
	assert.Contains(t, names, "Reimbursement Agreement Prepared")
	assert.Contains(t, names, "Agreement Compliance Verified")
	assert.NotContains(t, names, "Approval Notification Built")
}

// ==========================
// Degradation and Error Funnel
// ==========================

func TestProcessApplication_BranchErrorDegradesToIneligible(t *testing.T) {
	orch, sink := createTestOrchestrator(t)
	fields := completeFields()
	// Non-blank zero income passes completeness but fails the credit branch.
	fields["monthly_income"] = "0.00"
	app := models.NewApplication(fields)

	summary := orch.ProcessApplication(context.Background(), app)

	assert.Equal(t, models.StatusRejectedIneligible, summary.FinalStatus)

	trail := loadTrail(t, sink, app.ApplicationID)
	names := stepNames(trail)
	creditAt := stepIndex(names, "Credit History Verification Complete")
	require.GreaterOrEqual(t, creditAt, 0)

	credit := trail.Steps[creditAt]
	assert.Equal(t, false, credit.Details["meets_requirements"])
	assert.NotEmpty(t, credit.Details["error"])

	// The other branch still ran to completion.
	propertyAt := stepIndex(names, "Property Evaluation Complete")
	require.GreaterOrEqual(t, propertyAt, 0)
	assert.Equal(t, true, trail.Steps[propertyAt].Details["meets_requirements"])
}

func TestProcessApplication_AgreementErrorEndsInErrorStatus(t *testing.T) {
	orch, sink := createTestOrchestrator(t)
	fields := completeFields()
	// Negative duration survives completeness and eligibility, then the
	// agreement preparation rejects it.
	fields["loan_duration_years"] = -5
	app := models.NewApplication(fields)

	summary := orch.ProcessApplication(context.Background(), app)

	assert.Equal(t, models.StatusError, summary.FinalStatus)
	assert.Equal(t, "INVALID_LOAN_TERM", summary.ErrorKind)
	assert.NotEmpty(t, summary.ErrorMessage)
	assert.Equal(t, models.StatusError, app.Status)

	trail := loadTrail(t, sink, app.ApplicationID)
	names := stepNames(trail)
	assert.Contains(t, names, "Process Error")
	assert.Equal(t, "ERROR", trail.CompletionStatus)
	assert.Equal(t, "Process Completed", names[len(names)-1])
}

func TestProcessApplication_RecoversFromPanic(t *testing.T) {
	orch, sink := createTestOrchestrator(t)
	// A nil compliance handler panics when the agreement chain reaches it.
	orch.compliance = nil
	app := models.NewApplication(completeFields())

	summary := orch.ProcessApplication(context.Background(), app)

	require.NotNil(t, summary)
	assert.Equal(t, models.StatusError, summary.FinalStatus)
	assert.Equal(t, "UNEXPECTED_ERROR", summary.ErrorKind)

	trail := loadTrail(t, sink, app.ApplicationID)
	assert.Contains(t, stepNames(trail), "Process Error")
}

func TestProcessApplication_MissingNotificationTemplateStillCompletes(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.Template.RegistryPath = filepath.Join(t.TempDir(), "missing.json")
	sink, err := audit.NewFileSink(t.TempDir())
	require.NoError(t, err)
	orch := New(cfg, logger.NewTestLogger(t), sink)
	app := models.NewApplication(completeFields())

	summary := orch.ProcessApplication(context.Background(), app)

	assert.Equal(t, models.StatusCompleted, summary.FinalStatus)
	assert.Nil(t, summary.Notification)

	trail := loadTrail(t, sink, app.ApplicationID)
	assert.Contains(t, stepNames(trail), "Notification Build Failed")
}

func TestProcessApplication_DisabledNotificationEvaluator(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.Workers = map[string]config.WorkerConfig{
		"build-notification": {Enabled: false},
	}
	sink, err := audit.NewFileSink(t.TempDir())
	require.NoError(t, err)
	orch := New(cfg, logger.NewTestLogger(t), sink)
	app := models.NewApplication(completeFields())

	summary := orch.ProcessApplication(context.Background(), app)

	assert.Equal(t, models.StatusCompleted, summary.FinalStatus)
	assert.Nil(t, summary.Notification)

	names := stepNames(loadTrail(t, sink, app.ApplicationID))
	assert.NotContains(t, names, "Approval Notification Built")
	assert.NotContains(t, names, "Notification Build Failed")
}

// ==========================
// Unit Tests
// ==========================

func TestBranchTimeout_PerEvaluatorOverride(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.Workers = map[string]config.WorkerConfig{
		"evaluate-eligibility": {Enabled: true, Timeout: 1234},
	}
	orch := New(cfg, logger.NewNoOpLogger())

	assert.Equal(t, 1234*time.Millisecond, orch.branchTimeout("evaluate-eligibility"))
	// Evaluators without an entry inherit the process-wide window.
	assert.Equal(t, 5000*time.Millisecond, orch.branchTimeout("evaluate-property"))
}

func TestDegradedEvaluations(t *testing.T) {
	orch, _ := createTestOrchestrator(t)
	run := &processRun{
		orch: orch,
		app:  models.NewApplication(completeFields()),
	}

	credit := run.degradedCreditEvaluation(assert.AnError)
	assert.False(t, credit.MeetsRequirements)
	assert.False(t, credit.IsEligible)
	assert.Equal(t, "LOAN_TEST_PROCESS", credit.ApplicationID)
	assert.NotEmpty(t, credit.Error)

	property := run.degradedPropertyEvaluation(assert.AnError)
	assert.False(t, property.MeetsRequirements)
	assert.NotEmpty(t, property.Error)
}

func TestDetailsOf(t *testing.T) {
	outcome := &models.VerificationOutcome{
		ApplicationID: "LOAN_X",
		IsComplete:    false,
		MissingFields: []string{"email"},
		Status:        models.RecordIncomplete,
	}

	details := detailsOf(outcome)

	assert.Equal(t, "LOAN_X", details["application_id"])
	assert.Equal(t, false, details["is_complete"])
	assert.Equal(t, []interface{}{"email"}, details["missing_fields"])
}
