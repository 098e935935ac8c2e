// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanflow/internal/audit"
	"loanflow/internal/common/config"
	"loanflow/internal/common/database"
	"loanflow/internal/common/logger"
	"loanflow/internal/intake"
	"loanflow/internal/models"
	"loanflow/internal/orchestrator"
	"loanflow/internal/store"
)

// ==========================
// Test Fixtures
// ==========================

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// 🔧 FORCE FAST PAUSES AND REPO-RELATIVE PATHS FOR E2E TESTS
	cfg.Process.UpdateRequestPause = 25
	cfg.Template.RegistryPath = filepath.Join("..", "..", "configs", "notification-templates.json")

	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config) (*orchestrator.Orchestrator, *audit.FileSink) {
	t.Helper()

	sink, err := audit.NewFileSink(t.TempDir())
	require.NoError(t, err)

	return orchestrator.New(cfg, logger.NewTestLogger(t), sink), sink
}

func statusTrack(history []models.StatusChange) []models.ApplicationStatus {
	track := make([]models.ApplicationStatus, 0, len(history))
	for _, change := range history {
		track = append(track, change.Status)
	}
	return track
}

func readTrail(t *testing.T, sink *audit.FileSink, applicationID string) audit.Trail {
	t.Helper()

	data, err := os.ReadFile(sink.Path(applicationID))
	require.NoError(t, err, "audit trail file missing")

	var trail audit.Trail
	require.NoError(t, json.Unmarshal(data, &trail))
	return trail
}

func stepCount(trail audit.Trail, name string) int {
	count := 0
	for _, step := range trail.Steps {
		if step.Step == name {
			count++
		}
	}
	return count
}

// ==========================
// 1. Single Application Scenarios
// ==========================

func TestWorkflow_ApprovedEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := loadTestConfig(t)
	orch, sink := newTestOrchestrator(t, cfg)

	t.Log("🚀 Running complete application through the full workflow...")

	app := intake.SampleApplication()
	summary := orch.ProcessApplication(ctx, app)
	require.NotNil(t, summary)

	assert.Equal(t, models.StatusCompleted, summary.FinalStatus)
	assert.Equal(t, app.ApplicationID, summary.ApplicationID)
	assert.Equal(t, "Alexandre Dubois", summary.ClientName)
	assert.Equal(t, 1, summary.VerificationAttempts)
	assert.Empty(t, summary.RejectionReason)
	assert.Empty(t, summary.ErrorKind)

	require.NotNil(t, summary.AgreementDetails)
	details := summary.AgreementDetails
	assert.InDelta(t, 750000.0, details.LoanAmount, 0.01)
	assert.Equal(t, 25, details.DurationYears)
	assert.Equal(t, 300, details.TotalPayments)
	assert.InDelta(t, 0.04, details.AnnualInterestRate, 0.0001)
	assert.InDelta(t, 3958.78, details.MonthlyPayment, 0.01)
	assert.InDelta(t, 1187632.96, details.TotalRepayment, 1.0)

	require.NotNil(t, summary.Notification, "approved application must carry a notification")
	assert.Equal(t, "loan_approval", summary.Notification.TemplateID)
	assert.Contains(t, summary.Notification.Subject, "Alexandre Dubois")
	assert.NotEmpty(t, summary.Notification.Body)
	assert.NotEmpty(t, summary.Notification.BuiltAt)

	assert.Equal(t, []models.ApplicationStatus{
		models.StatusInitiated,
		models.StatusReceived,
		models.StatusVerifying,
		models.StatusEligibilityPending,
		models.StatusAgreementPending,
		models.StatusCompleted,
	}, statusTrack(summary.StatusHistory))

	trail := readTrail(t, sink, app.ApplicationID)
	assert.Equal(t, app.ApplicationID, trail.ProcessID)
	assert.Equal(t, "COMPLETED", trail.CompletionStatus)
	assert.NotEmpty(t, trail.EndTime)
	assert.Equal(t, 1, stepCount(trail, "Reimbursement Agreement Prepared"))
	assert.Equal(t, 1, stepCount(trail, "Approval Notification Built"))

	t.Log("✅ Approved end to end")
}

func TestWorkflow_IncompleteRejectedAfterRetries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := loadTestConfig(t)
	orch, sink := newTestOrchestrator(t, cfg)

	t.Log("🚀 Running application with a missing field...")

	app := intake.SampleApplication()
	delete(app.Fields, "email")

	summary := orch.ProcessApplication(ctx, app)
	require.NotNil(t, summary)

	assert.Equal(t, models.StatusRejectedIncomplete, summary.FinalStatus)
	assert.Equal(t, cfg.Process.MaxVerificationAttempts, summary.VerificationAttempts)
	assert.Nil(t, summary.AgreementDetails)
	assert.Nil(t, summary.Notification)

	last := summary.StatusHistory[len(summary.StatusHistory)-1]
	assert.Equal(t, models.StatusRejectedIncomplete, last.Status)
	assert.Equal(t, "max verification attempts reached", last.Comment)

	// Updates are requested between attempts, not after the last one.
	trail := readTrail(t, sink, app.ApplicationID)
	assert.Equal(t, "REJECTED_INCOMPLETE", trail.CompletionStatus)
	assert.Equal(t, cfg.Process.MaxVerificationAttempts-1, stepCount(trail, "Requesting Application Updates"))
	assert.Equal(t, 1, stepCount(trail, "Max Verification Attempts Reached"))
	assert.Equal(t, 0, stepCount(trail, "Starting Parallel Eligibility Evaluation"))

	t.Log("✅ Incomplete application rejected after retries")
}

func TestWorkflow_IneligibleDebtRatio(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := loadTestConfig(t)
	orch, sink := newTestOrchestrator(t, cfg)

	t.Log("🚀 Running application with excessive debt-to-income ratio...")

	app := intake.SampleApplication()
	app.Fields["monthly_income"] = 5000
	app.Fields["monthly_expenses"] = 4000

	summary := orch.ProcessApplication(ctx, app)
	require.NotNil(t, summary)

	assert.Equal(t, models.StatusRejectedIneligible, summary.FinalStatus)
	assert.Equal(t, 1, summary.VerificationAttempts)
	assert.Nil(t, summary.AgreementDetails)
	assert.Nil(t, summary.Notification)

	track := statusTrack(summary.StatusHistory)
	assert.Contains(t, track, models.StatusEligibilityPending)
	assert.NotContains(t, track, models.StatusAgreementPending)

	trail := readTrail(t, sink, app.ApplicationID)
	assert.Equal(t, "REJECTED_INELIGIBLE", trail.CompletionStatus)
	assert.Equal(t, 1, stepCount(trail, "Credit History Verification Complete"))
	assert.Equal(t, 1, stepCount(trail, "Property Evaluation Complete"))
	assert.Equal(t, 0, stepCount(trail, "Starting Reimbursement Agreement Process"))

	t.Log("✅ Ineligible application rejected before the agreement phase")
}

func TestWorkflow_ComplianceRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := loadTestConfig(t)
	orch, sink := newTestOrchestrator(t, cfg)

	t.Log("🚀 Running application whose repayment breaches the payment cap...")

	app := intake.SampleApplication()
	app.Fields["loan_amount"] = 2500000

	summary := orch.ProcessApplication(ctx, app)
	require.NotNil(t, summary)

	assert.Equal(t, models.StatusRejected, summary.FinalStatus)
	assert.Equal(t, "Monthly payment exceeds maximum allowed", summary.RejectionReason)
	assert.Nil(t, summary.Notification)

	// The prepared agreement stays on the summary for review even
	// though compliance rejected it.
	require.NotNil(t, summary.AgreementDetails)
	assert.InDelta(t, 13195.92, summary.AgreementDetails.MonthlyPayment, 0.01)

	trail := readTrail(t, sink, app.ApplicationID)
	assert.Equal(t, "REJECTED", trail.CompletionStatus)
	assert.Equal(t, 1, stepCount(trail, "Agreement Compliance Verified"))
	assert.Equal(t, 0, stepCount(trail, "Approval Notification Built"))

	t.Log("✅ Non-compliant agreement rejected")
}

// ==========================
// 2. Batch Scenarios
// ==========================

func TestBatch_MixedProfiles(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg := loadTestConfig(t)
	orch, _ := newTestOrchestrator(t, cfg)
	pool := orchestrator.NewPool(orch, logger.NewTestLogger(t), cfg.Batch)

	t.Log("🚀 Running demo batch with all four outcome profiles...")

	apps := intake.SampleBatch(8)
	report := pool.Run(ctx, "BATCH_E2E_001", apps)
	require.NotNil(t, report)

	assert.Equal(t, "BATCH_E2E_001", report.BatchID)
	assert.Equal(t, 8, report.Total)
	assert.Len(t, report.Summaries, 8)

	// SampleBatch cycles complete, missing-email, high-DTI, over-cap.
	assert.Equal(t, 2, report.Count(models.StatusCompleted))
	assert.Equal(t, 2, report.Count(models.StatusRejectedIncomplete))
	assert.Equal(t, 2, report.Count(models.StatusRejectedIneligible))
	assert.Equal(t, 2, report.Count(models.StatusRejected))

	assert.False(t, report.CompletedAt.Before(report.StartedAt))
	assert.Greater(t, report.ThroughputPerSecond, 0.0)
	assert.LessOrEqual(t, report.MinDurationSeconds, report.AvgDurationSeconds)
	assert.LessOrEqual(t, report.AvgDurationSeconds, report.MaxDurationSeconds)

	seen := make(map[string]bool, len(report.Summaries))
	for _, summary := range report.Summaries {
		assert.False(t, seen[summary.ApplicationID], "application reported twice")
		seen[summary.ApplicationID] = true
	}

	t.Log("✅ Batch processed with expected outcome distribution")
}

// ==========================
// 3. File Submission Pipeline
// ==========================

func TestFileSubmission_FullPipeline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := loadTestConfig(t)
	orch, _ := newTestOrchestrator(t, cfg)

	submission := map[string]interface{}{
		"batch_id": "BATCH_FILE_E2E",
		"applications": []interface{}{
			map[string]interface{}{
				"client_name":          "Claire Fontaine",
				"address":              "14 Rue des Carmes, 44000 Nantes",
				"email":                "claire.fontaine@email.com",
				"phone":                "+33 6 98 76 54 32",
				"loan_amount":          600000,
				"loan_duration_years":  25,
				"property_description": "Maison de ville avec jardin",
				"monthly_income":       21000,
				"monthly_expenses":     4500,
			},
			map[string]interface{}{
				"client_name":          "Marc Boucher",
				"address":              "3 Place Bellecour, 69002 Lyon",
				"email":                "marc.boucher@email.com",
				"loan_amount":          450000,
				"loan_duration_years":  20,
				"property_description": "Appartement en centre-ville",
				"monthly_income":       15000,
				"monthly_expenses":     3000,
			},
		},
	}
	data, err := json.Marshal(submission)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "submission.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Log("🚀 Loading submission file and processing the batch...")

	parsed, err := intake.New(logger.NewTestLogger(t)).LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BATCH_FILE_E2E", parsed.BatchID)
	require.Len(t, parsed.Applications, 2)
	assert.Empty(t, parsed.Warnings)

	pool := orchestrator.NewPool(orch, logger.NewTestLogger(t), cfg.Batch)
	report := pool.Run(ctx, parsed.BatchID, parsed.Applications)
	require.NotNil(t, report)

	// The second record has no phone number, so it exhausts the
	// verification attempts.
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Count(models.StatusCompleted))
	assert.Equal(t, 1, report.Count(models.StatusRejectedIncomplete))

	for _, summary := range report.Summaries {
		if summary.FinalStatus == models.StatusCompleted {
			assert.Equal(t, "Claire Fontaine", summary.ClientName)
			require.NotNil(t, summary.Notification)
			assert.Contains(t, summary.Notification.Subject, "Claire Fontaine")
		}
	}

	t.Log("✅ File submission processed end to end")
}

// ==========================
// 4. Live Backend Connectivity
// ==========================

func TestBackendConnectivity(t *testing.T) {
	if os.Getenv("E2E_BACKENDS") == "" {
		t.Skip("set E2E_BACKENDS=1 to run against live PostgreSQL/Redis/Elasticsearch")
	}

	cfg := loadTestConfig(t)

	// 🔧 FORCE LOCALHOST FOR E2E TESTS
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.URL = "http://localhost:9200"

	t.Log("🔍 Checking service connectivity...")

	// --- PostgreSQL ---
	db, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "❌ PostgreSQL connection failed")
	assert.NoError(t, db.Ping(context.Background()), "❌ PostgreSQL ping failed")
	db.Close()
	t.Log("✅ PostgreSQL connected")

	// --- Redis ---
	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "❌ Redis client creation failed")
	assert.NoError(t, rdb.Ping(context.Background()), "❌ Redis ping failed")
	t.Log("✅ Redis connected")

	// --- Dedupe round trip against the live cache ---
	summaries := store.New(nil, nil, rdb.Client, logger.NewStructured("info", "json"))
	dedupeID := fmt.Sprintf("LOAN_E2E_DEDUPE_%d", time.Now().UnixNano())
	first, err := summaries.MarkProcessed(context.Background(), dedupeID)
	require.NoError(t, err)
	assert.True(t, first, "fresh id must be reported as new")
	again, err := summaries.MarkProcessed(context.Background(), dedupeID)
	require.NoError(t, err)
	assert.False(t, again, "repeated id must be reported as seen")
	rdb.Close()
	t.Log("✅ Dedupe round trip complete")

	// --- Elasticsearch ---
	t.Logf("🔗 Elasticsearch URL: %s", cfg.Database.Elasticsearch.GetURL())
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err, "❌ Elasticsearch client creation failed")
	assert.NoError(t, es.Ping(), "❌ Elasticsearch ping failed")
	t.Log("✅ Elasticsearch connected")

	// --- Audit sink round trip against the live index ---
	sink := audit.NewElasticsearchSink(es, cfg.Audit.IndexName)
	processID := fmt.Sprintf("LOAN_E2E_%d", time.Now().UnixNano())
	trail := audit.Trail{
		ProcessID: processID,
		StartTime: time.Now().UTC().Format(time.RFC3339),
		Steps: []audit.Step{{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Step:      "Connectivity Probe",
			Details:   map[string]interface{}{"source": "e2e"},
		}},
	}
	snapshot, err := json.Marshal(trail)
	require.NoError(t, err)
	assert.NoError(t, sink.Flush(context.Background(), processID, snapshot), "❌ Elasticsearch audit write failed")
	t.Log("✅ Audit trail indexed")
}
