// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"loanflow/internal/audit"
	"loanflow/internal/common/config"
	"loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/metrics"
	"loanflow/internal/common/observability"
	"loanflow/internal/models"
	buildnotification "loanflow/internal/workers/loan/build-notification"
	evaluateeligibility "loanflow/internal/workers/loan/evaluate-eligibility"
	evaluateproperty "loanflow/internal/workers/loan/evaluate-property"
	prepareagreement "loanflow/internal/workers/loan/prepare-agreement"
	verifyagreement "loanflow/internal/workers/loan/verify-agreement"
	verifycompleteness "loanflow/internal/workers/loan/verify-completeness"
)

// Orchestrator drives a loan application through the approval workflow:
// the completeness verification loop, the parallel eligibility evaluation,
// and the reimbursement agreement chain. It owns the evaluator handlers
// and opens a fresh audit trail per run.
type Orchestrator struct {
	config *config.Config
	logger logger.Logger
	sinks  []audit.Sink
	obs    *observability.Observability

	completeness *verifycompleteness.Handler
	eligibility  *evaluateeligibility.Handler
	property     *evaluateproperty.Handler
	agreement    *prepareagreement.Handler
	compliance   *verifyagreement.Handler
	notification *buildnotification.Handler
}

func New(cfg *config.Config, log logger.Logger, sinks ...audit.Sink) *Orchestrator {
	notificationConfig := buildnotification.LoadConfig()
	if cfg.Template.RegistryPath != "" {
		notificationConfig.TemplateRegistry = cfg.Template.RegistryPath
	}
	if cfg.Template.ApprovalTemplateID != "" {
		notificationConfig.DefaultTemplateID = cfg.Template.ApprovalTemplateID
	}

	// Notification construction is the one optional evaluator; the
	// workflow completes without it.
	var notification *buildnotification.Handler
	if config.IsWorkerEnabled(cfg, buildnotification.TaskType) {
		notification = buildnotification.NewHandler(notificationConfig, log)
	}

	return &Orchestrator{
		config:       cfg,
		logger:       log,
		sinks:        sinks,
		completeness: verifycompleteness.NewHandler(verifycompleteness.LoadConfig(), log),
		eligibility:  evaluateeligibility.NewHandler(evaluateeligibility.NewConfig(cfg.Loan.Eligibility), log),
		property:     evaluateproperty.NewHandler(evaluateproperty.LoadConfig(), log),
		agreement:    prepareagreement.NewHandler(prepareagreement.NewConfig(cfg.Loan.Rates), log),
		compliance:   verifyagreement.NewHandler(verifyagreement.NewConfig(cfg.Compliance), log),
		notification: notification,
	}
}

// branchTimeout returns the evaluation window for one eligibility branch.
// An explicit per-evaluator timeout wins over the process-wide setting.
func (o *Orchestrator) branchTimeout(taskType string) time.Duration {
	return config.GetDuration(config.GetWorkerConfig(o.config, taskType).Timeout)
}

// SetObservability attaches an OpenTelemetry recorder. Optional; the
// orchestrator runs fine without one.
func (o *Orchestrator) SetObservability(obs *observability.Observability) {
	o.obs = obs
}

// ProcessApplication runs the full workflow for one application and
// always returns a summary: every collaborator error and internal panic
// is absorbed here and converted to a final_status of ERROR.
func (o *Orchestrator) ProcessApplication(ctx context.Context, app *models.LoanApplication) (summary *models.ProcessSummary) {
	run := &processRun{
		orch: o,
		app:  app,
		log:  audit.NewProcessLog(app.ApplicationID, o.logger, o.sinks...),
	}

	started := time.Now()
	metrics.ActiveProcesses.Inc()
	defer func() {
		if rec := recover(); rec != nil {
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			summary = run.fail(ctx, err)
		}

		metrics.ActiveProcesses.Dec()
		if summary != nil {
			status := string(summary.FinalStatus)
			elapsed := time.Since(started)
			metrics.ApplicationsProcessed.WithLabelValues(status).Inc()
			metrics.ProcessDuration.WithLabelValues(status).Observe(elapsed.Seconds())
			if o.obs != nil {
				o.obs.RecordApplicationProcessed(ctx, status)
				o.obs.RecordProcessDuration(ctx, elapsed, status)
			}
		}
	}()

	return run.process(ctx)
}

// processRun holds the per-run state; the attempt counter is scoped here,
// never on the orchestrator.
type processRun struct {
	orch     *Orchestrator
	app      *models.LoanApplication
	log      *audit.ProcessLog
	attempts int
}

func (r *processRun) process(ctx context.Context) *models.ProcessSummary {
	r.log.LogStep(ctx, "Loan Application Process Initiated", map[string]interface{}{
		"application_id":    r.app.ApplicationID,
		"client_name":       r.app.ClientName(),
		"loan_amount":       r.app.LoanAmountString(),
		"initial_timestamp": time.Now().Format(time.RFC3339),
	})

	// Phase 1: completeness verification loop
	r.app.UpdateStatus(models.StatusVerifying, "completeness verification started")
	isComplete, err := r.completenessLoop(ctx)
	if err != nil {
		metrics.PhaseFailures.WithLabelValues("completeness", string(errors.Kind(err))).Inc()
		return r.fail(ctx, err)
	}
	if !isComplete {
		metrics.VerificationAttempts.WithLabelValues("incomplete").Observe(float64(r.attempts))
		r.app.UpdateStatus(models.StatusRejectedIncomplete, "max verification attempts reached")
		return r.finalize(ctx, models.StatusRejectedIncomplete, &models.ProcessSummary{})
	}
	metrics.VerificationAttempts.WithLabelValues("complete").Observe(float64(r.attempts))

	// Phase 2: parallel eligibility evaluation
	r.app.UpdateStatus(models.StatusEligibilityPending, "application verified complete")
	decision := r.parallelEligibility(ctx)
	if !decision.IsEligible {
		r.app.UpdateStatus(models.StatusRejectedIneligible, "eligibility checks failed")
		return r.finalize(ctx, models.StatusRejectedIneligible, &models.ProcessSummary{})
	}

	// Phase 3: reimbursement agreement chain
	r.app.UpdateStatus(models.StatusAgreementPending, "eligibility checks passed")
	summary, err := r.agreementChain(ctx)
	if err != nil {
		metrics.PhaseFailures.WithLabelValues("agreement", string(errors.Kind(err))).Inc()
		return r.fail(ctx, err)
	}
	return summary
}

// ==========================
// Phase 1: Completeness Loop
// ==========================

func (r *processRun) completenessLoop(ctx context.Context) (bool, error) {
	phaseStart := time.Now()
	defer func() {
		r.observePhase(ctx, "completeness", time.Since(phaseStart))
	}()

	maxAttempts := r.orch.config.Process.MaxVerificationAttempts
	for r.attempts < maxAttempts {
		r.attempts++
		r.log.LogStep(ctx, fmt.Sprintf("Completeness Verification Attempt %d", r.attempts), nil)

		outcome, err := r.verifyCompleteness(ctx)
		if err != nil {
			return false, err
		}
		r.log.LogStep(ctx, "Verification result", detailsOf(outcome))

		if outcome.IsComplete {
			r.log.LogStep(ctx, "Application Verified Complete", map[string]interface{}{
				"attempts": r.attempts,
			})
			return true, nil
		}

		if r.attempts < maxAttempts {
			r.requestApplicationUpdates(ctx, outcome.MissingFields)
		} else {
			r.log.LogStep(ctx, "Max Verification Attempts Reached", map[string]interface{}{
				"total_attempts": r.attempts,
			})
			return false, nil
		}
	}
	return false, nil
}

func (r *processRun) verifyCompleteness(ctx context.Context) (*models.VerificationOutcome, error) {
	record := r.app.CompletenessRecord()
	r.log.LogStep(ctx, "Calling verify_completion with loan_data", record)

	outcome, err := r.orch.completeness.Execute(ctx, &verifycompleteness.Input{Record: record})
	if err != nil {
		stdErr := errors.From(err)
		r.log.LogStep(ctx, "Error in verify_completion", map[string]interface{}{
			"error_type":    string(stdErr.Code),
			"error_message": stdErr.Message,
		})
		return nil, err
	}

	r.log.LogStep(ctx, "Received response from verify_completion", detailsOf(outcome))
	return outcome, nil
}

// requestApplicationUpdates logs the missing fields and pauses. Notifying
// the applicant and receiving new data is an external concern; the pause
// leaves a resubmission window between attempts.
func (r *processRun) requestApplicationUpdates(ctx context.Context, missingFields []string) {
	r.log.LogStep(ctx, "Requesting Application Updates", map[string]interface{}{
		"missing_fields": missingFields,
	})

	select {
	case <-time.After(config.GetDuration(r.orch.config.Process.UpdateRequestPause)):
	case <-ctx.Done():
	}
}

// ==========================
// Phase 2: Parallel Eligibility
// ==========================

func (r *processRun) parallelEligibility(ctx context.Context) *models.EligibilityDecision {
	phaseStart := time.Now()
	defer func() {
		r.observePhase(ctx, "eligibility", time.Since(phaseStart))
	}()

	r.log.LogStep(ctx, "Starting Parallel Eligibility Evaluation", nil)

	var (
		wg       sync.WaitGroup
		credit   *models.CreditEvaluation
		property *models.PropertyEvaluation
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		credit = r.verifyCreditHistory(ctx)
	}()
	go func() {
		defer wg.Done()
		property = r.evaluateProperty(ctx)
	}()
	wg.Wait()

	decision := &models.EligibilityDecision{
		IsEligible:         credit.MeetsRequirements && property.MeetsRequirements,
		CreditEvaluation:   credit,
		PropertyEvaluation: property,
	}

	r.log.LogStep(ctx, "Eligibility Evaluation Complete", map[string]interface{}{
		"is_eligible":         decision.IsEligible,
		"credit_evaluation":   detailsOf(credit),
		"property_evaluation": detailsOf(property),
	})
	return decision
}

func (r *processRun) verifyCreditHistory(ctx context.Context) *models.CreditEvaluation {
	r.log.LogStep(ctx, "Starting Credit History Verification", nil)

	branchCtx, cancel := context.WithTimeout(ctx, r.orch.branchTimeout(evaluateeligibility.TaskType))
	defer cancel()

	type result struct {
		out *evaluateeligibility.Output
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		out, err := r.orch.eligibility.Execute(branchCtx, &evaluateeligibility.Input{Record: r.app.CreditRecord()})
		resultCh <- result{out: out, err: err}
	}()

	var evaluation *models.CreditEvaluation
	select {
	case res := <-resultCh:
		if res.err != nil {
			evaluation = r.degradedCreditEvaluation(res.err)
		} else {
			evaluation = res.out
		}
	case <-branchCtx.Done():
		evaluation = r.degradedCreditEvaluation(errors.NewProcessTimeoutError("credit history verification"))
	}

	r.log.LogStep(ctx, "Credit History Verification Complete", detailsOf(evaluation))
	return evaluation
}

// degradedCreditEvaluation converts a branch error into a failing branch
// result so it never crosses the join barrier.
func (r *processRun) degradedCreditEvaluation(err error) *models.CreditEvaluation {
	stdErr := errors.From(err)
	metrics.PhaseFailures.WithLabelValues("eligibility", string(stdErr.Code)).Inc()
	return &models.CreditEvaluation{
		ApplicationID:     r.app.ApplicationID,
		MeetsRequirements: false,
		IsEligible:        false,
		Error:             stdErr.Error(),
	}
}

func (r *processRun) evaluateProperty(ctx context.Context) *models.PropertyEvaluation {
	r.log.LogStep(ctx, "Starting Property Evaluation", nil)

	propertyRecord := r.app.PropertyRecord()
	r.log.LogStep(ctx, "Property Data", propertyRecord)

	branchCtx, cancel := context.WithTimeout(ctx, r.orch.branchTimeout(evaluateproperty.TaskType))
	defer cancel()

	type result struct {
		out *evaluateproperty.Output
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		out, err := r.orch.property.Execute(branchCtx, &evaluateproperty.Input{Record: propertyRecord})
		resultCh <- result{out: out, err: err}
	}()

	var evaluation *models.PropertyEvaluation
	select {
	case res := <-resultCh:
		if res.err != nil {
			evaluation = r.degradedPropertyEvaluation(res.err)
		} else {
			evaluation = res.out
		}
	case <-branchCtx.Done():
		evaluation = r.degradedPropertyEvaluation(errors.NewProcessTimeoutError("property evaluation"))
	}

	r.log.LogStep(ctx, "Property Evaluation Complete", detailsOf(evaluation))
	return evaluation
}

func (r *processRun) degradedPropertyEvaluation(err error) *models.PropertyEvaluation {
	stdErr := errors.From(err)
	metrics.PhaseFailures.WithLabelValues("eligibility", string(stdErr.Code)).Inc()
	return &models.PropertyEvaluation{
		ApplicationID:     r.app.ApplicationID,
		MeetsRequirements: false,
		Error:             stdErr.Error(),
	}
}

// ==========================
// Phase 3: Agreement Chain
// ==========================

func (r *processRun) agreementChain(ctx context.Context) (*models.ProcessSummary, error) {
	phaseStart := time.Now()
	defer func() {
		r.observePhase(ctx, "agreement", time.Since(phaseStart))
	}()

	r.log.LogStep(ctx, "Starting Reimbursement Agreement Process", nil)

	agreement, err := r.orch.agreement.Execute(ctx, &prepareagreement.Input{Record: r.app.AgreementRecord()})
	if err != nil {
		return nil, err
	}
	r.log.LogStep(ctx, "Reimbursement Agreement Prepared", detailsOf(agreement))

	r.log.LogStep(ctx, "Verifying Agreement Compliance", nil)
	decision, err := r.orch.compliance.Execute(ctx, &verifyagreement.Input{
		ApplicationID: r.app.ApplicationID,
		Agreement:     agreement.AgreementDetails,
	})
	if err != nil {
		return nil, err
	}
	r.log.LogStep(ctx, "Agreement Compliance Verified", detailsOf(decision))

	if !decision.Approved {
		r.app.UpdateStatus(models.StatusRejected, decision.Reason)
		return r.finalize(ctx, models.StatusRejected, &models.ProcessSummary{
			RejectionReason:  decision.Reason,
			AgreementDetails: agreement.AgreementDetails,
		}), nil
	}

	notification := r.buildNotification(ctx, agreement.AgreementDetails)
	r.app.UpdateStatus(models.StatusCompleted, "agreement compliant")
	return r.finalize(ctx, models.StatusCompleted, &models.ProcessSummary{
		AgreementDetails: agreement.AgreementDetails,
		Notification:     notification,
	}), nil
}

// buildNotification constructs the approval message. Failures are logged
// and swallowed: the application is approved either way, only the message
// is missing.
func (r *processRun) buildNotification(ctx context.Context, details *models.AgreementDetails) *models.ApprovalNotification {
	if r.orch.notification == nil {
		return nil
	}

	output, err := r.orch.notification.Execute(ctx, &buildnotification.Input{
		ApplicationID: r.app.ApplicationID,
		Data: map[string]interface{}{
			"client_name":        r.app.ClientName(),
			"loan_amount":        details.LoanAmount,
			"monthly_payment":    details.MonthlyPayment,
			"total_payments":     details.TotalPayments,
			"first_payment_date": details.FirstPaymentDate,
		},
	})
	if err != nil {
		stdErr := errors.From(err)
		r.log.LogStep(ctx, "Notification Build Failed", map[string]interface{}{
			"error_type":    string(stdErr.Code),
			"error_message": stdErr.Message,
		})
		return nil
	}

	r.log.LogStep(ctx, "Approval Notification Built", map[string]interface{}{
		"template_id": output.TemplateID,
		"subject":     output.Subject,
	})
	return output
}

// ==========================
// Finalization
// ==========================

// finalize completes the summary with the identity fields every outcome
// carries and closes the audit trail. Called exactly once per run.
func (r *processRun) finalize(ctx context.Context, finalStatus models.ApplicationStatus, summary *models.ProcessSummary) *models.ProcessSummary {
	summary.ApplicationID = r.app.ApplicationID
	summary.FinalStatus = finalStatus
	summary.ClientName = r.app.ClientName()
	summary.LoanAmount = r.app.LoanAmountString()
	summary.VerificationAttempts = r.attempts
	summary.ProcessCompletionTime = time.Now().Format(time.RFC3339)
	summary.StatusHistory = r.app.History

	r.log.Finalize(ctx, string(finalStatus), summary)
	return summary
}

// fail records the error and finalizes with an ERROR status. All paths
// out of a run converge on ProcessSummary; errors never escape.
func (r *processRun) fail(ctx context.Context, err error) *models.ProcessSummary {
	stdErr := errors.From(err)
	r.log.LogStep(ctx, "Process Error", map[string]interface{}{
		"error_type":    string(stdErr.Code),
		"error_message": stdErr.Message,
	})

	r.app.UpdateStatus(models.StatusError, stdErr.Message)
	return r.finalize(ctx, models.StatusError, &models.ProcessSummary{
		ErrorKind:    string(stdErr.Code),
		ErrorMessage: stdErr.Message,
	})
}

func (r *processRun) observePhase(ctx context.Context, phase string, elapsed time.Duration) {
	metrics.PhaseDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
	if r.orch.obs != nil {
		r.orch.obs.RecordPhaseDuration(ctx, phase, elapsed)
	}
}

// detailsOf flattens a result struct into the audit step detail map via
// its JSON form, so trail entries carry the wire field names.
func detailsOf(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{"value": fmt.Sprintf("%v", v)}
	}
	var details map[string]interface{}
	if err := json.Unmarshal(data, &details); err != nil {
		return map[string]interface{}{"value": string(data)}
	}
	return details
}
