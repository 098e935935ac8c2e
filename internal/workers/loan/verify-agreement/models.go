// internal/workers/loan/verify-agreement/models.go
package verifyagreement

import "loanflow/internal/models"

// Input carries a prepared agreement for compliance verification.
type Input struct {
	ApplicationID string                   `json:"application_id"`
	Agreement     *models.AgreementDetails `json:"agreement"`
}

// Output is the shared compliance decision consumed by the orchestrator.
type Output = models.ComplianceDecision
