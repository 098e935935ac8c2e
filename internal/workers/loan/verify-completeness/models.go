// internal/workers/loan/verify-completeness/models.go
package verifycompleteness

import "loanflow/internal/models"

type Input struct {
	Record map[string]interface{} `json:"record"`
}

// Output is the completeness result consumed by the workflow gateway.
type Output = models.VerificationOutcome
