// internal/workers/loan/prepare-agreement/models.go
package prepareagreement

import "loanflow/internal/models"

// Input carries the agreement projection of a loan application record.
type Input struct {
	Record map[string]interface{} `json:"record"`
}

// Output is the shared agreement result consumed by the compliance
// verifier and the notification builder.
type Output = models.AgreementResult
