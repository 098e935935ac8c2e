// internal/workers/loan/evaluate-eligibility/models.go
package evaluateeligibility

import "loanflow/internal/models"

type Input struct {
	Record map[string]interface{} `json:"record"`
}

// Output is the credit branch result joined at the eligibility gateway.
type Output = models.CreditEvaluation
