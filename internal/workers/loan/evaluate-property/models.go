// internal/workers/loan/evaluate-property/models.go
package evaluateproperty

import "loanflow/internal/models"

// Input carries the property projection of a loan application record.
type Input struct {
	Record map[string]interface{} `json:"record"`
}

// Output is the shared property evaluation shape consumed by the
// eligibility gateway.
type Output = models.PropertyEvaluation
