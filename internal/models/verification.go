// internal/models/verification.go
package models

// Record-level statuses reported by the completeness check.
const (
	RecordComplete   = "COMPLETE"
	RecordIncomplete = "INCOMPLETE"
)

// VerificationOutcome is the result of one completeness verification pass.
type VerificationOutcome struct {
	ApplicationID string   `json:"application_id"`
	IsComplete    bool     `json:"is_complete"`
	MissingFields []string `json:"missing_fields"`
	Status        string   `json:"status"`
}

// CreditEvaluation is the credit history branch result. MeetsRequirements
// mirrors IsEligible so the eligibility gateway can join both branches on
// the same key; a branch failure sets it false and carries the detail in
// Error instead of aborting the evaluation.
type CreditEvaluation struct {
	ApplicationID     string          `json:"application_id"`
	MeetsRequirements bool            `json:"meets_requirements"`
	IsEligible        bool            `json:"is_eligible"`
	CreditScore       int             `json:"credit_score,omitempty"`
	DTIRatio          float64         `json:"dti_ratio,omitempty"`
	EvaluationDetails map[string]bool `json:"evaluation_details,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// PropertyEvaluation is the property branch result.
type PropertyEvaluation struct {
	ApplicationID      string  `json:"application_id"`
	MeetsRequirements  bool    `json:"meets_requirements"`
	PropertyValue      float64 `json:"property_value,omitempty"`
	LocationAssessment string  `json:"location_assessment,omitempty"`
	RiskAssessment     string  `json:"risk_assessment,omitempty"`
	Error              string  `json:"error,omitempty"`
}

// EligibilityDecision joins both branch results. IsEligible is true only
// when both branches meet requirements.
type EligibilityDecision struct {
	IsEligible         bool                `json:"is_eligible"`
	CreditEvaluation   *CreditEvaluation   `json:"credit_evaluation"`
	PropertyEvaluation *PropertyEvaluation `json:"property_evaluation"`
}
