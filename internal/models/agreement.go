// internal/models/agreement.go
package models

// Agreement lifecycle statuses.
const (
	AgreementPending  = "PENDING_AGREEMENT"
	AgreementApproved = "AGREEMENT_APPROVED"
	AgreementRejected = "AGREEMENT_REJECTED"
)

// AgreementDetails carries the amortization terms of a prepared
// repayment agreement.
type AgreementDetails struct {
	LoanAmount         float64 `json:"loan_amount"`
	DurationYears      int     `json:"duration_years"`
	AnnualInterestRate float64 `json:"annual_interest_rate"`
	MonthlyPayment     float64 `json:"monthly_payment"`
	TotalPayments      int     `json:"total_payments"`
	FirstPaymentDate   string  `json:"first_payment_date"`
	TotalRepayment     float64 `json:"total_repayment"`
}

// AgreementResult is the output of agreement preparation.
type AgreementResult struct {
	ApplicationID    string            `json:"application_id"`
	AgreementDetails *AgreementDetails `json:"agreement_details"`
	Status           string            `json:"status"`
}

// ComplianceChecks holds the individual rule outcomes, keyed by rule name.
// All three keys are always present, whatever the decision.
type ComplianceChecks map[string]bool

// Names of the compliance rules, in evaluation order.
const (
	CheckMonthlyPayment = "monthly_payment"
	CheckLoanDuration   = "loan_duration"
	CheckRepaymentRatio = "repayment_ratio"
)

// ComplianceDecision is the result of verifying an agreement against the
// compliance rules. Reason names the first failed rule when not approved.
type ComplianceDecision struct {
	ApplicationID string           `json:"application_id"`
	Approved      bool             `json:"approved"`
	Checks        ComplianceChecks `json:"checks"`
	Reason        string           `json:"reason,omitempty"`
}

// ApprovalNotification is the customer-facing message payload built for a
// completed application. Construction only; delivery is handled elsewhere.
type ApprovalNotification struct {
	ApplicationID string                 `json:"application_id"`
	TemplateID    string                 `json:"template_id"`
	Subject       string                 `json:"subject"`
	Body          string                 `json:"body"`
	Data          map[string]interface{} `json:"data,omitempty"`
	BuiltAt       string                 `json:"built_at"`
}
