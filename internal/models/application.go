// internal/models/application.go
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApplicationStatus tracks an application through the approval workflow.
type ApplicationStatus string

const (
	// StatusReceived marks a submission accepted by intake before a
	// workflow run picks it up.
	StatusReceived           ApplicationStatus = "RECEIVED"
	StatusInitiated          ApplicationStatus = "INITIATED"
	StatusVerifying          ApplicationStatus = "VERIFYING"
	StatusEligibilityPending ApplicationStatus = "ELIGIBILITY_PENDING"
	StatusAgreementPending   ApplicationStatus = "AGREEMENT_PENDING"
	StatusCompleted          ApplicationStatus = "COMPLETED"
	StatusRejected           ApplicationStatus = "REJECTED"
	StatusRejectedIncomplete ApplicationStatus = "REJECTED_INCOMPLETE"
	StatusRejectedIneligible ApplicationStatus = "REJECTED_INELIGIBLE"
	StatusError              ApplicationStatus = "ERROR"
)

// IsTerminal reports whether the status ends the workflow.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusRejectedIncomplete, StatusRejectedIneligible, StatusError:
		return true
	}
	return false
}

// RequiredFields lists the nine fields an application must carry to be
// considered complete.
var RequiredFields = []string{
	"client_name", "address", "email", "phone",
	"loan_amount", "loan_duration_years", "property_description",
	"monthly_income", "monthly_expenses",
}

// StatusChange is one entry in an application's status history.
type StatusChange struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    ApplicationStatus `json:"status"`
	Comment   string            `json:"comment,omitempty"`
}

// LoanApplication holds a submitted application. Fields keeps the raw
// submission values untyped: missing and malformed entries must survive
// intake so the verification phase can report them.
type LoanApplication struct {
	ApplicationID string                 `json:"application_id"`
	Fields        map[string]interface{} `json:"fields"`
	Status        ApplicationStatus      `json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
	LastUpdated   time.Time              `json:"last_updated"`
	History       []StatusChange         `json:"history,omitempty"`
}

// NewApplication builds an application from raw submission fields. A
// caller-supplied application_id wins; otherwise one is generated.
func NewApplication(fields map[string]interface{}) *LoanApplication {
	if fields == nil {
		fields = map[string]interface{}{}
	}

	id := ""
	if raw, ok := fields["application_id"]; ok {
		if s, ok := raw.(string); ok && s != "" {
			id = s
		}
	}
	if id == "" {
		id = "LOAN_" + uuid.New().String()
	}

	now := time.Now().UTC()
	return &LoanApplication{
		ApplicationID: id,
		Fields:        fields,
		Status:        StatusInitiated,
		CreatedAt:     now,
		LastUpdated:   now,
		History: []StatusChange{
			{Timestamp: now, Status: StatusInitiated, Comment: "application created"},
		},
	}
}

// UpdateStatus moves the application to a new status and appends a
// history entry.
func (a *LoanApplication) UpdateStatus(status ApplicationStatus, comment string) {
	a.Status = status
	a.LastUpdated = time.Now().UTC()
	a.History = append(a.History, StatusChange{
		Timestamp: a.LastUpdated,
		Status:    status,
		Comment:   comment,
	})
}

// ClientName returns the client_name field, empty when absent.
func (a *LoanApplication) ClientName() string {
	return a.stringField("client_name")
}

// LoanAmountString returns the raw loan_amount rendered as text for
// summaries and logs.
func (a *LoanApplication) LoanAmountString() string {
	raw, ok := a.Fields["loan_amount"]
	if !ok || raw == nil {
		return ""
	}
	return fmt.Sprintf("%v", raw)
}

func (a *LoanApplication) stringField(key string) string {
	raw, ok := a.Fields[key]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", raw)
}

// CompletenessRecord projects the full application for completeness
// verification.
func (a *LoanApplication) CompletenessRecord() map[string]interface{} {
	record := map[string]interface{}{
		"application_id": a.ApplicationID,
	}
	for _, field := range RequiredFields {
		if raw, ok := a.Fields[field]; ok {
			record[field] = raw
		}
	}
	return record
}

// CreditRecord projects the financial fields for the credit history branch.
func (a *LoanApplication) CreditRecord() map[string]interface{} {
	return map[string]interface{}{
		"application_id":      a.ApplicationID,
		"client_name":         a.Fields["client_name"],
		"monthly_income":      a.Fields["monthly_income"],
		"monthly_expenses":    a.Fields["monthly_expenses"],
		"loan_amount":         a.Fields["loan_amount"],
		"loan_duration_years": a.Fields["loan_duration_years"],
	}
}

// PropertyRecord projects the property fields for the property branch.
func (a *LoanApplication) PropertyRecord() map[string]interface{} {
	return map[string]interface{}{
		"application_id":       a.ApplicationID,
		"property_description": a.Fields["property_description"],
		"loan_amount":          a.Fields["loan_amount"],
	}
}

// AgreementRecord projects the fields needed to prepare the repayment
// agreement.
func (a *LoanApplication) AgreementRecord() map[string]interface{} {
	return map[string]interface{}{
		"application_id":      a.ApplicationID,
		"loan_amount":         a.Fields["loan_amount"],
		"loan_duration_years": a.Fields["loan_duration_years"],
	}
}

// MoneyValue parses a raw submission value into a decimal amount. It
// accepts numbers and numeric strings, mirroring how submissions arrive
// on the wire.
func MoneyValue(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("value is missing")
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid monetary value %q", v)
		}
		return d, nil
	default:
		d, err := decimal.NewFromString(fmt.Sprintf("%v", raw))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid monetary value %v", raw)
		}
		return d, nil
	}
}

// IntValue parses a raw submission value into an integer. Fractional
// strings are rejected; fractional numbers are truncated.
func IntValue(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("value is missing")
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case float32:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid integer value %v", raw)
	}
}
