// internal/intake/intake.go

// Package intake turns JSON submissions into loan applications ready
// for the workflow.
package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"loanflow/internal/common/logger"
	"loanflow/internal/common/validation"
	"loanflow/internal/models"
)

var ErrInvalidSubmission = errors.New("INVALID_SUBMISSION")

// moneyFields are coerced to decimals when they parse; values that do
// not parse stay raw so completeness verification can report them.
var moneyFields = []string{"loan_amount", "monthly_income", "monthly_expenses"}

// Warning flags a suspicious but acceptable field value. Intake never
// rejects a record over one; the workflow owns that decision.
type Warning struct {
	ApplicationID string `json:"application_id"`
	Field         string `json:"field"`
	Message       string `json:"message"`
}

// Submission is a parsed intake payload.
type Submission struct {
	BatchID      string
	Applications []*models.LoanApplication
	Warnings     []Warning
}

type Intake struct {
	logger logger.Logger
}

func New(log logger.Logger) *Intake {
	return &Intake{
		logger: log.WithFields(map[string]interface{}{"component": "intake"}),
	}
}

// LoadFile reads a submission file and parses it.
func (i *Intake) LoadFile(path string) (*Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidSubmission, path, err)
	}
	return i.Parse(data)
}

// Parse validates the submission envelope and builds one application
// per record. Only the envelope is rejected here: a record with missing
// or malformed fields still becomes an application, because reporting
// those problems belongs to completeness verification.
func (i *Intake) Parse(data []byte) (*Submission, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalidSubmission, err)
	}

	result := validation.ValidateInput(raw, validation.SubmissionSchema())
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSubmission, strings.Join(result.GetErrorMessages(), "; "))
	}

	submission := &Submission{}
	if batchID, ok := raw["batch_id"].(string); ok {
		submission.BatchID = batchID
	}

	records, _ := raw["applications"].([]interface{})
	for idx, record := range records {
		fields, ok := record.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: applications[%d] is not an object", ErrInvalidSubmission, idx)
		}

		app := models.NewApplication(coerceFields(fields))
		app.UpdateStatus(models.StatusReceived, "submission accepted")
		submission.Warnings = append(submission.Warnings, i.advisoryWarnings(app)...)
		submission.Applications = append(submission.Applications, app)
	}

	i.logger.Info("submission parsed", map[string]interface{}{
		"batchId":      submission.BatchID,
		"applications": len(submission.Applications),
		"warnings":     len(submission.Warnings),
	})
	return submission, nil
}

// coerceFields copies the record, replacing money values and the loan
// term with typed values where they parse.
func coerceFields(fields map[string]interface{}) map[string]interface{} {
	coerced := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		coerced[key] = value
	}

	for _, field := range moneyFields {
		if raw, ok := coerced[field]; ok {
			if amount, err := models.MoneyValue(raw); err == nil {
				coerced[field] = amount
			}
		}
	}
	if raw, ok := coerced["loan_duration_years"]; ok {
		if years, err := models.IntValue(raw); err == nil {
			coerced["loan_duration_years"] = years
		}
	}
	return coerced
}

func (i *Intake) advisoryWarnings(app *models.LoanApplication) []Warning {
	var warnings []Warning

	if email, ok := app.Fields["email"].(string); ok && email != "" && !validation.ValidateEmail(email) {
		warnings = append(warnings, Warning{
			ApplicationID: app.ApplicationID,
			Field:         "email",
			Message:       "value does not look like an email address",
		})
	}
	if phone, ok := app.Fields["phone"].(string); ok && phone != "" && !validation.ValidatePhone(phone) {
		warnings = append(warnings, Warning{
			ApplicationID: app.ApplicationID,
			Field:         "phone",
			Message:       "value does not look like a phone number",
		})
	}

	for _, warning := range warnings {
		i.logger.Warn("suspicious submission value", map[string]interface{}{
			"applicationId": warning.ApplicationID,
			"field":         warning.Field,
			"message":       warning.Message,
		})
	}
	return warnings
}
