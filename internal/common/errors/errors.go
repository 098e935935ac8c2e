// Package errors provides standardized error handling for the loan processing pipeline.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Loan pipeline error codes, grouped by phase.
const (
	ErrCodeIncompleteData      ErrorCode = "INCOMPLETE_DATA"
	ErrCodeInvalidFieldValues  ErrorCode = "INVALID_FIELD_VALUES"
	ErrCodeInvalidLoanTerm     ErrorCode = "INVALID_LOAN_TERM"
	ErrCodeInvalidLoanAmount   ErrorCode = "INVALID_LOAN_AMOUNT"

	ErrCodeEligibilityCheckFailed ErrorCode = "ELIGIBILITY_CHECK_FAILED"
	ErrCodePropertyCheckFailed    ErrorCode = "PROPERTY_CHECK_FAILED"

	ErrCodeAgreementPreparationFailed ErrorCode = "AGREEMENT_PREPARATION_FAILED"
	ErrCodeComplianceRulesInvalid     ErrorCode = "COMPLIANCE_RULES_INVALID"

	ErrCodeTemplateNotFound         ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateValidationFailed ErrorCode = "TEMPLATE_VALIDATION_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDuplicateApplication     ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeCacheUnavailable         ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeAuditSinkFailed          ErrorCode = "AUDIT_SINK_FAILED"

	ErrCodeProcessTimeout ErrorCode = "PROCESS_TIMEOUT"
	ErrCodeUnexpected     ErrorCode = "UNEXPECTED_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewIncompleteDataError creates a non-retryable data completeness error.
func NewIncompleteDataError(missingFields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIncompleteData,
		Message:   "Application data is incomplete",
		Details:   fmt.Sprintf("missing: %s", strings.Join(missingFields, ", ")),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFieldValuesError creates a non-retryable field validation error.
func NewInvalidFieldValuesError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFieldValues,
		Message:   "Application contains invalid field values",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidLoanTermError creates a non-retryable loan term error.
func NewInvalidLoanTermError(durationYears int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidLoanTerm,
		Message:   "Loan duration must be a positive number of years",
		Details:   fmt.Sprintf("durationYears: %d", durationYears),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidLoanAmountError creates a non-retryable loan amount error.
func NewInvalidLoanAmountError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidLoanAmount,
		Message:   "Loan amount is missing or not a valid monetary value",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEligibilityCheckFailedError creates a retryable eligibility evaluation error.
func NewEligibilityCheckFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEligibilityCheckFailed,
		Message:   "Eligibility evaluation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPropertyCheckFailedError creates a non-retryable property evaluation error.
func NewPropertyCheckFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePropertyCheckFailed,
		Message:   "Property evaluation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgreementPreparationFailedError creates a non-retryable agreement error.
func NewAgreementPreparationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAgreementPreparationFailed,
		Message:   "Reimbursement agreement preparation failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewComplianceRulesInvalidError creates a non-retryable rules table error.
func NewComplianceRulesInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeComplianceRulesInvalid,
		Message:   "Compliance rules table is missing or malformed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Notification template not found",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateValidationFailedError creates a non-retryable template validation error.
func NewTemplateValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateValidationFailed,
		Message:   "Data validation failed for notification template",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateApplicationError creates a non-retryable duplicate application error.
func NewDuplicateApplicationError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateApplication,
		Message:   "Application has already been processed",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Result cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditSinkFailedError creates a retryable audit sink error.
func NewAuditSinkFailedError(sink string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditSinkFailed,
		Message:   "Audit log sink write failed",
		Details:   fmt.Sprintf("sink: %s, error: %s", sink, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProcessTimeoutError creates a retryable phase timeout error.
func NewProcessTimeoutError(phase string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProcessTimeout,
		Message:   fmt.Sprintf("Phase '%s' exceeded its deadline", phase),
		Details:   fmt.Sprintf("phase: %s", phase),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnexpectedError wraps an arbitrary failure for the top-level handler.
func NewUnexpectedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnexpected,
		Message:   "Unexpected processing error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Top-Level Funnel Helpers
// ==========================

// From normalizes any error into a StandardError. Errors already carrying a
// code pass through unchanged; everything else becomes UNEXPECTED_ERROR. The
// orchestrator's single catch point uses this to stamp kind and message on
// ERROR outcomes.
func From(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if goerrors.As(err, &stdErr) {
		return stdErr
	}
	return NewUnexpectedError(err)
}

// Kind returns the error code for an arbitrary error, UNEXPECTED_ERROR when
// it carries none.
func Kind(err error) ErrorCode {
	return From(err).Code
}

// ==========================
// 4. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeCacheUnavailable,
		ErrCodeAuditSinkFailed,
		ErrCodeEligibilityCheckFailed:
		return 3 // Retryable technical errors

	case ErrCodeProcessTimeout:
		return 2 // Partial retry for timeouts

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INCOMPLETE") || strings.Contains(codeStr, "INVALID"):
		return "DATA"
	case strings.Contains(codeStr, "ELIGIBILITY") || strings.Contains(codeStr, "PROPERTY"):
		return "ELIGIBILITY"
	case strings.Contains(codeStr, "AGREEMENT") || strings.Contains(codeStr, "COMPLIANCE"):
		return "AGREEMENT"
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "AUDIT"):
		return "STORAGE"
	case strings.Contains(codeStr, "TIMEOUT"):
		return "TIMEOUT"
	default:
		return "OTHER"
	}
}
