// internal/workers/loan/verify-completeness/handler.go
package verifycompleteness

import (
	"context"
	"fmt"

	"loanflow/internal/common/logger"
	"loanflow/internal/models"

	"github.com/shopspring/decimal"
)

const (
	TaskType = "verify-completeness"
)

// Money fields validated for parseability, in check order.
var numericFields = []string{"loan_amount", "monthly_income", "monthly_expenses"}

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	record := input.Record
	if len(record) == 0 {
		return &Output{
			ApplicationID: "",
			IsComplete:    false,
			MissingFields: []string{"All fields missing"},
			Status:        models.RecordIncomplete,
		}, nil
	}

	applicationID := "UNKNOWN"
	if raw, ok := record["application_id"]; ok {
		applicationID = fmt.Sprintf("%v", raw)
	}

	missingFields := []string{}
	for _, field := range models.RequiredFields {
		raw, ok := record[field]
		if !ok || h.isBlank(raw) {
			missingFields = append(missingFields, field)
		}
	}

	// Money fields must parse when present. A single marker is reported
	// however many fail, matching the summary format downstream expects.
	for _, field := range numericFields {
		raw, ok := record[field]
		if !ok || h.isBlank(raw) {
			continue
		}
		if _, err := models.MoneyValue(raw); err != nil {
			missingFields = append(missingFields, "Invalid numeric values")
			break
		}
	}

	isComplete := len(missingFields) == 0
	status := models.RecordIncomplete
	if isComplete {
		status = models.RecordComplete
	}

	h.logger.Info("completeness verified", map[string]interface{}{
		"applicationId": applicationID,
		"isComplete":    isComplete,
		"missingFields": missingFields,
	})

	return &Output{
		ApplicationID: applicationID,
		IsComplete:    isComplete,
		MissingFields: missingFields,
		Status:        status,
	}, nil
}

// isBlank reports whether a submitted value counts as absent: nil, empty
// strings, zero amounts and false flags all do.
func (h *Handler) isBlank(raw interface{}) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case int:
		return v == 0
	case int64:
		return v == 0
	case float32:
		return v == 0
	case float64:
		return v == 0
	case decimal.Decimal:
		return v.IsZero()
	default:
		return false
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
