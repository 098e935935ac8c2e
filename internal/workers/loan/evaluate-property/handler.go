// internal/workers/loan/evaluate-property/handler.go
package evaluateproperty

import (
	"context"
	"fmt"

	"loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/models"

	"github.com/shopspring/decimal"
)

const (
	TaskType = "evaluate-property"
)

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

	applicationID := "UNKNOWN"
	if raw, ok := record["application_id"]; ok && raw != nil {
		applicationID = fmt.Sprintf("%v", raw)
	}

	loanAmount, err := models.MoneyValue(record["loan_amount"])
	if err != nil {
		return nil, errors.NewPropertyCheckFailedError(fmt.Sprintf("loan_amount: %v", err))
	}

	description := ""
	if raw, ok := record["property_description"]; ok && raw != nil {
		description = fmt.Sprintf("%v", raw)
	}

	// Simulated appraisal: the estimated value is derived from the
	// requested amount. A real evaluation would consult an appraiser.
	estimatedValue := loanAmount.Mul(decimal.NewFromFloat(h.config.ValueMultiplier))

	output := &Output{
		ApplicationID:      applicationID,
		MeetsRequirements:  true,
		PropertyValue:      estimatedValue.InexactFloat64(),
		LocationAssessment: "Favorable",
		RiskAssessment:     "Low",
	}

	h.logger.Info("property evaluated", map[string]interface{}{
		"applicationId":       applicationID,
		"propertyDescription": description,
		"propertyValue":       output.PropertyValue,
	})

	return output, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
