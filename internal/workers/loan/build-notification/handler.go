// internal/workers/loan/build-notification/handler.go
package buildnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"loanflow/internal/common/errors"
	"loanflow/internal/common/logger"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"
)

const TaskType = "build-notification"

type templateCacheEntry struct {
	template *TemplateDefinition
	loadedAt time.Time
}

type Handler struct {
	config *Config
	logger logger.Logger
	cache  map[string]*templateCacheEntry
	mu     sync.RWMutex
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		cache:  make(map[string]*templateCacheEntry),
	}
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	templateID := input.TemplateID
	if templateID == "" {
		templateID = h.config.DefaultTemplateID
	}

	template, err := h.loadTemplate(templateID)
	if err != nil {
		return nil, err
	}

	if err := h.validateData(template.Schema, input.Data); err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if len(template.Fields) > 0 {
		substituted := h.substituteFields(template.Fields, input.Data)
		fieldMap, ok := substituted.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected template fields to be an object after substitution, got %T for template ID: %s", substituted, templateID)
		}
		data = fieldMap
	}

	output := &Output{
		ApplicationID: input.ApplicationID,
		TemplateID:    templateID,
		Subject:       h.renderString(template.Subject, input.Data),
		Body:          h.renderString(template.Body, input.Data),
		Data:          data,
		BuiltAt:       time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Info("notification built", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"templateId":    templateID,
	})

	return output, nil
}

// renderString replaces every {{key}} placeholder embedded in s with the
// matching value from data. Unknown keys are left in place so a broken
// template is visible in the output rather than silently blanked.
func (h *Handler) renderString(s string, data map[string]interface{}) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.Index(s[start:], "}}")
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		end += start

		b.WriteString(s[:start])
		key := strings.TrimSpace(s[start+2 : end])
		if value := h.lookupNestedValue(data, key); value != nil {
			b.WriteString(formatValue(value))
		} else {
			b.WriteString(s[start : end+2])
		}
		s = s[end+2:]
	}
}

// substituteFields walks the template fields and replaces whole-value
// {{key}} placeholders with the matching input values.
func (h *Handler) substituteFields(templateData interface{}, inputData map[string]interface{}) interface{} {
	if templateData == nil {
		return nil
	}

	switch v := templateData.(type) {
	case string:
		if len(v) > 4 && strings.HasPrefix(v, "{{") && strings.HasSuffix(v, "}}") {
			key := strings.TrimSpace(v[2 : len(v)-2])
			return h.lookupNestedValue(inputData, key)
		}
		return v
	case map[string]interface{}:
		result := make(map[string]interface{})
		for k, v2 := range v {
			// Keep the key even when the value is missing so the
			// payload structure stays stable.
			result[k] = h.substituteFields(v2, inputData)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = h.substituteFields(item, inputData)
		}
		return result
	default:
		return v
	}
}

func (h *Handler) lookupNestedValue(data map[string]interface{}, key string) interface{} {
	parts := strings.Split(key, ".")
	current := interface{}(data)

	for _, part := range parts {
		currentMap, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}

		val, exists := currentMap[part]
		if !exists {
			return nil
		}

		current = val
	}

	return current
}

// formatValue renders a placeholder value for a customer-facing string.
// Floats go through decimal to avoid scientific notation on large amounts.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case decimal.Decimal:
		return v.String()
	case float64:
		return decimal.NewFromFloat(v).String()
	case float32:
		return decimal.NewFromFloat32(v).String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (h *Handler) loadTemplate(id string) (*TemplateDefinition, error) {
	h.mu.RLock()
	if entry, ok := h.cache[id]; ok && time.Since(entry.loadedAt) < h.config.CacheTTL {
		h.mu.RUnlock()
		return entry.template, nil
	}
	h.mu.RUnlock()

	registryBytes, err := os.ReadFile(h.config.TemplateRegistry)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var registry struct {
		Templates []TemplateDefinition `json:"templates"`
	}
	if err := json.Unmarshal(registryBytes, &registry); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	for _, t := range registry.Templates {
		if t.ID == id {
			h.mu.Lock()
			h.cache[id] = &templateCacheEntry{
				template: &t,
				loadedAt: time.Now(),
			}
			h.mu.Unlock()
			return &t, nil
		}
	}

	return nil, errors.NewTemplateNotFoundError(id)
}

func (h *Handler) validateData(schemaMap, data map[string]interface{}) error {
	if len(schemaMap) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.NewTemplateValidationFailedError(fmt.Sprintf("validation error: %v", err))
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return errors.NewTemplateValidationFailedError(fmt.Sprintf("data validation failed: %v", errs))
	}

	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
