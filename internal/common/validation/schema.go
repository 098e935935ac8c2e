package validation

import (
	"fmt"
	"regexp"
)

// JSONSchema is the declarative shape submissions and registry entries
// are validated against. Only the constraints the pipeline's schemas
// use are supported: required keys, primitive types, enums, array items
// and nested objects.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// GetErrorMessages returns one "field: message" line per violation.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// SubmissionSchema describes the structural shape of an intake submission
// file. It deliberately types only the envelope: per-field presence and
// numeric parsing belong to the completeness verification phase, so a
// malformed application must still pass intake and reach the workflow.
func SubmissionSchema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"applications": {
				Type:        "array",
				Description: "Application records to process",
				Items:       &Property{Type: "object"},
			},
			"batch_id": {
				Type:        "string",
				Description: "Optional caller-supplied batch identifier",
			},
		},
		Required:             []string{"applications"},
		AdditionalProperties: true,
	}
}

// ValidateInput checks input against the schema and collects every
// violation instead of stopping at the first.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	errs := validateObject("", input, schema)
	return &ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

func validateObject(path string, input map[string]interface{}, schema JSONSchema) []ValidationError {
	var errs []ValidationError

	for _, required := range schema.Required {
		if _, exists := input[required]; !exists {
			errs = append(errs, ValidationError{
				Field:   joinPath(path, required),
				Message: "required field missing",
				Code:    "REQUIRED_FIELD_MISSING",
			})
		}
	}

	for name, value := range input {
		prop, declared := schema.Properties[name]
		if !declared {
			if !schema.AdditionalProperties {
				errs = append(errs, ValidationError{
					Field:   joinPath(path, name),
					Message: "field not allowed in schema",
					Code:    "EXTRA_FIELD",
				})
			}
			continue
		}
		errs = append(errs, validateValue(joinPath(path, name), value, prop)...)
	}

	return errs
}

func validateValue(path string, value interface{}, prop Property) []ValidationError {
	if err := checkType(value, prop.Type); err != nil {
		// Remaining checks assume the declared type.
		return []ValidationError{{Field: path, Message: err.Error(), Code: "INVALID_TYPE"}}
	}

	var errs []ValidationError

	if str, ok := value.(string); ok && len(prop.Enum) > 0 && !containsString(prop.Enum, str) {
		errs = append(errs, ValidationError{
			Field:   path,
			Message: fmt.Sprintf("value must be one of %v", prop.Enum),
			Code:    "INVALID_ENUM_VALUE",
		})
	}

	if items, ok := value.([]interface{}); ok && prop.Items != nil {
		for i, item := range items {
			errs = append(errs, validateValue(fmt.Sprintf("%s[%d]", path, i), item, *prop.Items)...)
		}
	}

	if obj, ok := value.(map[string]interface{}); ok && len(prop.Properties) > 0 {
		nested := JSONSchema{
			Type:                 "object",
			Properties:           prop.Properties,
			Required:             prop.Required,
			AdditionalProperties: true,
		}
		errs = append(errs, validateObject(path, obj, nested)...)
	}

	return errs
}

func checkType(value interface{}, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case "integer":
		switch value.(type) {
		case int, int32, int64:
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	}
	return nil
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// ValidateActivityNaming enforces the lowercase dash-separated form the
// activity registry uses for evaluator ids.
func ValidateActivityNaming(activityId string) error {
	namingPattern := regexp.MustCompile(`^[a-z]+(-[a-z]+)*$`)
	if !namingPattern.MatchString(activityId) {
		return fmt.Errorf("activity ID must be lowercase dash-separated (e.g., verify-completeness)")
	}
	return nil
}

// ValidateEmail checks basic email shape for intake warnings.
func ValidateEmail(email string) bool {
	emailPattern := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailPattern.MatchString(email)
}

// ValidatePhone checks basic phone shape for intake warnings.
func ValidatePhone(phone string) bool {
	phonePattern := regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
	return phonePattern.MatchString(phone)
}
