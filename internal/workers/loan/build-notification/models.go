// internal/workers/loan/build-notification/models.go
package buildnotification

import "loanflow/internal/models"

type Input struct {
	ApplicationID string                 `json:"application_id"`
	TemplateID    string                 `json:"template_id,omitempty"`
	Data          map[string]interface{} `json:"data"`
}

// Output is the shared notification payload attached to the process
// summary. Construction only; delivery is handled elsewhere.
type Output = models.ApprovalNotification

// TemplateDefinition is one entry of the notification template registry.
// Subject and Body may embed {{key}} placeholders; Fields is an optional
// structured payload whose whole-value placeholders are substituted too.
type TemplateDefinition struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Schema  map[string]interface{} `json:"schema"`
	Subject string                 `json:"subject"`
	Body    string                 `json:"body"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	Version string                 `json:"version"`
}
