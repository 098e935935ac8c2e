// internal/models/process.go
package models

import "time"

// ProcessSummary is the canonical outcome of one workflow run. It is
// produced for every application, whatever end the process reaches.
type ProcessSummary struct {
	ApplicationID         string            `json:"application_id"`
	FinalStatus           ApplicationStatus `json:"final_status"`
	ClientName            string            `json:"client_name"`
	LoanAmount            string            `json:"loan_amount"`
	VerificationAttempts  int               `json:"verification_attempts"`
	ProcessCompletionTime string            `json:"process_completion_time"`

	// Diagnostics, populated when the run produced them.
	RejectionReason  string                `json:"rejection_reason,omitempty"`
	AgreementDetails *AgreementDetails     `json:"agreement_details,omitempty"`
	Notification     *ApprovalNotification `json:"notification,omitempty"`
	StatusHistory    []StatusChange        `json:"status_history,omitempty"`
	ErrorKind        string                `json:"error_kind,omitempty"`
	ErrorMessage     string                `json:"error_message,omitempty"`
}

// BatchReport aggregates the summaries of a concurrent batch run.
type BatchReport struct {
	BatchID     string            `json:"batch_id"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Total       int               `json:"total"`
	ByStatus    map[string]int    `json:"by_status"`
	Summaries   []*ProcessSummary `json:"summaries"`

	// Per-run duration statistics across the batch.
	MinDurationSeconds  float64 `json:"min_duration_seconds"`
	AvgDurationSeconds  float64 `json:"avg_duration_seconds"`
	MaxDurationSeconds  float64 `json:"max_duration_seconds"`
	ThroughputPerSecond float64 `json:"throughput_per_second"`
}

// Count returns how many applications in the report ended in the given
// status.
func (r *BatchReport) Count(status ApplicationStatus) int {
	if r.ByStatus == nil {
		return 0
	}
	return r.ByStatus[string(status)]
}
