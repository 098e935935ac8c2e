// internal/audit/process_log.go

// Package audit records the ordered step trail of each workflow run and
// mirrors it to the configured sinks.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"loanflow/internal/common/logger"
	"loanflow/internal/common/metrics"

	"github.com/shopspring/decimal"
)

// Step is one recorded entry in a process trail.
type Step struct {
	Timestamp string                 `json:"timestamp"`
	Step      string                 `json:"step"`
	Details   map[string]interface{} `json:"details"`
}

// Trail is the serializable state of one process log.
type Trail struct {
	ProcessID        string      `json:"process_id"`
	StartTime        string      `json:"start_time"`
	Steps            []Step      `json:"steps"`
	CompletionStatus string      `json:"completion_status,omitempty"`
	EndTime          string      `json:"end_time,omitempty"`
	ProcessDuration  float64     `json:"process_duration,omitempty"` // seconds
	Summary          interface{} `json:"summary,omitempty"`
}

// ProcessLog is the audit recorder for a single workflow run. Steps are
// appended in order under a mutex and the full trail is flushed to every
// sink after each append. Sink failures never interrupt the workflow.
type ProcessLog struct {
	mu    sync.Mutex
	log   logger.Logger
	sinks []Sink
	start time.Time
	trail Trail
}

// NewProcessLog starts a trail for the given process.
func NewProcessLog(processID string, log logger.Logger, sinks ...Sink) *ProcessLog {
	start := time.Now().UTC()
	return &ProcessLog{
		log:   log.WithFields(map[string]interface{}{"process_id": processID}),
		sinks: sinks,
		start: start,
		trail: Trail{
			ProcessID: processID,
			StartTime: start.Format(time.RFC3339),
			Steps:     []Step{},
		},
	}
}

// ProcessID returns the id the trail is recorded under.
func (p *ProcessLog) ProcessID() string {
	return p.trail.ProcessID
}

// LogStep appends a step with optional details and flushes the trail.
func (p *ProcessLog) LogStep(ctx context.Context, step string, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	normalized, _ := normalizeDetails(details).(map[string]interface{})

	p.log.Info(step, normalized)

	p.mu.Lock()
	entry := Step{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Step:      step,
		Details:   normalized,
	}
	p.trail.Steps = append(p.trail.Steps, entry)
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.dispatch(ctx, entry, snapshot)
}

// Finalize closes the trail with the final status and run summary, and
// appends the closing "Process Completed" step.
func (p *ProcessLog) Finalize(ctx context.Context, finalStatus string, summary interface{}) {
	end := time.Now().UTC()
	duration := end.Sub(p.start).Seconds()

	p.mu.Lock()
	p.trail.CompletionStatus = finalStatus
	p.trail.EndTime = end.Format(time.RFC3339)
	p.trail.ProcessDuration = duration
	p.trail.Summary = summary
	p.mu.Unlock()

	p.LogStep(ctx, "Process Completed", map[string]interface{}{
		"final_status":     finalStatus,
		"duration_seconds": duration,
		"summary":          summary,
	})
}

// Steps returns a copy of the recorded steps.
func (p *ProcessLog) Steps() []Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	steps := make([]Step, len(p.trail.Steps))
	copy(steps, p.trail.Steps)
	return steps
}

// Snapshot returns the current trail serialized as indented JSON.
func (p *ProcessLog) Snapshot() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *ProcessLog) snapshotLocked() []byte {
	data, err := json.MarshalIndent(p.trail, "", "  ")
	if err != nil {
		// Details are always JSON-compatible after normalization; keep a
		// minimal trail rather than losing the run entirely.
		data = []byte(fmt.Sprintf(`{"process_id": %q, "error": %q}`, p.trail.ProcessID, err.Error()))
	}
	return data
}

func (p *ProcessLog) dispatch(ctx context.Context, entry Step, snapshot []byte) {
	for _, sink := range p.sinks {
		if err := sink.RecordStep(ctx, p.trail.ProcessID, entry); err != nil {
			metrics.AuditSinkFailures.WithLabelValues(sink.Name()).Inc()
			p.log.Warn("audit sink step write failed", map[string]interface{}{
				"sink":  sink.Name(),
				"error": err.Error(),
			})
		}
		if err := sink.Flush(ctx, p.trail.ProcessID, snapshot); err != nil {
			metrics.AuditSinkFailures.WithLabelValues(sink.Name()).Inc()
			p.log.Warn("audit sink flush failed", map[string]interface{}{
				"sink":  sink.Name(),
				"error": err.Error(),
			})
		}
	}
}

// normalizeDetails renders decimal values as strings so trails marshal
// the way summaries report amounts.
func normalizeDetails(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = normalizeDetails(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeDetails(item)
		}
		return out
	case decimal.Decimal:
		return v.String()
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		return v.String()
	default:
		return value
	}
}

// LoadTrail reads a previously flushed trail back from disk.
func LoadTrail(path string) (*Trail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read process log %s: %w", path, err)
	}
	var trail Trail
	if err := json.Unmarshal(data, &trail); err != nil {
		return nil, fmt.Errorf("parse process log %s: %w", path, err)
	}
	return &trail, nil
}
