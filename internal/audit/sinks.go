// internal/audit/sinks.go
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"loanflow/internal/common/database"
)

// Sink receives the audit trail as it grows. RecordStep is called once
// per appended step, Flush with the full trail after every append.
// Implementations report errors to the caller; the process log downgrades
// them to warnings.
type Sink interface {
	Name() string
	RecordStep(ctx context.Context, processID string, step Step) error
	Flush(ctx context.Context, processID string, snapshot []byte) error
}

// FileSink persists the full trail to a JSON file after every append.
type FileSink struct {
	dir string
}

// NewFileSink creates the json_logs directory under baseDir and returns
// a sink writing one file per process.
func NewFileSink(baseDir string) (*FileSink, error) {
	dir := filepath.Join(baseDir, "json_logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) RecordStep(ctx context.Context, processID string, step Step) error {
	return nil
}

func (s *FileSink) Flush(ctx context.Context, processID string, snapshot []byte) error {
	if err := os.WriteFile(s.Path(processID), snapshot, 0o644); err != nil {
		return fmt.Errorf("write process log: %w", err)
	}
	return nil
}

// Path returns the JSON file the given process is flushed to.
func (s *FileSink) Path(processID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("loan_process_%s.json", processID))
}

// PostgresSink inserts one audit_log row per recorded step.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) RecordStep(ctx context.Context, processID string, step Step) error {
	detailsJSON, err := json.Marshal(step.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		step.Step,
		"loan_application",
		processID,
		detailsJSON,
		step.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("audit_log insert failed: %w", err)
	}
	return nil
}

func (s *PostgresSink) Flush(ctx context.Context, processID string, snapshot []byte) error {
	return nil
}

// ElasticsearchSink indexes the full trail under the process id, so each
// flush overwrites the previous document.
type ElasticsearchSink struct {
	client *database.ElasticsearchClient
	index  string
}

func NewElasticsearchSink(client *database.ElasticsearchClient, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

func (s *ElasticsearchSink) RecordStep(ctx context.Context, processID string, step Step) error {
	return nil
}

func (s *ElasticsearchSink) Flush(ctx context.Context, processID string, snapshot []byte) error {
	return s.client.Index(ctx, s.index, processID, snapshot)
}
