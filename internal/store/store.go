// internal/store/store.go

// Package store persists finished process summaries to Postgres and
// keeps recent ones in Redis for cheap lookups.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"loanflow/internal/common/logger"
	"loanflow/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrSummaryNotFound      = errors.New("SUMMARY_NOT_FOUND")
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
	ErrDatabaseQueryFailed  = errors.New("DATABASE_QUERY_FAILED")
	ErrCacheUnavailable     = errors.New("CACHE_UNAVAILABLE")
)

const (
	summaryKeyPrefix   = "loan:summary:"
	processedKeyPrefix = "loan:processed:"
)

type Config struct {
	CacheTTL  time.Duration
	DedupeTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		CacheTTL:  5 * time.Minute,
		DedupeTTL: 24 * time.Hour,
	}
}

// SummaryStore writes one row per finished run into the
// process_summaries table (application_id, final status columns plus the
// full summary as JSONB) and mirrors the JSON into Redis. The Redis
// handle is optional; without it every read goes to Postgres and dedupe
// reports every application as new.
type SummaryStore struct {
	config *Config
	db     *sql.DB
	cache  *redis.Client
	logger logger.Logger
}

func New(config *Config, db *sql.DB, cache *redis.Client, log logger.Logger) *SummaryStore {
	if config == nil {
		config = LoadConfig()
	}
	return &SummaryStore{
		config: config,
		db:     db,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"component": "summary-store"}),
	}
}

// Save inserts the summary row and refreshes the cache entry.
func (s *SummaryStore) Save(ctx context.Context, summary *models.ProcessSummary) error {
	if summary == nil || summary.ApplicationID == "" {
		return fmt.Errorf("%w: summary with application id required", ErrDatabaseInsertFailed)
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: marshal summary: %v", ErrDatabaseInsertFailed, err)
	}

	completedAt := summary.ProcessCompletionTime
	if completedAt == "" {
		completedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO process_summaries (
			application_id, final_status, client_name, loan_amount,
			verification_attempts, rejection_reason, error_kind, summary, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		summary.ApplicationID,
		string(summary.FinalStatus),
		summary.ClientName,
		summary.LoanAmount,
		summary.VerificationAttempts,
		summary.RejectionReason,
		summary.ErrorKind,
		summaryJSON,
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	s.cacheSummary(ctx, summary.ApplicationID, summaryJSON)

	s.logger.Info("summary stored", map[string]interface{}{
		"applicationId": summary.ApplicationID,
		"finalStatus":   string(summary.FinalStatus),
	})
	return nil
}

// Get returns the latest summary for an application, serving from Redis
// when possible and backfilling the cache after a database read.
func (s *SummaryStore) Get(ctx context.Context, applicationID string) (*models.ProcessSummary, error) {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, summaryKeyPrefix+applicationID).Result(); err == nil {
			var summary models.ProcessSummary
			if err := json.Unmarshal([]byte(val), &summary); err == nil {
				return &summary, nil
			}
		}
	}

	var summaryJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT summary FROM process_summaries
		WHERE application_id = $1
		ORDER BY completed_at DESC
		LIMIT 1`, applicationID).Scan(&summaryJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSummaryNotFound, applicationID)
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseQueryFailed, err)
	}

	var summary models.ProcessSummary
	if err := json.Unmarshal(summaryJSON, &summary); err != nil {
		return nil, fmt.Errorf("%w: parse stored summary: %v", ErrDatabaseQueryFailed, err)
	}

	s.cacheSummary(ctx, applicationID, summaryJSON)
	return &summary, nil
}

// MarkProcessed records the application id for dedupe and reports
// whether this is the first time it was seen.
func (s *SummaryStore) MarkProcessed(ctx context.Context, applicationID string) (bool, error) {
	if s.cache == nil {
		return true, nil
	}

	first, err := s.cache.SetNX(ctx, processedKeyPrefix+applicationID, "1", s.config.DedupeTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%w: dedupe check: %v", ErrCacheUnavailable, err)
	}
	return first, nil
}

// cacheSummary mirrors the summary JSON into Redis. Cache failures are
// warnings; Postgres already holds the row.
func (s *SummaryStore) cacheSummary(ctx context.Context, applicationID string, summaryJSON []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, summaryKeyPrefix+applicationID, summaryJSON, s.config.CacheTTL).Err(); err != nil {
		s.logger.Warn("summary cache write failed", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
	}
}
