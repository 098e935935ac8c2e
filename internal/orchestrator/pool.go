// internal/orchestrator/pool.go
package orchestrator

import (
	"context"
	"sync"
	"time"

	"loanflow/internal/common/config"
	"loanflow/internal/common/logger"
	"loanflow/internal/models"

	"github.com/google/uuid"
)

// Pool fans a batch of applications out over a fixed number of workers,
// each running independent orchestrator runs. Runs share no mutable
// state, so the pool only coordinates scheduling and aggregation.
type Pool struct {
	orch    *Orchestrator
	logger  logger.Logger
	workers int
	queue   int
}

func NewPool(orch *Orchestrator, log logger.Logger, cfg config.BatchConfig) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = workers
	}
	return &Pool{
		orch:    orch,
		logger:  log.WithFields(map[string]interface{}{"component": "batch-pool"}),
		workers: workers,
		queue:   queue,
	}
}

// Run processes every application and aggregates the outcomes into a
// BatchReport. Cancelling the context stops feeding new applications;
// runs already started still finish and are reported.
func (p *Pool) Run(ctx context.Context, batchID string, apps []*models.LoanApplication) *models.BatchReport {
	if batchID == "" {
		batchID = "BATCH_" + uuid.New().String()
	}

	report := &models.BatchReport{
		BatchID:   batchID,
		StartedAt: time.Now().UTC(),
		ByStatus:  make(map[string]int),
	}

	p.logger.Info("batch started", map[string]interface{}{
		"batchId":      batchID,
		"applications": len(apps),
		"workers":      p.workers,
	})

	type outcome struct {
		summary *models.ProcessSummary
		elapsed time.Duration
	}

	jobs := make(chan *models.LoanApplication, p.queue)
	outcomes := make(chan outcome, len(apps))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for app := range jobs {
				started := time.Now()
				summary := p.orch.ProcessApplication(ctx, app)
				outcomes <- outcome{summary: summary, elapsed: time.Since(started)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, app := range apps {
			select {
			case jobs <- app:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(outcomes)

	var durations []time.Duration
	for out := range outcomes {
		report.Summaries = append(report.Summaries, out.summary)
		report.ByStatus[string(out.summary.FinalStatus)]++
		durations = append(durations, out.elapsed)
	}
	report.Total = len(report.Summaries)
	report.CompletedAt = time.Now().UTC()
	aggregateDurations(report, durations)

	p.logger.Info("batch complete", map[string]interface{}{
		"batchId":    batchID,
		"total":      report.Total,
		"byStatus":   report.ByStatus,
		"throughput": report.ThroughputPerSecond,
	})
	return report
}

func aggregateDurations(report *models.BatchReport, durations []time.Duration) {
	if len(durations) == 0 {
		return
	}

	minD, maxD := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < minD {
			minD = d
		}
		if d > maxD {
			maxD = d
		}
		sum += d
	}

	report.MinDurationSeconds = minD.Seconds()
	report.MaxDurationSeconds = maxD.Seconds()
	report.AvgDurationSeconds = (sum / time.Duration(len(durations))).Seconds()

	if elapsed := report.CompletedAt.Sub(report.StartedAt).Seconds(); elapsed > 0 {
		report.ThroughputPerSecond = float64(report.Total) / elapsed
	}
}
