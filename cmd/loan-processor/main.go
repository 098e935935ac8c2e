// cmd/loan-processor/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"loanflow/internal/audit"
	"loanflow/internal/common/config"
	"loanflow/internal/common/database"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/observability"
	"loanflow/internal/intake"
	"loanflow/internal/models"
	"loanflow/internal/orchestrator"
	"loanflow/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	mode := flag.String("mode", "single", "Run mode: single, batch, or file")
	filePath := flag.String("file", "", "Submission file for -mode file")
	count := flag.Int("count", 8, "Number of demo applications for -mode batch")
	batchID := flag.String("batch-id", "", "Caller-supplied batch identifier (generated when empty)")
	flag.Parse()

	zapLog := logger.New("info", "console")

	zapLog.Info("Starting loan processor...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild the logger with the configured level and format.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("loan-processor")
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		zapLog.Warn("Shutdown signal received, cancelling run...")
		cancel()
	}()

	// --- Init PostgreSQL with retry (optional backend) ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Elasticsearch with retry (optional backend) ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init Redis with retry (optional backend) ---
	var redisClient *database.RedisClient
	if cfg.Database.Redis.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Audit Sinks ---
	var sinks []audit.Sink
	var fileSink *audit.FileSink
	if cfg.Audit.FileEnabled {
		fileSink, err = audit.NewFileSink(cfg.Audit.Directory)
		if err != nil {
			zapLog.Fatal("audit file sink failed", zap.Error(err))
		}
		sinks = append(sinks, fileSink)
	}
	if cfg.Audit.PostgresEnabled && pg != nil {
		sinks = append(sinks, audit.NewPostgresSink(pg.DB))
	}
	if cfg.Audit.ElasticsearchEnabled && esClient != nil {
		sinks = append(sinks, audit.NewElasticsearchSink(esClient, cfg.Audit.IndexName))
	}

	// --- Summary Store (optional, requires Postgres) ---
	var summaryStore *store.SummaryStore
	if pg != nil {
		storeCfg := store.LoadConfig()
		if cfg.Database.Redis.TTL > 0 {
			storeCfg.CacheTTL = time.Duration(cfg.Database.Redis.TTL) * time.Second
		}
		var cache *redis.Client
		if redisClient != nil {
			cache = redisClient.Client
		}
		summaryStore = store.New(storeCfg, pg.DB, cache, log)
		zapLog.Info("Summary store enabled")
	}

	orch := orchestrator.New(cfg, log, sinks...)
	orch.SetObservability(obs)

	// --- Health & Metrics Server ---
	if cfg.Metrics.Enabled {
		go func() {
			http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "healthy",
					"time":   time.Now().Format(time.RFC3339),
				})
			})
			http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "ready",
					"time":   time.Now().Format(time.RFC3339),
				})
			})
			http.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			zapLog.Info("Health/Metrics server listening", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	switch *mode {
	case "single":
		runSingle(ctx, cfg, orch, summaryStore, fileSink, zapLog)
	case "batch":
		runBatch(ctx, cfg, orch, summaryStore, log, zapLog, *batchID, intake.SampleBatch(*count))
	case "file":
		if *filePath == "" {
			zapLog.Fatal("mode file requires -file")
		}
		submission, err := intake.New(log).LoadFile(*filePath)
		if err != nil {
			zapLog.Fatal("submission rejected", zap.Error(err))
		}
		id := *batchID
		if id == "" {
			id = submission.BatchID
		}
		apps := dedupe(ctx, submission.Applications, summaryStore, zapLog)
		runBatch(ctx, cfg, orch, summaryStore, log, zapLog, id, apps)
	default:
		zapLog.Fatal("unknown mode", zap.String("mode", *mode))
	}

	zapLog.Info("Loan processor finished")
}

func runSingle(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, summaryStore *store.SummaryStore, fileSink *audit.FileSink, zapLog *zap.Logger) {
	app := intake.SampleApplication()
	summary := orch.ProcessApplication(ctx, app)

	persistSummary(ctx, summaryStore, summary, zapLog)
	emitNotification(cfg, summary, zapLog)

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		zapLog.Error("summary marshal failed", zap.Error(err))
		return
	}

	fmt.Println("\nLoan Application Process Completed")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println(string(out))
	if fileSink != nil {
		fmt.Println("\nDetailed logs available in:")
		fmt.Printf("- JSON logs: %s\n", fileSink.Path(summary.ApplicationID))
	}
}

func runBatch(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, summaryStore *store.SummaryStore, log logger.Logger, zapLog *zap.Logger, batchID string, apps []*models.LoanApplication) {
	if len(apps) == 0 {
		zapLog.Warn("nothing to process")
		return
	}

	pool := orchestrator.NewPool(orch, log, cfg.Batch)
	report := pool.Run(ctx, batchID, apps)

	for _, summary := range report.Summaries {
		persistSummary(ctx, summaryStore, summary, zapLog)
		emitNotification(cfg, summary, zapLog)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		zapLog.Error("report marshal failed", zap.Error(err))
		return
	}

	fmt.Println("\nBatch Processing Completed")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println(string(out))
}

// dedupe drops applications already marked processed. Mark failures are
// not fatal: the application is processed anyway.
func dedupe(ctx context.Context, apps []*models.LoanApplication, summaryStore *store.SummaryStore, zapLog *zap.Logger) []*models.LoanApplication {
	if summaryStore == nil {
		return apps
	}

	kept := make([]*models.LoanApplication, 0, len(apps))
	for _, app := range apps {
		firstSeen, err := summaryStore.MarkProcessed(ctx, app.ApplicationID)
		if err != nil {
			zapLog.Warn("dedupe check failed, processing anyway",
				zap.String("applicationId", app.ApplicationID),
				zap.Error(err),
			)
		} else if !firstSeen {
			zapLog.Info("duplicate submission skipped", zap.String("applicationId", app.ApplicationID))
			continue
		}
		kept = append(kept, app)
	}
	return kept
}

func persistSummary(ctx context.Context, summaryStore *store.SummaryStore, summary *models.ProcessSummary, zapLog *zap.Logger) {
	if summaryStore == nil {
		return
	}
	if err := summaryStore.Save(ctx, summary); err != nil {
		zapLog.Warn("summary persistence failed",
			zap.String("applicationId", summary.ApplicationID),
			zap.Error(err),
		)
	}
}

func emitNotification(cfg *config.Config, summary *models.ProcessSummary, zapLog *zap.Logger) {
	if !cfg.Notification.Enabled || cfg.Notification.Channel != "log" || summary.Notification == nil {
		return
	}
	zapLog.Info("approval notification built",
		zap.String("applicationId", summary.ApplicationID),
		zap.String("subject", summary.Notification.Subject),
		zap.String("body", summary.Notification.Body),
	)
}
