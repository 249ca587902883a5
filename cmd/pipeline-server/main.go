// cmd/pipeline-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"outreach-pipeline/internal/clients/genai"
	"outreach-pipeline/internal/clients/pagespeed"
	"outreach-pipeline/internal/common/aws"
	"outreach-pipeline/internal/common/config"
	"outreach-pipeline/internal/common/database"
	"outreach-pipeline/internal/common/logger"
	"outreach-pipeline/internal/common/observability"
	"outreach-pipeline/internal/gate"
	"outreach-pipeline/internal/mailer"
	"outreach-pipeline/internal/monitor/notify"
	"outreach-pipeline/internal/monitor/report"
	"outreach-pipeline/internal/server"
	"outreach-pipeline/internal/stages/audit"
	"outreach-pipeline/internal/stages/draft"
	"outreach-pipeline/internal/stages/insights"
	"outreach-pipeline/internal/stages/orchestrator"
	"outreach-pipeline/internal/stages/queue"
	"outreach-pipeline/internal/stages/send"
	"outreach-pipeline/internal/store"
	"outreach-pipeline/internal/webhooks/scheduling"
	"outreach-pipeline/internal/webhooks/unsubscribe"
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
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pipeline server...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("pipeline-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional audit archive) ---
	var indexer audit.Indexer
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = esClient
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init External Service Clients ---
	var sesClient mailer.SESService
	if cfg.Email.SES.Enabled {
		c, err := aws.NewSESClient(ctx, cfg.Email.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		sesClient = c
	}

	var snsClient mailer.SNSService
	if cfg.Email.SNS.Enabled {
		c, err := aws.NewSNSClient(ctx, cfg.Email.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		snsClient = c
	}

	psClient, err := pagespeed.New(cfg.APIs, log)
	if err != nil {
		zapLog.Fatal("pagespeed client failed", zap.Error(err))
	}
	genaiClient := genai.New(cfg.APIs, log)

	zapLog.Info("All external service clients initialized")

	// --- Core Components ---
	st := store.New(pg.DB)

	gates, err := gate.New(redis.Client, cfg.Pipeline)
	if err != nil {
		zapLog.Fatal("gate init failed", zap.Error(err))
	}

	m := mailer.New(cfg.Email, sesClient, snsClient, log)

	// --- Handlers ---
	auditHandler := audit.NewHandler(st, gates, psClient, indexer, cfg.Database.Elasticsearch.AuditIndex, log)
	insightsHandler := insights.NewHandler(st, genaiClient, log)
	draftHandler := draft.NewHandler(st, insightsHandler, genaiClient, cfg.Pipeline, cfg.Email.SignatureName, log)
	sendHandler := send.NewHandler(st, m, log)

	srv := server.New(server.Handlers{
		Audit:        auditHandler,
		Insights:     insightsHandler,
		Draft:        draftHandler,
		Send:         sendHandler,
		Queue:        queue.NewHandler(st, gates, auditHandler, draftHandler, sendHandler, log),
		Orchestrator: orchestrator.NewHandler(st, auditHandler, insightsHandler, draftHandler, sendHandler, cfg.Pipeline, log),
		Notify:       notify.NewHandler(st, m, log),
		Report:       report.NewHandler(st, m, cfg.Monitor, log),
		Scheduling:   scheduling.NewHandler(st, m, cfg.Pipeline, log),
		Unsubscribe:  unsubscribe.NewHandler(st, cfg.Pipeline.UnsubscribeSecret, log),
	}, map[string]server.Pinger{
		"postgres": pg,
		"redis":    redis,
	}, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Pipeline server stopped gracefully")
}
