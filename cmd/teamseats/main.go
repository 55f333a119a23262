package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/teamseats/pkg/accounts"
	"github.com/platinummonkey/teamseats/pkg/billing"
	"github.com/platinummonkey/teamseats/pkg/config"
	"github.com/platinummonkey/teamseats/pkg/engine"
	"github.com/platinummonkey/teamseats/pkg/locks"
	"github.com/platinummonkey/teamseats/pkg/mail"
	"github.com/platinummonkey/teamseats/pkg/observability"
	"github.com/platinummonkey/teamseats/pkg/reconcile"
)

var version = "dev"

var (
	auditOnce   = flag.Bool("audit-once", false, "Run the seat audit once, print the report and exit")
	skipMigrate = flag.Bool("skip-migrate", false, "Do not apply the database schema on startup")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).WithField("version", version)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("teamseats exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := observability.InitTracing(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer flushCancel()
		_ = observability.ShutdownTracing(flushCtx, tp, logger)
	}()

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	var redisClient *redis.Client
	var guard locks.MutationGuard
	if cfg.Locks.RedisURL != "" {
		redisClient, err = locks.OpenRedis(ctx, cfg.Locks.RedisURL)
		if err != nil {
			return err
		}
		defer closeQuietly(logger, "redis", redisClient.Close)
		guard = locks.NewRedisGuard(redisClient, cfg.Locks.TTL, logger.WithField("component", "locks"))
		logger.Info("Per-subscription mutation guard enabled")
	}

	db, err := accounts.Open(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, "postgres", db.Close)
	if !*skipMigrate {
		if err := accounts.Migrate(ctx, db); err != nil {
			return err
		}
	}

	catalogue, err := billing.LoadCatalogue(cfg.Billing.PlansFile)
	if err != nil {
		return err
	}

	e, err := engine.New(engine.Dependencies{
		Store:         accounts.NewPostgresStore(db),
		Billing:       billing.NewStripeProvider(cfg.Stripe.APIKey, metrics),
		Mailer:        mail.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.From, cfg.Mail.FromName),
		Catalogue:     catalogue,
		Guard:         guard,
		Metrics:       metrics,
		Logger:        logger,
		AppURL:        cfg.Mail.AppURL,
		NotifyTimeout: cfg.Mail.NotifyTimeout,
		AuditWorkers:  cfg.Billing.ReconcileWorkers,
	})
	if err != nil {
		return err
	}

	if *auditOnce {
		defer e.Wait()
		return runAudit(ctx, e.Auditor)
	}

	checker := observability.NewHealthChecker(db, redisClient, version)
	var metricsRegistry *prometheus.Registry
	if metrics != nil {
		metricsRegistry = registry
	}
	server := &http.Server{
		Addr:              ":" + cfg.Server.OpsPort,
		Handler:           observability.NewOpsRouter(checker, metricsRegistry, logger.WithField("component", "ops")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)

	if cfg.Billing.ReconcileSchedule != "" {
		scheduler, err := reconcile.NewScheduler(e.Auditor, cfg.Billing.ReconcileSchedule, logger.WithField("component", "reconcile"))
		if err != nil {
			return err
		}
		scheduler.Start()
		shutdown.Register("reconcile scheduler", scheduler.Stop)
	}
	shutdown.Register("engine", e.Shutdown)

	go func() {
		defer observability.RecoverPanic(logger, "ops server")
		logger.Infof("Ops server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Ops server failed")
			cancel()
		}
	}()

	logger.Info("teamseats started")
	return shutdown.WaitForShutdown(ctx)
}

// closeQuietly is deferred for resources run owns; they close after the shutdown hooks.
func closeQuietly(logger *observability.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.WithError(err).WithField("component", name).Error("close failed")
	}
}

func runAudit(ctx context.Context, auditor *reconcile.Auditor) error {
	report, err := auditor.Run(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil {
		return encErr
	}
	return err
}
