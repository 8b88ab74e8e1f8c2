package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/praxisfinder/therapy-platform/cmd/mainconfig"
	"github.com/praxisfinder/therapy-platform/internal/api/router"
	appconfig "github.com/praxisfinder/therapy-platform/internal/config"
	"github.com/praxisfinder/therapy-platform/internal/events"
	"github.com/praxisfinder/therapy-platform/internal/intake"
	"github.com/praxisfinder/therapy-platform/internal/matching"
	"github.com/praxisfinder/therapy-platform/internal/notify"
	"github.com/praxisfinder/therapy-platform/internal/observability/metrics"
	"github.com/praxisfinder/therapy-platform/internal/patients"
	"github.com/praxisfinder/therapy-platform/internal/therapists"
	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting therapy-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, matchMetrics, notifyMetrics, eventMetrics := setupMetrics()

	store, cleanup, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()
	therapistRepo := store.therapists
	patientRepo := store.patients
	matchStore := store.matches
	outbox := store.outbox

	velocity := setupVelocity(cfg, logger)

	sender, err := setupEmailSender(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up email sender", "error", err)
		os.Exit(1)
	}
	notifier := notify.NewService(sender, notify.Config{
		OpsRecipients: cfg.NotifyOpsRecipients,
	}, logger).WithMetrics(notifyMetrics)

	// Outbox delivery to SQS, or log-only without a queue
	if outbox != nil {
		var handler events.DeliveryHandler = events.NewLogPublisher(logger)
		if cfg.EventsQueueURL != "" {
			awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
			if err != nil {
				logger.Error("failed to load AWS config", "error", err)
				os.Exit(1)
			}
			handler = events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.EventsQueueURL)
		}
		deliverer := events.NewDeliverer(outbox, handler, logger).
			WithBatchSize(int32(cfg.OutboxBatchSize)).
			WithInterval(cfg.OutboxInterval).
			WithMetrics(eventMetrics)
		go deliverer.Start(ctx)
	}

	// Matching engine
	orchestrator := matching.NewOrchestrator(therapistRepo, therapistRepo, matchStore, logger).
		WithMetrics(matchMetrics).
		WithMaxCandidates(cfg.MatchMaxCandidates).
		WithLookaheadDays(cfg.MatchLookaheadDays)
	matchHandler := matching.NewHandler(matchStore, therapistRepo, patientRepo, logger).
		WithVelocity(velocity).
		WithNotifier(notifier).
		WithMetrics(matchMetrics)
	if outbox != nil {
		orchestrator.WithEventSink(outbox)
		matchHandler.WithEventSink(outbox)
	}

	intakeSvc := intake.NewService(patientRepo, therapistRepo, orchestrator, logger).
		WithMailer(notifier).
		WithBaseURL(cfg.PublicBaseURL)

	// Router
	routerCfg := &router.Config{
		Logger:             logger,
		TherapistsHandler:  therapists.NewHandler(therapistRepo, logger),
		PatientsHandler:    patients.NewHandler(patientRepo, logger),
		IntakeHandler:      intake.NewHandler(intakeSvc, logger),
		MatchHandler:       matchHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		StatsHandler:       metrics.NewStatsHandler(reg),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		IntakeRateLimit:    cfg.IntakeRatePerSecond,
		IntakeRateBurst:    cfg.IntakeRateBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func setupMetrics() (*prometheus.Registry, *metrics.MatchingMetrics, *metrics.NotifyMetrics, *metrics.EventMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, metrics.NewMatchingMetrics(reg), metrics.NewNotifyMetrics(reg), metrics.NewEventMetrics(reg)
}

type storage struct {
	therapists therapists.Repository
	patients   patients.Repository
	matches    matching.Store
	outbox     *events.OutboxStore
}

// setupStorage wires Postgres-backed repositories when DATABASE_URL is set
// and falls back to in-memory storage otherwise, which is enough for local
// development against the public API. The outbox requires Postgres and is
// nil on the in-memory path.
func setupStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*storage, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		return &storage{
			therapists: therapists.NewInMemoryRepository(),
			patients:   patients.NewInMemoryRepository(),
			matches:    matching.NewInMemoryStore(),
		}, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = db.Close()
		pool.Close()
	}
	return &storage{
		therapists: therapists.NewPostgresRepository(db),
		patients:   patients.NewPostgresRepository(pool),
		matches:    matching.NewPostgresStore(pool),
		outbox:     events.NewOutboxStore(pool),
	}, cleanup, nil
}

// setupVelocity builds the Redis-backed contact velocity guard, or nil when
// no Redis address is configured.
func setupVelocity(cfg *appconfig.Config, logger *logging.Logger) *matching.ContactVelocityChecker {
	if cfg.RedisAddr == "" {
		return nil
	}
	opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	velocityCfg := matching.VelocityConfig{
		MaxContacts: cfg.ContactLimitPerWindow,
		WindowHours: cfg.ContactWindowHours,
		Enabled:     true,
	}
	return matching.NewContactVelocityChecker(redis.NewClient(opts), velocityCfg, logger)
}

// setupEmailSender selects the delivery backend from EMAIL_PROVIDER; the
// stub sender is the default so the server runs without credentials.
func setupEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case "sendgrid":
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	default:
		return notify.NewStubEmailSender(logger), nil
	}
}
