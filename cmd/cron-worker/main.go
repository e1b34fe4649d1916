package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jortega-dev/riverside-backend/internal/availability"
	"github.com/jortega-dev/riverside-backend/internal/catalog"
	"github.com/jortega-dev/riverside-backend/internal/cron"
	"github.com/jortega-dev/riverside-backend/internal/inventory"
	"github.com/jortega-dev/riverside-backend/internal/payments"
	"github.com/jortega-dev/riverside-backend/internal/reservations"
	"github.com/jortega-dev/riverside-backend/pkg/config"
	"github.com/jortega-dev/riverside-backend/pkg/db"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
	"github.com/jortega-dev/riverside-backend/pkg/metrics"
	"github.com/jortega-dev/riverside-backend/pkg/migrate"
	"github.com/jortega-dev/riverside-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	reservationsRepo := reservations.NewRepository(dbClient.DB())
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())

	availabilitySvc, err := availability.NewService(availability.NewRepository(dbClient.DB()), catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}

	inventorySvc, err := inventory.NewService(inventoryRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	reservationsSvc, err := reservations.NewService(
		reservationsRepo,
		catalogRepo,
		availabilitySvc,
		inventorySvc,
		paymentsSvc,
		dbClient,
		cfg.Booking,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservations service", err)
		os.Exit(1)
	}

	completionJob, err := cron.NewCompletionJob(cron.CompletionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Reader:       reservationsRepo,
		Reservations: reservationsSvc,
		Metrics:      metricsCollector,
		Interval:     cfg.Cron.CompletionInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create completion job", err)
		os.Exit(1)
	}

	activationJob, err := cron.NewActivationJob(cron.ActivationJobParams{
		Logger:       logg,
		DB:           dbClient,
		Reader:       reservationsRepo,
		Reservations: reservationsSvc,
		Metrics:      metricsCollector,
		Interval:     cfg.Cron.ActivationInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create activation job", err)
		os.Exit(1)
	}

	auditJob, err := cron.NewStockAuditJob(cron.StockAuditJobParams{
		Logger:   logg,
		Reader:   inventoryRepo,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.AuditInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock audit job", err)
		os.Exit(1)
	}

	deepAuditJob, err := cron.NewStockAuditJob(cron.StockAuditJobParams{
		Logger:   logg,
		Reader:   inventoryRepo,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.DeepAuditInterval,
		Deep:     true,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create deep stock audit job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(completionJob, activationJob, auditJob, deepAuditJob),
		Locks: func(jobName string) (cron.Lock, error) {
			return cron.NewRedisLock(redisClient, redisClient.LockKey(jobName), 0)
		},
		Metrics: metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
