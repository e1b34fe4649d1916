package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jortega-dev/riverside-backend/api/routes"
	"github.com/jortega-dev/riverside-backend/internal/availability"
	"github.com/jortega-dev/riverside-backend/internal/catalog"
	"github.com/jortega-dev/riverside-backend/internal/inventory"
	"github.com/jortega-dev/riverside-backend/internal/packages"
	"github.com/jortega-dev/riverside-backend/internal/payments"
	"github.com/jortega-dev/riverside-backend/internal/reservations"
	"github.com/jortega-dev/riverside-backend/pkg/config"
	"github.com/jortega-dev/riverside-backend/pkg/db"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
	"github.com/jortega-dev/riverside-backend/pkg/migrate"
	"github.com/jortega-dev/riverside-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	catalogRepo := catalog.NewRepository(dbClient.DB())

	availabilitySvc, err := availability.NewService(availability.NewRepository(dbClient.DB()), catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}

	inventorySvc, err := inventory.NewService(inventory.NewRepository(dbClient.DB()), dbClient)
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
		reservations.NewRepository(dbClient.DB()),
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

	packagesSvc, err := packages.NewService(
		packages.NewRepository(dbClient.DB()),
		reservationsSvc,
		paymentsSvc,
		catalogRepo,
		dbClient,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create packages service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Availability:  availabilitySvc,
			Inventory:     inventorySvc,
			Reservations:  reservationsSvc,
			Packages:      packagesSvc,
			MetricsGather: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
