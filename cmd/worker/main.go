package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/netaconnect/billing-backend/internal/analytics"
	"github.com/netaconnect/billing-backend/internal/candidates"
	"github.com/netaconnect/billing-backend/internal/provisioning"
	"github.com/netaconnect/billing-backend/pkg/bigquery"
	"github.com/netaconnect/billing-backend/pkg/config"
	"github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/migrate"
	"github.com/netaconnect/billing-backend/pkg/outbox/idempotency"
	"github.com/netaconnect/billing-backend/pkg/pubsub"
	"github.com/netaconnect/billing-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg,
		cfg.PubSub.ProvisioningSubscription, cfg.PubSub.AnalyticsSubscription)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery client", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	dispatcher, err := provisioning.NewDispatcher(provisioning.DispatcherParams{
		DB:              dbClient,
		Repo:            provisioning.NewRepository(dbClient.DB()),
		Candidates:      candidates.NewRepository(dbClient.DB()),
		Logger:          logg,
		AnnouncementTTL: cfg.Provisioning.AnnouncementTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create provisioning dispatcher", err)
		os.Exit(1)
	}
	provisioningConsumer, err := provisioning.NewConsumer(dispatcher, pubsubClient.ProvisioningSubscription(), manager, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create provisioning consumer", err)
		os.Exit(1)
	}
	analyticsConsumer, err := analytics.NewConsumer(pubsubClient.AnalyticsSubscription(), bqClient, manager, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: []Dependency{
			{Name: "database", Pinger: dbClient},
			{Name: "redis", Pinger: redisClient},
			{Name: "pubsub", Pinger: pubsubClient},
			{Name: "bigquery", Pinger: bqClient},
		},
		Provisioning: provisioningConsumer,
		Analytics:    analyticsConsumer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}
