package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/netaconnect/billing-backend/api/controllers"
	"github.com/netaconnect/billing-backend/api/routes"
	"github.com/netaconnect/billing-backend/internal/candidates"
	"github.com/netaconnect/billing-backend/internal/cron"
	"github.com/netaconnect/billing-backend/internal/notifications"
	"github.com/netaconnect/billing-backend/internal/subscriptions"
	"github.com/netaconnect/billing-backend/internal/users"
	"github.com/netaconnect/billing-backend/pkg/config"
	"github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/firebase"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/metrics"
	"github.com/netaconnect/billing-backend/pkg/migrate"
	"github.com/netaconnect/billing-backend/pkg/notify"
	"github.com/netaconnect/billing-backend/pkg/outbox"
	"github.com/netaconnect/billing-backend/pkg/redis"
	"github.com/netaconnect/billing-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

type jobDeps struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       *db.Client
	storage  *gcs.Client
	notifier *notifications.Fanout
}

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

	firebaseApp, err := firebase.NewApp(context.Background(), cfg.GCP, cfg.Firebase)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap firebase", err)
		os.Exit(1)
	}
	storageClient, err := gcs.NewClient(context.Background(), firebaseApp, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap storage", err)
		os.Exit(1)
	}
	messagingClient, err := firebaseApp.Messaging(context.Background())
	if err != nil {
		logg.Error(context.Background(), "failed to create messaging client", err)
		os.Exit(1)
	}
	fanout, err := notifications.NewFanout(notify.NewFCMSender(messagingClient), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification fanout", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(jobDeps{
		cfg:      cfg,
		logg:     logg,
		db:       dbClient,
		storage:  storageClient,
		notifier: fanout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Locks:      cron.NewRedisLockFactory(redisClient, cfg.App.Env, cfg.Cron.LockTTL),
		Periods:    cron.NewRedisPeriodClaimer(redisClient, cfg.App.Env),
		Metrics:    metrics.NewCronJobMetrics(promRegistry),
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Params{
			Config: cfg,
			Logger: logg,
			Readiness: []controllers.ReadinessCheck{
				{Name: "database", Pinger: dbClient},
				{Name: "redis", Pinger: redisClient},
				{Name: "storage", Pinger: storageClient},
			},
			Jobs:     service,
			Gatherer: promRegistry,
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return service.Run(groupCtx)
	})
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(deps jobDeps) (*cron.Registry, error) {
	gormDB := deps.db.DB()
	subsRepo := subscriptions.NewRepository(gormDB)
	usersRepo := users.NewRepository(gormDB)
	outboxRepo := outbox.NewRepository(gormDB)

	expiry, err := cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger:        deps.logg,
		DB:            deps.db,
		Subscriptions: subsRepo,
		Users:         usersRepo,
		Outbox:        outbox.NewService(outboxRepo, deps.logg),
		Notifier:      deps.notifier,
	})
	if err != nil {
		return nil, err
	}
	warning, err := cron.NewExpiryWarningJob(cron.ExpiryWarningJobParams{
		Logger:        deps.logg,
		Subscriptions: subsRepo,
		Users:         usersRepo,
		Notifier:      deps.notifier,
		LeadTimes:     deps.cfg.Subscriptions.WarningLeadTimes(),
	})
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewStorageCleanupJob(cron.StorageCleanupJobParams{
		Logger:     deps.logg,
		DB:         deps.db,
		Candidates: candidates.NewRepository(gormDB),
		Storage:    deps.storage,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     deps.logg,
		Repository: outboxRepo,
		DLQ:        outbox.NewDLQRepository(gormDB),
		Retention:  deps.cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	registry.Register(expiry, deps.cfg.Cron.ExpiryInterval)
	registry.Register(warning, deps.cfg.Cron.WarningInterval)
	registry.Register(cleanup, deps.cfg.Cron.StorageCleanupInterval)
	registry.Register(retention, deps.cfg.Cron.OutboxRetentionInterval)
	return registry, nil
}
