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

	"github.com/netaconnect/billing-backend/api/controllers"
	"github.com/netaconnect/billing-backend/api/routes"
	"github.com/netaconnect/billing-backend/internal/ledger"
	"github.com/netaconnect/billing-backend/internal/payments"
	"github.com/netaconnect/billing-backend/internal/subscriptions"
	"github.com/netaconnect/billing-backend/internal/users"
	razorpaywebhook "github.com/netaconnect/billing-backend/internal/webhooks/razorpay"
	"github.com/netaconnect/billing-backend/pkg/config"
	"github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/firebase"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/metrics"
	"github.com/netaconnect/billing-backend/pkg/migrate"
	"github.com/netaconnect/billing-backend/pkg/outbox"
	"github.com/netaconnect/billing-backend/pkg/razorpay"
	"github.com/netaconnect/billing-backend/pkg/redis"
)

const (
	shutdownTimeout   = 20 * time.Second
	readHeaderTimeout = 10 * time.Second
	webhookGuardScope = "razorpay-webhook"
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
	authClient, err := firebaseApp.Auth(context.Background())
	if err != nil {
		logg.Error(context.Background(), "failed to create firebase auth client", err)
		os.Exit(1)
	}

	gateway, err := razorpay.NewClient(cfg.Razorpay)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	billingMetrics := metrics.NewBillingMetrics(promRegistry)

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ledgerService, err := ledger.NewService(dbClient, ledger.NewRepository(dbClient.DB()), emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Config:  cfg.Razorpay,
		Gateway: gateway,
		Ledger:  ledgerService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}
	capture, err := payments.NewCaptureCoordinator(gateway, ledgerService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create capture coordinator", err)
		os.Exit(1)
	}
	engine, err := subscriptions.NewEngine(subscriptions.EngineParams{
		DB:                  dbClient,
		Subscriptions:       subscriptions.NewRepository(dbClient.DB()),
		Users:               users.NewRepository(dbClient.DB()),
		Outbox:              emitter,
		Logger:              logg,
		Metrics:             billingMetrics,
		DefaultValidityDays: cfg.Subscriptions.DefaultValidityDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription engine", err)
		os.Exit(1)
	}
	guard, err := razorpaywebhook.NewEventGuard(redisClient, cfg.Razorpay.WebhookEventTTL, cfg.Razorpay.WebhookClaimTTL, webhookGuardScope)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookService, err := razorpaywebhook.NewService(razorpaywebhook.ServiceParams{
		WebhookSecret: cfg.Razorpay.WebhookSecret,
		Policy:        razorpaywebhook.Policy{AutoCapture: cfg.Razorpay.AutoCapture},
		Ledger:        ledgerService,
		Capture:       capture,
		Activation:    engine,
		Guard:         guard,
		Metrics:       billingMetrics,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}
	if cfg.Razorpay.WebhookSecret == "" {
		logg.Warn(context.Background(), "razorpay webhook secret is not set; webhook deliveries will be rejected")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: readHeaderTimeout,
		Handler: routes.NewRouter(routes.Params{
			Config: cfg,
			Logger: logg,
			Readiness: []controllers.ReadinessCheck{
				{Name: "database", Pinger: dbClient},
				{Name: "redis", Pinger: redisClient},
			},
			Idempotency: redisClient,
			RateLimiter: redisClient,
			Verifier:    authClient,
			Webhook:     webhookService,
			Payments:    paymentsService,
			Gatherer:    promRegistry,
		}),
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
