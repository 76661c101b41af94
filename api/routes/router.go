package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netaconnect/billing-backend/api/controllers"
	webhookcontrollers "github.com/netaconnect/billing-backend/api/controllers/webhooks"
	"github.com/netaconnect/billing-backend/api/middleware"
	"github.com/netaconnect/billing-backend/pkg/auth"
	"github.com/netaconnect/billing-backend/pkg/config"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/metrics"
	"github.com/netaconnect/billing-backend/pkg/redis"
)

type paymentsService interface {
	controllers.OrderCreator
	controllers.PaymentVerifier
}

// Params carries everything the router mounts. Nil services leave their
// routes unmounted so the cron worker can serve only its internal surface.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Readiness   []controllers.ReadinessCheck
	Idempotency redis.IdempotencyStore
	RateLimiter redis.RateLimiter
	Verifier    middleware.IDTokenVerifier
	Webhook     webhookcontrollers.RazorpayWebhookProcessor
	Payments    paymentsService
	Jobs        controllers.JobRunner
	Gatherer    prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness...))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(p.Gatherer))
	}

	if p.Webhook != nil {
		// every method reaches the handler so non-POST gets a 405 envelope
		r.HandleFunc("/api/webhooks/razorpay", webhookcontrollers.RazorpayWebhook(p.Webhook, cfg.Razorpay.MaxBodyBytes, logg))
	}

	if p.Payments != nil {
		ordersPolicy := middleware.NewRateLimitPolicy("orders", cfg.RateLimit.OrdersWindow, cfg.RateLimit.OrdersLimit)
		r.Route("/api/v1/payments", func(r chi.Router) {
			r.Use(middleware.CORS(cfg.App.CORSAllowedOrigins))
			r.Use(middleware.FirebaseAuth(p.Verifier, logg))
			r.Use(middleware.Idempotency(p.Idempotency, logg))
			r.With(middleware.RateLimit(ordersPolicy, p.RateLimiter, logg)).Post("/orders", controllers.CreateOrder(p.Payments, logg))
			r.Post("/verify", controllers.VerifyPayment(p.Payments, logg))
		})
	}

	if p.Jobs != nil {
		r.Route("/api/internal/v1", func(r chi.Router) {
			r.Use(middleware.ServiceAuth(cfg.ServiceAuth, auth.ScopeJobsRun, logg))
			r.Post("/jobs/{job}/run", controllers.RunJob(p.Jobs, logg))
		})
	}

	return r
}
