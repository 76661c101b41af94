package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is built once at process start and handed to every component.
type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	RateLimit     RateLimitConfig
	ServiceAuth   ServiceAuthConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	Firebase      FirebaseConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Razorpay      RazorpayConfig
	Subscriptions SubscriptionsConfig
	Provisioning  ProvisioningConfig
	Cron          CronConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Subscriptions.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NETA_APP_ENV" required:"true"`
	Port         string `envconfig:"NETA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NETA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NETA_LOG_WARN_STACK" default:"false"`

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string `envconfig:"NETA_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// RateLimitConfig throttles order creation per caller with a fixed window.
type RateLimitConfig struct {
	OrdersLimit  int           `envconfig:"NETA_RATE_LIMIT_ORDERS" default:"20"`
	OrdersWindow time.Duration `envconfig:"NETA_RATE_LIMIT_ORDERS_WINDOW" default:"1m"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NETA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NETA_DB_DSN"`
	Driver string `envconfig:"NETA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NETA_DB_HOST"`
	LegacyPort     int    `envconfig:"NETA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NETA_DB_USER"`
	LegacyPassword string `envconfig:"NETA_DB_PASSWORD"`
	LegacyName     string `envconfig:"NETA_DB_NAME"`
	LegacySSLMode  string `envconfig:"NETA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NETA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NETA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NETA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NETA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NETA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NETA_REDIS_ADDR"`
	Password     string        `envconfig:"NETA_REDIS_PASSWORD"`
	DB           int           `envconfig:"NETA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NETA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NETA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NETA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NETA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NETA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ServiceAuthConfig signs the tokens internal callers present to /api/internal routes.
type ServiceAuthConfig struct {
	Secret     string        `envconfig:"NETA_SERVICE_JWT_SECRET" required:"true"`
	Issuer     string        `envconfig:"NETA_SERVICE_JWT_ISSUER" default:"netaconnect"`
	DefaultTTL time.Duration `envconfig:"NETA_SERVICE_JWT_TTL" default:"15m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NETA_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"NETA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"NETA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"NETA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"NETA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FirebaseConfig struct {
	ProjectID     string `envconfig:"NETA_FIREBASE_PROJECT_ID"`
	StorageBucket string `envconfig:"NETA_FIREBASE_STORAGE_BUCKET" required:"true"`
}

type PubSubConfig struct {
	BillingTopic             string `envconfig:"NETA_PUBSUB_BILLING_TOPIC" default:"neta-billing-events"`
	ProvisioningSubscription string `envconfig:"NETA_PUBSUB_PROVISIONING_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription    string `envconfig:"NETA_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset            string `envconfig:"NETA_BIGQUERY_DATASET" default:"netaconnect"`
	PaymentEventsTable string `envconfig:"NETA_BIGQUERY_PAYMENT_EVENTS_TABLE" default:"payment_events"`
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"NETA_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string `envconfig:"NETA_RAZORPAY_KEY_SECRET" required:"true"`
	// WebhookSecret is optional at boot; the webhook answers 500 until it is set.
	WebhookSecret   string        `envconfig:"NETA_RAZORPAY_WEBHOOK_SECRET"`
	AutoCapture     bool          `envconfig:"NETA_RAZORPAY_AUTO_CAPTURE" default:"false"`
	DefaultCurrency string        `envconfig:"NETA_RAZORPAY_DEFAULT_CURRENCY" default:"INR"`
	WebhookEventTTL time.Duration `envconfig:"NETA_RAZORPAY_WEBHOOK_EVENT_TTL" default:"72h"`
	WebhookClaimTTL time.Duration `envconfig:"NETA_RAZORPAY_WEBHOOK_CLAIM_TTL" default:"2m"`
	MaxBodyBytes    int64         `envconfig:"NETA_RAZORPAY_WEBHOOK_MAX_BODY_BYTES" default:"1048576"`
}

type SubscriptionsConfig struct {
	DefaultValidityDays int   `envconfig:"NETA_SUBSCRIPTION_DEFAULT_VALIDITY_DAYS" default:"30"`
	WarningLeadHours    []int `envconfig:"NETA_SUBSCRIPTION_WARNING_LEAD_HOURS" default:"72,24,1"`
}

// WarningLeadTimes returns the configured lead times, longest first.
func (s SubscriptionsConfig) WarningLeadTimes() []time.Duration {
	hours := append([]int(nil), s.WarningLeadHours...)
	sort.Sort(sort.Reverse(sort.IntSlice(hours)))
	leads := make([]time.Duration, 0, len(hours))
	for _, h := range hours {
		leads = append(leads, time.Duration(h)*time.Hour)
	}
	return leads
}

func (s SubscriptionsConfig) validate() error {
	if s.DefaultValidityDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvSubscriptionValidityDays)
	}
	seen := map[int]struct{}{}
	for _, h := range s.WarningLeadHours {
		if h <= 0 {
			return fmt.Errorf("%s entries must be positive, got %d", EnvSubscriptionWarningLeads, h)
		}
		if _, dup := seen[h]; dup {
			return fmt.Errorf("%s has duplicate lead time %dh", EnvSubscriptionWarningLeads, h)
		}
		seen[h] = struct{}{}
	}
	return nil
}

type ProvisioningConfig struct {
	AnnouncementTTL time.Duration `envconfig:"NETA_PROVISIONING_ANNOUNCEMENT_TTL" default:"72h"`
}

type CronConfig struct {
	ExpiryInterval          time.Duration `envconfig:"NETA_CRON_EXPIRY_INTERVAL" default:"24h"`
	WarningInterval         time.Duration `envconfig:"NETA_CRON_WARNING_INTERVAL" default:"6h"`
	StorageCleanupInterval  time.Duration `envconfig:"NETA_CRON_STORAGE_CLEANUP_INTERVAL" default:"24h"`
	OutboxRetentionInterval time.Duration `envconfig:"NETA_CRON_OUTBOX_RETENTION_INTERVAL" default:"24h"`
	JobTimeout              time.Duration `envconfig:"NETA_CRON_JOB_TIMEOUT" default:"5m"`
	LockTTL                 time.Duration `envconfig:"NETA_CRON_LOCK_TTL" default:"10m"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"NETA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"NETA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"NETA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"NETA_OUTBOX_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
