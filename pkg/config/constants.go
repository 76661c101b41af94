package config

const (
	// EnvPrefix namespaces envconfig keys; every field also declares its full
	// variable name, which envconfig falls back to.
	EnvPrefix = "NETA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "NETA_APP_ENV"
	EnvPort     = "NETA_APP_PORT"
	EnvLogLevel = "NETA_LOG_LEVEL"

	EnvDBDSN  = "NETA_DB_DSN"
	EnvDBHost = "NETA_DB_HOST"
	EnvDBUser = "NETA_DB_USER"
	EnvDBName = "NETA_DB_NAME"

	EnvRedisURL = "NETA_REDIS_URL"

	EnvServiceJWTSecret = "NETA_SERVICE_JWT_SECRET"
	EnvServiceJWTIssuer = "NETA_SERVICE_JWT_ISSUER"

	EnvGCPProjectID          = "NETA_GCP_PROJECT_ID"
	EnvFirebaseStorageBucket = "NETA_FIREBASE_STORAGE_BUCKET"

	EnvPubSubBillingTopic        = "NETA_PUBSUB_BILLING_TOPIC"
	EnvPubSubProvisioningSub     = "NETA_PUBSUB_PROVISIONING_SUBSCRIPTION"
	EnvPubSubAnalyticsSub        = "NETA_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvRazorpayKeyID             = "NETA_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret         = "NETA_RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhookSecret     = "NETA_RAZORPAY_WEBHOOK_SECRET"
	EnvRazorpayAutoCapture       = "NETA_RAZORPAY_AUTO_CAPTURE"
	EnvSubscriptionWarningLeads  = "NETA_SUBSCRIPTION_WARNING_LEAD_HOURS"
	EnvSubscriptionValidityDays  = "NETA_SUBSCRIPTION_DEFAULT_VALIDITY_DAYS"
	EnvProvisioningAnnouncements = "NETA_PROVISIONING_ANNOUNCEMENT_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
