package cron

import (
	"context"

	"gorm.io/gorm"
)

// Job names double as lock keys and the {job} path segment of manual triggers.
const (
	JobSubscriptionExpiry = "subscription-expiry"
	JobExpiryWarning      = "expiry-warning"
	JobStorageCleanup     = "storage-cleanup"
	JobOutboxRetention    = "outbox-retention"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
