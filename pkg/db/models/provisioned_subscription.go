package models

import (
	"time"

	"github.com/google/uuid"
)

// ProvisionedSubscription marks a subscription whose placement side effects
// were applied. One row per subscription.
type ProvisionedSubscription struct {
	SubscriptionID uuid.UUID `gorm:"column:subscription_id;type:uuid;primaryKey"`
	UserID         string    `gorm:"column:user_id;not null"`
	PlanID         string    `gorm:"column:plan_id;not null"`
	ProvisionedAt  time.Time `gorm:"column:provisioned_at;not null"`
}

func (ProvisionedSubscription) TableName() string { return "provisioned_subscriptions" }
