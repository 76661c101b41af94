package models

import "time"

// User holds the entitlement fields this service maintains. Rows are created
// by the account service; billing only updates them.
type User struct {
	ID                     string     `gorm:"column:id;primaryKey"`
	DisplayName            *string    `gorm:"column:display_name"`
	FCMToken               *string    `gorm:"column:fcm_token"`
	Premium                bool       `gorm:"column:premium;not null;default:false"`
	SubscriptionPlanID     *string    `gorm:"column:subscription_plan_id"`
	SubscriptionExpiresAt  *time.Time `gorm:"column:subscription_expires_at"`
	HighlightPlanID        *string    `gorm:"column:highlight_plan_id"`
	HighlightPlanExpiresAt *time.Time `gorm:"column:highlight_plan_expires_at"`
	CarouselPlanID         *string    `gorm:"column:carousel_plan_id"`
	CarouselPlanExpiresAt  *time.Time `gorm:"column:carousel_plan_expires_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
