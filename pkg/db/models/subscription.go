package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/netaconnect/billing-backend/pkg/enums"
)

// Subscription is an append-only grant created by a captured payment.
type Subscription struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         string          `gorm:"column:user_id;not null"`
	PlanID         string          `gorm:"column:plan_id;not null"`
	PlanType       enums.PlanType  `gorm:"column:plan_type;type:plan_type;not null"`
	ElectionType   *string         `gorm:"column:election_type"`
	ValidityDays   int             `gorm:"column:validity_days;not null"`
	AmountPaid     decimal.Decimal `gorm:"column:amount_paid;type:numeric(12,2);not null"`
	Currency       string          `gorm:"column:currency;not null"`
	PurchasedAt    time.Time       `gorm:"column:purchased_at;not null"`
	ExpiresAt      time.Time       `gorm:"column:expires_at;not null"`
	IsActive       bool            `gorm:"column:is_active;not null"`
	ExpiredAt      *time.Time      `gorm:"column:expired_at"`
	PaymentID      string          `gorm:"column:payment_id;not null;uniqueIndex"`
	OrderID        *string         `gorm:"column:order_id"`
	WarningSent72h bool            `gorm:"column:warning_sent_72h;not null;default:false"`
	WarningSent24h bool            `gorm:"column:warning_sent_24h;not null;default:false"`
	WarningSent1h  bool            `gorm:"column:warning_sent_1h;not null;default:false"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
