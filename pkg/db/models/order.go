package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/netaconnect/billing-backend/pkg/enums"
)

// Order is a Razorpay order created on behalf of a signed-in user.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderOrderID string            `gorm:"column:provider_order_id;not null;uniqueIndex"`
	UserID          string            `gorm:"column:user_id;not null"`
	Amount          int64             `gorm:"column:amount;not null"`
	Currency        string            `gorm:"column:currency;not null"`
	Receipt         *string           `gorm:"column:receipt"`
	Notes           map[string]string `gorm:"column:notes;type:jsonb;serializer:json"`
	PaymentCapture  bool              `gorm:"column:payment_capture;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'created'"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
