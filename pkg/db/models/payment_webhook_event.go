package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentWebhookEvent is the audit trail row written alongside every ledger write.
type PaymentWebhookEvent struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderPaymentID string    `gorm:"column:provider_payment_id;not null"`
	ProviderOrderID   *string   `gorm:"column:provider_order_id"`
	ProviderEventID   *string   `gorm:"column:provider_event_id"`
	Event             string    `gorm:"column:event;not null"`
	ReceivedAt        time.Time `gorm:"column:received_at;not null"`
}
