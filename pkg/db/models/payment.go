package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/netaconnect/billing-backend/pkg/enums"
)

// Payment is the merged view of every webhook delivery for one Razorpay payment.
type Payment struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderPaymentID  string             `gorm:"column:provider_payment_id;not null;uniqueIndex"`
	ProviderOrderID    *string            `gorm:"column:provider_order_id"`
	Amount             int64              `gorm:"column:amount;not null;default:0"`
	Currency           string             `gorm:"column:currency"`
	Status             string             `gorm:"column:status"`
	State              enums.PaymentState `gorm:"column:state;type:payment_state;not null;default:'new'"`
	Captured           bool               `gorm:"column:captured;not null;default:false"`
	CapturedAt         *time.Time         `gorm:"column:captured_at"`
	CaptureReference   *string            `gorm:"column:capture_reference"`
	CaptureAttemptedAt *time.Time         `gorm:"column:capture_attempted_at"`
	CaptureError       *string            `gorm:"column:capture_error"`
	Method             *string            `gorm:"column:method"`
	Email              *string            `gorm:"column:email"`
	Contact            *string            `gorm:"column:contact"`
	ErrorCode          *string            `gorm:"column:error_code"`
	ErrorDescription   *string            `gorm:"column:error_description"`
	Notes              map[string]string  `gorm:"column:notes;type:jsonb;serializer:json"`
	SignatureVerified  bool               `gorm:"column:signature_verified;not null;default:false"`
	LastEvent          *string            `gorm:"column:last_event"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
