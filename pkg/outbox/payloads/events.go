package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/netaconnect/billing-backend/pkg/enums"
)

// PaymentCapturedEvent is emitted when a payment reaches the captured state.
type PaymentCapturedEvent struct {
	PaymentID         uuid.UUID         `json:"payment_id"`
	ProviderPaymentID string            `json:"provider_payment_id"`
	ProviderOrderID   string            `json:"provider_order_id,omitempty"`
	Amount            int64             `json:"amount"`
	Currency          string            `json:"currency"`
	Method            string            `json:"method,omitempty"`
	UserID            string            `json:"user_id,omitempty"`
	PlanID            string            `json:"plan_id,omitempty"`
	Notes             map[string]string `json:"notes,omitempty"`
	CapturedAt        time.Time         `json:"captured_at"`
}

// SubscriptionActivatedEvent drives provisioning, analytics and receipts.
type SubscriptionActivatedEvent struct {
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	UserID         string          `json:"user_id"`
	PlanID         string          `json:"plan_id"`
	PlanType       enums.PlanType  `json:"plan_type"`
	ElectionType   string          `json:"election_type,omitempty"`
	ValidityDays   int             `json:"validity_days"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	Currency       string          `json:"currency"`
	PaymentID      string          `json:"payment_id"`
	OrderID        string          `json:"order_id,omitempty"`
	PurchasedAt    time.Time       `json:"purchased_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// SubscriptionExpiredEvent is emitted by the expiry sweep per flipped row.
type SubscriptionExpiredEvent struct {
	SubscriptionID uuid.UUID      `json:"subscription_id"`
	UserID         string         `json:"user_id"`
	PlanID         string         `json:"plan_id"`
	PlanType       enums.PlanType `json:"plan_type"`
	ExpiresAt      time.Time      `json:"expires_at"`
	ExpiredAt      time.Time      `json:"expired_at"`
}
