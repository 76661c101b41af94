package analytics

import (
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/outbox"
	"github.com/netaconnect/billing-backend/pkg/outbox/payloads"
)

type paymentEventRow struct {
	EventID        string              `bigquery:"event_id"`
	EventType      string              `bigquery:"event_type"`
	OccurredAt     time.Time           `bigquery:"occurred_at"`
	UserID         *string             `bigquery:"user_id"`
	PlanID         *string             `bigquery:"plan_id"`
	PlanType       *string             `bigquery:"plan_type"`
	PaymentID      *string             `bigquery:"payment_id"`
	OrderID        *string             `bigquery:"order_id"`
	SubscriptionID *string             `bigquery:"subscription_id"`
	Currency       *string             `bigquery:"currency"`
	AmountMinor    cbigquery.NullInt64 `bigquery:"amount_minor"`
	Payload        cbigquery.NullJSON  `bigquery:"payload"`
}

// buildRow maps a decoded billing payload onto the payment_events schema. The
// raw payload is kept alongside the extracted columns.
func buildRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope, decoded any) (*paymentEventRow, error) {
	row := &paymentEventRow{
		EventID:    envelope.EventID,
		EventType:  string(eventType),
		OccurredAt: envelope.OccurredAt,
	}

	switch evt := decoded.(type) {
	case payloads.PaymentCapturedEvent:
		row.UserID = nullable(evt.UserID)
		row.PlanID = nullable(evt.PlanID)
		row.PaymentID = nullable(evt.ProviderPaymentID)
		row.OrderID = nullable(evt.ProviderOrderID)
		row.Currency = nullable(evt.Currency)
		row.AmountMinor = cbigquery.NullInt64{Int64: evt.Amount, Valid: true}
	case payloads.SubscriptionActivatedEvent:
		row.UserID = nullable(evt.UserID)
		row.PlanID = nullable(evt.PlanID)
		row.PlanType = nullable(string(evt.PlanType))
		row.SubscriptionID = nullableID(evt.SubscriptionID)
		row.PaymentID = nullable(evt.PaymentID)
		row.OrderID = nullable(evt.OrderID)
		row.Currency = nullable(evt.Currency)
	case payloads.SubscriptionExpiredEvent:
		row.UserID = nullable(evt.UserID)
		row.PlanID = nullable(evt.PlanID)
		row.PlanType = nullable(string(evt.PlanType))
		row.SubscriptionID = nullableID(evt.SubscriptionID)
	default:
		return nil, fmt.Errorf("unsupported payload %T", decoded)
	}

	if len(envelope.Data) > 0 {
		row.Payload = cbigquery.NullJSON{JSONVal: string(envelope.Data), Valid: true}
	}
	return row, nil
}

func nullable(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nullableID(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	return nullable(id.String())
}
