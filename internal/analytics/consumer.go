package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/outbox"
	"github.com/netaconnect/billing-backend/pkg/outbox/registry"
)

const analyticsConsumerName = "analytics"

type rowInserter interface {
	InsertPaymentEvents(ctx context.Context, rows []any) error
}

type idempotencyChecker interface {
	Seen(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer writes billing events to the BigQuery payment_events table.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	client       rowInserter
	manager      idempotencyChecker
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
	eventFilter  map[enums.OutboxEventType]struct{}
}

func NewConsumer(subscription *gcppubsub.Subscriber, client rowInserter, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("analytics subscription required")
	}
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		client:       client,
		manager:      manager,
		decoders:     registry.NewBillingDecoders(),
		logg:         logg,
		eventFilter:  defaultEventFilter(),
	}, nil
}

func defaultEventFilter() map[enums.OutboxEventType]struct{} {
	return map[enums.OutboxEventType]struct{}{
		enums.EventPaymentCaptured:       {},
		enums.EventSubscriptionActivated: {},
		enums.EventSubscriptionExpired:   {},
	}
}

// Run consumes until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if err := c.handle(ctx, msg); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// handle returns an error only when the message should be redelivered.
func (c *Consumer) handle(ctx context.Context, msg *gcppubsub.Message) error {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Warn(logCtx, "invalid analytics envelope")
		return nil
	}
	return c.Process(logCtx, eventType, envelope)
}

// Process ingests one envelope if the event type is tracked. Decode errors
// are logged and swallowed; insert errors are returned for redelivery.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})
	if _, ok := c.eventFilter[eventType]; !ok {
		return nil
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Warn(logCtx, "invalid event id")
		return nil
	}
	decoded, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return nil
	}
	row, err := buildRow(eventType, envelope, decoded)
	if err != nil {
		c.logg.Error(logCtx, "failed to build payment event row", err)
		return nil
	}

	seen, err := c.manager.Seen(ctx, analyticsConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if seen {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	if err := c.client.InsertPaymentEvents(ctx, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert payment event row", err)
		return err
	}
	if err := c.manager.MarkProcessed(ctx, analyticsConsumerName, eventID); err != nil {
		c.logg.Error(logCtx, "failed to mark event processed", err)
	}
	c.logg.Info(logCtx, "payment event ingested")
	return nil
}
