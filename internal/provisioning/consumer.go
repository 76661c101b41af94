package provisioning

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/outbox"
	"github.com/netaconnect/billing-backend/pkg/outbox/payloads"
	"github.com/netaconnect/billing-backend/pkg/outbox/registry"
)

const provisioningConsumer = "provisioning"

type provisioner interface {
	Provision(ctx context.Context, evt payloads.SubscriptionActivatedEvent) (Outcome, error)
}

type idempotencyChecker interface {
	Seen(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer provisions placements for subscription_activated events. The Redis
// marker only short-cuts redeliveries; Provision itself is idempotent per
// subscription, so a missing or unreadable marker never double-applies.
type Consumer struct {
	dispatcher   provisioner
	subscription *pubsub.Subscriber
	idempotency  idempotencyChecker
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

func NewConsumer(dispatcher provisioner, subscription *pubsub.Subscriber, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("provisioning dispatcher required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("provisioning subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		dispatcher:   dispatcher,
		subscription: subscription,
		idempotency:  manager,
		decoders:     registry.NewBillingDecoders(),
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventSubscriptionActivated) {
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return true
	}
	decoded, err := c.decoders.Decode(enums.EventSubscriptionActivated, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return true
	}
	payload, ok := decoded.(payloads.SubscriptionActivatedEvent)
	if !ok {
		c.logg.Warn(logCtx, "unexpected subscription_activated payload")
		return true
	}

	seen, err := c.idempotency.Seen(ctx, provisioningConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed, provisioning anyway", err)
	}
	if seen {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	if _, err := c.dispatcher.Provision(logCtx, payload); err != nil {
		c.logg.Error(logCtx, "provisioning failed", err)
		return false
	}
	if err := c.idempotency.MarkProcessed(ctx, provisioningConsumer, eventID); err != nil {
		c.logg.Error(logCtx, "failed to mark event processed", err)
	}
	return true
}
