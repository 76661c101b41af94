package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/outbox/payloads"
)

type decoderFunc func(payload json.RawMessage) (any, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

// NewBillingDecoders returns a registry holding the payload decoders for
// every billing event type the outbox emits.
func NewBillingDecoders() *DecoderRegistry {
	r := NewDecoderRegistry()
	r.Register(enums.EventPaymentCaptured, 1, decodeAs[payloads.PaymentCapturedEvent])
	r.Register(enums.EventSubscriptionActivated, 1, decodeAs[payloads.SubscriptionActivatedEvent])
	r.Register(enums.EventSubscriptionExpired, 1, decodeAs[payloads.SubscriptionExpiredEvent])
	return r
}

func decodeAs[T any](payload json.RawMessage) (any, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}

// NewDecoderRegistry builds an empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// Register stores a decoder for the given event type and version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version. Version
// 0 is read as version 1, the only version written so far.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	if version == 0 {
		version = 1
	}
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]; ok {
		return decoder(payload)
	}
	return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
}
