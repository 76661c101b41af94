package razorpaywebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/netaconnect/billing-backend/pkg/redis"
)

// ClaimState is the outcome of claiming a webhook delivery id.
type ClaimState int

const (
	// ClaimAcquired means this delivery owns the event until Complete or Release.
	ClaimAcquired ClaimState = iota
	// ClaimInFlight means another delivery is processing the event right now.
	ClaimInFlight
	// ClaimDone means the event was fully processed earlier.
	ClaimDone
)

// EventGuard deduplicates webhook deliveries by event id in two steps. A
// short-lived in-flight claim covers processing, and a done marker is
// written only after the delivery's effects succeeded. A crash mid-processing
// leaves only the in-flight claim, which expires so the provider's retry is
// processed again.
type EventGuard struct {
	store    redis.IdempotencyStore
	ttl      time.Duration
	claimTTL time.Duration
	scope    string
}

func NewEventGuard(store redis.IdempotencyStore, ttl, claimTTL time.Duration, scope string) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if claimTTL <= 0 {
		return nil, errors.New("claim ttl must be positive")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &EventGuard{store: store, ttl: ttl, claimTTL: claimTTL, scope: scope}, nil
}

// Claim reports whether eventID is done, in flight, or now claimed by the caller.
func (g *EventGuard) Claim(ctx context.Context, eventID string) (ClaimState, error) {
	if eventID == "" {
		return ClaimAcquired, errors.New("event id is required")
	}
	done, err := g.store.Get(ctx, g.doneKey(eventID))
	if err != nil && !errors.Is(err, goredis.Nil) {
		return ClaimAcquired, fmt.Errorf("read done marker: %w", err)
	}
	if done != "" {
		return ClaimDone, nil
	}
	set, err := g.store.SetNX(ctx, g.claimKey(eventID), "processing", g.claimTTL)
	if err != nil {
		return ClaimAcquired, fmt.Errorf("set in-flight claim: %w", err)
	}
	if !set {
		return ClaimInFlight, nil
	}
	return ClaimAcquired, nil
}

// Complete records eventID as processed and drops the in-flight claim.
func (g *EventGuard) Complete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	if _, err := g.store.SetNX(ctx, g.doneKey(eventID), "done", g.ttl); err != nil {
		return fmt.Errorf("set done marker: %w", err)
	}
	return g.store.Del(ctx, g.claimKey(eventID))
}

// Release drops the in-flight claim so the provider's retry is processed.
func (g *EventGuard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.claimKey(eventID))
}

func (g *EventGuard) claimKey(eventID string) string {
	return g.store.IdempotencyKey(g.scope+":claim", eventID)
}

func (g *EventGuard) doneKey(eventID string) string {
	return g.store.IdempotencyKey(g.scope+":done", eventID)
}
