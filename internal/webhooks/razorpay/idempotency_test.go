package razorpaywebhook

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	now     time.Time
	keys    map[string]string
	expires map[string]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		now:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		keys:    map[string]string{},
		expires: map[string]time.Time{},
	}
}

// advance moves the store clock, expiring keys whose TTL elapsed.
func (m *memoryStore) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	for k, at := range m.expires {
		if !m.now.Before(at) {
			delete(m.keys, k)
			delete(m.expires, k)
		}
	}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = fmt.Sprint(value)
	if ttl > 0 {
		m.expires[key] = m.now.Add(ttl)
	}
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "neta:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
		delete(m.expires, k)
	}
	return nil
}

func TestEventGuardClaimCompleteRelease(t *testing.T) {
	guard, err := NewEventGuard(newMemoryStore(), time.Hour, time.Minute, "razorpay-webhook")
	require.NoError(t, err)
	ctx := context.Background()

	state, err := guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, ClaimAcquired, state)

	state, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, ClaimInFlight, state)

	require.NoError(t, guard.Release(ctx, "evt_1"))
	state, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, ClaimAcquired, state)

	require.NoError(t, guard.Complete(ctx, "evt_1"))
	state, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, ClaimDone, state)

	_, err = guard.Claim(ctx, "")
	require.Error(t, err)
}

func TestEventGuardInFlightClaimExpires(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewEventGuard(store, time.Hour, time.Minute, "razorpay-webhook")
	require.NoError(t, err)
	ctx := context.Background()

	state, err := guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, ClaimAcquired, state)

	store.advance(time.Minute)
	state, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	require.Equal(t, ClaimAcquired, state)
}

func TestNewEventGuardValidates(t *testing.T) {
	_, err := NewEventGuard(nil, time.Hour, time.Minute, "s")
	require.Error(t, err)
	_, err = NewEventGuard(newMemoryStore(), -time.Second, time.Minute, "s")
	require.Error(t, err)
	_, err = NewEventGuard(newMemoryStore(), time.Hour, 0, "s")
	require.Error(t, err)
	_, err = NewEventGuard(newMemoryStore(), time.Hour, time.Minute, "")
	require.Error(t, err)
}
