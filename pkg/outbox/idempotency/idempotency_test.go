package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values     map[string]string
	getErr     error
	setNXError error
	lastKey    string
	lastTTL    time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	if f.setNXError != nil {
		return false, f.setNXError
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = "1"
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "neta:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	require.Error(t, err)

	_, err = NewManager(newFakeStore(), -time.Second)
	require.Error(t, err)
}

func TestSeenAfterMarkProcessed(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	seen, err := manager.Seen(ctx, "provisioning", eventID)
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, manager.MarkProcessed(ctx, "provisioning", eventID))
	require.Equal(t, "neta:idempotency:evt:processed:provisioning:"+eventID.String(), store.lastKey)
	require.Equal(t, 24*time.Hour, store.lastTTL)

	seen, err = manager.Seen(ctx, "provisioning", eventID)
	require.NoError(t, err)
	require.True(t, seen)

	seen, err = manager.Seen(ctx, "analytics", eventID)
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, manager.MarkProcessed(ctx, "provisioning", eventID))
}

func TestManagerErrors(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.Seen(ctx, "", uuid.New())
	require.Error(t, err)
	require.Error(t, manager.MarkProcessed(ctx, "provisioning", uuid.Nil))

	store.getErr = errors.New("boom")
	_, err = manager.Seen(ctx, "provisioning", uuid.New())
	require.Error(t, err)

	store.setNXError = errors.New("boom")
	require.Error(t, manager.MarkProcessed(ctx, "provisioning", uuid.New()))
}
