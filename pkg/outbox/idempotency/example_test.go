package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type exampleStore struct {
	seen map[string]bool
}

func (s *exampleStore) Get(_ context.Context, key string) (string, error) {
	if s.seen[key] {
		return "1", nil
	}
	return "", nil
}

func (s *exampleStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *exampleStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.seen, k)
	}
	return nil
}

func (s *exampleStore) IdempotencyKey(scope, id string) string {
	return "neta:idempotency:" + scope + ":" + id
}

func ExampleManager_MarkProcessed() {
	ctx := context.Background()
	manager, _ := NewManager(&exampleStore{seen: map[string]bool{}}, 7*24*time.Hour)
	eventID := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	for i := 0; i < 2; i++ {
		if seen, _ := manager.Seen(ctx, "provisioning", eventID); seen {
			fmt.Println("already processed")
			continue
		}
		fmt.Println("processing event")
		_ = manager.MarkProcessed(ctx, "provisioning", eventID)
	}
	// Output:
	// processing event
	// already processed
}
