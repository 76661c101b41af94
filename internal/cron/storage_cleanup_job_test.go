package cron

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/internal/candidates"
	"github.com/netaconnect/billing-backend/pkg/db/dbtest"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/logger"
)

type fakeBucket struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]bool
}

func (b *fakeBucket) DeleteObject(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail[path] {
		return errors.New("permission denied")
	}
	b.deleted = append(b.deleted, path)
	return nil
}

func TestStorageCleanupKeepsFailedPathsQueued(t *testing.T) {
	client := dbtest.Open(t)
	repo := candidates.NewRepository(client.DB())
	bucket := &fakeBucket{fail: map[string]bool{"media/images/locked.jpg": true}}
	job, err := NewStorageCleanupJob(StorageCleanupJobParams{
		Logger:     logger.Nop(),
		DB:         client,
		Candidates: repo,
		Storage:    bucket,
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, client.DB().Create(&models.Candidate{
		ID: "c1", UserID: "u1", Name: "A",
		DeleteStorage: pq.StringArray{"media/images/photo.jpg", "media/images/locked.jpg"},
	}).Error)
	require.NoError(t, client.DB().Create(&models.Candidate{
		ID: "c2", UserID: "u2", Name: "B",
		DeleteStorage: pq.StringArray{"media/videos/intro.mp4"},
	}).Error)
	require.NoError(t, client.DB().Create(&models.Candidate{
		ID: "c3", UserID: "u3", Name: "C", DeleteStorage: pq.StringArray{},
	}).Error)

	report, err := job.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, Report{"candidates_processed": 2, "files_deleted": 2, "errors": 1}, report)
	require.ElementsMatch(t, []string{"media/images/photo.jpg", "media/videos/intro.mp4"}, bucket.deleted)

	pending, err := repo.ListWithPendingDeletions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "c1", pending[0].ID)
	require.Equal(t, []string{"media/images/locked.jpg"}, []string(pending[0].DeleteStorage))

	delete(bucket.fail, "media/images/locked.jpg")
	report, err = job.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report["files_deleted"])
	pending, err = repo.ListWithPendingDeletions(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, pending)
}
