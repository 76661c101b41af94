package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/pkg/logger"
)

func TestOutboxRetentionJobDeletesOldRows(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{deleted: 7}
	dlq := &fakeDLQRetentionRepo{deleted: 2}
	job := newOutboxRetentionJob(t, repo, dlq)

	report, err := job.Run(context.Background())
	require.NoError(t, err)

	expectedCutoff := fixedNow.Add(-outboxRetention)
	require.True(t, repo.lastCutoff.Equal(expectedCutoff))
	require.True(t, dlq.lastCutoff.Equal(expectedCutoff))
	require.Equal(t, int64(7), report["rows_deleted"])
	require.Equal(t, int64(2), report["dlq_rows_deleted"])
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("boom")}
	dlq := &fakeDLQRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, dlq)

	_, err := job.Run(context.Background())
	require.Error(t, err)
	require.Zero(t, dlq.called)
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, dlq *fakeDLQRetentionRepo) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
		DLQ:        dlq,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*outboxRetentionJob)
	require.True(t, ok, "expected outboxRetentionJob, got %T", jobIface)
	job.now = func() time.Time { return fixedNow }
	return job
}

type fakeOutboxRetentionRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

type fakeDLQRetentionRepo struct {
	lastCutoff time.Time
	deleted    int64
	called     int
}

func (f *fakeDLQRetentionRepo) DeleteFailedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.deleted, nil
}
