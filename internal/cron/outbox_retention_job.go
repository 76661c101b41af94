package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/netaconnect/billing-backend/pkg/logger"
)

const outboxRetention = 30 * 24 * time.Hour

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxRetentionRepo
	DLQ        dlqRetentionRepo
	Retention  time.Duration
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetention
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		dlq:       params.DLQ,
		retention: retention,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      outboxRetentionRepo
	dlq       dlqRetentionRepo
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return JobOutboxRetention }

func (j *outboxRetentionJob) Run(ctx context.Context) (Report, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	published, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("outbox retention: %w", err)
	}
	report := Report{"cutoff": cutoff, "rows_deleted": published}
	if j.dlq != nil {
		failed, err := j.dlq.DeleteFailedBefore(ctx, cutoff)
		if err != nil {
			return report, fmt.Errorf("dlq retention: %w", err)
		}
		report["dlq_rows_deleted"] = failed
	}
	return report, nil
}
