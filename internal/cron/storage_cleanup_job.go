package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/netaconnect/billing-backend/internal/candidates"
	"github.com/netaconnect/billing-backend/pkg/logger"
)

const storageCleanupBatch = 200

// objectDeleter removes stored files. Missing objects are not an error.
type objectDeleter interface {
	DeleteObject(ctx context.Context, path string) error
}

type StorageCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Candidates *candidates.Repository
	Storage    objectDeleter
	BatchSize  int
}

func NewStorageCleanupJob(params StorageCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Candidates == nil {
		return nil, fmt.Errorf("candidate repository required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage client required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = storageCleanupBatch
	}
	return &storageCleanupJob{
		logg:       params.Logger,
		db:         params.DB,
		candidates: params.Candidates,
		storage:    params.Storage,
		batch:      batch,
	}, nil
}

type storageCleanupJob struct {
	logg       *logger.Logger
	db         txRunner
	candidates *candidates.Repository
	storage    objectDeleter
	batch      int
}

func (j *storageCleanupJob) Name() string { return JobStorageCleanup }

// Run deletes queued files for one batch of candidates. Paths that fail to
// delete stay queued for the next run.
func (j *storageCleanupJob) Run(ctx context.Context) (Report, error) {
	rows, err := j.candidates.ListWithPendingDeletions(ctx, j.batch)
	if err != nil {
		return nil, fmt.Errorf("list pending deletions: %w", err)
	}

	var processed, deletedCount, failures int
	for _, candidate := range rows {
		if err := ctx.Err(); err != nil {
			break
		}
		logCtx := j.logg.WithField(ctx, "candidate_id", candidate.ID)
		deleted := make([]string, 0, len(candidate.DeleteStorage))
		for _, path := range candidate.DeleteStorage {
			if err := j.storage.DeleteObject(ctx, path); err != nil {
				failures++
				j.logg.Error(j.logg.WithField(logCtx, "path", path), "failed to delete stored file", err)
				continue
			}
			deleted = append(deleted, path)
		}
		if len(deleted) > 0 {
			err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
				return j.candidates.WithTx(tx).RemovePendingDeletions(ctx, candidate.ID, deleted)
			})
			if err != nil {
				failures++
				j.logg.Error(logCtx, "failed to update delete_storage queue", err)
				continue
			}
		}
		deletedCount += len(deleted)
		processed++
	}

	return Report{
		"candidates_processed": processed,
		"files_deleted":        deletedCount,
		"errors":               failures,
	}, nil
}
