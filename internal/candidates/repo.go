package candidates

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/netaconnect/billing-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUserID returns the user's candidate profile, or nil when they have none.
func (r *Repository) FindByUserID(ctx context.Context, userID string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").First(&candidate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}

// ListWithPendingDeletions returns candidates whose delete_storage queue is non-empty.
func (r *Repository) ListWithPendingDeletions(ctx context.Context, limit int) ([]models.Candidate, error) {
	q := r.db.WithContext(ctx).
		Where("delete_storage IS NOT NULL AND delete_storage <> ?", "{}").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Candidate
	err := q.Find(&rows).Error
	return rows, err
}

// RemovePendingDeletions drops deleted paths from the queue, keeping anything
// appended since the queue was read.
func (r *Repository) RemovePendingDeletions(ctx context.Context, candidateID string, deleted []string) error {
	if len(deleted) == 0 {
		return nil
	}
	var current models.Candidate
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&current, "id = ?", candidateID).Error; err != nil {
		return err
	}
	remaining := make(pq.StringArray, 0, len(current.DeleteStorage))
	for _, path := range current.DeleteStorage {
		if !slices.Contains(deleted, path) {
			remaining = append(remaining, path)
		}
	}
	return r.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("id = ?", candidateID).
		Updates(map[string]any{"delete_storage": remaining, "updated_at": time.Now().UTC()}).Error
}
