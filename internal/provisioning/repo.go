package provisioning

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/netaconnect/billing-backend/pkg/db/models"
)

// Repository persists placements and system feed posts.
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

// MarkProvisioned records that the subscription's placement was applied. It
// reports false when an earlier delivery already recorded it.
func (r *Repository) MarkProvisioned(ctx context.Context, row *models.ProvisionedSubscription) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "subscription_id"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindRotatingPlacement returns the candidate's active shared placement in the
// ward, or nil when there is none.
func (r *Repository) FindRotatingPlacement(ctx context.Context, candidateID, wardID string) (*models.Highlight, error) {
	var row models.Highlight
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("candidate_id = ? AND ward_id = ? AND is_active = ? AND exclusive = ?", candidateID, wardID, true, false).
		Order("expires_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateHighlight(ctx context.Context, row *models.Highlight) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) ExtendHighlight(ctx context.Context, id uuid.UUID, pkg string, subscriptionID uuid.UUID, expiresAt, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Highlight{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"package":         pkg,
			"subscription_id": subscriptionID,
			"expires_at":      expiresAt,
			"updated_at":      now,
		}).Error
}

func (r *Repository) CreateFeedPost(ctx context.Context, row *models.FeedPost) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}
