package users

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/enums"
)

// ErrUserNotFound is returned when an entitlement update targets a user that
// does not exist. Billing never creates users.
var ErrUserNotFound = errors.New("user not found")

// Repository updates the entitlement fields on user rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID returns nil when the user does not exist.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// ApplyEntitlement writes the plan fields for one plan family and leaves the
// other families untouched.
func (r *Repository) ApplyEntitlement(ctx context.Context, userID string, planType enums.PlanType, planID string, expiresAt time.Time) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	switch planType {
	case enums.PlanTypeHighlight:
		updates["highlight_plan_id"] = planID
		updates["highlight_plan_expires_at"] = expiresAt
	case enums.PlanTypeCarousel:
		updates["carousel_plan_id"] = planID
		updates["carousel_plan_expires_at"] = expiresAt
	default:
		updates["premium"] = true
		updates["subscription_plan_id"] = planID
		updates["subscription_expires_at"] = expiresAt
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DowngradeCandidatePlan clears the candidate-plan fields unless the user
// renewed and now holds an expiry after now. It reports whether the row changed.
func (r *Repository) DowngradeCandidatePlan(ctx context.Context, userID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Where("subscription_expires_at IS NULL OR subscription_expires_at <= ?", now).
		Updates(map[string]any{
			"premium":                 false,
			"subscription_plan_id":    nil,
			"subscription_expires_at": nil,
			"updated_at":              now,
		})
	return res.RowsAffected == 1, res.Error
}
