package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/netaconnect/billing-backend/pkg/db/models"
)

// warningColumns maps a lead time in hours to the flag that records it.
var warningColumns = map[int]string{
	72: "warning_sent_72h",
	24: "warning_sent_24h",
	1:  "warning_sent_1h",
}

// WarningColumn returns the flag column for a lead time, and false when the
// lead time has no flag.
func WarningColumn(lead time.Duration) (string, bool) {
	col, ok := warningColumns[int(lead/time.Hour)]
	if !ok || lead%time.Hour != 0 {
		return "", false
	}
	return col, true
}

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

// FindByPaymentID returns nil when the payment has not activated anything.
func (r *Repository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *Repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// ListExpired returns active subscriptions whose expiry is before now.
func (r *Repository) ListExpired(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var rows []models.Subscription
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND expires_at < ?", true, now).
		Order("expires_at ASC").
		Find(&rows).Error
	return rows, err
}

// MarkExpired flips one subscription inactive. It reports false when another
// run already did.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"is_active": false, "expired_at": now, "updated_at": now})
	return res.RowsAffected == 1, res.Error
}

// ListExpiring returns active subscriptions expiring within [now, until]
// that have not been warned through column yet.
func (r *Repository) ListExpiring(ctx context.Context, now, until time.Time, column string) ([]models.Subscription, error) {
	var rows []models.Subscription
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("expires_at >= ? AND expires_at <= ?", now, until).
		Where(column+" = ?", false).
		Order("expires_at ASC").
		Find(&rows).Error
	return rows, err
}

// ClaimWarning sets the warning flag unless it is already set, so only one
// sweep sends the notification.
func (r *Repository) ClaimWarning(ctx context.Context, id uuid.UUID, column string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", id).
		Where(column+" = ?", false).
		Updates(map[string]any{column: true, "updated_at": now})
	return res.RowsAffected == 1, res.Error
}
