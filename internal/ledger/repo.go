package ledger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/enums"
)

// Repository persists orders, payments and the webhook audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, providerOrderID string) (*models.Order, error)
	InsertOrderIfAbsent(ctx context.Context, order *models.Order) error
	AdvanceOrderStatus(ctx context.Context, providerOrderID string, next enums.OrderStatus) (bool, error)
	FindPaymentForUpdate(ctx context.Context, providerPaymentID string) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	SavePayment(ctx context.Context, payment *models.Payment) error
	InsertAudit(ctx context.Context, row *models.PaymentWebhookEvent) error
	ClaimCapture(ctx context.Context, providerPaymentID string, at time.Time) (bool, error)
	SetCaptured(ctx context.Context, providerPaymentID, reference string, at time.Time) (bool, error)
	SetCaptureFailed(ctx context.Context, providerPaymentID, reason string) error
	SetState(ctx context.Context, providerPaymentID string, state enums.PaymentState) error
	SetSignatureVerified(ctx context.Context, providerPaymentID string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, providerOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("provider_order_id = ?", providerOrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) InsertOrderIfAbsent(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "provider_order_id"}}, DoNothing: true}).
		Create(order).Error
}

// AdvanceOrderStatus only moves an order out of created.
func (r *repository) AdvanceOrderStatus(ctx context.Context, providerOrderID string, next enums.OrderStatus) (bool, error) {
	if !enums.OrderStatusCreated.CanTransitionTo(next) {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("provider_order_id = ? AND status = ?", providerOrderID, enums.OrderStatusCreated).
		Updates(map[string]any{"status": next, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) FindPaymentForUpdate(ctx context.Context, providerPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_payment_id = ?", providerPaymentID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) SavePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) InsertAudit(ctx context.Context, row *models.PaymentWebhookEvent) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ClaimCapture(ctx context.Context, providerPaymentID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("provider_payment_id = ? AND capture_attempted_at IS NULL AND captured = ?", providerPaymentID, false).
		Updates(map[string]any{"capture_attempted_at": at, "updated_at": at})
	return res.RowsAffected == 1, res.Error
}

func (r *repository) SetCaptured(ctx context.Context, providerPaymentID, reference string, at time.Time) (bool, error) {
	updates := map[string]any{
		"captured":      true,
		"captured_at":   at,
		"state":         enums.PaymentStateCaptured,
		"capture_error": nil,
		"updated_at":    at,
	}
	if reference != "" {
		updates["capture_reference"] = reference
	}
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("provider_payment_id = ? AND captured = ?", providerPaymentID, false).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) SetCaptureFailed(ctx context.Context, providerPaymentID, reason string) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("provider_payment_id = ? AND captured = ?", providerPaymentID, false).
		Updates(map[string]any{
			"capture_error": reason,
			"state":         enums.PaymentStateCaptureFailed,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// SetState never moves a payment out of captured.
func (r *repository) SetState(ctx context.Context, providerPaymentID string, state enums.PaymentState) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("provider_payment_id = ? AND state <> ?", providerPaymentID, enums.PaymentStateCaptured).
		Updates(map[string]any{"state": state, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) SetSignatureVerified(ctx context.Context, providerPaymentID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("provider_payment_id = ? AND signature_verified = ?", providerPaymentID, false).
		Updates(map[string]any{"signature_verified": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}
