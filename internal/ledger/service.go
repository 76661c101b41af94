package ledger

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/enums"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/outbox"
	"github.com/netaconnect/billing-backend/pkg/outbox/payloads"
)

// Service records orders and payments. Every method is one transaction.
type Service interface {
	RecordOrder(ctx context.Context, input OrderInput) (*models.Order, error)
	RecordPayment(ctx context.Context, input PaymentInput, event EventMeta) (*models.Payment, error)
	MarkSignatureVerified(ctx context.Context, providerOrderID, providerPaymentID string) error
	ClaimCapture(ctx context.Context, providerPaymentID string) (bool, error)
	MarkCaptured(ctx context.Context, providerPaymentID, reference string) (*models.Payment, error)
	MarkCaptureFailed(ctx context.Context, providerPaymentID, reason string) error
	MarkOrderFailed(ctx context.Context, providerOrderID string) error
	SetState(ctx context.Context, providerPaymentID string, state enums.PaymentState) error
	GetPayment(ctx context.Context, providerPaymentID string) (*models.Payment, error)
	GetOrder(ctx context.Context, providerOrderID string) (*models.Order, error)
}

// OrderInput is an order as returned by the provider.
type OrderInput struct {
	ProviderOrderID string
	UserID          string
	Amount          int64
	Currency        string
	Receipt         string
	Notes           map[string]string
	PaymentCapture  bool
	Status          enums.OrderStatus
}

// PaymentInput is the payment entity carried by one webhook delivery. Empty
// fields never overwrite recorded values. captured and signature_verified
// are not part of it: they only change through MarkCaptured and
// MarkSignatureVerified, so a delivery can never reset them.
type PaymentInput struct {
	ProviderPaymentID string
	ProviderOrderID   string
	Amount            int64
	Currency          string
	Status            string
	Method            string
	Email             string
	Contact           string
	ErrorCode         string
	ErrorDescription  string
	Notes             map[string]string
}

// EventMeta describes the delivery for the audit trail.
type EventMeta struct {
	Name            string
	ProviderEventID string
	ReceivedAt      time.Time
}

type service struct {
	db     dbpkg.TxRunner
	repo   Repository
	outbox outbox.Emitter
	now    func() time.Time
}

// NewService wires a ledger service.
func NewService(db dbpkg.TxRunner, repo Repository, emitter outbox.Emitter) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{db: db, repo: repo, outbox: emitter, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) RecordOrder(ctx context.Context, input OrderInput) (*models.Order, error) {
	if strings.TrimSpace(input.ProviderOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	status := input.Status
	if status == "" {
		status = enums.OrderStatusCreated
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	var out *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row := &models.Order{
			ID:              uuid.New(),
			ProviderOrderID: input.ProviderOrderID,
			UserID:          input.UserID,
			Amount:          input.Amount,
			Currency:        input.Currency,
			Receipt:         optional(input.Receipt),
			Notes:           input.Notes,
			PaymentCapture:  input.PaymentCapture,
			Status:          enums.OrderStatusCreated,
		}
		if err := repo.InsertOrderIfAbsent(ctx, row); err != nil {
			return err
		}
		if status != enums.OrderStatusCreated {
			if _, err := repo.AdvanceOrderStatus(ctx, input.ProviderOrderID, status); err != nil {
				return err
			}
		}
		order, err := repo.FindOrder(ctx, input.ProviderOrderID)
		if err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) RecordPayment(ctx context.Context, input PaymentInput, event EventMeta) (*models.Payment, error) {
	if strings.TrimSpace(input.ProviderPaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	receivedAt := event.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	var out *models.Payment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindPaymentForUpdate(ctx, input.ProviderPaymentID)
		if err != nil {
			return err
		}

		payment := existing
		if payment == nil {
			payment = &models.Payment{ID: uuid.New(), ProviderPaymentID: input.ProviderPaymentID, State: enums.PaymentStateNew}
		}
		mergePayment(payment, input)
		if event.Name != "" {
			payment.LastEvent = optional(event.Name)
		}

		if payment.ProviderOrderID != nil {
			order, err := repo.FindOrder(ctx, *payment.ProviderOrderID)
			if err != nil {
				return err
			}
			if order != nil {
				payment.Notes = inheritNotes(order.Notes, payment.Notes)
			}
		}

		if existing == nil {
			err = repo.CreatePayment(ctx, payment)
		} else {
			err = repo.SavePayment(ctx, payment)
		}
		if err != nil {
			return err
		}

		if err := repo.InsertAudit(ctx, &models.PaymentWebhookEvent{
			ID:                uuid.New(),
			ProviderPaymentID: payment.ProviderPaymentID,
			ProviderOrderID:   payment.ProviderOrderID,
			ProviderEventID:   optional(event.ProviderEventID),
			Event:             eventName(event.Name),
			ReceivedAt:        receivedAt,
		}); err != nil {
			return err
		}
		out = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) MarkSignatureVerified(ctx context.Context, providerOrderID, providerPaymentID string) error {
	if providerPaymentID == "" || providerOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and payment id are required")
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindPaymentForUpdate(ctx, providerPaymentID)
		if err != nil {
			return err
		}
		if existing == nil {
			// The checkout callback can beat the first webhook delivery.
			return repo.CreatePayment(ctx, &models.Payment{
				ID:                uuid.New(),
				ProviderPaymentID: providerPaymentID,
				ProviderOrderID:   optional(providerOrderID),
				State:             enums.PaymentStateNew,
				SignatureVerified: true,
			})
		}
		_, err = repo.SetSignatureVerified(ctx, providerPaymentID)
		return err
	})
}

func (s *service) ClaimCapture(ctx context.Context, providerPaymentID string) (bool, error) {
	var claimed bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		claimed, err = s.repo.WithTx(tx).ClaimCapture(ctx, providerPaymentID, s.now())
		return err
	})
	return claimed, err
}

// MarkCaptured flips captured once, advances the order to paid and queues
// payment_captured. Calls after the first return the stored payment unchanged.
func (s *service) MarkCaptured(ctx context.Context, providerPaymentID, reference string) (*models.Payment, error) {
	var out *models.Payment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()
		changed, err := repo.SetCaptured(ctx, providerPaymentID, reference, now)
		if err != nil {
			return err
		}
		payment, err := repo.FindPaymentForUpdate(ctx, providerPaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not recorded")
		}
		out = payment
		if !changed {
			return nil
		}
		orderID := ""
		if payment.ProviderOrderID != nil {
			orderID = *payment.ProviderOrderID
			if _, err := repo.AdvanceOrderStatus(ctx, orderID, enums.OrderStatusPaid); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCaptured,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			OccurredAt:    now,
			Data: payloads.PaymentCapturedEvent{
				PaymentID:         payment.ID,
				ProviderPaymentID: payment.ProviderPaymentID,
				ProviderOrderID:   orderID,
				Amount:            payment.Amount,
				Currency:          payment.Currency,
				Method:            deref(payment.Method),
				UserID:            payment.Notes["userId"],
				PlanID:            payment.Notes["planId"],
				Notes:             payment.Notes,
				CapturedAt:        now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) MarkCaptureFailed(ctx context.Context, providerPaymentID, reason string) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).SetCaptureFailed(ctx, providerPaymentID, reason)
	})
}

func (s *service) MarkOrderFailed(ctx context.Context, providerOrderID string) error {
	if providerOrderID == "" {
		return nil
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).AdvanceOrderStatus(ctx, providerOrderID, enums.OrderStatusFailed)
		return err
	})
}

func (s *service) SetState(ctx context.Context, providerPaymentID string, state enums.PaymentState) error {
	if !state.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment state %q", state))
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).SetState(ctx, providerPaymentID, state)
	})
}

func (s *service) GetPayment(ctx context.Context, providerPaymentID string) (*models.Payment, error) {
	var out *models.Payment
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = s.repo.WithTx(tx).FindPaymentForUpdate(ctx, providerPaymentID)
		return err
	})
	return out, err
}

// GetOrder returns the recorded order, or nil when it was never recorded.
func (s *service) GetOrder(ctx context.Context, providerOrderID string) (*models.Order, error) {
	if providerOrderID == "" {
		return nil, nil
	}
	return s.repo.FindOrder(ctx, providerOrderID)
}

func mergePayment(p *models.Payment, in PaymentInput) {
	if in.ProviderOrderID != "" {
		p.ProviderOrderID = optional(in.ProviderOrderID)
	}
	if in.Amount > 0 {
		p.Amount = in.Amount
	}
	if in.Currency != "" {
		p.Currency = in.Currency
	}
	if in.Status != "" {
		p.Status = in.Status
	}
	mergeString(&p.Method, in.Method)
	mergeString(&p.Email, in.Email)
	mergeString(&p.Contact, in.Contact)
	mergeString(&p.ErrorCode, in.ErrorCode)
	mergeString(&p.ErrorDescription, in.ErrorDescription)
	if len(in.Notes) > 0 {
		if p.Notes == nil {
			p.Notes = map[string]string{}
		}
		maps.Copy(p.Notes, in.Notes)
	}
}

// inheritNotes fills keys the payment lacks from its order's notes.
func inheritNotes(orderNotes, paymentNotes map[string]string) map[string]string {
	if len(orderNotes) == 0 {
		return paymentNotes
	}
	merged := make(map[string]string, len(orderNotes)+len(paymentNotes))
	maps.Copy(merged, orderNotes)
	maps.Copy(merged, paymentNotes)
	return merged
}

func mergeString(dst **string, value string) {
	if value != "" {
		*dst = &value
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func eventName(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}
