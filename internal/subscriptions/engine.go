package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/netaconnect/billing-backend/internal/users"
	dbpkg "github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/enums"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/metrics"
	"github.com/netaconnect/billing-backend/pkg/outbox"
	"github.com/netaconnect/billing-backend/pkg/outbox/payloads"
)

const defaultCurrency = "INR"

var errConcurrentActivation = errors.New("subscription inserted concurrently")

// Result is what Activate did for one payment.
type Result struct {
	Subscription     *models.Subscription
	AlreadyActivated bool
}

// EngineParams wires an Engine. Clock and Metrics are optional.
type EngineParams struct {
	DB                  dbpkg.TxRunner
	Subscriptions       *Repository
	Users               *users.Repository
	Outbox              outbox.Emitter
	Logger              *logger.Logger
	Metrics             *metrics.BillingMetrics
	DefaultValidityDays int
	Clock               func() time.Time
}

// Engine turns captured payments into subscriptions and entitlements.
type Engine struct {
	db          dbpkg.TxRunner
	subs        *Repository
	users       *users.Repository
	outbox      outbox.Emitter
	logg        *logger.Logger
	metrics     *metrics.BillingMetrics
	defaultDays int
	now         func() time.Time
}

func NewEngine(p EngineParams) (*Engine, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if p.Subscriptions == nil || p.Users == nil {
		return nil, fmt.Errorf("subscription and user repositories required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		db:          p.DB,
		subs:        p.Subscriptions,
		users:       p.Users,
		outbox:      p.Outbox,
		logg:        logg,
		metrics:     p.Metrics,
		defaultDays: p.DefaultValidityDays,
		now:         func() time.Time { return clock().UTC() },
	}, nil
}

// Activate creates the subscription for a captured payment, updates the
// user's entitlement and queues subscription_activated, all in one
// transaction. A payment that already activated returns the stored
// subscription with AlreadyActivated set. Notes without planId or userId
// return ErrSkipActivation.
func (e *Engine) Activate(ctx context.Context, payment *models.Payment) (*Result, error) {
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment required")
	}
	activation, err := parseActivation(payment.Notes, e.defaultDays)
	if err != nil {
		e.metrics.IncActivation("unknown", "skipped")
		return nil, err
	}
	ctx = e.logg.WithFields(ctx, map[string]any{
		"payment_id": payment.ProviderPaymentID,
		"user_id":    activation.UserID,
		"plan_id":    activation.PlanID,
	})

	var result *Result
	err = e.db.WithTx(ctx, func(tx *gorm.DB) error {
		subs := e.subs.WithTx(tx)
		existing, err := subs.FindByPaymentID(ctx, payment.ProviderPaymentID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = &Result{Subscription: existing, AlreadyActivated: true}
			return nil
		}

		sub := e.buildSubscription(payment, activation)
		if err := subs.Create(ctx, sub); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return errConcurrentActivation
			}
			return err
		}
		if err := e.users.WithTx(tx).ApplyEntitlement(ctx, activation.UserID, activation.PlanType, activation.PlanID, sub.ExpiresAt); err != nil {
			return err
		}
		if err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionActivated,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			OccurredAt:    sub.PurchasedAt,
			Data:          ActivatedPayload(sub),
		}); err != nil {
			return err
		}
		result = &Result{Subscription: sub}
		return nil
	})

	if errors.Is(err, errConcurrentActivation) {
		existing, findErr := e.subs.FindByPaymentID(ctx, payment.ProviderPaymentID)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription vanished after conflict")
		}
		result, err = &Result{Subscription: existing, AlreadyActivated: true}, nil
	}
	if err != nil {
		e.metrics.IncActivation(string(activation.PlanType), "failed")
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "activation user not found")
		}
		return nil, err
	}

	if result.AlreadyActivated {
		e.metrics.IncActivation(string(activation.PlanType), "duplicate")
		e.logg.Info(ctx, "payment already activated a subscription")
		return result, nil
	}
	e.metrics.IncActivation(string(activation.PlanType), "activated")
	e.logg.Info(e.logg.WithSubscriptionID(ctx, result.Subscription.ID.String()), "subscription activated")
	return result, nil
}

func (e *Engine) buildSubscription(payment *models.Payment, activation Activation) *models.Subscription {
	now := e.now()
	currency := payment.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	sub := &models.Subscription{
		ID:           uuid.New(),
		UserID:       activation.UserID,
		PlanID:       activation.PlanID,
		PlanType:     activation.PlanType,
		ValidityDays: activation.ValidityDays,
		AmountPaid:   decimal.New(payment.Amount, -2),
		Currency:     currency,
		PurchasedAt:  now,
		ExpiresAt:    now.Add(time.Duration(activation.ValidityDays) * 24 * time.Hour),
		IsActive:     true,
		PaymentID:    payment.ProviderPaymentID,
		OrderID:      payment.ProviderOrderID,
	}
	if activation.ElectionType != "" {
		electionType := activation.ElectionType
		sub.ElectionType = &electionType
	}
	return sub
}

// ActivatedPayload is the subscription_activated event body for sub.
func ActivatedPayload(sub *models.Subscription) payloads.SubscriptionActivatedEvent {
	out := payloads.SubscriptionActivatedEvent{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         sub.PlanID,
		PlanType:       sub.PlanType,
		ValidityDays:   sub.ValidityDays,
		AmountPaid:     sub.AmountPaid,
		Currency:       sub.Currency,
		PaymentID:      sub.PaymentID,
		PurchasedAt:    sub.PurchasedAt,
		ExpiresAt:      sub.ExpiresAt,
	}
	if sub.ElectionType != nil {
		out.ElectionType = *sub.ElectionType
	}
	if sub.OrderID != nil {
		out.OrderID = *sub.OrderID
	}
	return out
}
