package razorpaywebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/netaconnect/billing-backend/internal/ledger"
	"github.com/netaconnect/billing-backend/internal/payments"
	"github.com/netaconnect/billing-backend/internal/subscriptions"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/enums"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/metrics"
	"github.com/netaconnect/billing-backend/pkg/razorpay"
)

type captureCoordinator interface {
	Capture(ctx context.Context, payment *models.Payment) (payments.CaptureResult, error)
}

type activator interface {
	Activate(ctx context.Context, payment *models.Payment) (*subscriptions.Result, error)
}

type eventGuard interface {
	Claim(ctx context.Context, eventID string) (ClaimState, error)
	Complete(ctx context.Context, eventID string) error
	Release(ctx context.Context, eventID string) error
}

// Delivery is one parsed webhook request.
type Delivery struct {
	EventID    string
	ReceivedAt time.Time
	Event      Event
}

// ServiceParams wires the webhook service. Guard and Metrics are optional.
type ServiceParams struct {
	WebhookSecret string
	Policy        Policy
	Ledger        ledger.Service
	Capture       captureCoordinator
	Activation    activator
	Guard         eventGuard
	Metrics       *metrics.BillingMetrics
	Logger        *logger.Logger
}

type Service struct {
	secret     string
	policy     Policy
	ledger     ledger.Service
	capture    captureCoordinator
	activation activator
	guard      eventGuard
	metrics    *metrics.BillingMetrics
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Capture == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "capture coordinator required")
	}
	if params.Activation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "activation engine required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		secret:     params.WebhookSecret,
		policy:     params.Policy,
		ledger:     params.Ledger,
		capture:    params.Capture,
		activation: params.Activation,
		guard:      params.Guard,
		metrics:    params.Metrics,
		logg:       logg,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Process verifies, parses and handles one webhook request. body must be the
// raw request bytes. The returned error carries the status to answer with:
// MISCONFIGURED without a secret, SIGNATURE_INVALID or VALIDATION_ERROR for
// rejected input, CONFLICT while another delivery of the same event is in
// flight, and INTERNAL_ERROR when the ledger write failed.
func (s *Service) Process(ctx context.Context, body []byte, signature, eventID string) error {
	if s.secret == "" {
		s.metrics.IncWebhook("unknown", "misconfigured")
		return pkgerrors.New(pkgerrors.CodeMisconfigured, "razorpay webhook secret not configured")
	}
	if err := razorpay.VerifyWebhookSignature(body, signature, s.secret); err != nil {
		s.metrics.IncWebhook("unknown", "signature_rejected")
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"security_event": "webhook_signature_rejected",
			"event_id":       eventID,
			"reason":         err.Error(),
		}), "razorpay webhook signature rejected")
		return pkgerrors.Wrap(pkgerrors.CodeSignature, err, "invalid webhook signature")
	}

	event, err := Parse(body)
	if err != nil {
		s.metrics.IncWebhook("unknown", "invalid")
		return err
	}

	claimed := false
	if eventID != "" && s.guard != nil {
		state, err := s.guard.Claim(ctx, eventID)
		switch {
		case err != nil:
			s.logg.Error(ctx, "webhook event guard unavailable", err)
		case state == ClaimDone:
			s.metrics.IncWebhook(event.Name(), "duplicate")
			s.logg.Info(s.logg.WithField(ctx, "event_id", eventID), "duplicate webhook delivery ignored")
			return nil
		case state == ClaimInFlight:
			s.metrics.IncWebhook(event.Name(), "in_flight")
			return pkgerrors.New(pkgerrors.CodeConflict, "webhook delivery already in progress")
		default:
			claimed = true
		}
	}

	if err := s.HandleEvent(ctx, Delivery{EventID: eventID, ReceivedAt: s.now(), Event: event}); err != nil {
		if claimed {
			if relErr := s.guard.Release(ctx, eventID); relErr != nil {
				s.logg.Error(ctx, "failed to release webhook event claim", relErr)
			}
		}
		return err
	}
	if claimed {
		if err := s.guard.Complete(ctx, eventID); err != nil {
			s.logg.Error(ctx, "failed to mark webhook event processed", err)
		}
	}
	return nil
}

// HandleEvent records the delivery in the ledger, then runs the effects the
// transition asks for. Only ledger failures are returned; effect failures are
// logged and counted because the delivery is already durable.
func (s *Service) HandleEvent(ctx context.Context, delivery Delivery) error {
	event := delivery.Event
	entity, ok := PaymentOf(event)
	if !ok {
		s.metrics.IncWebhook(event.Name(), "ignored")
		s.logg.Info(s.logg.WithField(ctx, "event", event.Name()), "unhandled razorpay event acknowledged")
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event":      event.Name(),
		"event_id":   delivery.EventID,
		"payment_id": entity.ID,
		"order_id":   entity.OrderID,
	})

	payment, err := s.record(ctx, delivery, entity)
	if err != nil {
		s.metrics.IncWebhook(event.Name(), "failed")
		s.logg.Error(ctx, "failed to record razorpay delivery", err)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record webhook delivery")
	}

	policy, err := s.policyFor(ctx, payment)
	if err != nil {
		s.metrics.IncWebhook(event.Name(), "failed")
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment order")
	}
	next, effects := Transition(payment.State, event, policy)
	if next != payment.State && next != enums.PaymentStateCaptured {
		if err := s.ledger.SetState(ctx, payment.ProviderPaymentID, next); err != nil {
			s.metrics.IncWebhook(event.Name(), "failed")
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment state")
		}
		payment.State = next
	}

	outcome := "processed"
	if err := s.runEffects(ctx, payment, effects); err != nil {
		outcome = "effect_failed"
		s.logg.Error(ctx, "razorpay webhook side effect failed", err)
	}
	s.metrics.IncWebhook(event.Name(), outcome)
	return nil
}

// policyFor treats payments on orders created with payment_capture as
// auto-captured, so Razorpay's own capture is not raced by a second one.
func (s *Service) policyFor(ctx context.Context, payment *models.Payment) (Policy, error) {
	policy := s.policy
	if policy.AutoCapture || payment.ProviderOrderID == nil {
		return policy, nil
	}
	order, err := s.ledger.GetOrder(ctx, *payment.ProviderOrderID)
	if err != nil {
		return policy, err
	}
	if order != nil && order.PaymentCapture {
		policy.AutoCapture = true
	}
	return policy, nil
}

func (s *Service) record(ctx context.Context, delivery Delivery, entity PaymentEntity) (*models.Payment, error) {
	if paid, ok := delivery.Event.(OrderPaid); ok && paid.Order != nil {
		if _, err := s.ledger.RecordOrder(ctx, ledger.OrderInput{
			ProviderOrderID: paid.Order.ID,
			UserID:          paid.Order.Notes["userId"],
			Amount:          paid.Order.Amount,
			Currency:        paid.Order.Currency,
			Receipt:         paid.Order.Receipt,
			Notes:           paid.Order.Notes,
			PaymentCapture:  true,
			Status:          enums.OrderStatusPaid,
		}); err != nil {
			return nil, err
		}
	}
	return s.ledger.RecordPayment(ctx, ledger.PaymentInput{
		ProviderPaymentID: entity.ID,
		ProviderOrderID:   entity.OrderID,
		Amount:            entity.Amount,
		Currency:          entity.Currency,
		Status:            entity.Status,
		Method:            entity.Method,
		Email:             entity.Email,
		Contact:           entity.Contact,
		ErrorCode:         entity.ErrorCode,
		ErrorDescription:  entity.ErrorDescription,
		Notes:             entity.Notes,
	}, ledger.EventMeta{
		Name:            delivery.Event.Name(),
		ProviderEventID: delivery.EventID,
		ReceivedAt:      delivery.ReceivedAt,
	})
}

func (s *Service) runEffects(ctx context.Context, payment *models.Payment, effects []Effect) error {
	for _, effect := range effects {
		switch effect {
		case EffectCapture:
			result, err := s.capture.Capture(ctx, payment)
			if err != nil {
				s.metrics.IncCapture("error")
				return fmt.Errorf("capture: %w", err)
			}
			s.metrics.IncCapture(string(result.Outcome))
			if result.Outcome != payments.CaptureSucceeded {
				return nil
			}
			payment = result.Payment
			if err := s.activate(ctx, payment); err != nil {
				return err
			}
		case EffectMarkCaptured:
			updated, err := s.ledger.MarkCaptured(ctx, payment.ProviderPaymentID, payment.ProviderPaymentID)
			if err != nil {
				return fmt.Errorf("mark captured: %w", err)
			}
			payment = updated
		case EffectActivate:
			if err := s.activate(ctx, payment); err != nil {
				return err
			}
		case EffectMarkOrderFailed:
			if payment.ProviderOrderID == nil {
				continue
			}
			if err := s.ledger.MarkOrderFailed(ctx, *payment.ProviderOrderID); err != nil {
				return fmt.Errorf("mark order failed: %w", err)
			}
		}
	}
	return nil
}

func (s *Service) activate(ctx context.Context, payment *models.Payment) error {
	if payment == nil || !payment.Captured {
		return errors.New("activation requires a captured payment")
	}
	_, err := s.activation.Activate(ctx, payment)
	if errors.Is(err, subscriptions.ErrSkipActivation) {
		s.logg.Info(s.logg.WithField(ctx, "reason", err.Error()), "activation skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	return nil
}
