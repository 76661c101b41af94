package razorpaywebhook

import (
	"encoding/json"
	"strings"

	"github.com/netaconnect/billing-backend/pkg/enums"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/razorpay"
)

// PaymentEntity is payload.payment.entity of a webhook envelope.
type PaymentEntity struct {
	ID               string
	OrderID          string
	Amount           int64
	Currency         string
	Status           string
	Method           string
	Email            string
	Contact          string
	ErrorCode        string
	ErrorDescription string
	Captured         bool
	Notes            map[string]string
}

// OrderEntity is payload.order.entity, present on order.paid.
type OrderEntity struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
	Notes    map[string]string
}

// Event is one of PaymentAuthorized, PaymentCaptured, PaymentFailed,
// OrderPaid or Unrecognized.
type Event interface {
	Name() string
	isEvent()
}

type PaymentAuthorized struct{ Payment PaymentEntity }

type PaymentCaptured struct{ Payment PaymentEntity }

type PaymentFailed struct{ Payment PaymentEntity }

type OrderPaid struct {
	Payment PaymentEntity
	Order   *OrderEntity
}

// Unrecognized is any event the service acknowledges without acting on.
type Unrecognized struct{ EventName string }

func (PaymentAuthorized) Name() string { return enums.RazorpayEventPaymentAuthorized.String() }
func (PaymentCaptured) Name() string { return enums.RazorpayEventPaymentCaptured.String() }
func (PaymentFailed) Name() string { return enums.RazorpayEventPaymentFailed.String() }
func (OrderPaid) Name() string { return enums.RazorpayEventOrderPaid.String() }
func (u Unrecognized) Name() string { return u.EventName }

func (PaymentAuthorized) isEvent() {}
func (PaymentCaptured) isEvent() {}
func (PaymentFailed) isEvent() {}
func (OrderPaid) isEvent() {}
func (Unrecognized) isEvent() {}

// PaymentOf returns the payment entity an event carries.
func PaymentOf(ev Event) (PaymentEntity, bool) {
	switch e := ev.(type) {
	case PaymentAuthorized:
		return e.Payment, true
	case PaymentCaptured:
		return e.Payment, true
	case PaymentFailed:
		return e.Payment, true
	case OrderPaid:
		return e.Payment, true
	default:
		return PaymentEntity{}, false
	}
}

type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity *paymentJSON `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity *orderJSON `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type paymentJSON struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	Captured         bool   `json:"captured"`
	Notes            any    `json:"notes"`
}

type orderJSON struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	Notes    any    `json:"notes"`
}

// Parse decodes a webhook body. Malformed JSON, a missing event name, or a
// payment event without a payment id is a validation error.
func Parse(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	name := strings.TrimSpace(env.Event)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event is required")
	}
	kind := enums.RazorpayEvent(name)
	if !kind.IsPaymentEvent() {
		return Unrecognized{EventName: name}, nil
	}
	if env.Payload.Payment == nil || env.Payload.Payment.Entity == nil || strings.TrimSpace(env.Payload.Payment.Entity.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payload.payment.entity.id is required")
	}
	payment := env.Payload.Payment.Entity.toEntity()

	switch kind {
	case enums.RazorpayEventPaymentAuthorized:
		return PaymentAuthorized{Payment: payment}, nil
	case enums.RazorpayEventPaymentCaptured:
		return PaymentCaptured{Payment: payment}, nil
	case enums.RazorpayEventPaymentFailed:
		return PaymentFailed{Payment: payment}, nil
	default:
		out := OrderPaid{Payment: payment}
		if env.Payload.Order != nil && env.Payload.Order.Entity != nil && env.Payload.Order.Entity.ID != "" {
			order := env.Payload.Order.Entity.toEntity()
			out.Order = &order
			if out.Payment.OrderID == "" {
				out.Payment.OrderID = order.ID
			}
		}
		return out, nil
	}
}

func (p paymentJSON) toEntity() PaymentEntity {
	return PaymentEntity{
		ID:               strings.TrimSpace(p.ID),
		OrderID:          strings.TrimSpace(p.OrderID),
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		Method:           p.Method,
		Email:            p.Email,
		Contact:          p.Contact,
		ErrorCode:        p.ErrorCode,
		ErrorDescription: p.ErrorDescription,
		Captured:         p.Captured,
		Notes:            razorpay.NotesFromAny(p.Notes),
	}
}

func (o orderJSON) toEntity() OrderEntity {
	return OrderEntity{
		ID:       strings.TrimSpace(o.ID),
		Amount:   o.Amount,
		Currency: o.Currency,
		Receipt:  o.Receipt,
		Status:   o.Status,
		Notes:    razorpay.NotesFromAny(o.Notes),
	}
}
