package razorpay

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/razorpay/razorpay-go"

	"github.com/netaconnect/billing-backend/pkg/config"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
)

// Gateway is the slice of the Razorpay API billing depends on.
type Gateway interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
	CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (*Capture, error)
}

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Capture(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// CreateOrderInput carries the order-creation request in minor units.
type CreateOrderInput struct {
	Amount         int64
	Currency       string
	Receipt        string
	Notes          map[string]string
	PaymentCapture bool
}

// Order is the public shape of a created Razorpay order.
type Order struct {
	ID        string
	Amount    int64
	Currency  string
	Receipt   string
	Status    string
	Notes     map[string]string
	CreatedAt time.Time
}

// Capture is the provider's answer to a capture request.
type Capture struct {
	PaymentID string
	Status    string
	Amount    int64
	Captured  bool
}

// Client wraps the official SDK. The SDK is synchronous and context-free, so
// calls are not cancellable mid-flight.
type Client struct {
	orders   orderAPI
	payments paymentAPI
}

// NewClient builds a client from the configured key pair.
func NewClient(cfg config.RazorpayConfig) (*Client, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, fmt.Errorf("razorpay key id and secret are required")
	}
	raw := sdk.NewClient(cfg.KeyID, cfg.KeySecret)
	return &Client{orders: raw.Order, payments: raw.Payment}, nil
}

// CreateOrder creates an order on Razorpay.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"amount":          input.Amount,
		"currency":        input.Currency,
		"payment_capture": boolToInt(input.PaymentCapture),
	}
	if input.Receipt != "" {
		data["receipt"] = input.Receipt
	}
	if len(input.Notes) > 0 {
		notes := make(map[string]interface{}, len(input.Notes))
		for k, v := range input.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	body, err := c.orders.Create(data, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "create razorpay order")
	}
	order := &Order{
		ID:        stringField(body, "id"),
		Amount:    intField(body, "amount"),
		Currency:  stringField(body, "currency"),
		Receipt:   stringField(body, "receipt"),
		Status:    stringField(body, "status"),
		Notes:     NotesFromAny(body["notes"]),
		CreatedAt: unixField(body, "created_at"),
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "razorpay order response missing id")
	}
	return order, nil
}

// CapturePayment captures amount (minor units) of an authorized payment.
func (c *Client) CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (*Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := map[string]interface{}{"currency": currency}
	body, err := c.payments.Capture(paymentID, int(amount), data, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "capture razorpay payment")
	}
	capture := &Capture{
		PaymentID: stringField(body, "id"),
		Status:    stringField(body, "status"),
		Amount:    intField(body, "amount"),
	}
	if captured, ok := body["captured"].(bool); ok {
		capture.Captured = captured
	} else {
		capture.Captured = strings.EqualFold(capture.Status, "captured")
	}
	if capture.PaymentID == "" {
		capture.PaymentID = paymentID
	}
	return capture, nil
}

// NotesFromAny normalizes the provider's notes field. Razorpay encodes empty
// notes as a JSON array and non-string values as numbers.
func NotesFromAny(value any) map[string]string {
	raw, ok := value.(map[string]interface{})
	if !ok || len(raw) == 0 {
		return map[string]string{}
	}
	notes := make(map[string]string, len(raw))
	for k, v := range raw {
		switch typed := v.(type) {
		case string:
			notes[k] = typed
		case nil:
		case float64:
			if typed == float64(int64(typed)) {
				notes[k] = fmt.Sprintf("%d", int64(typed))
			} else {
				notes[k] = fmt.Sprintf("%v", typed)
			}
		default:
			notes[k] = fmt.Sprintf("%v", typed)
		}
	}
	return notes
}

func stringField(body map[string]interface{}, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}

func intField(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func unixField(body map[string]interface{}, key string) time.Time {
	if secs := intField(body, key); secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return time.Time{}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
