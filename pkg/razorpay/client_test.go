package razorpay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/pkg/config"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
)

type stubOrders struct {
	data map[string]interface{}
	resp map[string]interface{}
	err  error
}

func (s *stubOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	s.data = data
	return s.resp, s.err
}

type stubPayments struct {
	paymentID string
	amount    int
	resp      map[string]interface{}
	err       error
}

func (s *stubPayments) Capture(paymentID string, amount int, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	s.paymentID = paymentID
	s.amount = amount
	return s.resp, s.err
}

func TestCreateOrderMapsRequestAndResponse(t *testing.T) {
	orders := &stubOrders{resp: map[string]interface{}{
		"id":         "order_1",
		"amount":     float64(50000),
		"currency":   "INR",
		"receipt":    "rcpt-1",
		"status":     "created",
		"notes":      map[string]interface{}{"planId": "gold_plan", "validityDays": float64(30)},
		"created_at": float64(1767225600),
	}}
	client := &Client{orders: orders}

	order, err := client.CreateOrder(context.Background(), CreateOrderInput{
		Amount:         50000,
		Currency:       "INR",
		Receipt:        "rcpt-1",
		Notes:          map[string]string{"planId": "gold_plan"},
		PaymentCapture: true,
	})
	require.NoError(t, err)

	require.Equal(t, int64(50000), orders.data["amount"])
	require.Equal(t, 1, orders.data["payment_capture"])
	require.Equal(t, "rcpt-1", orders.data["receipt"])
	require.Equal(t, "order_1", order.ID)
	require.Equal(t, int64(50000), order.Amount)
	require.Equal(t, map[string]string{"planId": "gold_plan", "validityDays": "30"}, order.Notes)
	require.Equal(t, time.Unix(1767225600, 0).UTC(), order.CreatedAt)
}

func TestCreateOrderWrapsProviderErrors(t *testing.T) {
	client := &Client{orders: &stubOrders{err: errors.New("BAD_REQUEST_ERROR")}}

	_, err := client.CreateOrder(context.Background(), CreateOrderInput{Amount: 100, Currency: "INR"})
	require.Equal(t, pkgerrors.CodeProvider, pkgerrors.CodeOf(err))

	client = &Client{orders: &stubOrders{resp: map[string]interface{}{}}}
	_, err = client.CreateOrder(context.Background(), CreateOrderInput{Amount: 100, Currency: "INR"})
	require.Equal(t, pkgerrors.CodeProvider, pkgerrors.CodeOf(err))
}

func TestCapturePayment(t *testing.T) {
	payments := &stubPayments{resp: map[string]interface{}{
		"id": "pay_1", "status": "captured", "captured": true, "amount": float64(50000),
	}}
	client := &Client{payments: payments}

	capture, err := client.CapturePayment(context.Background(), "pay_1", 50000, "INR")
	require.NoError(t, err)
	require.Equal(t, "pay_1", payments.paymentID)
	require.Equal(t, 50000, payments.amount)
	require.True(t, capture.Captured)
	require.Equal(t, int64(50000), capture.Amount)
}

func TestCapturePaymentHonoursCanceledContext(t *testing.T) {
	payments := &stubPayments{}
	client := &Client{payments: payments}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.CapturePayment(ctx, "pay_1", 100, "INR")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, payments.paymentID)
}

func TestNotesFromAny(t *testing.T) {
	require.Empty(t, NotesFromAny([]interface{}{}))
	require.Empty(t, NotesFromAny(nil))
	require.Equal(t, map[string]string{"a": "b", "n": "1.5"}, NotesFromAny(map[string]interface{}{"a": "b", "n": 1.5, "z": nil}))
}

func TestNewClientRequiresKeys(t *testing.T) {
	_, err := NewClient(config.RazorpayConfig{KeyID: "rzp_test"})
	require.Error(t, err)

	client, err := NewClient(config.RazorpayConfig{KeyID: "rzp_test", KeySecret: "secret"})
	require.NoError(t, err)
	require.NotNil(t, client.orders)
	require.NotNil(t, client.payments)
}
