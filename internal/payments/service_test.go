package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/pkg/config"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/razorpay"
)

func newPaymentsService(t *testing.T, gw *fakeGateway) (*Service, func() *models.Order) {
	t.Helper()
	ledgerSvc, client := newLedger(t)
	svc, err := NewService(ServiceParams{
		Config:  config.RazorpayConfig{KeyID: "rzp_test", KeySecret: "key_secret", DefaultCurrency: "INR"},
		Gateway: gw,
		Ledger:  ledgerSvc,
	})
	require.NoError(t, err)
	return svc, func() *models.Order {
		var order models.Order
		require.NoError(t, client.DB().First(&order).Error)
		return &order
	}
}

func TestCreateOrderDefaultsAndRecords(t *testing.T) {
	gw := &fakeGateway{}
	svc, stored := newPaymentsService(t, gw)

	result, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: "u1",
		Amount: 50000,
		Notes:  map[string]string{"planId": "gold_plan", "userId": "spoofed"},
	})
	require.NoError(t, err)
	require.Equal(t, "order_test", result.ID)
	require.Equal(t, "INR", result.Currency)
	require.Equal(t, "u1", result.Notes["userId"])

	require.Len(t, gw.orders, 1)
	require.True(t, gw.orders[0].PaymentCapture)
	require.Equal(t, "u1", gw.orders[0].Notes["userId"])

	order := stored()
	require.Equal(t, "u1", order.UserID)
	require.EqualValues(t, 50000, order.Amount)
	require.Equal(t, "gold_plan", order.Notes["planId"])
	require.True(t, order.PaymentCapture)
}

func TestCreateOrderHonoursCaptureFlag(t *testing.T) {
	gw := &fakeGateway{echoNotes: true}
	svc, stored := newPaymentsService(t, gw)
	manual := false

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{UserID: "u1", Amount: 100, Currency: "usd", PaymentCapture: &manual})
	require.NoError(t, err)
	require.False(t, gw.orders[0].PaymentCapture)
	require.Equal(t, "USD", gw.orders[0].Currency)
	require.False(t, stored().PaymentCapture)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _ := newPaymentsService(t, &fakeGateway{})

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{Amount: 100})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = svc.CreateOrder(context.Background(), CreateOrderInput{UserID: "u1", Amount: 0})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCreateOrderProviderError(t *testing.T) {
	svc, _ := newPaymentsService(t, &fakeGateway{orderErr: pkgerrors.New(pkgerrors.CodeProvider, "down")})
	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{UserID: "u1", Amount: 100})
	require.Equal(t, pkgerrors.CodeProvider, pkgerrors.CodeOf(err))
}

func TestVerifyPaymentSignature(t *testing.T) {
	svc, _ := newPaymentsService(t, &fakeGateway{})
	ctx := context.Background()
	sig := razorpay.Sign([]byte("order_1|pay_1"), "key_secret")

	ok, err := svc.VerifyPaymentSignature(ctx, "order_1", "pay_1", sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.VerifyPaymentSignature(ctx, "order_1", "pay_2", sig)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.VerifyPaymentSignature(ctx, "order_1", "", sig)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestVerifyPaymentSignatureMissingSecret(t *testing.T) {
	ledgerSvc, _ := newLedger(t)
	svc, err := NewService(ServiceParams{Gateway: &fakeGateway{}, Ledger: ledgerSvc})
	require.NoError(t, err)

	_, err = svc.VerifyPaymentSignature(context.Background(), "order_1", "pay_1", "abc")
	require.Equal(t, pkgerrors.CodeMisconfigured, pkgerrors.CodeOf(err))
}
