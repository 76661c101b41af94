package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/db/dbtest"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	svc, err := NewService(client, NewRepository(client.DB()), emitter)
	require.NoError(t, err)
	return svc, client
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
}

func TestRecordOrderIsIdempotentAndForwardOnly(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	input := OrderInput{
		ProviderOrderID: "order_1",
		UserID:          "u1",
		Amount:          50000,
		Currency:        "INR",
		Notes:           map[string]string{"planId": "gold_plan", "userId": "u1"},
		PaymentCapture:  true,
	}

	first, err := svc.RecordOrder(ctx, input)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCreated, first.Status)

	_, err = svc.RecordOrder(ctx, input)
	require.NoError(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	paid := input
	paid.Status = enums.OrderStatusPaid
	_, err = svc.RecordOrder(ctx, paid)
	require.NoError(t, err)
	require.NoError(t, svc.MarkOrderFailed(ctx, "order_1"))

	again, err := svc.RecordOrder(ctx, input)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, again.Status)
	require.Equal(t, "gold_plan", again.Notes["planId"])

	stored, err := svc.GetOrder(ctx, "order_1")
	require.NoError(t, err)
	require.True(t, stored.PaymentCapture)
	missing, err := svc.GetOrder(ctx, "order_missing")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestRecordOrderRequiresID(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RecordOrder(context.Background(), OrderInput{})
	require.Error(t, err)
}

func TestRecordPaymentIsIdempotent(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	input := PaymentInput{
		ProviderPaymentID: "pay_1",
		ProviderOrderID:   "order_1",
		Amount:            50000,
		Currency:          "INR",
		Status:            "authorized",
		Method:            "upi",
		Notes:             map[string]string{"planId": "gold_plan", "userId": "u1"},
	}
	meta := EventMeta{Name: "payment.authorized", ProviderEventID: "evt_1"}

	first, err := svc.RecordPayment(ctx, input, meta)
	require.NoError(t, err)
	second, err := svc.RecordPayment(ctx, input, meta)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.ProviderOrderID, second.ProviderOrderID)
	require.Equal(t, first.Amount, second.Amount)
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.Method, second.Method)
	require.Equal(t, first.Notes, second.Notes)
	require.Equal(t, first.Captured, second.Captured)
	require.Equal(t, first.SignatureVerified, second.SignatureVerified)

	var payments, audits int64
	require.NoError(t, client.DB().Model(&models.Payment{}).Count(&payments).Error)
	require.NoError(t, client.DB().Model(&models.PaymentWebhookEvent{}).Count(&audits).Error)
	require.EqualValues(t, 1, payments)
	require.EqualValues(t, 2, audits)
}

func TestRecordPaymentMergesWithoutErasing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, PaymentInput{
		ProviderPaymentID: "pay_1",
		Method:            "card",
		Email:             "a@example.com",
	}, EventMeta{Name: "payment.authorized"})
	require.NoError(t, err)

	merged, err := svc.RecordPayment(ctx, PaymentInput{
		ProviderPaymentID: "pay_1",
		Status:            "captured",
	}, EventMeta{Name: "payment.captured"})
	require.NoError(t, err)

	require.Equal(t, "captured", merged.Status)
	require.Equal(t, "card", *merged.Method)
	require.Equal(t, "a@example.com", *merged.Email)
	require.Equal(t, "payment.captured", *merged.LastEvent)
}

func TestRecordPaymentInheritsOrderNotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordOrder(ctx, OrderInput{
		ProviderOrderID: "order_1",
		Amount:          50000,
		Currency:        "INR",
		Notes:           map[string]string{"planId": "gold_plan", "userId": "u1", "validityDays": "30"},
	})
	require.NoError(t, err)

	payment, err := svc.RecordPayment(ctx, PaymentInput{
		ProviderPaymentID: "pay_1",
		ProviderOrderID:   "order_1",
		Notes:             map[string]string{"validityDays": "60"},
	}, EventMeta{Name: "payment.authorized"})
	require.NoError(t, err)
	require.Equal(t, "gold_plan", payment.Notes["planId"])
	require.Equal(t, "60", payment.Notes["validityDays"])
}

func TestSignatureVerifiedIsNeverReset(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.MarkSignatureVerified(ctx, "order_1", "pay_1"))
	payment, err := svc.RecordPayment(ctx, PaymentInput{ProviderPaymentID: "pay_1", Status: "authorized"}, EventMeta{Name: "payment.authorized"})
	require.NoError(t, err)
	require.True(t, payment.SignatureVerified)
	require.Equal(t, "order_1", *payment.ProviderOrderID)

	require.NoError(t, svc.MarkSignatureVerified(ctx, "order_1", "pay_1"))
	require.Error(t, svc.MarkSignatureVerified(ctx, "", "pay_1"))
}

func TestClaimCaptureIsAtMostOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.RecordPayment(ctx, PaymentInput{ProviderPaymentID: "pay_1", Amount: 100}, EventMeta{Name: "payment.authorized"})
	require.NoError(t, err)

	claimed, err := svc.ClaimCapture(ctx, "pay_1")
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = svc.ClaimCapture(ctx, "pay_1")
	require.NoError(t, err)
	require.False(t, claimed)
}

func TestMarkCapturedEmitsOnceAndPaysOrder(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	_, err := svc.RecordOrder(ctx, OrderInput{ProviderOrderID: "order_1", Amount: 50000, Currency: "INR"})
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, PaymentInput{ProviderPaymentID: "pay_1", ProviderOrderID: "order_1", Amount: 50000, Currency: "INR"}, EventMeta{Name: "payment.authorized"})
	require.NoError(t, err)

	payment, err := svc.MarkCaptured(ctx, "pay_1", "pay_1")
	require.NoError(t, err)
	require.True(t, payment.Captured)
	require.Equal(t, enums.PaymentStateCaptured, payment.State)
	require.NotNil(t, payment.CapturedAt)

	_, err = svc.MarkCaptured(ctx, "pay_1", "pay_1")
	require.NoError(t, err)

	var events int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventPaymentCaptured).Count(&events).Error)
	require.EqualValues(t, 1, events)

	var order models.Order
	require.NoError(t, client.DB().Where("provider_order_id = ?", "order_1").First(&order).Error)
	require.Equal(t, enums.OrderStatusPaid, order.Status)

	// a late failure report cannot undo the capture
	require.NoError(t, svc.MarkCaptureFailed(ctx, "pay_1", "timeout"))
	require.NoError(t, svc.SetState(ctx, "pay_1", enums.PaymentStateFailed))
	stored, err := svc.GetPayment(ctx, "pay_1")
	require.NoError(t, err)
	require.True(t, stored.Captured)
	require.Equal(t, enums.PaymentStateCaptured, stored.State)
	require.Nil(t, stored.CaptureError)
}

func TestMarkCapturedUnknownPayment(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.MarkCaptured(context.Background(), "pay_missing", "")
	require.Error(t, err)
}

func TestMarkCaptureFailedRecordsReason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.RecordPayment(ctx, PaymentInput{ProviderPaymentID: "pay_1"}, EventMeta{Name: "payment.authorized"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkCaptureFailed(ctx, "pay_1", "BAD_REQUEST_ERROR: amount mismatch"))
	stored, err := svc.GetPayment(ctx, "pay_1")
	require.NoError(t, err)
	require.False(t, stored.Captured)
	require.Equal(t, enums.PaymentStateCaptureFailed, stored.State)
	require.Equal(t, "BAD_REQUEST_ERROR: amount mismatch", *stored.CaptureError)
}
