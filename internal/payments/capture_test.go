package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/internal/ledger"
	"github.com/netaconnect/billing-backend/pkg/enums"
)

func seedPayment(t *testing.T, svc ledger.Service) {
	t.Helper()
	_, err := svc.RecordPayment(context.Background(), ledger.PaymentInput{
		ProviderPaymentID: "pay_1",
		Amount:            50000,
		Currency:          "INR",
		Status:            "authorized",
	}, ledger.EventMeta{Name: "payment.authorized"})
	require.NoError(t, err)
}

func TestCaptureTwiceReachesProviderOnce(t *testing.T) {
	ledgerSvc, _ := newLedger(t)
	seedPayment(t, ledgerSvc)
	gw := &fakeGateway{}
	coord, err := NewCaptureCoordinator(gw, ledgerSvc, nil)
	require.NoError(t, err)
	ctx := context.Background()

	payment, err := ledgerSvc.GetPayment(ctx, "pay_1")
	require.NoError(t, err)

	first, err := coord.Capture(ctx, payment)
	require.NoError(t, err)
	require.Equal(t, CaptureSucceeded, first.Outcome)
	require.True(t, first.Payment.Captured)

	// a stale copy of the record must still not trigger a second capture
	second, err := coord.Capture(ctx, payment)
	require.NoError(t, err)
	require.Equal(t, CaptureNotClaimed, second.Outcome)

	third, err := coord.Capture(ctx, first.Payment)
	require.NoError(t, err)
	require.Equal(t, CaptureAlreadyCaptured, third.Outcome)

	require.Equal(t, 1, gw.captureCount())
}

func TestCaptureFailureIsRecordedNotRetried(t *testing.T) {
	ledgerSvc, _ := newLedger(t)
	seedPayment(t, ledgerSvc)
	gw := &fakeGateway{captureErr: errProvider}
	coord, err := NewCaptureCoordinator(gw, ledgerSvc, nil)
	require.NoError(t, err)
	ctx := context.Background()

	payment, err := ledgerSvc.GetPayment(ctx, "pay_1")
	require.NoError(t, err)

	result, err := coord.Capture(ctx, payment)
	require.NoError(t, err)
	require.Equal(t, CaptureFailed, result.Outcome)
	require.Contains(t, result.Reason, "already refunded")

	stored, err := ledgerSvc.GetPayment(ctx, "pay_1")
	require.NoError(t, err)
	require.False(t, stored.Captured)
	require.Equal(t, enums.PaymentStateCaptureFailed, stored.State)
	require.NotNil(t, stored.CaptureError)

	again, err := coord.Capture(ctx, stored)
	require.NoError(t, err)
	require.Equal(t, CaptureNotClaimed, again.Outcome)
	require.Equal(t, 1, gw.captureCount())
}

func TestNewCaptureCoordinatorValidates(t *testing.T) {
	_, err := NewCaptureCoordinator(nil, nil, nil)
	require.Error(t, err)
}
