package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/internal/ledger"
	"github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/db/dbtest"
	"github.com/netaconnect/billing-backend/pkg/outbox"
	"github.com/netaconnect/billing-backend/pkg/razorpay"
)

type fakeGateway struct {
	mu         sync.Mutex
	orders     []razorpay.CreateOrderInput
	captures   []string
	captureErr error
	orderErr   error
	echoNotes  bool
}

func (f *fakeGateway) CreateOrder(_ context.Context, input razorpay.CreateOrderInput) (*razorpay.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders = append(f.orders, input)
	order := &razorpay.Order{
		ID:        "order_test",
		Amount:    input.Amount,
		Currency:  input.Currency,
		Receipt:   input.Receipt,
		Status:    "created",
		CreatedAt: time.Unix(1767225600, 0).UTC(),
	}
	if f.echoNotes {
		order.Notes = input.Notes
	}
	return order, nil
}

func (f *fakeGateway) CapturePayment(_ context.Context, paymentID string, amount int64, _ string) (*razorpay.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures = append(f.captures, paymentID)
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return &razorpay.Capture{PaymentID: paymentID, Status: "captured", Amount: amount, Captured: true}, nil
}

func (f *fakeGateway) captureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.captures)
}

func newLedger(t *testing.T) (ledger.Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := ledger.NewService(client, ledger.NewRepository(client.DB()), outbox.NewService(outbox.NewRepository(client.DB()), nil))
	require.NoError(t, err)
	return svc, client
}

var errProvider = errors.New("BAD_REQUEST_ERROR: payment already refunded")
