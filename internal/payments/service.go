package payments

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/netaconnect/billing-backend/internal/ledger"
	"github.com/netaconnect/billing-backend/pkg/config"
	"github.com/netaconnect/billing-backend/pkg/enums"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/razorpay"
)

// CreateOrderInput is the caller's order request. Amount is in minor units.
type CreateOrderInput struct {
	UserID         string
	Amount         int64
	Currency       string
	Receipt        string
	Notes          map[string]string
	PaymentCapture *bool
}

// OrderResult mirrors the created order's public fields.
type OrderResult struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt,omitempty"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes"`
	CreatedAt time.Time         `json:"createdAt"`
}

type ServiceParams struct {
	Config  config.RazorpayConfig
	Gateway razorpay.Gateway
	Ledger  ledger.Service
	Logger  *logger.Logger
}

// Service creates orders and verifies checkout signatures.
type Service struct {
	cfg     config.RazorpayConfig
	gateway razorpay.Gateway
	ledger  ledger.Service
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Gateway == nil {
		return nil, errors.New("razorpay gateway is required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger service is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &Service{cfg: params.Config, gateway: params.Gateway, ledger: params.Ledger, logg: params.Logger}, nil
}

// CreateOrder creates the Razorpay order and records it. The caller's uid is
// written into notes.userId so activation can find the user later.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderResult, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer in minor units")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.defaultCurrency()
	}
	capture := true
	if input.PaymentCapture != nil {
		capture = *input.PaymentCapture
	}
	notes := make(map[string]string, len(input.Notes)+1)
	maps.Copy(notes, input.Notes)
	notes["userId"] = input.UserID

	order, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderInput{
		Amount:         input.Amount,
		Currency:       currency,
		Receipt:        input.Receipt,
		Notes:          notes,
		PaymentCapture: capture,
	})
	if err != nil {
		return nil, err
	}

	if len(order.Notes) == 0 {
		order.Notes = notes
	}
	if _, err := s.ledger.RecordOrder(ctx, ledger.OrderInput{
		ProviderOrderID: order.ID,
		UserID:          input.UserID,
		Amount:          order.Amount,
		Currency:        order.Currency,
		Receipt:         order.Receipt,
		Notes:           order.Notes,
		PaymentCapture:  capture,
		Status:          enums.OrderStatusCreated,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record order")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": order.ID, "user_id": input.UserID, "amount": order.Amount})
	s.logg.Info(logCtx, "razorpay order created")

	return &OrderResult{
		ID:        order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Receipt:   order.Receipt,
		Status:    order.Status,
		Notes:     order.Notes,
		CreatedAt: order.CreatedAt,
	}, nil
}

// VerifyPaymentSignature checks the checkout callback signature. A mismatch
// is an answer, not an error.
func (s *Service) VerifyPaymentSignature(ctx context.Context, orderID, paymentID, signature string) (bool, error) {
	if orderID == "" || paymentID == "" || signature == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "paymentId, orderId and signature are required")
	}
	err := razorpay.VerifyPaymentSignature(orderID, paymentID, signature, s.cfg.KeySecret)
	switch {
	case errors.Is(err, razorpay.ErrMissingSecret):
		return false, pkgerrors.Wrap(pkgerrors.CodeMisconfigured, err, "razorpay key secret not configured")
	case err != nil:
		logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": orderID, "payment_id": paymentID, "security_event": "payment_signature_rejected"})
		s.logg.Warn(logCtx, "payment signature mismatch")
		return false, nil
	}

	if err := s.ledger.MarkSignatureVerified(ctx, orderID, paymentID); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record signature verification")
	}
	return true, nil
}

func (s *Service) defaultCurrency() string {
	if s.cfg.DefaultCurrency != "" {
		return strings.ToUpper(s.cfg.DefaultCurrency)
	}
	return "INR"
}
