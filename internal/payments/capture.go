package payments

import (
	"context"
	"errors"

	"github.com/netaconnect/billing-backend/internal/ledger"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/razorpay"
)

// CaptureOutcome says what a Capture call did.
type CaptureOutcome string

const (
	CaptureAlreadyCaptured CaptureOutcome = "already_captured"
	CaptureNotClaimed      CaptureOutcome = "not_claimed"
	CaptureSucceeded       CaptureOutcome = "captured"
	CaptureFailed          CaptureOutcome = "failed"
)

type CaptureResult struct {
	Outcome CaptureOutcome
	Payment *models.Payment
	Reason  string
}

// CaptureCoordinator captures authorized payments at most once.
type CaptureCoordinator struct {
	gateway razorpay.Gateway
	ledger  ledger.Service
	logg    *logger.Logger
}

func NewCaptureCoordinator(gateway razorpay.Gateway, ledgerSvc ledger.Service, logg *logger.Logger) (*CaptureCoordinator, error) {
	if gateway == nil {
		return nil, errors.New("razorpay gateway is required")
	}
	if ledgerSvc == nil {
		return nil, errors.New("ledger service is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CaptureCoordinator{gateway: gateway, ledger: ledgerSvc, logg: logg}, nil
}

// Capture claims the payment and asks the provider to capture the full
// authorized amount. Provider failures are recorded on the payment and
// reported in the result; only ledger errors are returned.
func (c *CaptureCoordinator) Capture(ctx context.Context, payment *models.Payment) (CaptureResult, error) {
	if payment == nil {
		return CaptureResult{}, errors.New("payment is required")
	}
	if payment.Captured {
		return CaptureResult{Outcome: CaptureAlreadyCaptured, Payment: payment}, nil
	}

	claimed, err := c.ledger.ClaimCapture(ctx, payment.ProviderPaymentID)
	if err != nil {
		return CaptureResult{}, err
	}
	if !claimed {
		return CaptureResult{Outcome: CaptureNotClaimed, Payment: payment}, nil
	}

	logCtx := c.logg.WithPaymentID(ctx, payment.ProviderPaymentID)
	capture, err := c.gateway.CapturePayment(ctx, payment.ProviderPaymentID, payment.Amount, payment.Currency)
	if err != nil {
		reason := err.Error()
		c.logg.Error(logCtx, "razorpay capture failed", err)
		if markErr := c.ledger.MarkCaptureFailed(ctx, payment.ProviderPaymentID, reason); markErr != nil {
			return CaptureResult{}, markErr
		}
		return CaptureResult{Outcome: CaptureFailed, Payment: payment, Reason: reason}, nil
	}

	updated, err := c.ledger.MarkCaptured(ctx, payment.ProviderPaymentID, capture.PaymentID)
	if err != nil {
		return CaptureResult{}, err
	}
	c.logg.Info(logCtx, "payment captured")
	return CaptureResult{Outcome: CaptureSucceeded, Payment: updated}, nil
}
