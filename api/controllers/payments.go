package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/netaconnect/billing-backend/api/middleware"
	"github.com/netaconnect/billing-backend/api/responses"
	"github.com/netaconnect/billing-backend/api/validators"
	"github.com/netaconnect/billing-backend/internal/payments"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/logger"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, input payments.CreateOrderInput) (*payments.OrderResult, error)
}

type PaymentVerifier interface {
	VerifyPaymentSignature(ctx context.Context, orderID, paymentID, signature string) (bool, error)
}

type createOrderRequest struct {
	Amount         int64             `json:"amount" validate:"required,gt=0"`
	Currency       string            `json:"currency" validate:"omitempty,len=3,alpha"`
	Receipt        string            `json:"receipt" validate:"omitempty,max=40"`
	Notes          map[string]string `json:"notes" validate:"omitempty,max=15"`
	PaymentCapture *bool             `json:"paymentCapture"`
}

type verifyPaymentRequest struct {
	PaymentID string `json:"paymentId" validate:"required"`
	OrderID   string `json:"orderId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// CreateOrder opens a Razorpay order for the authenticated user.
func CreateOrder(svc OrderCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := middleware.UserIDFromContext(ctx)
		if userID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required"))
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.CreateOrder(ctx, payments.CreateOrderInput{
			UserID:         userID,
			Amount:         body.Amount,
			Currency:       strings.ToUpper(body.Currency),
			Receipt:        validators.SanitizeString(body.Receipt, 40),
			Notes:          body.Notes,
			PaymentCapture: body.PaymentCapture,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// VerifyPayment answers whether a checkout callback signature is genuine.
func VerifyPayment(svc PaymentVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		verified, err := svc.VerifyPaymentSignature(ctx, body.OrderID, body.PaymentID, body.Signature)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"verified": verified})
	}
}
