package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/api/middleware"
	"github.com/netaconnect/billing-backend/internal/payments"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
)

type stubPayments struct {
	input    payments.CreateOrderInput
	orderErr error
	verified bool
	args     []string
}

func (s *stubPayments) CreateOrder(_ context.Context, input payments.CreateOrderInput) (*payments.OrderResult, error) {
	s.input = input
	if s.orderErr != nil {
		return nil, s.orderErr
	}
	return &payments.OrderResult{
		ID:        "order_1",
		Amount:    input.Amount,
		Currency:  "INR",
		Status:    "created",
		Notes:     map[string]string{"userId": input.UserID},
		CreatedAt: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubPayments) VerifyPaymentSignature(_ context.Context, orderID, paymentID, signature string) (bool, error) {
	s.args = []string{orderID, paymentID, signature}
	return s.verified, nil
}

func authedRequest(method, path, body, uid string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if uid != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), uid))
	}
	return req
}

func TestCreateOrderReturnsCreated(t *testing.T) {
	svc := &stubPayments{}
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/payments/orders",
		`{"amount":50000,"currency":"inr","notes":{"planId":"gold_plan"}}`, "u1"))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "u1", svc.input.UserID)
	require.Equal(t, int64(50000), svc.input.Amount)
	require.Equal(t, "INR", svc.input.Currency)
	require.Equal(t, "gold_plan", svc.input.Notes["planId"])
	require.Nil(t, svc.input.PaymentCapture)

	var body struct {
		Data payments.OrderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "order_1", body.Data.ID)
	require.Equal(t, "u1", body.Data.Notes["userId"])
}

func TestCreateOrderValidatesBody(t *testing.T) {
	cases := map[string]string{
		"missing amount":  `{"currency":"INR"}`,
		"zero amount":     `{"amount":0}`,
		"negative amount": `{"amount":-5}`,
		"bad currency":    `{"amount":100,"currency":"RUPEE"}`,
		"unknown field":   `{"amount":100,"plan":"gold"}`,
		"not json":        `amount=100`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubPayments{}
			rec := httptest.NewRecorder()
			CreateOrder(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", body, "u1"))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Empty(t, svc.input.UserID)
		})
	}
}

func TestCreateOrderRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	CreateOrder(&stubPayments{}, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"amount":100}`, ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrderProviderFailure(t *testing.T) {
	svc := &stubPayments{orderErr: pkgerrors.New(pkgerrors.CodeProvider, "create razorpay order")}
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"amount":100}`, "u1"))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestVerifyPaymentAnswersBothWays(t *testing.T) {
	for _, verified := range []bool{true, false} {
		svc := &stubPayments{verified: verified}
		rec := httptest.NewRecorder()
		VerifyPayment(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/payments/verify",
			`{"paymentId":"pay_1","orderId":"order_1","signature":"abc"}`, "u1"))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []string{"order_1", "pay_1", "abc"}, svc.args)
		var body struct {
			Data map[string]bool `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, verified, body.Data["verified"])
	}
}

func TestVerifyPaymentRequiresAllFields(t *testing.T) {
	svc := &stubPayments{}
	rec := httptest.NewRecorder()
	VerifyPayment(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"paymentId":"pay_1"}`, "u1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, svc.args)
}
