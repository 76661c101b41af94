package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/netaconnect/billing-backend/api/responses"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/razorpay"
)

const defaultMaxBodyBytes int64 = 1 << 20

type RazorpayWebhookProcessor interface {
	Process(ctx context.Context, body []byte, signature, eventID string) error
}

// RazorpayWebhook receives payment events. The body is read raw because the
// signature covers the exact bytes Razorpay sent.
func RazorpayWebhook(svc RazorpayWebhookProcessor, maxBodyBytes int64, logg *logger.Logger) http.HandlerFunc {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "only POST is accepted"))
			return
		}
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeMisconfigured, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook body too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		eventID := r.Header.Get(razorpay.EventIDHeader)
		if logg != nil && eventID != "" {
			ctx = logg.WithField(ctx, "event_id", eventID)
		}
		if err := svc.Process(ctx, payload, r.Header.Get(razorpay.SignatureHeader), eventID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
