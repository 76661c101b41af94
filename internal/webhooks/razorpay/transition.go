package razorpaywebhook

import "github.com/netaconnect/billing-backend/pkg/enums"

// Effect is a side effect the service performs after recording a delivery.
type Effect string

const (
	EffectCapture         Effect = "capture"
	EffectMarkCaptured    Effect = "mark_captured"
	EffectActivate        Effect = "activate"
	EffectMarkOrderFailed Effect = "mark_order_failed"
)

// Policy holds the deployment choices that change transitions.
type Policy struct {
	// AutoCapture means the provider captures authorized payments itself.
	// The webhook service also sets it per payment when the order was
	// created with payment_capture.
	AutoCapture bool
}

// Transition returns the next payment state and the effects to run for an
// event. It performs no I/O. Captured is absorbing; captured deliveries
// always re-run the idempotent captured effects so a crash between the
// ledger write and activation heals on re-delivery.
func Transition(state enums.PaymentState, event Event, policy Policy) (enums.PaymentState, []Effect) {
	switch event.(type) {
	case PaymentAuthorized:
		switch state {
		case enums.PaymentStateNew, enums.PaymentStateAuthorized:
			if policy.AutoCapture {
				return enums.PaymentStateAuthorized, nil
			}
			return enums.PaymentStateAuthorized, []Effect{EffectCapture}
		default:
			return state, nil
		}
	case PaymentCaptured, OrderPaid:
		return enums.PaymentStateCaptured, []Effect{EffectMarkCaptured, EffectActivate}
	case PaymentFailed:
		if state == enums.PaymentStateCaptured {
			return state, nil
		}
		return enums.PaymentStateFailed, []Effect{EffectMarkOrderFailed}
	default:
		return state, nil
	}
}
