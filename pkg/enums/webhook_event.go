package enums

// RazorpayEvent names the webhook events the billing service reacts to.
type RazorpayEvent string

const (
	RazorpayEventPaymentAuthorized RazorpayEvent = "payment.authorized"
	RazorpayEventPaymentCaptured   RazorpayEvent = "payment.captured"
	RazorpayEventPaymentFailed     RazorpayEvent = "payment.failed"
	RazorpayEventOrderPaid         RazorpayEvent = "order.paid"
)

func (e RazorpayEvent) String() string {
	return string(e)
}

// IsPaymentEvent reports whether the envelope must carry payload.payment.entity.
func (e RazorpayEvent) IsPaymentEvent() bool {
	switch e {
	case RazorpayEventPaymentAuthorized, RazorpayEventPaymentCaptured, RazorpayEventPaymentFailed, RazorpayEventOrderPaid:
		return true
	default:
		return false
	}
}
