package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrMissingSecret     = errors.New("razorpay secret not configured")
	ErrMissingSignature  = errors.New("razorpay signature missing")
	ErrSignatureMismatch = errors.New("razorpay signature mismatch")
)

// SignatureHeader carries the webhook HMAC.
const SignatureHeader = "X-Razorpay-Signature"

// EventIDHeader carries the provider's unique id for a webhook delivery.
const EventIDHeader = "X-Razorpay-Event-Id"

// VerifyWebhookSignature checks signature against an HMAC-SHA256 of body keyed
// by secret. body must be the request bytes exactly as received.
func VerifyWebhookSignature(body []byte, signature, secret string) error {
	return verify(body, signature, secret)
}

// VerifyPaymentSignature checks the signature Checkout returns to the client
// after a successful payment, computed over "<orderID>|<paymentID>".
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) error {
	return verify([]byte(orderID+"|"+paymentID), signature, secret)
}

// Sign returns the hex HMAC-SHA256 of payload. Used by tests and tooling to
// produce provider-equivalent signatures.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(payload []byte, signature, secret string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureMismatch
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrSignatureMismatch
	}
	return nil
}
