package enums

import "fmt"

// PaymentState is the capture state machine tracked per payment. It is kept
// apart from the provider-reported status string.
type PaymentState string

const (
	PaymentStateNew           PaymentState = "new"
	PaymentStateAuthorized    PaymentState = "authorized"
	PaymentStateCaptured      PaymentState = "captured"
	PaymentStateCaptureFailed PaymentState = "capture_failed"
	PaymentStateFailed        PaymentState = "failed"
)

var validPaymentStates = []PaymentState{
	PaymentStateNew,
	PaymentStateAuthorized,
	PaymentStateCaptured,
	PaymentStateCaptureFailed,
	PaymentStateFailed,
}

func (p PaymentState) String() string {
	return string(p)
}

func (p PaymentState) IsValid() bool {
	for _, candidate := range validPaymentStates {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further capture attempt may be made.
func (p PaymentState) IsTerminal() bool {
	return p == PaymentStateCaptured || p == PaymentStateFailed
}

func ParsePaymentState(value string) (PaymentState, error) {
	if value == "" {
		return PaymentStateNew, nil
	}
	for _, candidate := range validPaymentStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment state %q", value)
}
