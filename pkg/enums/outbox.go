package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type_enum in Postgres.
type OutboxAggregateType string

const (
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateSubscription OutboxAggregateType = "subscription"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePayment,
	AggregateSubscription,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type_enum in Postgres.
type OutboxEventType string

const (
	EventPaymentCaptured       OutboxEventType = "payment_captured"
	EventSubscriptionActivated OutboxEventType = "subscription_activated"
	EventSubscriptionExpired   OutboxEventType = "subscription_expired"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPaymentCaptured,
	EventSubscriptionActivated,
	EventSubscriptionExpired,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
