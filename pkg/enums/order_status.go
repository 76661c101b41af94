package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "created"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusPaid,
	OrderStatusFailed,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a forward move.
// Orders never leave paid or failed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusCreated && (next == OrderStatusPaid || next == OrderStatusFailed)
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
