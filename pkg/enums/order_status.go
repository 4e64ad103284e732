package enums

import "fmt"

// OrderStatus tracks the lifecycle of a purchase order.
type OrderStatus string

const (
	OrderStatusPending               OrderStatus = "pending"
	OrderStatusApproved              OrderStatus = "approved"
	OrderStatusRejected              OrderStatus = "rejected"
	OrderStatusCancelled             OrderStatus = "cancelled"
	OrderStatusShipped               OrderStatus = "shipped"
	OrderStatusCompleted             OrderStatus = "completed"
	OrderStatusEditedPendingApproval OrderStatus = "edited_pending_approval"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusRejected,
	OrderStatusCancelled,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusEditedPendingApproval,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from the status.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusRejected, OrderStatusCancelled, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
