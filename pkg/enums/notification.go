package enums

import "fmt"

// NotificationEvent maps to the notification_event enum in Postgres.
type NotificationEvent string

const (
	NotificationEventOrderCreated       NotificationEvent = "order_created"
	NotificationEventOrderApproved      NotificationEvent = "order_approved"
	NotificationEventOrderRejected      NotificationEvent = "order_rejected"
	NotificationEventOrderCancelled     NotificationEvent = "order_cancelled"
	NotificationEventOrderStatusChanged NotificationEvent = "order_status_changed"
	NotificationEventOrderAutoCancelled NotificationEvent = "order_auto_cancelled"
)

var validNotificationEvents = []NotificationEvent{
	NotificationEventOrderCreated,
	NotificationEventOrderApproved,
	NotificationEventOrderRejected,
	NotificationEventOrderCancelled,
	NotificationEventOrderStatusChanged,
	NotificationEventOrderAutoCancelled,
}

// IsValid checks whether the given event matches the canonical enum.
func (n NotificationEvent) IsValid() bool {
	for _, candidate := range validNotificationEvents {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationEvent converts raw strings into NotificationEvent.
func ParseNotificationEvent(value string) (NotificationEvent, error) {
	for _, candidate := range validNotificationEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification event %q", value)
}
