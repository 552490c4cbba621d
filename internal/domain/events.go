package domain

import "time"

type NotificationKind string

const (
	NotifyProcessing        NotificationKind = "processing"
	NotifyReadyForPickup    NotificationKind = "ready_for_pickup"
	NotifyDelivered         NotificationKind = "delivered"
	NotifyCancelled         NotificationKind = "cancelled"
	NotifyOrderConfirmation NotificationKind = "order_confirmation"
	NotifyAbandonedCart     NotificationKind = "abandoned_cart"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case NotifyProcessing, NotifyReadyForPickup, NotifyDelivered, NotifyCancelled,
		NotifyOrderConfirmation, NotifyAbandonedCart:
		return true
	}
	return false
}

// MilestoneKind reports the customer notification a transition into s
// triggers, if any.
func MilestoneKind(s OrderStatus) (NotificationKind, bool) {
	switch s {
	case OrderStatusProcessing:
		return NotifyProcessing, true
	case OrderStatusReadyForPickup:
		return NotifyReadyForPickup, true
	case OrderStatusDelivered:
		return NotifyDelivered, true
	case OrderStatusCancelled:
		return NotifyCancelled, true
	}
	return "", false
}

// NotificationEvent is published to the notification queue.
type NotificationEvent struct {
	Kind      NotificationKind `json:"kind"`
	Order     Order            `json:"order"`
	Timestamp time.Time        `json:"timestamp"`
}
