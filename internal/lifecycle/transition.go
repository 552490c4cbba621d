package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

// Transition is the outcome of applying a status/notes change to an order.
type Transition struct {
	Changed        bool
	NotifyCustomer bool
	// Kind is the notification to send when NotifyCustomer is set.
	Kind  domain.NotificationKind
	Order domain.Order
}

// Apply derives the order that results from setting status and notes at
// now. The input order is left untouched. Any status may follow any other;
// only no-ops are detected.
func Apply(order domain.Order, status domain.OrderStatus, notes string, now time.Time) (Transition, error) {
	if !status.Valid() {
		return Transition{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	if now.IsZero() || now.Before(order.CreatedAt) {
		return Transition{}, fmt.Errorf("%w: transition time %s precedes order creation", domain.ErrInvalidTimestamp, now)
	}

	statusChanged := status != order.Status
	notesChanged := strings.TrimSpace(notes) != strings.TrimSpace(order.Notes)
	if !statusChanged && !notesChanged {
		return Transition{Order: order}, nil
	}

	next := order
	next.Status = status
	next.Notes = notes
	next.UpdatedAt = now.UTC()

	if status == domain.OrderStatusPaid && next.PaidAt == nil {
		paidAt := next.UpdatedAt
		next.PaidAt = &paidAt
	}

	if status == domain.OrderStatusDelivered && next.CompletedAt == nil {
		completedAt := next.UpdatedAt
		next.CompletedAt = &completedAt
		if next.Score == nil || *next.Score <= 0 {
			score, err := Score(next)
			if err != nil {
				return Transition{}, err
			}
			next.Score = &score
		}
	}

	t := Transition{Changed: true, Order: next}
	if statusChanged {
		if kind, ok := domain.MilestoneKind(status); ok {
			t.NotifyCustomer = true
			t.Kind = kind
		}
	}
	return t, nil
}
