package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/messaging"
)

// DefaultMaxEventAge drops notifications that sat in the queue too long to
// still be useful to the customer.
const DefaultMaxEventAge = 24 * time.Hour

type Notifier interface {
	Notify(ctx context.Context, order domain.Order, kind domain.NotificationKind) bool
}

// NotificationHandler delivers queued notification events.
type NotificationHandler struct {
	notifier    Notifier
	logger      *slog.Logger
	maxEventAge time.Duration
	now         func() time.Time
}

func NewNotificationHandler(notifier Notifier, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier:    notifier,
		logger:      logger,
		maxEventAge: DefaultMaxEventAge,
		now:         time.Now,
	}
}

// Handle delivers one event. Undecodable or invalid events are reported as
// messaging.ErrUnprocessable. Delivery failures are logged and the event is
// acknowledged, since notifications are never retried.
func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.NotificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: unmarshal notification event: %w", messaging.ErrUnprocessable, err)
	}
	if !event.Kind.Valid() {
		return fmt.Errorf("%w: unknown notification kind %q", messaging.ErrUnprocessable, event.Kind)
	}

	if !event.Timestamp.IsZero() && h.now().Sub(event.Timestamp) > h.maxEventAge {
		h.logger.Warn("dropping stale notification", "order_id", event.Order.ID, "kind", event.Kind, "queued_at", event.Timestamp)
		return nil
	}

	h.logger.Info("processing notification", "order_id", event.Order.ID, "kind", event.Kind)

	if !h.notifier.Notify(ctx, event.Order, event.Kind) {
		h.logger.Error("notification delivery failed", "order_id", event.Order.ID, "kind", event.Kind)
		return nil
	}

	h.logger.Info("notification delivered", "order_id", event.Order.ID, "kind", event.Kind)
	return nil
}
