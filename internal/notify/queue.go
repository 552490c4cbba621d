package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

// Publisher is satisfied by messaging.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// QueueDispatcher hands notifications to the worker through the queue.
// A true result means the event was accepted by the broker, not that the
// email went out.
type QueueDispatcher struct {
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewQueueDispatcher(publisher Publisher, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (d *QueueDispatcher) Notify(ctx context.Context, order domain.Order, kind domain.NotificationKind) bool {
	event := domain.NotificationEvent{
		Kind:      kind,
		Order:     order,
		Timestamp: d.now(),
	}
	if err := d.publisher.Publish(ctx, order.ID, event); err != nil {
		d.logger.Error("failed to publish notification", "error", err, "order_id", order.ID, "kind", kind)
		return false
	}
	d.logger.Info("notification queued", "order_id", order.ID, "kind", kind)
	return true
}
