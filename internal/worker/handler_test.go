package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/messaging"
)

type fakeNotifier struct {
	ok    bool
	kinds []domain.NotificationKind
}

func (n *fakeNotifier) Notify(_ context.Context, _ domain.Order, kind domain.NotificationKind) bool {
	n.kinds = append(n.kinds, kind)
	return n.ok
}

func newHandler(notifier *fakeNotifier, now time.Time) *NotificationHandler {
	h := NewNotificationHandler(notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return now }
	return h
}

func payload(t *testing.T, event domain.NotificationEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return data
}

func TestNotificationHandler_Handle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	event := domain.NotificationEvent{
		Kind:      domain.NotifyReadyForPickup,
		Order:     domain.Order{ID: "order-1", Customer: domain.Customer{Email: "ana@example.com"}},
		Timestamp: now.Add(-time.Minute),
	}

	t.Run("delivers event", func(t *testing.T) {
		notifier := &fakeNotifier{ok: true}
		if err := newHandler(notifier, now).Handle(ctx, payload(t, event)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notifier.kinds) != 1 || notifier.kinds[0] != domain.NotifyReadyForPickup {
			t.Errorf("expected ready_for_pickup delivery, got %v", notifier.kinds)
		}
	})

	t.Run("delivery failure is acknowledged", func(t *testing.T) {
		notifier := &fakeNotifier{ok: false}
		if err := newHandler(notifier, now).Handle(ctx, payload(t, event)); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		notifier := &fakeNotifier{ok: true}
		err := newHandler(notifier, now).Handle(ctx, []byte(`{not json`))
		if !errors.Is(err, messaging.ErrUnprocessable) {
			t.Errorf("expected ErrUnprocessable, got %v", err)
		}
		if len(notifier.kinds) != 0 {
			t.Error("expected no delivery")
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		bad := event
		bad.Kind = "birthday"
		err := newHandler(&fakeNotifier{ok: true}, now).Handle(ctx, payload(t, bad))
		if !errors.Is(err, messaging.ErrUnprocessable) {
			t.Errorf("expected ErrUnprocessable, got %v", err)
		}
	})

	t.Run("stale event is dropped", func(t *testing.T) {
		stale := event
		stale.Timestamp = now.Add(-48 * time.Hour)
		notifier := &fakeNotifier{ok: true}
		if err := newHandler(notifier, now).Handle(ctx, payload(t, stale)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notifier.kinds) != 0 {
			t.Error("expected stale event to be dropped")
		}
	})
}
