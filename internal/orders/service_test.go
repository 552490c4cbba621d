package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

var (
	created = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	errTest = errors.New("connection reset")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storedOrder() domain.Order {
	return domain.Order{
		ID:          "order-1",
		OrderNumber: "ORD-20240101-AAAAAAAA",
		Customer:    domain.Customer{Email: "ana@example.com"},
		Fulfillment: domain.PickupAt("Store"),
		Items: []domain.OrderItem{
			{ProductID: "P-1", ProductName: "Mug", ProductPrice: decimal.NewFromInt(10), Quantity: 1},
		},
		Subtotal:  decimal.NewFromInt(10),
		Total:     decimal.NewFromInt(10),
		Status:    domain.OrderStatusPending,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func notes(s string) *string { return &s }

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("scenario through delivery", func(t *testing.T) {
		store := newFakeStore(storedOrder())
		notifier := &fakeNotifier{ok: true}
		recorder := &fakeRecorder{}
		c := &clock{now: time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)}
		svc := NewService(store, notifier, testLogger(), WithClock(c.Now), WithRecorder(recorder))

		first, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusProcessing, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !first.Changed || !first.Notified {
			t.Errorf("expected changed and notified, got %+v", first)
		}
		if first.Order.Version != 2 {
			t.Errorf("expected version 2, got %d", first.Order.Version)
		}

		c.now = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
		second, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusDelivered, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stored, _ := store.GetByID(ctx, "order-1")
		if stored.Score == nil || *stored.Score != 100 {
			t.Errorf("expected stored score 100, got %v", stored.Score)
		}
		if stored.CompletedAt == nil || !stored.CompletedAt.Equal(c.now) {
			t.Errorf("expected completed_at %s, got %v", c.now, stored.CompletedAt)
		}
		if !second.Notified {
			t.Error("expected delivery notification")
		}

		if len(notifier.sent) != 2 || notifier.sent[0].kind != domain.NotifyProcessing || notifier.sent[1].kind != domain.NotifyDelivered {
			t.Errorf("unexpected notifications %+v", notifier.sent)
		}
		if recorder.transitions != 2 || recorder.notifications[true] != 2 {
			t.Errorf("unexpected recorder state %+v", recorder)
		}
	})

	t.Run("no-op performs no write", func(t *testing.T) {
		o := storedOrder()
		o.Notes = "fragile"
		store := newFakeStore(o)
		notifier := &fakeNotifier{ok: true}
		svc := NewService(store, notifier, testLogger(), WithClock(func() time.Time { return created.Add(time.Hour) }))

		result, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusPending, notes(" fragile"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Changed {
			t.Error("expected no change")
		}
		if store.updates != 0 {
			t.Errorf("expected 0 writes, got %d", store.updates)
		}
		if len(notifier.sent) != 0 {
			t.Errorf("expected no notifications, got %d", len(notifier.sent))
		}
	})

	t.Run("nil notes keep the stored notes from the same read", func(t *testing.T) {
		o := storedOrder()
		o.Notes = "gift wrap"
		store := newFakeStore(o)
		svc := NewService(store, &fakeNotifier{ok: true}, testLogger(), WithClock(func() time.Time { return created.Add(time.Hour) }))

		result, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusShipped, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Order.Notes != "gift wrap" {
			t.Errorf("expected notes kept, got %q", result.Order.Notes)
		}
		if store.reads != 1 {
			t.Errorf("expected 1 read, got %d", store.reads)
		}
	})

	t.Run("empty notes clear the stored notes", func(t *testing.T) {
		o := storedOrder()
		o.Notes = "gift wrap"
		store := newFakeStore(o)
		svc := NewService(store, &fakeNotifier{ok: true}, testLogger(), WithClock(func() time.Time { return created.Add(time.Hour) }))

		result, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusPending, notes(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Changed || result.Order.Notes != "" {
			t.Errorf("expected notes cleared, got changed=%t notes=%q", result.Changed, result.Order.Notes)
		}
	})

	t.Run("persist failure leaves the stored order unchanged", func(t *testing.T) {
		store := newFakeStore(storedOrder())
		store.updateErr = errors.New("connection reset")
		notifier := &fakeNotifier{ok: true}
		svc := NewService(store, notifier, testLogger(), WithClock(func() time.Time { return created.Add(time.Hour) }))

		_, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusCancelled, nil)
		if !errors.Is(err, domain.ErrPersistFailed) {
			t.Fatalf("expected ErrPersistFailed, got %v", err)
		}
		stored, _ := store.GetByID(ctx, "order-1")
		if stored.Status != domain.OrderStatusPending || stored.Version != 1 {
			t.Errorf("expected stored order untouched, got status %s version %d", stored.Status, stored.Version)
		}
		if store.updates != 1 {
			t.Errorf("expected exactly one write attempt, got %d", store.updates)
		}
		if len(notifier.sent) != 0 {
			t.Error("expected no notification after a failed write")
		}
	})

	t.Run("notification failure does not fail the update", func(t *testing.T) {
		store := newFakeStore(storedOrder())
		svc := NewService(store, &fakeNotifier{ok: false}, testLogger(), WithClock(func() time.Time { return created.Add(time.Hour) }))

		result, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusCancelled, notes("out of stock"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Changed || result.Notified {
			t.Errorf("expected changed and not notified, got %+v", result)
		}
		stored, _ := store.GetByID(ctx, "order-1")
		if stored.Status != domain.OrderStatusCancelled || stored.Notes != "out of stock" {
			t.Errorf("expected update to be committed, got %+v", stored)
		}
	})

	t.Run("version conflict", func(t *testing.T) {
		store := newFakeStore(storedOrder())
		store.updateErr = domain.ErrVersionConflict
		svc := NewService(store, &fakeNotifier{ok: true}, testLogger(), WithClock(func() time.Time { return created.Add(time.Hour) }))

		_, err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusShipped, nil)
		if !errors.Is(err, domain.ErrVersionConflict) {
			t.Errorf("expected ErrVersionConflict, got %v", err)
		}
		if errors.Is(err, domain.ErrPersistFailed) {
			t.Error("conflicts should not be reported as persist failures")
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		svc := NewService(newFakeStore(), &fakeNotifier{ok: true}, testLogger())
		_, err := svc.UpdateStatus(ctx, "missing", domain.OrderStatusShipped, nil)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		store := newFakeStore(storedOrder())
		svc := NewService(store, &fakeNotifier{ok: true}, testLogger(), WithClock(func() time.Time { return created.Add(time.Hour) }))
		_, err := svc.UpdateStatus(ctx, "order-1", "lost", nil)
		if !errors.Is(err, domain.ErrInvalidStatus) {
			t.Errorf("expected ErrInvalidStatus, got %v", err)
		}
		if store.updates != 0 {
			t.Error("expected no write for an invalid status")
		}
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	draft := domain.OrderDraft{
		Customer:    domain.Customer{Email: "ana@example.com"},
		Fulfillment: domain.PickupAt("Store"),
		Items: []domain.OrderItem{
			{ProductID: "P-1", ProductPrice: decimal.NewFromInt(10), Quantity: 2},
		},
		Totals: domain.Totals{Subtotal: decimal.NewFromInt(20), Total: decimal.NewFromInt(20)},
	}

	t.Run("stores and confirms", func(t *testing.T) {
		store := newFakeStore()
		notifier := &fakeNotifier{ok: true}
		svc := NewService(store, notifier, testLogger(), WithClock(func() time.Time { return created }))

		order, err := svc.Create(ctx, draft)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order.ID == "" || order.OrderNumber == "" {
			t.Errorf("expected id and order number, got %q %q", order.ID, order.OrderNumber)
		}
		if order.Status != domain.OrderStatusPending {
			t.Errorf("expected pending, got %s", order.Status)
		}
		if len(notifier.sent) != 1 || notifier.sent[0].kind != domain.NotifyOrderConfirmation {
			t.Errorf("expected confirmation notification, got %+v", notifier.sent)
		}
	})

	t.Run("invalid order is never stored", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store, &fakeNotifier{ok: true}, testLogger())
		bad := draft
		bad.Items = nil

		_, err := svc.Create(ctx, bad)
		if !errors.Is(err, domain.ErrInvalidOrder) {
			t.Fatalf("expected ErrInvalidOrder, got %v", err)
		}
		if len(store.orders) != 0 {
			t.Error("expected nothing stored")
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := newFakeStore()
		store.createErr = errors.New("disk full")
		notifier := &fakeNotifier{ok: true}
		svc := NewService(store, notifier, testLogger())

		_, err := svc.Create(ctx, draft)
		if !errors.Is(err, domain.ErrPersistFailed) {
			t.Fatalf("expected ErrPersistFailed, got %v", err)
		}
		if len(notifier.sent) != 0 {
			t.Error("expected no confirmation for an unsaved order")
		}
	})
}

func TestService_SetArchived(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(storedOrder())
	svc := NewService(store, &fakeNotifier{ok: true}, testLogger(), WithClock(func() time.Time { return created.Add(time.Hour) }))

	order, err := svc.SetArchived(ctx, "order-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !order.Archived {
		t.Error("expected archived order")
	}

	list, err := svc.List(ctx, domain.OrderQuery{}, domain.Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Total != 0 {
		t.Errorf("expected archived order hidden from default listing, got %d", list.Total)
	}
	if list.Limit != domain.DefaultPageLimit || list.Page != 1 {
		t.Errorf("expected normalized page, got %d/%d", list.Page, list.Limit)
	}

	order, err = svc.SetArchived(ctx, "order-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Archived {
		t.Error("expected order restored")
	}
}
