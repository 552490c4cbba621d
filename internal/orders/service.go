package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/lifecycle"
)

// Store is the persistence the service needs. OrderRepository implements it.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, q domain.OrderQuery, page domain.Page) ([]domain.Order, int, error)
	Update(ctx context.Context, order *domain.Order) error
}

// Notifier requests customer notifications. It reports whether the request
// was accepted and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, order domain.Order, kind domain.NotificationKind) bool
}

// Recorder receives lifecycle measurements.
type Recorder interface {
	RecordTransition(ctx context.Context, from, to domain.OrderStatus)
	RecordNotification(ctx context.Context, kind domain.NotificationKind, ok bool)
}

type Service struct {
	store    Store
	notifier Notifier
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store Store, notifier Notifier, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new order, then requests the confirmation
// email.
func (s *Service) Create(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = s.now()
	}
	if draft.OrderNumber == "" {
		draft.OrderNumber = domain.NewOrderNumber(draft.CreatedAt)
	}
	if draft.Status == "" {
		draft.Status = domain.OrderStatusPending
	}

	order, err := domain.NewOrder(draft)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: create order: %w", domain.ErrPersistFailed, err)
	}

	s.notify(ctx, *order, domain.NotifyOrderConfirmation)
	return order, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

type ListResult struct {
	Orders []domain.Order `json:"orders"`
	Total  int            `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

func (s *Service) List(ctx context.Context, q domain.OrderQuery, page domain.Page) (ListResult, error) {
	page = page.Normalize()
	orders, total, err := s.store.List(ctx, q, page)
	if err != nil {
		return ListResult{}, fmt.Errorf("list orders: %w", err)
	}
	return ListResult{Orders: orders, Total: total, Page: page.Number, Limit: page.Limit}, nil
}

type UpdateResult struct {
	Order    *domain.Order
	Changed  bool
	Notified bool
}

// UpdateStatus moves an order to status. Nil notes keep the stored notes.
// Unchanged input performs no write. A failed write leaves the stored order
// as it was and is never retried here. Notification failures are logged
// only.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, notes *string) (UpdateResult, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return UpdateResult{}, err
	}

	nextNotes := current.Notes
	if notes != nil {
		nextNotes = *notes
	}

	t, err := lifecycle.Apply(*current, status, nextNotes, s.now())
	if err != nil {
		return UpdateResult{}, err
	}
	if !t.Changed {
		return UpdateResult{Order: current}, nil
	}

	next := t.Order
	if err := s.store.Update(ctx, &next); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return UpdateResult{}, err
		}
		return UpdateResult{}, fmt.Errorf("%w: update order %s: %w", domain.ErrPersistFailed, id, err)
	}

	if s.recorder != nil && current.Status != next.Status {
		s.recorder.RecordTransition(ctx, current.Status, next.Status)
	}
	s.logger.Info("order status updated", "order_id", next.ID, "from", current.Status, "to", next.Status)

	result := UpdateResult{Order: &next, Changed: true}
	if t.NotifyCustomer {
		result.Notified = s.notify(ctx, next, t.Kind)
	}
	return result, nil
}

// SetArchived hides or restores an order in default listings.
func (s *Service) SetArchived(ctx context.Context, id string, archived bool) (*domain.Order, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Archived == archived {
		return current, nil
	}

	next := *current
	next.SetArchived(archived, s.now())
	if err := s.store.Update(ctx, &next); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: archive order %s: %w", domain.ErrPersistFailed, id, err)
	}

	s.logger.Info("order archive flag updated", "order_id", next.ID, "archived", archived)
	return &next, nil
}

func (s *Service) notify(ctx context.Context, order domain.Order, kind domain.NotificationKind) bool {
	ok := s.notifier.Notify(ctx, order, kind)
	if s.recorder != nil {
		s.recorder.RecordNotification(ctx, kind, ok)
	}
	if !ok {
		s.logger.Warn("customer notification failed", "order_id", order.ID, "kind", kind)
	}
	return ok
}
