package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	createErr error
	updateErr error
	reads     int
	updates   int
	nextID    int
}

func newFakeStore(orders ...domain.Order) *fakeStore {
	s := &fakeStore{orders: make(map[string]domain.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	order.ID = fmt.Sprintf("generated-%d", s.nextID)
	s.orders[order.ID] = *order
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *fakeStore) List(_ context.Context, q domain.OrderQuery, page domain.Page) ([]domain.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if !q.IncludeArchived && o.Archived {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (s *fakeStore) Update(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return s.updateErr
	}
	stored, ok := s.orders[order.ID]
	if !ok || stored.Version != order.Version {
		return domain.ErrVersionConflict
	}
	order.Version++
	s.orders[order.ID] = *order
	return nil
}

type notification struct {
	orderID string
	kind    domain.NotificationKind
}

type fakeNotifier struct {
	mu   sync.Mutex
	ok   bool
	sent []notification
}

func (n *fakeNotifier) Notify(_ context.Context, order domain.Order, kind domain.NotificationKind) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{orderID: order.ID, kind: kind})
	return n.ok
}

type fakeRecorder struct {
	transitions   int
	notifications map[bool]int
}

func (r *fakeRecorder) RecordTransition(context.Context, domain.OrderStatus, domain.OrderStatus) {
	r.transitions++
}

func (r *fakeRecorder) RecordNotification(_ context.Context, _ domain.NotificationKind, ok bool) {
	if r.notifications == nil {
		r.notifications = map[bool]int{}
	}
	r.notifications[ok]++
}
