// Package notify delivers customer notifications for order milestones.
// Senders report success as a bool and never fail the caller.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

var ErrNotifyFailed = errors.New("notification failed")

// EmailSender composes notification emails and posts them to the email
// provider.
type EmailSender struct {
	emailServiceURL string
	ownerEmail      string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewEmailSender(emailServiceURL, ownerEmail string, client *http.Client, logger *slog.Logger) *EmailSender {
	return &EmailSender{
		emailServiceURL: emailServiceURL,
		ownerEmail:      ownerEmail,
		httpClient:      client,
		logger:          logger,
	}
}

type message struct {
	To      string                  `json:"to"`
	Subject string                  `json:"subject"`
	Body    string                  `json:"body"`
	Kind    domain.NotificationKind `json:"kind"`
}

// Notify sends the email for kind. Order confirmations also go to the
// store owner; each recipient is sent independently and the result is true
// only when every send succeeded.
func (s *EmailSender) Notify(ctx context.Context, order domain.Order, kind domain.NotificationKind) bool {
	msgs, err := s.compose(order, kind)
	if err != nil {
		s.logger.Error("failed to compose notification", "error", err, "order_id", order.ID, "kind", kind)
		return false
	}

	ok := true
	for _, msg := range msgs {
		if err := s.send(ctx, msg); err != nil {
			s.logger.Error("failed to send notification", "error", err, "order_id", order.ID, "kind", kind, "to", msg.To)
			ok = false
			continue
		}
		s.logger.Info("notification sent", "order_id", order.ID, "kind", kind, "to", msg.To)
	}
	return ok
}

func (s *EmailSender) compose(order domain.Order, kind domain.NotificationKind) ([]message, error) {
	if order.Customer.Email == "" {
		return nil, fmt.Errorf("%w: order has no customer email", ErrNotifyFailed)
	}

	name := order.Customer.FirstName
	if name == "" {
		name = "there"
	}
	to := order.Customer.Email

	switch kind {
	case domain.NotifyOrderConfirmation:
		msgs := []message{{
			To:      to,
			Subject: "Order Confirmation: " + order.OrderNumber,
			Body: fmt.Sprintf("Hi %s, thanks for your order %s with %d items. Total: $%s.",
				name, order.OrderNumber, len(order.Items), order.Total.StringFixed(2)),
			Kind: kind,
		}}
		if s.ownerEmail != "" {
			msgs = append(msgs, message{
				To:      s.ownerEmail,
				Subject: "New Order: " + order.OrderNumber,
				Body: fmt.Sprintf("%s %s (%s) placed order %s. Total: $%s. Fulfillment: %s.",
					order.Customer.FirstName, order.Customer.LastName, to, order.OrderNumber,
					order.Total.StringFixed(2), describeFulfillment(order.Fulfillment)),
				Kind: kind,
			})
		}
		return msgs, nil
	case domain.NotifyProcessing:
		return []message{{
			To:      to,
			Subject: "We're preparing your order " + order.OrderNumber,
			Body:    fmt.Sprintf("Hi %s, your order %s is being prepared.", name, order.OrderNumber),
			Kind:    kind,
		}}, nil
	case domain.NotifyReadyForPickup:
		return []message{{
			To:      to,
			Subject: "Your order " + order.OrderNumber + " is ready for pickup",
			Body: fmt.Sprintf("Hi %s, your order %s is ready for pickup at %s.",
				name, order.OrderNumber, describeFulfillment(order.Fulfillment)),
			Kind: kind,
		}}, nil
	case domain.NotifyDelivered:
		return []message{{
			To:      to,
			Subject: "Your order " + order.OrderNumber + " was delivered",
			Body:    fmt.Sprintf("Hi %s, your order %s has been delivered. Enjoy!", name, order.OrderNumber),
			Kind:    kind,
		}}, nil
	case domain.NotifyCancelled:
		body := fmt.Sprintf("Hi %s, your order %s has been cancelled.", name, order.OrderNumber)
		if order.Notes != "" {
			body += " Note from the store: " + order.Notes
		}
		return []message{{
			To:      to,
			Subject: "Order Cancelled: " + order.OrderNumber,
			Body:    body,
			Kind:    kind,
		}}, nil
	case domain.NotifyAbandonedCart:
		return []message{{
			To:      to,
			Subject: "You left something in your cart",
			Body:    fmt.Sprintf("Hi %s, the %d items in your cart are still waiting for you.", name, len(order.Items)),
			Kind:    kind,
		}}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrNotifyFailed, kind)
}

func describeFulfillment(f domain.Fulfillment) string {
	if f.IsPickup() {
		if f.Location == "" {
			return "our store"
		}
		return f.Location
	}
	if f.Address == nil {
		return "shipping"
	}
	return fmt.Sprintf("shipping to %s, %s", f.Address.City, f.Address.Country)
}

func (s *EmailSender) send(ctx context.Context, msg message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotifyFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: email service returned status %d", ErrNotifyFailed, resp.StatusCode)
	}
	return nil
}
