package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type OrderItem struct {
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductPrice  decimal.Decimal `json:"product_price"`
	Quantity      int             `json:"quantity"`
	SelectedSize  string          `json:"selected_size,omitempty"`
	SelectedColor string          `json:"selected_color,omitempty"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Totals are the monetary fields of an order. They are derived once at
// checkout and never recomputed from items afterwards.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
}

type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Customer      Customer        `json:"customer"`
	Fulfillment   Fulfillment     `json:"fulfillment"`
	Items         []OrderItem     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Status        OrderStatus     `json:"status"`
	Notes         string          `json:"notes"`
	Archived      bool            `json:"archived"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	Score         *int            `json:"score,omitempty"`
}

func (o Order) Totals() Totals {
	return Totals{
		Subtotal:     o.Subtotal,
		Discount:     o.Discount,
		Tax:          o.Tax,
		ShippingCost: o.ShippingCost,
		Total:        o.Total,
	}
}

// SetArchived hides or restores the order in default list views.
func (o *Order) SetArchived(archived bool, now time.Time) {
	if o.Archived == archived {
		return
	}
	o.Archived = archived
	if now.After(o.UpdatedAt) {
		o.UpdatedAt = now
	}
}

// OrderDraft is what the checkout hands over when an order is placed.
type OrderDraft struct {
	OrderNumber   string
	Customer      Customer
	Fulfillment   Fulfillment
	Items         []OrderItem
	Totals        Totals
	PaymentMethod string
	Status        OrderStatus
	Notes         string
	CreatedAt     time.Time
}

// NewOrderNumber returns a human-facing order number for an order placed at
// createdAt, e.g. ORD-20240101-1A2B3C4D.
func NewOrderNumber(createdAt time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", createdAt.UTC().Format("20060102"), suffix)
}

// NewOrder validates a draft and builds the order aggregate. The returned
// order has no ID until the repository stores it.
func NewOrder(d OrderDraft) (*Order, error) {
	if strings.TrimSpace(d.OrderNumber) == "" {
		return nil, fmt.Errorf("%w: order number is required", ErrInvalidOrder)
	}
	if d.CreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: created_at is required", ErrInvalidOrder)
	}
	if !d.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, d.Status)
	}
	if strings.TrimSpace(d.Customer.Email) == "" {
		return nil, fmt.Errorf("%w: customer email is required", ErrInvalidOrder)
	}
	if err := d.Fulfillment.Validate(); err != nil {
		return nil, err
	}
	if err := validateItems(d.Items); err != nil {
		return nil, err
	}
	if err := d.Totals.validate(d.Items); err != nil {
		return nil, err
	}

	createdAt := d.CreatedAt.UTC()
	items := make([]OrderItem, len(d.Items))
	copy(items, d.Items)

	order := &Order{
		OrderNumber:   d.OrderNumber,
		Customer:      d.Customer,
		Fulfillment:   d.Fulfillment,
		Items:         items,
		Subtotal:      d.Totals.Subtotal,
		Discount:      d.Totals.Discount,
		Tax:           d.Totals.Tax,
		ShippingCost:  d.Totals.ShippingCost,
		Total:         d.Totals.Total,
		PaymentMethod: d.PaymentMethod,
		Status:        d.Status,
		Notes:         d.Notes,
		Version:       1,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	order.Customer.Email = strings.ToLower(strings.TrimSpace(order.Customer.Email))
	if order.Status == OrderStatusPaid {
		paidAt := createdAt
		order.PaidAt = &paidAt
	}
	return order, nil
}

func validateItems(items []OrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("%w: item %d has no product id", ErrInvalidOrder, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %d quantity must be at least 1, got %d", ErrInvalidOrder, i, item.Quantity)
		}
		if item.ProductPrice.IsNegative() {
			return fmt.Errorf("%w: item %d has a negative price", ErrInvalidOrder, i)
		}
		if !isCents(item.ProductPrice) {
			return fmt.Errorf("%w: item %d price %s has more than 2 decimal places", ErrInvalidOrder, i, item.ProductPrice)
		}
	}
	return nil
}

func (t Totals) validate(items []OrderItem) error {
	for name, amount := range map[string]decimal.Decimal{
		"subtotal":      t.Subtotal,
		"discount":      t.Discount,
		"tax":           t.Tax,
		"shipping_cost": t.ShippingCost,
		"total":         t.Total,
	} {
		if amount.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidOrder, name)
		}
		if !isCents(amount) {
			return fmt.Errorf("%w: %s %s has more than 2 decimal places", ErrInvalidOrder, name, amount)
		}
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	if !subtotal.Equal(t.Subtotal) {
		return fmt.Errorf("%w: subtotal %s does not match items %s", ErrInvalidOrder, t.Subtotal, subtotal)
	}

	expected := t.Subtotal.Sub(t.Discount).Add(t.Tax).Add(t.ShippingCost)
	if !expected.Equal(t.Total) {
		return fmt.Errorf("%w: total %s does not equal subtotal - discount + tax + shipping (%s)", ErrInvalidOrder, t.Total, expected)
	}
	return nil
}

// isCents reports whether d is stored without rounding by a NUMERIC(12,2)
// column.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
