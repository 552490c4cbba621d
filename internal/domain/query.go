package domain

import "time"

// OrderQuery filters orders. Every non-empty field narrows the result.
type OrderQuery struct {
	Statuses []OrderStatus
	// Search matches a substring of the order number, customer email or name.
	Search        string
	From          *time.Time
	To            *time.Time
	ProductID     string
	CustomerEmail string
	PaymentMethod string
	Country       string
	City          string
	Region        string

	IncludeArchived bool
	ArchivedOnly    bool
}

type Page struct {
	Number int
	Limit  int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}
