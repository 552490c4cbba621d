package analytics

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

var ErrInvalidQuery = errors.New("invalid analytics query")

type Period string

const (
	PeriodDay     Period = "24h"
	PeriodWeek    Period = "7d"
	PeriodMonth   Period = "30d"
	PeriodQuarter Period = "90d"
	PeriodYear    Period = "1y"
	PeriodAll     Period = "all"
	PeriodCustom  Period = "custom"
)

var periodLengths = map[Period]time.Duration{
	PeriodDay:     24 * time.Hour,
	PeriodWeek:    7 * 24 * time.Hour,
	PeriodMonth:   30 * 24 * time.Hour,
	PeriodQuarter: 90 * 24 * time.Hour,
	PeriodYear:    365 * 24 * time.Hour,
}

// Query is a parsed analytics request.
type Query struct {
	Period        Period
	GroupBy       Unit
	From          *time.Time
	To            *time.Time
	Statuses      []domain.OrderStatus
	Product       string
	Customer      string
	PaymentMethod string
	Country       string
	City          string
	Region        string
}

// ParseQuery reads the analytics query string. Unset period defaults to 30d
// and unset groupBy to day.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{
		Period:        Period(v.Get("period")),
		Product:       strings.TrimSpace(v.Get("product")),
		Customer:      strings.ToLower(strings.TrimSpace(v.Get("customer"))),
		PaymentMethod: strings.TrimSpace(v.Get("paymentMethod")),
		Country:       strings.TrimSpace(v.Get("country")),
		City:          strings.TrimSpace(v.Get("city")),
		Region:        strings.TrimSpace(v.Get("region")),
	}
	if q.Period == "" {
		q.Period = PeriodMonth
	}

	unit, err := ParseUnit(v.Get("groupBy"))
	if err != nil {
		return Query{}, err
	}
	q.GroupBy = unit

	for _, raw := range v["status"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" || part == "all" {
				continue
			}
			status, err := domain.ParseOrderStatus(part)
			if err != nil {
				return Query{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
			}
			q.Statuses = append(q.Statuses, status)
		}
	}

	if q.From, err = parseTime(v.Get("from")); err != nil {
		return Query{}, err
	}
	if q.To, err = parseTime(v.Get("to")); err != nil {
		return Query{}, err
	}

	switch q.Period {
	case PeriodCustom:
		if q.From == nil || q.To == nil {
			return Query{}, fmt.Errorf("%w: custom period requires from and to", ErrInvalidQuery)
		}
	case PeriodAll:
	default:
		if _, ok := periodLengths[q.Period]; !ok {
			return Query{}, fmt.Errorf("%w: unknown period %q", ErrInvalidQuery, q.Period)
		}
	}
	if q.From != nil && q.To != nil {
		if !q.From.Before(*q.To) {
			return Query{}, fmt.Errorf("%w: from must be before to", ErrInvalidQuery)
		}
		if n := q.GroupBy.count(*q.From, *q.To); n > MaxBuckets {
			return Query{}, fmt.Errorf("%w: range spans %d %s buckets, limit is %d", ErrInvalidQuery, n, q.GroupBy, MaxBuckets)
		}
	}

	return q, nil
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %w: %q", ErrInvalidQuery, domain.ErrInvalidTimestamp, raw)
}

// Range resolves the reporting window relative to now. Explicit from/to
// bounds win over the period. A single bound narrows the period window
// instead of replacing it. PeriodAll without both bounds has no window.
func (q Query) Range(now time.Time) *Range {
	if q.From != nil && q.To != nil {
		return &Range{From: *q.From, To: *q.To}
	}
	if q.Period == PeriodAll {
		return nil
	}
	now = now.UTC()
	rng := &Range{From: now.Add(-periodLengths[q.Period]), To: now}
	if q.From != nil && q.From.After(rng.From) {
		rng.From = *q.From
	}
	if q.To != nil && q.To.Before(rng.To) {
		rng.To = *q.To
	}
	if rng.To.Before(rng.From) {
		rng.To = rng.From
	}
	return rng
}

// OrderQuery translates the filters for the repository. Archived orders
// still count towards revenue.
func (q Query) OrderQuery(rng *Range) domain.OrderQuery {
	oq := domain.OrderQuery{
		Statuses:        q.Statuses,
		ProductID:       q.Product,
		CustomerEmail:   q.Customer,
		PaymentMethod:   q.PaymentMethod,
		Country:         q.Country,
		City:            q.City,
		Region:          q.Region,
		IncludeArchived: true,
	}
	if rng != nil {
		from, to := rng.From, rng.To
		oq.From = &from
		oq.To = &to
	} else {
		oq.From, oq.To = q.From, q.To
	}
	return oq
}

// CacheKey identifies the query independent of parameter order.
func (q Query) CacheKey() string {
	statuses := make([]string, len(q.Statuses))
	for i, s := range q.Statuses {
		statuses[i] = string(s)
	}
	sort.Strings(statuses)

	parts := []string{
		"period=" + string(q.Period),
		"groupBy=" + string(q.GroupBy),
		"status=" + strings.Join(statuses, ","),
		"product=" + q.Product,
		"customer=" + q.Customer,
		"paymentMethod=" + q.PaymentMethod,
		"country=" + q.Country,
		"city=" + q.City,
		"region=" + q.Region,
	}
	if q.From != nil {
		parts = append(parts, "from="+q.From.Format(time.RFC3339))
	}
	if q.To != nil {
		parts = append(parts, "to="+q.To.Format(time.RFC3339))
	}
	return "analytics:" + strings.Join(parts, "&")
}
