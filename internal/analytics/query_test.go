package analytics

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

func TestParseQuery(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		q, err := ParseQuery(url.Values{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Period != PeriodMonth || q.GroupBy != UnitDay {
			t.Errorf("expected 30d/day, got %s/%s", q.Period, q.GroupBy)
		}
	})

	t.Run("filters", func(t *testing.T) {
		v := url.Values{}
		v.Set("period", "7d")
		v.Set("groupBy", "week")
		v.Add("status", "paid,delivered")
		v.Add("status", "all")
		v.Set("customer", " Ana@Example.com ")
		v.Set("country", "US")
		v.Set("paymentMethod", "card")

		q, err := ParseQuery(v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(q.Statuses) != 2 || q.Statuses[0] != domain.OrderStatusPaid || q.Statuses[1] != domain.OrderStatusDelivered {
			t.Errorf("unexpected statuses %v", q.Statuses)
		}
		if q.Customer != "ana@example.com" {
			t.Errorf("expected normalized customer, got %q", q.Customer)
		}
		oq := q.OrderQuery(nil)
		if oq.Country != "US" || oq.PaymentMethod != "card" || !oq.IncludeArchived {
			t.Errorf("unexpected order query %+v", oq)
		}
	})

	t.Run("custom period needs bounds", func(t *testing.T) {
		v := url.Values{"period": {"custom"}, "from": {"2024-01-01"}}
		if _, err := ParseQuery(v); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("expected ErrInvalidQuery, got %v", err)
		}
	})

	t.Run("custom period", func(t *testing.T) {
		v := url.Values{"period": {"custom"}, "from": {"2024-01-01"}, "to": {"2024-01-04T00:00:00Z"}}
		q, err := ParseQuery(v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rng := q.Range(time.Now())
		if rng == nil || !rng.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !rng.To.Equal(time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected range %+v", rng)
		}
	})

	rejects := map[string]url.Values{
		"unknown period":         {"period": {"5y"}},
		"unknown groupBy":        {"groupBy": {"minute"}},
		"unknown status":         {"status": {"lost"}},
		"bad timestamp":          {"period": {"custom"}, "from": {"soon"}, "to": {"2024-01-01"}},
		"inverted range":         {"period": {"custom"}, "from": {"2024-02-01"}, "to": {"2024-01-01"}},
		"two centuries hourly":   {"period": {"custom"}, "groupBy": {"hour"}, "from": {"1900-01-01"}, "to": {"2100-01-01"}},
		"whole calendar monthly": {"period": {"custom"}, "groupBy": {"month"}, "from": {"0001-01-01"}, "to": {"9999-01-01"}},
	}
	for name, v := range rejects {
		t.Run("rejects "+name, func(t *testing.T) {
			if _, err := ParseQuery(v); !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestQuery_Range(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	q := Query{Period: PeriodWeek, GroupBy: UnitDay}
	rng := q.Range(now)
	if rng == nil || !rng.To.Equal(now) || !rng.From.Equal(now.Add(-7*24*time.Hour)) {
		t.Errorf("unexpected range %+v", rng)
	}

	if (Query{Period: PeriodAll}).Range(now) != nil {
		t.Error("expected no range for all")
	}
}

func TestQuery_RangeNarrowsPeriodWithSingleBound(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name string
		v    url.Values
		from time.Time
		to   time.Time
	}{
		{"from inside period", url.Values{"period": {"30d"}, "from": {"2024-06-10"}}, day(10), now},
		{"from before period", url.Values{"period": {"7d"}, "from": {"2024-01-01"}}, day(23), now},
		{"to inside period", url.Values{"period": {"7d"}, "to": {"2024-06-28"}}, day(23), day(28)},
		{"to before period", url.Values{"period": {"7d"}, "to": {"2024-06-01"}}, day(23), day(23)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery(tt.v)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			oq := q.OrderQuery(q.Range(now))
			if oq.From == nil || !oq.From.Equal(tt.from) {
				t.Errorf("expected from %s, got %v", tt.from, oq.From)
			}
			if oq.To == nil || !oq.To.Equal(tt.to) {
				t.Errorf("expected to %s, got %v", tt.to, oq.To)
			}
		})
	}

	t.Run("all keeps the single bound", func(t *testing.T) {
		q, err := ParseQuery(url.Values{"period": {"all"}, "from": {"2024-06-10"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		oq := q.OrderQuery(q.Range(now))
		if oq.From == nil || !oq.From.Equal(day(10)) || oq.To != nil {
			t.Errorf("expected from 2024-06-10 and no upper bound, got %v %v", oq.From, oq.To)
		}
	})
}

func TestUnit_Count(t *testing.T) {
	from := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		unit     Unit
		to       time.Time
		expected int64
	}{
		{UnitHour, from.Add(3 * time.Hour), 4},
		{UnitDay, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), 3},
		{UnitWeek, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 2},
		{UnitMonth, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 2},
		{UnitMonth, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 3},
		{UnitHour, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 8774},
	}
	for _, tt := range tests {
		if got := tt.unit.count(from, tt.to); got != tt.expected {
			t.Errorf("expected %d %s buckets until %s, got %d", tt.expected, tt.unit, tt.to, got)
		}
		if got := int64(len(Bucket(nil, tt.unit, &Range{From: from, To: tt.to}))); got != tt.expected {
			t.Errorf("expected Bucket to densify %d %s buckets, got %d", tt.expected, tt.unit, got)
		}
	}

	v := url.Values{"period": {"custom"}, "groupBy": {"hour"}, "from": {"2024-01-01"}, "to": {"2025-01-01"}}
	if _, err := ParseQuery(v); err != nil {
		t.Errorf("expected a year of hourly buckets to be accepted, got %v", err)
	}
}

func TestQuery_CacheKey(t *testing.T) {
	a, _ := ParseQuery(url.Values{"status": {"paid,delivered"}, "period": {"7d"}})
	b, _ := ParseQuery(url.Values{"period": {"7d"}, "status": {"delivered", "paid"}})
	if a.CacheKey() != b.CacheKey() {
		t.Errorf("expected equal keys, got %q and %q", a.CacheKey(), b.CacheKey())
	}
	c, _ := ParseQuery(url.Values{"period": {"30d"}})
	if a.CacheKey() == c.CacheKey() {
		t.Error("expected different keys for different periods")
	}
}
