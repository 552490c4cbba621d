package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

func orderAt(t time.Time, total string) domain.Order {
	return domain.Order{CreatedAt: t, Total: decimal.RequireFromString(total), Status: domain.OrderStatusPaid}
}

func TestBucket_SameDay(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		orderAt(day.Add(1*time.Hour), "10"),
		orderAt(day.Add(5*time.Hour), "20"),
		orderAt(day.Add(23*time.Hour), "30"),
	}

	rows := Bucket(orders, UnitDay, nil)
	if len(rows) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(rows))
	}
	row := rows[0]
	if row.Key != "2024-01-01" {
		t.Errorf("expected key 2024-01-01, got %s", row.Key)
	}
	if row.OrderCount != 3 {
		t.Errorf("expected 3 orders, got %d", row.OrderCount)
	}
	if !row.Revenue.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected revenue 60, got %s", row.Revenue)
	}
	if !row.AvgOrderValue().Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected avg 20, got %s", row.AvgOrderValue())
	}
}

func TestBucket_Densify(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rng := &Range{From: from, To: from.AddDate(0, 0, 3)}

	rows := Bucket(nil, UnitDay, rng)
	if len(rows) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(rows))
	}
	for i, row := range rows {
		if row.OrderCount != 0 || !row.Revenue.IsZero() {
			t.Errorf("bucket %d: expected empty, got %+v", i, row)
		}
		if !row.AvgOrderValue().IsZero() {
			t.Errorf("bucket %d: expected zero avg, got %s", i, row.AvgOrderValue())
		}
		if !row.Start.Equal(from.AddDate(0, 0, i)) {
			t.Errorf("bucket %d: unexpected start %s", i, row.Start)
		}
	}
}

func TestBucket_DensifyFillsGapsAndSkipsOutOfRange(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rng := &Range{From: from, To: from.AddDate(0, 0, 3)}
	orders := []domain.Order{
		orderAt(from.Add(-time.Minute), "99"),
		orderAt(from.Add(2*time.Hour), "10"),
		orderAt(from.AddDate(0, 0, 2).Add(time.Hour), "15.50"),
		orderAt(from.AddDate(0, 0, 3), "99"),
	}

	rows := Bucket(orders, UnitDay, rng)
	if len(rows) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(rows))
	}
	counts := []int{rows[0].OrderCount, rows[1].OrderCount, rows[2].OrderCount}
	if counts[0] != 1 || counts[1] != 0 || counts[2] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
	if !rows[2].Revenue.Equal(decimal.RequireFromString("15.50")) {
		t.Errorf("expected revenue 15.50, got %s", rows[2].Revenue)
	}
}

func TestBucket_SparseIsSorted(t *testing.T) {
	orders := []domain.Order{
		orderAt(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "1"),
		orderAt(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), "1"),
		orderAt(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "1"),
	}
	rows := Bucket(orders, UnitMonth, nil)
	if len(rows) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(rows))
	}
	if rows[0].Key != "2024-01" || rows[1].Key != "2024-03" {
		t.Errorf("unexpected keys %s, %s", rows[0].Key, rows[1].Key)
	}
	if rows[0].OrderCount != 2 {
		t.Errorf("expected 2 orders in January, got %d", rows[0].OrderCount)
	}
}

func TestUnit_Truncate(t *testing.T) {
	// Wednesday
	ts := time.Date(2024, 1, 3, 15, 45, 10, 0, time.UTC)

	tests := []struct {
		unit Unit
		want time.Time
		key  string
	}{
		{UnitHour, time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC), "2024-01-03T15:00"},
		{UnitDay, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), "2024-01-03"},
		{UnitWeek, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-W01"},
		{UnitMonth, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-01"},
	}
	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			got := tt.unit.Truncate(ts)
			if !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if key := tt.unit.Key(got); key != tt.key {
				t.Errorf("expected key %s, got %s", tt.key, key)
			}
		})
	}

	t.Run("sunday belongs to the previous week", func(t *testing.T) {
		sunday := time.Date(2024, 1, 7, 23, 0, 0, 0, time.UTC)
		if got := UnitWeek.Truncate(sunday); !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected Monday 2024-01-01, got %s", got)
		}
	})

	t.Run("non-UTC input is bucketed in UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC-5", -5*60*60)
		local := time.Date(2024, 1, 1, 22, 0, 0, 0, loc)
		if got := UnitDay.Truncate(local); !got.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected 2024-01-02 UTC, got %s", got)
		}
	})
}

func TestBucket_HourDensify(t *testing.T) {
	from := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	rng := &Range{From: from, To: from.Add(3 * time.Hour)}
	rows := Bucket(nil, UnitHour, rng)
	// 10:00, 11:00, 12:00, 13:00 (13:30 end)
	if len(rows) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(rows))
	}
	if rows[0].Key != "2024-01-01T10:00" {
		t.Errorf("unexpected first key %s", rows[0].Key)
	}
}

func TestBucket_EmptyRange(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	rows := Bucket([]domain.Order{orderAt(at, "5")}, UnitDay, &Range{From: at, To: at})
	if len(rows) != 0 {
		t.Errorf("expected no buckets for an empty range, got %d", len(rows))
	}
}
