package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

type Unit string

const (
	UnitHour  Unit = "hour"
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
)

func ParseUnit(raw string) (Unit, error) {
	switch u := Unit(raw); u {
	case UnitHour, UnitDay, UnitWeek, UnitMonth:
		return u, nil
	case "":
		return UnitDay, nil
	}
	return "", fmt.Errorf("%w: unknown groupBy %q", ErrInvalidQuery, raw)
}

// Truncate returns the start of the bucket containing t. Buckets are UTC and
// weeks start on Monday.
func (u Unit) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch u {
	case UnitHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case UnitWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case UnitMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

func (u Unit) next(start time.Time) time.Time {
	switch u {
	case UnitHour:
		return start.Add(time.Hour)
	case UnitWeek:
		return start.AddDate(0, 0, 7)
	case UnitMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// MaxBuckets bounds how many buckets an explicit range may densify. It fits
// a year of hourly buckets.
const MaxBuckets = 10000

// count is the number of buckets densified for [from, to). It works on
// calendar fields so ranges longer than time.Duration can hold stay exact.
func (u Unit) count(from, to time.Time) int64 {
	start, end := u.Truncate(from), to.UTC()
	if !start.Before(end) {
		return 0
	}
	if u == UnitMonth {
		months := int64(end.Year()-start.Year())*12 + int64(end.Month()-start.Month())
		if !end.Equal(time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)) {
			months++
		}
		return months
	}
	size := int64(24 * 60 * 60)
	switch u {
	case UnitHour:
		size = 60 * 60
	case UnitWeek:
		size *= 7
	}
	secs := end.Unix() - start.Unix()
	return (secs + size - 1) / size
}

// Key formats a bucket start for display and lookup.
func (u Unit) Key(start time.Time) string {
	switch u {
	case UnitHour:
		return start.Format("2006-01-02T15:00")
	case UnitWeek:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case UnitMonth:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}

// Range is the half-open interval [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

type BucketRow struct {
	Key        string          `json:"bucket"`
	Start      time.Time       `json:"start"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// AvgOrderValue is revenue per order, or zero for an empty bucket.
func (b BucketRow) AvgOrderValue() decimal.Decimal {
	if b.OrderCount == 0 {
		return decimal.Zero
	}
	return b.Revenue.Div(decimal.NewFromInt(int64(b.OrderCount))).Round(2)
}

// Bucket groups orders by created_at. With a range every bucket between
// From and To is present, empty ones included, and orders outside the range
// are skipped. Without a range only non-empty buckets are returned. Rows are
// sorted by start time.
func Bucket(orders []domain.Order, unit Unit, rng *Range) []BucketRow {
	rows := make(map[time.Time]*BucketRow)

	if rng != nil && rng.From.Before(rng.To) {
		for start := unit.Truncate(rng.From); start.Before(rng.To); start = unit.next(start) {
			rows[start] = &BucketRow{Key: unit.Key(start), Start: start, Revenue: decimal.Zero}
		}
	}

	for _, order := range orders {
		if rng != nil && !rng.Contains(order.CreatedAt) {
			continue
		}
		start := unit.Truncate(order.CreatedAt)
		row, ok := rows[start]
		if !ok {
			row = &BucketRow{Key: unit.Key(start), Start: start, Revenue: decimal.Zero}
			rows[start] = row
		}
		row.OrderCount++
		row.Revenue = row.Revenue.Add(order.Total)
	}

	out := make([]BucketRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
