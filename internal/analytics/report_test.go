package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

func TestSummarize(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	withItems := func(o domain.Order, status domain.OrderStatus, items ...domain.OrderItem) domain.Order {
		o.Status = status
		o.Items = items
		return o
	}
	mug := func(qty int) domain.OrderItem {
		return domain.OrderItem{ProductID: "mug", ProductName: "Mug", ProductPrice: decimal.NewFromInt(10), Quantity: qty}
	}
	tee := func(qty int) domain.OrderItem {
		return domain.OrderItem{ProductID: "tee", ProductName: "Tee", ProductPrice: decimal.NewFromInt(25), Quantity: qty}
	}

	orders := []domain.Order{
		withItems(orderAt(day.Add(time.Hour), "10"), domain.OrderStatusPaid, mug(1)),
		withItems(orderAt(day.Add(26*time.Hour), "50"), domain.OrderStatusDelivered, tee(2)),
		withItems(orderAt(day.Add(27*time.Hour), "30"), domain.OrderStatusDelivered, mug(3)),
	}
	q := Query{Period: PeriodCustom, GroupBy: UnitDay}
	rng := &Range{From: day, To: day.AddDate(0, 0, 3)}

	report := Summarize(orders, q, rng, day.AddDate(0, 0, 3))

	if len(report.Buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(report.Buckets))
	}
	if !report.Buckets[1].AvgOrderValue.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected day 2 avg 40, got %s", report.Buckets[1].AvgOrderValue)
	}
	if report.Totals.OrderCount != 3 || !report.Totals.Revenue.Equal(decimal.NewFromInt(90)) {
		t.Errorf("unexpected totals %+v", report.Totals)
	}
	if !report.Totals.AvgOrderValue.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected avg 30, got %s", report.Totals.AvgOrderValue)
	}
	if report.ByStatus[domain.OrderStatusDelivered] != 2 || report.ByStatus[domain.OrderStatusPaid] != 1 {
		t.Errorf("unexpected status breakdown %v", report.ByStatus)
	}
	if len(report.TopProducts) != 2 || report.TopProducts[0].ProductID != "tee" {
		t.Fatalf("unexpected top products %+v", report.TopProducts)
	}
	if report.TopProducts[1].Quantity != 4 || !report.TopProducts[1].Revenue.Equal(decimal.NewFromInt(40)) {
		t.Errorf("unexpected mug row %+v", report.TopProducts[1])
	}
}

func TestSummarize_Empty(t *testing.T) {
	report := Summarize(nil, Query{Period: PeriodAll, GroupBy: UnitMonth}, nil, time.Now())
	if len(report.Buckets) != 0 {
		t.Errorf("expected no buckets, got %d", len(report.Buckets))
	}
	if !report.Totals.AvgOrderValue.IsZero() {
		t.Errorf("expected zero avg, got %s", report.Totals.AvgOrderValue)
	}
	if report.From != nil || report.To != nil {
		t.Error("expected no range")
	}
}
