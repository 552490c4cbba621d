package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

const topProductsLimit = 5

type ReportRow struct {
	BucketRow
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

type Totals struct {
	OrderCount    int             `json:"order_count"`
	Revenue       decimal.Decimal `json:"revenue"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

type ProductRow struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type Report struct {
	Period      Period                     `json:"period"`
	GroupBy     Unit                       `json:"group_by"`
	From        *time.Time                 `json:"from,omitempty"`
	To          *time.Time                 `json:"to,omitempty"`
	Buckets     []ReportRow                `json:"buckets"`
	Totals      Totals                     `json:"totals"`
	ByStatus    map[domain.OrderStatus]int `json:"by_status"`
	TopProducts []ProductRow               `json:"top_products"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// Summarize builds the full report for orders already filtered by q.
func Summarize(orders []domain.Order, q Query, rng *Range, now time.Time) Report {
	report := Report{
		Period:      q.Period,
		GroupBy:     q.GroupBy,
		ByStatus:    make(map[domain.OrderStatus]int),
		TopProducts: []ProductRow{},
		GeneratedAt: now.UTC(),
	}
	if rng != nil {
		from, to := rng.From, rng.To
		report.From = &from
		report.To = &to
	}

	rows := Bucket(orders, q.GroupBy, rng)
	report.Buckets = make([]ReportRow, len(rows))
	total := BucketRow{Revenue: decimal.Zero}
	for i, row := range rows {
		report.Buckets[i] = ReportRow{BucketRow: row, AvgOrderValue: row.AvgOrderValue()}
		total.OrderCount += row.OrderCount
		total.Revenue = total.Revenue.Add(row.Revenue)
	}
	report.Totals = Totals{
		OrderCount:    total.OrderCount,
		Revenue:       total.Revenue,
		AvgOrderValue: total.AvgOrderValue(),
	}

	products := make(map[string]*ProductRow)
	for _, order := range orders {
		if rng != nil && !rng.Contains(order.CreatedAt) {
			continue
		}
		report.ByStatus[order.Status]++
		for _, item := range order.Items {
			p, ok := products[item.ProductID]
			if !ok {
				p = &ProductRow{ProductID: item.ProductID, ProductName: item.ProductName, Revenue: decimal.Zero}
				products[item.ProductID] = p
			}
			p.Quantity += item.Quantity
			p.Revenue = p.Revenue.Add(item.LineTotal())
		}
	}
	for _, p := range products {
		report.TopProducts = append(report.TopProducts, *p)
	}
	sort.Slice(report.TopProducts, func(i, j int) bool {
		a, b := report.TopProducts[i], report.TopProducts[j]
		if !a.Revenue.Equal(b.Revenue) {
			return a.Revenue.GreaterThan(b.Revenue)
		}
		return a.ProductID < b.ProductID
	})
	if len(report.TopProducts) > topProductsLimit {
		report.TopProducts = report.TopProducts[:topProductsLimit]
	}

	return report
}
