package lifecycle

import "github.com/joao-fontenele/storefront-orders/internal/domain"

// Score rates how quickly an order was completed against a seven business
// day target. A stored positive score is returned as is.
func Score(order domain.Order) (int, error) {
	if order.Score != nil && *order.Score > 0 {
		return *order.Score, nil
	}
	if order.CreatedAt.IsZero() {
		return 0, domain.ErrInvalidTimestamp
	}

	completedAt := order.CreatedAt
	switch {
	case order.CompletedAt != nil && !order.CompletedAt.IsZero():
		completedAt = *order.CompletedAt
	case !order.UpdatedAt.IsZero():
		completedAt = order.UpdatedAt
	}

	hours := completedAt.Sub(order.CreatedAt).Hours()
	switch {
	case hours <= 120:
		return 100, nil
	case hours <= 168:
		return 80, nil
	case hours <= 240:
		return 60, nil
	case hours <= 336:
		return 40, nil
	}
	return 20, nil
}
