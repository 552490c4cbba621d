package orders

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

const orderColumns = `
	o.id, o.order_number,
	o.customer_first_name, o.customer_last_name, o.customer_email, o.customer_phone,
	o.fulfillment_method, o.pickup_location,
	o.ship_street, o.ship_city, o.ship_state, o.ship_zip, o.ship_country,
	o.subtotal, o.discount, o.tax, o.shipping_cost, o.total,
	o.payment_method, o.status, o.notes, o.archived, o.version, o.score,
	o.created_at, o.updated_at, o.completed_at, o.paid_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New().String()
	var addr domain.Address
	if order.Fulfillment.Address != nil {
		addr = *order.Fulfillment.Address
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number,
			customer_first_name, customer_last_name, customer_email, customer_phone,
			fulfillment_method, pickup_location,
			ship_street, ship_city, ship_state, ship_zip, ship_country,
			subtotal, discount, tax, shipping_cost, total,
			payment_method, status, notes, archived, version, score,
			created_at, updated_at, completed_at, paid_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28
		)
	`, id, order.OrderNumber,
		order.Customer.FirstName, order.Customer.LastName, order.Customer.Email, order.Customer.Phone,
		order.Fulfillment.Method, order.Fulfillment.Location,
		addr.Street, addr.City, addr.State, addr.Zip, addr.Country,
		order.Subtotal, order.Discount, order.Tax, order.ShippingCost, order.Total,
		order.PaymentMethod, order.Status, order.Notes, order.Archived, order.Version, nullableScore(order.Score),
		order.CreatedAt, order.UpdatedAt, nullableTime(order.CompletedAt), nullableTime(order.PaidAt))
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, position, product_id, product_name, product_price,
				quantity, selected_size, selected_color
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.New().String(), id, i, item.ProductID, item.ProductName, item.ProductPrice,
			item.Quantity, item.SelectedSize, item.SelectedColor)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	order.ID = id
	return nil
}

// GetByID returns nil, nil when no order has the id.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.id = $1
	`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	list := []domain.Order{order}
	if err := r.loadItems(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns one page of orders, newest first, and the number of orders
// matching q across all pages.
func (r *OrderRepository) List(ctx context.Context, q domain.OrderQuery, page domain.Page) ([]domain.Order, int, error) {
	where, args := whereClause(q)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page = page.Normalize()
	args = append(args, page.Limit, page.Offset())
	orders, err := r.query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM orders o%s
		ORDER BY o.created_at DESC, o.id
		LIMIT $%d OFFSET $%d
	`, orderColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FindAll returns every order matching q, oldest first.
func (r *OrderRepository) FindAll(ctx context.Context, q domain.OrderQuery) ([]domain.Order, error) {
	where, args := whereClause(q)
	return r.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o`+where+`
		ORDER BY o.created_at, o.id
	`, args...)
}

// Update writes the mutable fields of order if nobody changed it since it
// was read, and bumps its version. Monetary fields and items are never
// rewritten.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, notes = $3, archived = $4, score = $5,
			updated_at = $6, completed_at = $7, paid_at = $8,
			version = version + 1
		WHERE id = $1 AND version = $9
	`, order.ID, order.Status, order.Notes, order.Archived, nullableScore(order.Score),
		order.UpdatedAt, nullableTime(order.CompletedAt), nullableTime(order.PaidAt), order.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrVersionConflict
	}

	order.Version++
	return nil
}

func (r *OrderRepository) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[string]int, len(orders))
	ids := make([]string, len(orders))
	for i := range orders {
		orders[i].Items = []domain.OrderItem{}
		index[orders[i].ID] = i
		ids[i] = orders[i].ID
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, product_price, quantity, selected_size, selected_color
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.ProductPrice,
			&item.Quantity, &item.SelectedSize, &item.SelectedColor); err != nil {
			return err
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o           domain.Order
		method      domain.FulfillmentMethod
		location    string
		addr        domain.Address
		score       sql.NullInt64
		completedAt sql.NullTime
		paidAt      sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber,
		&o.Customer.FirstName, &o.Customer.LastName, &o.Customer.Email, &o.Customer.Phone,
		&method, &location,
		&addr.Street, &addr.City, &addr.State, &addr.Zip, &addr.Country,
		&o.Subtotal, &o.Discount, &o.Tax, &o.ShippingCost, &o.Total,
		&o.PaymentMethod, &o.Status, &o.Notes, &o.Archived, &o.Version, &score,
		&o.CreatedAt, &o.UpdatedAt, &completedAt, &paidAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	if method == domain.FulfillmentPickup {
		o.Fulfillment = domain.PickupAt(location)
	} else {
		o.Fulfillment = domain.ShipTo(addr)
	}
	if score.Valid {
		s := int(score.Int64)
		o.Score = &s
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		o.CompletedAt = &t
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		o.PaidAt = &t
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

// whereClause renders q as a WHERE clause over the orders table aliased o.
func whereClause(q domain.OrderQuery) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	switch {
	case q.ArchivedOnly:
		conds = append(conds, "o.archived = TRUE")
	case !q.IncludeArchived:
		conds = append(conds, "o.archived = FALSE")
	}

	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			statuses[i] = string(s)
		}
		add("o.status = ANY($%d)", pq.Array(statuses))
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		add(`(o.order_number ILIKE $%[1]d
			OR o.customer_email ILIKE $%[1]d
			OR o.customer_first_name ILIKE $%[1]d
			OR o.customer_last_name ILIKE $%[1]d
			OR (o.customer_first_name || ' ' || o.customer_last_name) ILIKE $%[1]d)`,
			"%"+escapeLike(search)+"%")
	}
	if q.From != nil {
		add("o.created_at >= $%d", *q.From)
	}
	if q.To != nil {
		add("o.created_at < $%d", *q.To)
	}
	if q.ProductID != "" {
		add(`EXISTS (
			SELECT 1 FROM order_items oi
			WHERE oi.order_id = o.id AND (oi.product_id = $%[1]d OR oi.product_name ILIKE $%[1]d)
		)`, q.ProductID)
	}
	if q.CustomerEmail != "" {
		add("o.customer_email = $%d", strings.ToLower(q.CustomerEmail))
	}
	if q.PaymentMethod != "" {
		add("o.payment_method = $%d", q.PaymentMethod)
	}
	if q.Country != "" {
		add("o.ship_country ILIKE $%d", escapeLike(q.Country))
	}
	if q.City != "" {
		add("o.ship_city ILIKE $%d", escapeLike(q.City))
	}
	if q.Region != "" {
		add("o.ship_state ILIKE $%d", escapeLike(q.Region))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, "\n\t\t\tAND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableScore(score *int) any {
	if score == nil {
		return nil
	}
	return *score
}
