package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dborba/comanda-tracker/internal/domain/order"
	"github.com/dborba/comanda-tracker/internal/domain/payment"
)

const (
	saveOrderSQL = `INSERT INTO orders (id, items, delivery_address, neighborhood,
		delivery_fee, subtotal, total, payment_method, paid, settlement, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	loadOrderByIDSQL = `SELECT id, items, delivery_address, neighborhood,
		delivery_fee, subtotal, total, payment_method, paid, settlement, created_at
		FROM orders WHERE id = $1`

	loadRecentOrdersSQL = `SELECT id, items, delivery_address, neighborhood,
		delivery_fee, subtotal, total, payment_method, paid, settlement, created_at
		FROM orders ORDER BY created_at DESC LIMIT $1`

	loadOrdersByRangeSQL = `SELECT id, items, delivery_address, neighborhood,
		delivery_fee, subtotal, total, payment_method, paid, settlement, created_at
		FROM orders WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at`

	// Nil parameters leave their columns untouched. Settlement is the one
	// field that can be cleared, so it goes through an explicit set flag.
	updateOrderSQL = `UPDATE orders SET
		items            = COALESCE($2::jsonb, items),
		delivery_address = COALESCE($3, delivery_address),
		neighborhood     = COALESCE($4, neighborhood),
		delivery_fee     = COALESCE($5, delivery_fee),
		subtotal         = COALESCE($6, subtotal),
		total            = COALESCE($7, total),
		payment_method   = COALESCE($8, payment_method),
		paid             = COALESCE($9, paid),
		settlement       = CASE WHEN $10::boolean THEN $11::jsonb ELSE settlement END
		WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Save persists a settled or open order, assigning an ID if the order does
// not carry one yet. Line items and the settlement breakdown are serialized
// to JSON for storage in JSONB columns.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	settlementJSON, err := marshalSettlement(o.Settlement)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, saveOrderSQL,
		o.ID, itemsJSON, o.DeliveryAddress, o.Neighborhood,
		o.DeliveryFee, o.Subtotal, o.Total, string(o.PaymentMethod),
		o.Paid, settlementJSON, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving order %q: %w", o.ID, err)
	}

	return nil
}

// Load returns a single order by ID, or order.ErrNotFound.
func (r *OrderRepository) Load(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, loadOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("loading order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("loading order %q: %w", id, err)
	}
	return &o, nil
}

// LoadRecent returns the latest orders, newest first.
func (r *OrderRepository) LoadRecent(ctx context.Context, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, loadRecentOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// LoadByDateRange returns orders created in [start, end), oldest first.
func (r *OrderRepository) LoadByDateRange(ctx context.Context, start, end time.Time) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, loadOrdersByRangeSQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading orders by date range: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Update applies a partial edit to a stored order and reports whether the
// order existed. Marking an order unpaid clears its stored settlement.
func (r *OrderRepository) Update(ctx context.Context, id string, u order.Update) (bool, error) {
	var itemsJSON []byte
	if u.Items != nil {
		b, err := json.Marshal(u.Items)
		if err != nil {
			return false, fmt.Errorf("marshaling order items: %w", err)
		}
		itemsJSON = b
	}

	settlementSet := u.Settlement != nil || (u.Paid != nil && !*u.Paid)
	settlementJSON, err := marshalSettlement(u.Settlement)
	if err != nil {
		return false, err
	}

	var method *string
	if u.PaymentMethod != nil {
		s := string(*u.PaymentMethod)
		method = &s
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		id, itemsJSON, u.DeliveryAddress, u.Neighborhood,
		u.DeliveryFee, u.Subtotal, u.Total, method,
		u.Paid, settlementSet, settlementJSON,
	)
	if err != nil {
		return false, fmt.Errorf("updating order %q: %w", id, err)
	}

	return tag.RowsAffected() > 0, nil
}

// Delete removes an order and reports whether it existed.
func (r *OrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return false, fmt.Errorf("deleting order %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o              order.Order
		itemsJSON      []byte
		method         string
		settlementJSON []byte
	)
	err := row.Scan(
		&o.ID, &itemsJSON, &o.DeliveryAddress, &o.Neighborhood,
		&o.DeliveryFee, &o.Subtotal, &o.Total, &method,
		&o.Paid, &settlementJSON, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.PaymentMethod = payment.Method(method)

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items for order %q: %w", o.ID, err)
	}
	if len(settlementJSON) > 0 {
		var s payment.Settlement
		if err := json.Unmarshal(settlementJSON, &s); err != nil {
			return o, fmt.Errorf("unmarshaling settlement for order %q: %w", o.ID, err)
		}
		o.Settlement = &s
	}
	return o, nil
}

func marshalSettlement(s *payment.Settlement) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling settlement: %w", err)
	}
	return b, nil
}
