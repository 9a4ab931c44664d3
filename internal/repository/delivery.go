package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dborba/comanda-tracker/internal/domain/delivery"
)

const (
	recordDeliverySQL = `INSERT INTO deliveries (id, motoboy_id, neighborhood, fee, delivered_at)
		VALUES ($1, $2, $3, $4, $5)`

	loadDeliveriesSQL = `SELECT id, motoboy_id, neighborhood, fee, delivered_at
		FROM deliveries WHERE delivered_at >= $1 AND delivered_at < $2
		ORDER BY delivered_at`
)

var _ delivery.Repository = (*DeliveryRepository)(nil)

// DeliveryRepository implements delivery.Repository backed by PostgreSQL.
type DeliveryRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryRepository returns a DeliveryRepository that uses the given pool.
func NewDeliveryRepository(pool *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

// Record persists one completed delivery run.
func (r *DeliveryRepository) Record(ctx context.Context, d *delivery.Delivery) error {
	_, err := r.pool.Exec(ctx, recordDeliverySQL,
		d.ID, d.MotoboyID, d.Neighborhood, d.Fee, d.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("recording delivery %q: %w", d.ID, err)
	}
	return nil
}

// LoadDeliveries returns deliveries completed in [start, end), oldest first.
func (r *DeliveryRepository) LoadDeliveries(ctx context.Context, start, end time.Time) ([]delivery.Delivery, error) {
	rows, err := r.pool.Query(ctx, loadDeliveriesSQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading deliveries: %w", err)
	}
	return pgx.CollectRows(rows, scanDelivery)
}

func scanDelivery(row pgx.CollectableRow) (delivery.Delivery, error) {
	var d delivery.Delivery
	err := row.Scan(&d.ID, &d.MotoboyID, &d.Neighborhood, &d.Fee, &d.DeliveredAt)
	return d, err
}
