package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dborba/comanda-tracker/internal/domain/rate"
)

const (
	listRateEntriesSQL = `SELECT neighborhood, fee FROM neighborhood_rates
		ORDER BY neighborhood`

	upsertRateEntrySQL = `INSERT INTO neighborhood_rates (neighborhood, fee, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (neighborhood) DO UPDATE SET fee = EXCLUDED.fee, updated_at = NOW()`
)

var _ rate.Repository = (*RateRepository)(nil)

// RateRepository implements rate.Repository backed by PostgreSQL.
type RateRepository struct {
	pool *pgxpool.Pool
}

// NewRateRepository returns a RateRepository that uses the given pool.
func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

// ListEntries returns every configured delivery rate, sorted by
// neighborhood name.
func (r *RateRepository) ListEntries(ctx context.Context) ([]rate.Entry, error) {
	rows, err := r.pool.Query(ctx, listRateEntriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing rate entries: %w", err)
	}
	return pgx.CollectRows(rows, scanRateEntry)
}

// UpsertEntry creates or replaces the fee for a neighborhood.
func (r *RateRepository) UpsertEntry(ctx context.Context, e rate.Entry) error {
	_, err := r.pool.Exec(ctx, upsertRateEntrySQL, e.Neighborhood, e.Fee)
	if err != nil {
		return fmt.Errorf("upserting rate for %q: %w", e.Neighborhood, err)
	}
	return nil
}

// Snapshot loads the full rate table into an immutable in-memory snapshot.
func (r *RateRepository) Snapshot(ctx context.Context) (*rate.Snapshot, error) {
	entries, err := r.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	return rate.NewSnapshot(entries), nil
}

func scanRateEntry(row pgx.CollectableRow) (rate.Entry, error) {
	var e rate.Entry
	err := row.Scan(&e.Neighborhood, &e.Fee)
	return e, err
}
