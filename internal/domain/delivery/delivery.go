// Package delivery models courier (motoboy) delivery records. Deliveries
// are tracked independently from orders and join analytics only by
// neighborhood and courier, never by order ID.
package delivery

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Delivery is one completed courier run.
type Delivery struct {
	ID           string
	MotoboyID    string
	Neighborhood string
	Fee          decimal.Decimal
	DeliveredAt  time.Time
}

// Source loads delivery records for analytics.
type Source interface {
	LoadDeliveries(ctx context.Context, start, end time.Time) ([]Delivery, error)
}

// Repository extends Source with write access for the recording surface.
type Repository interface {
	Source
	Record(ctx context.Context, d *Delivery) error
}
