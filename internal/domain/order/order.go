// Package order holds the comanda domain model and the ledger that edits a
// single in-progress order.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/dborba/comanda-tracker/internal/domain/payment"
)

// LineItem is one product line on a comanda. Quantity is always >= 1;
// mutations that would drop below one are rejected by the ledger.
type LineItem struct {
	ProductName string          `json:"product_name"`
	Category    string          `json:"category,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is a single customer delivery order (comanda). Subtotal, DeliveryFee
// and Total are derived; the ledger recomputes them on every mutation so a
// stored order is always internally consistent.
type Order struct {
	ID              string
	Items           []LineItem
	DeliveryAddress string
	Neighborhood    string
	DeliveryFee     decimal.Decimal
	Subtotal        decimal.Decimal
	Total           decimal.Decimal
	PaymentMethod   payment.Method
	Paid            bool
	Settlement      *payment.Settlement
	CreatedAt       time.Time
}

// Clone returns a deep copy of the order. The ledger hands out clones so
// callers can never alias its internal state.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]LineItem, len(o.Items))
	copy(c.Items, o.Items)
	if o.Settlement != nil {
		s := *o.Settlement
		if o.Settlement.AmountTendered != nil {
			t := *o.Settlement.AmountTendered
			s.AmountTendered = &t
		}
		c.Settlement = &s
	}
	return &c
}

// Update carries a partial edit for a persisted order. Nil fields are left
// untouched.
type Update struct {
	Items           []LineItem
	DeliveryAddress *string
	Neighborhood    *string
	DeliveryFee     *decimal.Decimal
	Subtotal        *decimal.Decimal
	Total           *decimal.Decimal
	PaymentMethod   *payment.Method
	Paid            *bool
	Settlement      *payment.Settlement
}

// ErrNotFound is returned by Repository.Load for unknown order IDs.
var ErrNotFound = errors.New("order not found")

// Repository defines persistence operations for orders. The core never
// assumes a storage technology beyond these operations.
type Repository interface {
	Save(ctx context.Context, o *Order) error
	Load(ctx context.Context, id string) (*Order, error)
	LoadRecent(ctx context.Context, limit int) ([]Order, error)
	LoadByDateRange(ctx context.Context, start, end time.Time) ([]Order, error)
	Update(ctx context.Context, id string, u Update) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}
