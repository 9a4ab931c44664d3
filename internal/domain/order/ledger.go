package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/dborba/comanda-tracker/internal/domain/payment"
	"github.com/dborba/comanda-tracker/internal/domain/rate"
	"github.com/dborba/comanda-tracker/internal/money"
)

// Sentinel errors for ledger mutations.
var (
	ErrItemIndex = errors.New("line item index out of range")
	// ErrOrderSettled is returned for mutations on a settled order.
	// ReopenPayment reverts the settlement first when an edit is intended.
	ErrOrderSettled = errors.New("order already settled")
)

// InvalidQuantityError indicates an attempt to set a line item quantity
// below one. The mutation is rejected, never clamped.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1, got %d", e.Quantity)
}

// ValidationError lists the fields still missing before an order can be
// settled.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "order not ready for settlement: missing " + strings.Join(e.Missing, ", ")
}

// Totals is the derived money state returned by every mutation, so callers
// never recompute (or cache) amounts themselves.
type Totals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Ledger owns one mutable in-progress comanda. It is plain synchronous
// computation: no I/O, no hidden state, one editor at a time. Every
// mutation recomputes the subtotal from the full line-item list; order
// sizes are at most dozens of items, so correctness wins over caching.
type Ledger struct {
	rates rate.Table
	ord   Order
	now   func() time.Time
}

// NewLedger starts an empty order against the given fee table.
func NewLedger(rates rate.Table) *Ledger {
	return &Ledger{rates: rates, now: time.Now}
}

// Resume loads a persisted order back into a ledger for the edit flow. The
// ledger edits its own deep copy; the caller's order is untouched.
func Resume(rates rate.Table, o *Order) *Ledger {
	return &Ledger{rates: rates, ord: *o.Clone(), now: time.Now}
}

// recompute derives subtotal and total from scratch. This is the only place
// the derived fields are written.
func (l *Ledger) recompute() Totals {
	subtotal := money.Zero
	for _, it := range l.ord.Items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	l.ord.Subtotal = subtotal
	l.ord.Total = subtotal.Add(l.ord.DeliveryFee)

	return Totals{
		Subtotal:    l.ord.Subtotal,
		DeliveryFee: l.ord.DeliveryFee,
		Total:       l.ord.Total,
	}
}

// AddItem appends a line item with quantity one and returns the new totals.
func (l *Ledger) AddItem(productName, category string, unitPrice decimal.Decimal) (Totals, error) {
	if l.ord.Paid {
		return Totals{}, ErrOrderSettled
	}
	l.ord.Items = append(l.ord.Items, LineItem{
		ProductName: productName,
		Category:    category,
		UnitPrice:   unitPrice,
		Quantity:    1,
	})
	return l.recompute(), nil
}

// RemoveItem deletes the line item at index, preserving the add sequence of
// the remaining items.
func (l *Ledger) RemoveItem(index int) (Totals, error) {
	if l.ord.Paid {
		return Totals{}, ErrOrderSettled
	}
	if index < 0 || index >= len(l.ord.Items) {
		return Totals{}, ErrItemIndex
	}
	l.ord.Items = append(l.ord.Items[:index], l.ord.Items[index+1:]...)
	return l.recompute(), nil
}

// SetQuantity replaces the quantity of the line item at index. Quantities
// below one are rejected before any mutation happens.
func (l *Ledger) SetQuantity(index, qty int) (Totals, error) {
	if l.ord.Paid {
		return Totals{}, ErrOrderSettled
	}
	if index < 0 || index >= len(l.ord.Items) {
		return Totals{}, ErrItemIndex
	}
	if qty < 1 {
		return Totals{}, &InvalidQuantityError{Quantity: qty}
	}
	l.ord.Items[index].Quantity = qty
	return l.recompute(), nil
}

// ReplaceItems swaps the whole item list, used by the edit-order flow when
// a client submits a revised comanda. Every quantity is validated before
// anything is mutated.
func (l *Ledger) ReplaceItems(items []LineItem) (Totals, error) {
	if l.ord.Paid {
		return Totals{}, ErrOrderSettled
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return Totals{}, &InvalidQuantityError{Quantity: it.Quantity}
		}
	}
	l.ord.Items = make([]LineItem, len(items))
	copy(l.ord.Items, items)
	return l.recompute(), nil
}

// SelectNeighborhood looks the neighborhood up in the rate table, freezes
// its fee on the order and recomputes the total. The fee stays frozen even
// if the table changes afterwards.
func (l *Ledger) SelectNeighborhood(name string) (Totals, error) {
	if l.ord.Paid {
		return Totals{}, ErrOrderSettled
	}
	fee, err := l.rates.Fee(name)
	if err != nil {
		return Totals{}, err
	}
	l.ord.Neighborhood = name
	l.ord.DeliveryFee = fee
	return l.recompute(), nil
}

// SetDeliveryAddress records the street address.
func (l *Ledger) SetDeliveryAddress(addr string) error {
	if l.ord.Paid {
		return ErrOrderSettled
	}
	l.ord.DeliveryAddress = strings.TrimSpace(addr)
	return nil
}

// SelectPaymentMethod records the chosen method. The actual inputs (tender,
// split amounts) arrive at Settle time.
func (l *Ledger) SelectPaymentMethod(m payment.Method) error {
	if l.ord.Paid {
		return ErrOrderSettled
	}
	if !m.Valid() {
		return payment.ErrNoMethod
	}
	l.ord.PaymentMethod = m
	return nil
}

// Totals returns the current derived money state.
func (l *Ledger) Totals() Totals {
	return l.recompute()
}

// Snapshot returns a deep copy of the in-progress order.
func (l *Ledger) Snapshot() *Order {
	return l.ord.Clone()
}

// validateForSettlement checks the structural invariants: at least one line
// item, address, neighborhood and payment method all present.
func (l *Ledger) validateForSettlement() error {
	var missing []string
	if len(l.ord.Items) == 0 {
		missing = append(missing, "line items")
	}
	if l.ord.DeliveryAddress == "" {
		missing = append(missing, "delivery address")
	}
	if l.ord.Neighborhood == "" {
		missing = append(missing, "neighborhood")
	}
	if !l.ord.PaymentMethod.Valid() {
		missing = append(missing, "payment method")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Settle validates the order, reconciles the payment inputs against the
// total and, on success, applies the settlement and marks the order paid.
// The returned order is a deep copy with consistent subtotal, fee, total
// and a non-nil settlement — safe to hand to persistence or a receipt
// renderer without re-validating the money math.
func (l *Ledger) Settle(in payment.CashInput, split payment.SplitInput) (*Order, error) {
	if l.ord.Paid {
		return nil, ErrOrderSettled
	}
	if err := l.validateForSettlement(); err != nil {
		return nil, err
	}

	totals := l.recompute()

	settlement, err := payment.Settle(totals.Total, payment.Input{
		Method: l.ord.PaymentMethod,
		Cash:   in,
		Split:  split,
	})
	if err != nil {
		return nil, err
	}

	l.ord.Settlement = settlement
	l.ord.Paid = true
	// The ID stays empty here; persistence assigns it on first save.
	if l.ord.CreatedAt.IsZero() {
		l.ord.CreatedAt = l.now()
	}

	return l.ord.Clone(), nil
}

// ReopenPayment reverts a settlement so the order can be edited again. This
// is the only path from settled back to mutable; neighborhood, items and
// payment stay locked until it is called.
func (l *Ledger) ReopenPayment() {
	l.ord.Paid = false
	l.ord.Settlement = nil
}
