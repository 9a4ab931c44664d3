// Package rate defines the delivery fee table for neighborhoods (bairros).
// Each neighborhood served by the store carries a fixed delivery fee; the
// order ledger reads the table, a separate management surface owns writes.
package rate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Entry is one neighborhood and its delivery fee.
type Entry struct {
	Neighborhood string
	Fee          decimal.Decimal
}

// UnknownNeighborhoodError indicates a fee lookup for a neighborhood the
// store does not deliver to.
type UnknownNeighborhoodError struct {
	Neighborhood string
}

func (e *UnknownNeighborhoodError) Error() string {
	return fmt.Sprintf("unknown neighborhood %q", e.Neighborhood)
}

// Table resolves a neighborhood name to its delivery fee. Implementations
// must be side-effect free; the ledger calls Fee synchronously while
// recomputing totals.
type Table interface {
	Fee(neighborhood string) (decimal.Decimal, error)
}

// Repository provides persistent access to the fee table.
type Repository interface {
	ListEntries(ctx context.Context) ([]Entry, error)
	UpsertEntry(ctx context.Context, e Entry) error
}

// Snapshot is an immutable in-memory Table built from a list of entries.
// Handlers load one per request so ledger computation never touches storage.
type Snapshot struct {
	fees map[string]decimal.Decimal
}

var _ Table = (*Snapshot)(nil)

// NewSnapshot builds a Snapshot from entries. Later duplicates win.
func NewSnapshot(entries []Entry) *Snapshot {
	fees := make(map[string]decimal.Decimal, len(entries))
	for _, e := range entries {
		fees[e.Neighborhood] = e.Fee
	}
	return &Snapshot{fees: fees}
}

// Fee returns the delivery fee for the neighborhood, or an
// UnknownNeighborhoodError when the store does not deliver there.
func (s *Snapshot) Fee(neighborhood string) (decimal.Decimal, error) {
	fee, ok := s.fees[neighborhood]
	if !ok {
		return decimal.Zero, &UnknownNeighborhoodError{Neighborhood: neighborhood}
	}
	return fee, nil
}
