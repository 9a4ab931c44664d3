// Package payment defines the payment instruments and reconciles a chosen
// method against an order total.
//
// Settle is a pure function: it never mutates the order and calling it twice
// with identical inputs yields identical settlements. The ledger applies the
// result; nothing here performs I/O.
package payment

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/dborba/comanda-tracker/internal/money"
)

// ChangeDecision answers "does the customer need change?" for a cash payment.
// The zero value means the question has not been asked yet.
type ChangeDecision int

const (
	// ChangeUndecided: the change question is still open. Settling in this
	// state is pending, not an error in the data — see ErrChangeUndecided.
	ChangeUndecided ChangeDecision = iota
	// ChangeNotNeeded: the customer pays the exact total.
	ChangeNotNeeded
	// ChangeNeeded: the customer tenders more than the amount due.
	ChangeNeeded
)

var (
	// ErrNoMethod is returned when the payment method is unset or unknown.
	ErrNoMethod = errors.New("payment method required")
	// ErrChangeUndecided marks the legitimate pending state where the cash
	// change question has not been answered yet. Callers should ask the
	// customer and retry rather than surface a failure.
	ErrChangeUndecided = errors.New("change decision pending")
	// ErrNegativeAmount is returned when any supplied amount is negative.
	ErrNegativeAmount = errors.New("amounts must not be negative")
)

// InsufficientTenderError indicates cash tendered that does not exceed the
// amount due while change was explicitly requested. Exact payment with
// "needs change" selected is contradictory data entry, so equality is
// rejected too.
type InsufficientTenderError struct {
	Due      decimal.Decimal
	Tendered decimal.Decimal
}

func (e *InsufficientTenderError) Error() string {
	return fmt.Sprintf("tendered %s does not exceed amount due %s", e.Tendered, e.Due)
}

// SplitMismatchError indicates mixed-payment components that do not sum to
// the order total within tolerance. It carries both sides so the caller can
// show exactly how far off the entry is.
type SplitMismatchError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("split amounts sum to %s, expected %s", e.Actual, e.Expected)
}

// CashInput carries the inputs of the cash change sub-flow. For mixed
// payments it applies to the cash component only.
type CashInput struct {
	Decision ChangeDecision
	// Tendered is the amount the customer hands over. Only consulted when
	// Decision is ChangeNeeded.
	Tendered decimal.Decimal
}

// SplitInput carries the three components of a mixed payment.
type SplitInput struct {
	Card    decimal.Decimal
	Cash    decimal.Decimal
	Instant decimal.Decimal
	// Change drives the troco sub-flow for the cash component when Cash > 0.
	Change CashInput
}

// Input bundles the method choice with its method-specific data.
type Input struct {
	Method Method
	Cash   CashInput
	Split  SplitInput
}

// Settle validates the payment inputs against the total due and returns the
// settled breakdown, or a structured rejection.
func Settle(total decimal.Decimal, in Input) (*Settlement, error) {
	switch in.Method {
	case MethodInstant:
		return &Settlement{
			Method:        MethodInstant,
			ChangeDue:     money.Zero,
			CardAmount:    money.Zero,
			CashAmount:    money.Zero,
			InstantAmount: money.Round(total),
		}, nil

	case MethodCard:
		return &Settlement{
			Method:        MethodCard,
			ChangeDue:     money.Zero,
			CardAmount:    money.Round(total),
			CashAmount:    money.Zero,
			InstantAmount: money.Zero,
		}, nil

	case MethodCash:
		return settleCash(total, in.Cash)

	case MethodMixed:
		return settleMixed(total, in.Split)

	default:
		return nil, ErrNoMethod
	}
}

func settleCash(total decimal.Decimal, in CashInput) (*Settlement, error) {
	tendered, changeDue, err := resolveChange(total, in)
	if err != nil {
		return nil, err
	}

	return &Settlement{
		Method:         MethodCash,
		AmountTendered: &tendered,
		ChangeDue:      changeDue,
		CardAmount:     money.Zero,
		CashAmount:     money.Round(total),
		InstantAmount:  money.Zero,
	}, nil
}

func settleMixed(total decimal.Decimal, in SplitInput) (*Settlement, error) {
	if in.Card.IsNegative() || in.Cash.IsNegative() || in.Instant.IsNegative() {
		return nil, ErrNegativeAmount
	}

	sum := in.Card.Add(in.Cash).Add(in.Instant)
	if !money.ApproxEqual(sum, total) {
		return nil, &SplitMismatchError{Expected: money.Round(total), Actual: money.Round(sum)}
	}

	s := &Settlement{
		Method:        MethodMixed,
		ChangeDue:     money.Zero,
		CardAmount:    money.Round(in.Card),
		CashAmount:    money.Round(in.Cash),
		InstantAmount: money.Round(in.Instant),
	}

	// Change is computed against the cash component only, never the order
	// total. A card+pix split has no troco question to answer.
	if in.Cash.IsPositive() {
		tendered, changeDue, err := resolveChange(in.Cash, in.Change)
		if err != nil {
			return nil, err
		}
		s.AmountTendered = &tendered
		s.ChangeDue = changeDue
	}

	return s, nil
}

// resolveChange runs the tri-state troco flow against an amount due and
// returns the effective tender and change.
func resolveChange(due decimal.Decimal, in CashInput) (tendered, changeDue decimal.Decimal, err error) {
	switch in.Decision {
	case ChangeNotNeeded:
		return money.Round(due), money.Zero, nil

	case ChangeNeeded:
		if in.Tendered.IsNegative() {
			return money.Zero, money.Zero, ErrNegativeAmount
		}
		// Strict: tender equal to the amount due (within tolerance) while
		// change was requested is contradictory data entry.
		if !in.Tendered.GreaterThan(due) || money.ApproxEqual(in.Tendered, due) {
			return money.Zero, money.Zero, &InsufficientTenderError{
				Due:      money.Round(due),
				Tendered: money.Round(in.Tendered),
			}
		}
		return money.Round(in.Tendered), money.Round(in.Tendered.Sub(due)), nil

	default:
		return money.Zero, money.Zero, ErrChangeUndecided
	}
}
