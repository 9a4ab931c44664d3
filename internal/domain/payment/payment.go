package payment

import (
	"github.com/shopspring/decimal"
)

// Method enumerates the payment instruments accepted by the store.
type Method string

const (
	// MethodUnset means the customer has not chosen a method yet.
	MethodUnset Method = ""
	// MethodInstant is an instant bank transfer (pix).
	MethodInstant Method = "instant_transfer"
	// MethodCash is physical cash, possibly requiring change (troco).
	MethodCash Method = "cash"
	// MethodCard is a credit or debit card.
	MethodCard Method = "card"
	// MethodMixed splits the total across card, cash and instant transfer.
	MethodMixed Method = "mixed"
)

// Valid reports whether m is a settleable payment method.
func (m Method) Valid() bool {
	switch m {
	case MethodInstant, MethodCash, MethodCard, MethodMixed:
		return true
	default:
		return false
	}
}

// Settlement is the validated breakdown of how an order's total was paid.
// Only Settle produces one; nothing else hand-constructs it.
type Settlement struct {
	Method         Method           `json:"method"`
	AmountTendered *decimal.Decimal `json:"amount_tendered,omitempty"`
	ChangeDue      decimal.Decimal  `json:"change_due"`
	CardAmount     decimal.Decimal  `json:"card_amount"`
	CashAmount     decimal.Decimal  `json:"cash_amount"`
	InstantAmount  decimal.Decimal  `json:"instant_amount"`
}
