package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dborba/comanda-tracker/internal/domain/order"
	"github.com/dborba/comanda-tracker/internal/domain/payment"
	"github.com/dborba/comanda-tracker/internal/domain/rate"
)

// changePayload is the wire form of the troco sub-flow: Needed nil means the
// attendant has not answered yet, which blocks settlement for cash.
type changePayload struct {
	Needed   *bool           `json:"needed"`
	Tendered decimal.Decimal `json:"amount_tendered"`
}

func (p changePayload) toInput() payment.CashInput {
	in := payment.CashInput{Decision: payment.ChangeUndecided, Tendered: p.Tendered}
	if p.Needed != nil {
		if *p.Needed {
			in.Decision = payment.ChangeNeeded
		} else {
			in.Decision = payment.ChangeNotNeeded
		}
	}
	return in
}

type splitPayload struct {
	Card    decimal.Decimal `json:"card"`
	Cash    decimal.Decimal `json:"cash"`
	Instant decimal.Decimal `json:"instant"`
	Change  changePayload   `json:"change"`
}

type paymentPayload struct {
	Method string        `json:"method"`
	Cash   changePayload `json:"cash"`
	Split  *splitPayload `json:"split"`
}

type createOrderRequest struct {
	Items           []order.LineItem `json:"items"`
	DeliveryAddress string           `json:"delivery_address"`
	Neighborhood    string           `json:"neighborhood"`
	Payment         paymentPayload   `json:"payment"`
}

type updateOrderRequest struct {
	Items           []order.LineItem `json:"items"`
	DeliveryAddress *string          `json:"delivery_address"`
	Neighborhood    *string          `json:"neighborhood"`
	PaymentMethod   *string          `json:"payment_method"`
	Paid            *bool            `json:"paid"`
}

// orderJSON is the wire form of a persisted comanda.
type orderJSON struct {
	ID              string              `json:"id"`
	Items           []order.LineItem    `json:"items"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	Neighborhood    string              `json:"neighborhood,omitempty"`
	DeliveryFee     decimal.Decimal     `json:"delivery_fee"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Total           decimal.Decimal     `json:"total"`
	PaymentMethod   payment.Method      `json:"payment_method"`
	Paid            bool                `json:"paid"`
	Settlement      *payment.Settlement `json:"settlement,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func toOrderJSON(o *order.Order) orderJSON {
	return orderJSON{
		ID:              o.ID,
		Items:           o.Items,
		DeliveryAddress: o.DeliveryAddress,
		Neighborhood:    o.Neighborhood,
		DeliveryFee:     o.DeliveryFee,
		Subtotal:        o.Subtotal,
		Total:           o.Total,
		PaymentMethod:   o.PaymentMethod,
		Paid:            o.Paid,
		Settlement:      o.Settlement,
		CreatedAt:       o.CreatedAt,
	}
}

// CreateOrder builds a comanda through the ledger and settles it in one
// request: items, address and neighborhood first, then the payment flow.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	method := payment.Method(req.Payment.Method)
	if req.Payment.Method != "" && !method.Valid() {
		writeError(w, http.StatusUnprocessableEntity,
			"unknown payment method "+req.Payment.Method, nil)
		return
	}

	snap, err := h.rateSnapshot(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	led := order.NewLedger(snap)
	for i, it := range req.Items {
		if _, err := led.AddItem(it.ProductName, it.Category, it.UnitPrice); err != nil {
			writeDomainError(w, r, err)
			return
		}
		if it.Quantity != 1 {
			if _, err := led.SetQuantity(i, it.Quantity); err != nil {
				writeDomainError(w, r, err)
				return
			}
		}
	}
	if err := led.SetDeliveryAddress(req.DeliveryAddress); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if req.Neighborhood != "" {
		if _, err := led.SelectNeighborhood(req.Neighborhood); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if err := led.SelectPaymentMethod(method); err != nil {
		writeDomainError(w, r, err)
		return
	}

	var split payment.SplitInput
	if req.Payment.Split != nil {
		split = payment.SplitInput{
			Card:    req.Payment.Split.Card,
			Cash:    req.Payment.Split.Cash,
			Instant: req.Payment.Split.Instant,
			Change:  req.Payment.Split.Change.toInput(),
		}
	}

	o, err := led.Settle(req.Payment.Cash.toInput(), split)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := h.orders.Save(r.Context(), o); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.ordersCreated.Add(r.Context(), 1,
		metric.WithAttributes(attribute.String("payment.method", string(o.PaymentMethod))))
	writeJSON(w, http.StatusCreated, toOrderJSON(o))
}

// ListOrders serves both list forms: ?limit= for the recent view and
// ?start=&end= (YYYY-MM-DD, whole days inclusive) for ranged queries.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		orders []order.Order
		err    error
	)
	switch {
	case q.Get("start") != "" || q.Get("end") != "":
		start, perr := time.ParseInLocation("2006-01-02", q.Get("start"), time.Local)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid start date", nil)
			return
		}
		end, perr := time.ParseInLocation("2006-01-02", q.Get("end"), time.Local)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid end date", nil)
			return
		}
		orders, err = h.orders.LoadByDateRange(r.Context(), start, end.AddDate(0, 0, 1))
	default:
		limit := 50
		if v := q.Get("limit"); v != "" {
			n, perr := parsePositiveInt(v)
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid limit", nil)
				return
			}
			limit = n
		}
		orders, err = h.orders.LoadRecent(r.Context(), limit)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]orderJSON, len(orders))
	for i := range orders {
		out[i] = toOrderJSON(&orders[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

// UpdateOrder applies a partial edit through the ledger so derived totals
// stay consistent. A settled order only accepts paid=false, which reopens
// the payment flow and discards the settlement.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Paid != nil && *req.Paid {
		writeError(w, http.StatusUnprocessableEntity,
			"orders become paid only through settlement", nil)
		return
	}

	existing, err := h.orders.Load(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	snap, err := h.rateSnapshot(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	led := order.Resume(snap, existing)
	if req.Paid != nil && !*req.Paid {
		if existing.Paid {
			h.ordersReopened.Add(r.Context(), 1)
		}
		led.ReopenPayment()
	}
	if req.Items != nil {
		if _, err := led.ReplaceItems(req.Items); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if req.DeliveryAddress != nil {
		if err := led.SetDeliveryAddress(*req.DeliveryAddress); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if req.Neighborhood != nil {
		if _, err := led.SelectNeighborhood(*req.Neighborhood); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}
	if req.PaymentMethod != nil {
		method := payment.Method(*req.PaymentMethod)
		if !method.Valid() {
			writeError(w, http.StatusUnprocessableEntity,
				"unknown payment method "+*req.PaymentMethod, nil)
			return
		}
		if err := led.SelectPaymentMethod(method); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	edited := led.Snapshot()
	u := order.Update{
		Items:           edited.Items,
		DeliveryAddress: &edited.DeliveryAddress,
		Neighborhood:    &edited.Neighborhood,
		DeliveryFee:     &edited.DeliveryFee,
		Subtotal:        &edited.Subtotal,
		Total:           &edited.Total,
		PaymentMethod:   &edited.PaymentMethod,
		Paid:            &edited.Paid,
		Settlement:      edited.Settlement,
	}

	found, err := h.orders.Update(r.Context(), id, u)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, toOrderJSON(edited))
}

// DeleteOrder removes a comanda.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	found, err := h.orders.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error(), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rateSnapshot(ctx context.Context) (*rate.Snapshot, error) {
	entries, err := h.rates.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	return rate.NewSnapshot(entries), nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}
