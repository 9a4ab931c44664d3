// Package handler implements the HTTP API: order capture and settlement,
// the neighborhood rate table and the analytics dashboard. Handlers convert
// between wire DTOs and domain types; business rules live in the domain
// packages.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/dborba/comanda-tracker/internal/domain/delivery"
	"github.com/dborba/comanda-tracker/internal/domain/order"
	"github.com/dborba/comanda-tracker/internal/domain/payment"
	"github.com/dborba/comanda-tracker/internal/domain/rate"
)

// Handler serves the comanda API, delegating to the domain packages and the
// repositories.
type Handler struct {
	orders     order.Repository
	rates      rate.Repository
	deliveries delivery.Source

	ordersCreated  metric.Int64Counter
	ordersReopened metric.Int64Counter
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(orders order.Repository, rates rate.Repository, deliveries delivery.Source) *Handler {
	meter := otel.Meter("github.com/dborba/comanda-tracker/internal/handler")
	ordersCreated, _ := meter.Int64Counter("comanda.orders.created",
		metric.WithDescription("Orders captured and settled through the API."))
	ordersReopened, _ := meter.Int64Counter("comanda.orders.reopened",
		metric.WithDescription("Settled orders reopened for correction."))

	return &Handler{
		orders:         orders,
		rates:          rates,
		deliveries:     deliveries,
		ordersCreated:  ordersCreated,
		ordersReopened: ordersReopened,
	}
}

// Register mounts all API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("PATCH /api/orders/{id}", h.UpdateOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.DeleteOrder)
	mux.HandleFunc("GET /api/rates", h.ListRates)
	mux.HandleFunc("PUT /api/rates/{name}", h.PutRate)
	mux.HandleFunc("GET /api/dashboard", h.Dashboard)
}

// errorResponse is the wire shape for every 4xx/5xx body. Detail carries
// machine-readable expected/actual values where the domain error has them.
type errorResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, detail map[string]any) {
	writeJSON(w, status, errorResponse{Code: status, Message: message, Detail: detail})
}

// writeDomainError maps domain errors onto structured HTTP responses.
// Anything unrecognized becomes a logged 500 with no internals leaked.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.ValidationError
		quantityErr   *order.InvalidQuantityError
		unknownErr    *rate.UnknownNeighborhoodError
		tenderErr     *payment.InsufficientTenderError
		splitErr      *payment.SplitMismatchError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error(), map[string]any{
			"missing": validationErr.Missing,
		})
	case errors.As(err, &quantityErr):
		writeError(w, http.StatusUnprocessableEntity, quantityErr.Error(), map[string]any{
			"quantity": quantityErr.Quantity,
		})
	case errors.As(err, &unknownErr):
		writeError(w, http.StatusUnprocessableEntity, unknownErr.Error(), map[string]any{
			"neighborhood": unknownErr.Neighborhood,
		})
	case errors.As(err, &tenderErr):
		writeError(w, http.StatusUnprocessableEntity, tenderErr.Error(), map[string]any{
			"due":      tenderErr.Due,
			"tendered": tenderErr.Tendered,
		})
	case errors.As(err, &splitErr):
		writeError(w, http.StatusUnprocessableEntity, splitErr.Error(), map[string]any{
			"expected": splitErr.Expected,
			"actual":   splitErr.Actual,
		})
	case errors.Is(err, payment.ErrNoMethod),
		errors.Is(err, payment.ErrChangeUndecided),
		errors.Is(err, payment.ErrNegativeAmount),
		errors.Is(err, order.ErrItemIndex):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, order.ErrOrderSettled):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error(), nil)
		return false
	}
	return true
}
