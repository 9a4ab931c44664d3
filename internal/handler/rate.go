package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dborba/comanda-tracker/internal/domain/rate"
)

type rateJSON struct {
	Neighborhood string          `json:"neighborhood"`
	Fee          decimal.Decimal `json:"fee"`
}

// ListRates returns the whole neighborhood fee table.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	entries, err := h.rates.ListEntries(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]rateJSON, len(entries))
	for i, e := range entries {
		out[i] = rateJSON{Neighborhood: e.Neighborhood, Fee: e.Fee}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rates": out})
}

// PutRate creates or replaces the delivery fee for one neighborhood. Fees
// already frozen on existing orders are not touched.
func (h *Handler) PutRate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "neighborhood name required", nil)
		return
	}

	var req struct {
		Fee decimal.Decimal `json:"fee"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Fee.IsNegative() {
		writeError(w, http.StatusUnprocessableEntity, "fee must not be negative", map[string]any{
			"fee": req.Fee,
		})
		return
	}

	e := rate.Entry{Neighborhood: name, Fee: req.Fee}
	if err := h.rates.UpsertEntry(r.Context(), e); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rateJSON{Neighborhood: e.Neighborhood, Fee: e.Fee})
}
