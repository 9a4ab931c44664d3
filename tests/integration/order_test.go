//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func marmitaOrder(neighborhood string, pay paymentInput) orderRequest {
	return orderRequest{
		Items: []lineItem{
			{ProductName: "Marmita Grande", Category: "marmitas", UnitPrice: "25.00", Quantity: 2},
		},
		DeliveryAddress: "Rua das Acácias 123",
		Neighborhood:    neighborhood,
		Payment:         pay,
	}
}

func TestCreateOrder_Card(t *testing.T) {
	resp := doPost(t, "/api/orders", marmitaOrder("Centro", paymentInput{Method: "card"}))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(o.ID) {
		t.Fatalf("expected UUID order id, got %q", o.ID)
	}
	if !o.Paid {
		t.Fatal("expected order to be paid")
	}
	if o.Total != "55" && o.Total != "55.00" {
		t.Fatalf("expected total 55.00 (50 items + 5 fee), got %q", o.Total)
	}
	if o.Settlement == nil || o.Settlement.Method != "card" {
		t.Fatalf("expected card settlement, got %+v", o.Settlement)
	}
}

func TestCreateOrder_CashWithChange(t *testing.T) {
	needed := true
	pay := paymentInput{
		Method: "cash",
		Cash:   changeInput{Needed: &needed, Tendered: "100.00"},
	}
	resp := doPost(t, "/api/orders", marmitaOrder("Centro", pay))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if o.Settlement == nil {
		t.Fatal("expected settlement")
	}
	if o.Settlement.ChangeDue != "45" && o.Settlement.ChangeDue != "45.00" {
		t.Fatalf("expected change 45.00, got %q", o.Settlement.ChangeDue)
	}
}

func TestCreateOrder_CashPendingDecision(t *testing.T) {
	resp := doPost(t, "/api/orders", marmitaOrder("Centro", paymentInput{Method: "cash"}))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_SplitMismatch(t *testing.T) {
	pay := paymentInput{
		Method: "mixed",
		Split:  &splitInput{Card: "20.00", Instant: "20.00"},
	}
	resp := doPost(t, "/api/orders", marmitaOrder("Centro", pay))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if _, ok := body.Detail["expected"]; !ok {
		t.Fatalf("expected mismatch detail, got %+v", body.Detail)
	}
}

func TestCreateOrder_UnknownNeighborhood(t *testing.T) {
	resp := doPost(t, "/api/orders", marmitaOrder("Atlântida", paymentInput{Method: "card"}))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_MissingFields(t *testing.T) {
	resp := doPost(t, "/api/orders", orderRequest{Payment: paymentInput{Method: "card"}})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateOrder_ReopenAndEdit(t *testing.T) {
	resp := doPost(t, "/api/orders", marmitaOrder("Centro", paymentInput{Method: "card"}))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	// A settled order rejects edits outright.
	resp = doPatch(t, "/api/orders/"+created.ID, map[string]any{"neighborhood": "Sul"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Reopening the payment unlocks the edit and recomputes totals.
	paid := false
	resp = doPatch(t, "/api/orders/"+created.ID, map[string]any{
		"paid":         &paid,
		"neighborhood": "Sul",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if o.Paid {
		t.Fatal("expected order to be reopened")
	}
	if o.Settlement != nil {
		t.Fatal("expected settlement to be discarded on reopen")
	}
	if o.Total != "58.5" && o.Total != "58.50" {
		t.Fatalf("expected total 58.50 after fee change, got %q", o.Total)
	}
}

func TestDeleteOrder(t *testing.T) {
	resp := doPost(t, "/api/orders", marmitaOrder("Centro", paymentInput{Method: "card"}))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	resp = doDelete(t, "/api/orders/"+created.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = doDelete(t, "/api/orders/"+created.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestListOrders(t *testing.T) {
	resp := doPost(t, "/api/orders", marmitaOrder("Centro", paymentInput{Method: "card"}))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doGet(t, "/api/orders?limit=5")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[orderListResponse](t, resp)
	if len(list.Orders) == 0 {
		t.Fatal("expected at least one order")
	}
}
