//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestDashboard(t *testing.T) {
	// Two settled orders today; the window must pick both up.
	for i := 0; i < 2; i++ {
		resp := doPost(t, "/api/orders", marmitaOrder("Centro", paymentInput{Method: "card"}))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create: expected 201, got %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	day := time.Now().Format("2006-01-02")
	resp := doGet(t, fmt.Sprintf("/api/dashboard?start=%s&end=%s", day, day))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	d := decodeJSON[dashboardResponse](t, resp)
	if d.Totals.TotalOrders < 2 {
		t.Fatalf("expected at least 2 confirmed orders, got %d", d.Totals.TotalOrders)
	}
	if len(d.DailySales) == 0 {
		t.Fatal("expected a daily sales bucket")
	}
	if len(d.TopProducts) == 0 || d.TopProducts[0].UnitsSold == 0 {
		t.Fatalf("expected product rankings, got %+v", d.TopProducts)
	}
}

func TestDashboard_BadDates(t *testing.T) {
	resp := doGet(t, "/api/dashboard?start=yesterday")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
