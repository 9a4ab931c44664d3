package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dborba/comanda-tracker/internal/domain/delivery"
	"github.com/dborba/comanda-tracker/internal/domain/order"
	"github.com/dborba/comanda-tracker/internal/domain/payment"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 30, 0, 0, time.Local)
}

func paidOrder(id string, method payment.Method, total string, neighborhood string, at time.Time, items ...order.LineItem) order.Order {
	return order.Order{
		ID:            id,
		Items:         items,
		Neighborhood:  neighborhood,
		Total:         dec(total),
		PaymentMethod: method,
		Paid:          true,
		CreatedAt:     at,
	}
}

func item(name, category, price string, qty int) order.LineItem {
	return order.LineItem{ProductName: name, Category: category, UnitPrice: dec(price), Quantity: qty}
}

func window(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

func TestAggregate_TotalsScenario(t *testing.T) {
	// Order A paid pix R$50 Centro, order B unpaid card R$30 Centro,
	// order C paid cash R$20 Sul.
	w := window(day(2026, time.August, 1, 0), day(2026, time.August, 31, 0))

	orders := []order.Order{
		paidOrder("a", payment.MethodInstant, "50.00", "Centro", day(2026, time.August, 10, 19)),
		{
			ID:            "b",
			Neighborhood:  "Centro",
			Total:         dec("30.00"),
			PaymentMethod: payment.MethodCard,
			Paid:          false,
			CreatedAt:     day(2026, time.August, 11, 20),
		},
		paidOrder("c", payment.MethodCash, "20.00", "Sul", day(2026, time.August, 12, 21)),
	}

	r := Aggregate(orders, nil, w)

	assert.True(t, r.Totals.TotalRevenue.Equal(dec("70.00")))
	assert.Equal(t, 2, r.Totals.TotalOrders)
	assert.Equal(t, 2, r.Totals.ConfirmedCount)
	assert.Equal(t, 1, r.Totals.UnconfirmedCount)
	assert.True(t, r.Totals.AverageOrderValue.Equal(dec("35.00")), "got %s", r.Totals.AverageOrderValue)
	assert.True(t, r.Totals.ConfirmationRate.Equal(dec("66.67")), "got %s", r.Totals.ConfirmationRate)

	// Only the paid Centro order counts.
	require.Len(t, r.Neighborhoods, 2)
	centro := r.Neighborhoods[0]
	assert.Equal(t, "Centro", centro.Name)
	assert.Equal(t, 1, centro.DeliveryCount)
	assert.True(t, centro.Revenue.Equal(dec("50.00")))
}

func TestAggregate_EmptyWindow(t *testing.T) {
	w := window(day(2026, time.August, 1, 0), day(2026, time.August, 31, 0))

	r := Aggregate(nil, nil, w)

	assert.True(t, r.Totals.ConfirmationRate.IsZero(), "rate must be exactly 0, not NaN")
	assert.True(t, r.Totals.AverageOrderValue.IsZero())
	assert.Empty(t, r.DailySales)
	assert.Empty(t, r.PaymentMethods)
	assert.Len(t, r.Hours, 24)
}

func TestAggregate_DailySalesSumMatchesConfirmedRevenue(t *testing.T) {
	w := window(day(2026, time.July, 1, 0), day(2026, time.July, 31, 0))

	var orders []order.Order
	want := decimal.Zero
	for i := 0; i < 20; i++ {
		total := fmt.Sprintf("%d.50", 10+i)
		o := paidOrder(fmt.Sprintf("o%d", i), payment.MethodCard, total, "Centro",
			day(2026, time.July, 1+i%10, 11+i%12))
		orders = append(orders, o)
		want = want.Add(dec(total))
	}
	// Unpaid and out-of-window orders must not move the series.
	orders = append(orders,
		order.Order{ID: "unpaid", Total: dec("99.00"), PaymentMethod: payment.MethodCash, CreatedAt: day(2026, time.July, 5, 12)},
		paidOrder("late", payment.MethodCash, "99.00", "Sul", day(2026, time.August, 2, 12)),
	)

	r := Aggregate(orders, nil, w)

	got := decimal.Zero
	for _, b := range r.DailySales {
		got = got.Add(b.Revenue)
	}
	assert.True(t, got.Equal(want), "bucket sum %s, confirmed revenue %s", got, want)
	assert.True(t, r.Totals.TotalRevenue.Equal(want))

	for i := 1; i < len(r.DailySales); i++ {
		assert.True(t, r.DailySales[i-1].Date.Before(r.DailySales[i].Date), "series must ascend")
	}
}

func TestAggregate_PaymentSharesSumToHundred(t *testing.T) {
	w := window(day(2026, time.August, 1, 0), day(2026, time.August, 31, 0))

	orders := []order.Order{
		paidOrder("a", payment.MethodInstant, "50.00", "Centro", day(2026, time.August, 1, 19)),
		paidOrder("b", payment.MethodCash, "30.00", "Centro", day(2026, time.August, 2, 19)),
		paidOrder("c", payment.MethodCard, "20.00", "Sul", day(2026, time.August, 3, 19)),
	}

	r := Aggregate(orders, nil, w)
	require.Len(t, r.PaymentMethods, 3)

	sum := decimal.Zero
	for _, m := range r.PaymentMethods {
		sum = sum.Add(m.SharePercent)
	}
	diff := sum.Sub(dec("100")).Abs()
	assert.True(t, diff.LessThanOrEqual(dec("0.02")), "shares sum to %s", sum)

	// Canonical order: pix, cash, card.
	assert.Equal(t, payment.MethodInstant, r.PaymentMethods[0].Method)
	assert.Equal(t, payment.MethodCash, r.PaymentMethods[1].Method)
	assert.Equal(t, payment.MethodCard, r.PaymentMethods[2].Method)
	assert.True(t, r.PaymentMethods[0].SharePercent.Equal(dec("50")))
}

func TestAggregate_HourlyStats(t *testing.T) {
	w := window(day(2026, time.August, 1, 0), day(2026, time.August, 31, 0))

	orders := []order.Order{
		paidOrder("a", payment.MethodCard, "10.00", "Centro", day(2026, time.August, 1, 19)),
		paidOrder("b", payment.MethodCard, "15.00", "Centro", day(2026, time.August, 2, 19)),
		paidOrder("c", payment.MethodCard, "20.00", "Centro", day(2026, time.August, 2, 11)),
	}

	r := Aggregate(orders, nil, w)
	require.Len(t, r.Hours, 24)

	assert.Equal(t, 2, r.Hours[19].OrderCount)
	assert.True(t, r.Hours[19].Revenue.Equal(dec("25.00")))
	assert.Equal(t, 1, r.Hours[11].OrderCount)
	assert.Equal(t, 0, r.Hours[3].OrderCount)
}

func TestAggregate_ProductRankings(t *testing.T) {
	w := window(day(2026, time.August, 1, 0), day(2026, time.August, 31, 0))

	orders := []order.Order{
		paidOrder("a", payment.MethodCard, "100.00", "Centro", day(2026, time.August, 1, 19),
			item("Marmita Grande", "marmitas", "25.00", 3),
			item("Refrigerante", "bebidas", "6.00", 2),
		),
		paidOrder("b", payment.MethodCash, "50.00", "Centro", day(2026, time.August, 2, 19),
			item("Marmita Grande", "marmitas", "25.00", 1),
			item("Pudim", "sobremesas", "9.00", 2), // ties Refrigerante at 2 units
		),
	}

	r := Aggregate(orders, nil, w)

	top := r.TopProducts(10)
	require.Len(t, top, 3)
	assert.Equal(t, "Marmita Grande", top[0].Name)
	assert.Equal(t, 4, top[0].UnitsSold)
	assert.True(t, top[0].Revenue.Equal(dec("100.00")))
	// Tie at 2 units: Refrigerante was seen first and must stay ahead.
	assert.Equal(t, "Refrigerante", top[1].Name)
	assert.Equal(t, "Pudim", top[2].Name)

	bottom := r.BottomProducts(2)
	require.Len(t, bottom, 2)
	assert.Equal(t, "Refrigerante", bottom[0].Name)
	assert.Equal(t, "Pudim", bottom[1].Name)
}

func TestAggregate_MalformedOrdersSkippedNotFatal(t *testing.T) {
	w := window(day(2026, time.August, 1, 0), day(2026, time.August, 31, 0))

	orders := []order.Order{
		paidOrder("good", payment.MethodCard, "10.00", "Centro", day(2026, time.August, 1, 12)),
		{ID: "no-date", Total: dec("10.00"), Paid: true, PaymentMethod: payment.MethodCard, CreatedAt: day(2026, time.August, 2, 12)},
		{ID: "negative", Total: dec("-5.00"), Paid: true, PaymentMethod: payment.MethodCard, CreatedAt: day(2026, time.August, 3, 12)},
		paidOrder("bad-qty", payment.MethodCard, "10.00", "Centro", day(2026, time.August, 4, 12),
			item("Marmita", "marmitas", "10.00", 0)),
	}
	// Zero the timestamp after construction so only the window check could
	// hide it.
	orders[1].CreatedAt = time.Time{}

	r := Aggregate(orders, nil, w)

	assert.Equal(t, 2, r.SkippedOrders) // negative total + zero quantity
	assert.Equal(t, 1, r.Totals.TotalOrders)
	assert.True(t, r.Totals.TotalRevenue.Equal(dec("10.00")))
}

func TestAggregate_DeliveryPassIsIndependent(t *testing.T) {
	w := window(day(2026, time.August, 1, 0), day(2026, time.August, 31, 0))

	orders := []order.Order{
		paidOrder("a", payment.MethodCard, "50.00", "Centro", day(2026, time.August, 1, 19)),
	}
	deliveries := []delivery.Delivery{
		{ID: "d1", MotoboyID: "m1", Neighborhood: "Centro", Fee: dec("5.00"), DeliveredAt: day(2026, time.August, 1, 19)},
		{ID: "d2", MotoboyID: "m1", Neighborhood: "Sul", Fee: dec("8.50"), DeliveredAt: day(2026, time.August, 2, 20)},
		{ID: "d3", MotoboyID: "m2", Neighborhood: "Centro", Fee: dec("5.00"), DeliveredAt: day(2026, time.August, 3, 21)},
		{ID: "bad", MotoboyID: "", Neighborhood: "Centro", Fee: dec("5.00"), DeliveredAt: day(2026, time.August, 3, 22)},
		{ID: "out", MotoboyID: "m2", Neighborhood: "Sul", Fee: dec("8.50"), DeliveredAt: day(2026, time.September, 1, 12)},
	}

	r := Aggregate(orders, deliveries, w)

	assert.Equal(t, 3, r.Totals.TotalDeliveries)
	assert.Equal(t, 1, r.SkippedDeliveries)

	require.Len(t, r.Couriers, 2)
	assert.Equal(t, "m1", r.Couriers[0].MotoboyID)
	assert.Equal(t, 2, r.Couriers[0].DeliveryCount)
	assert.True(t, r.Couriers[0].FeeRevenue.Equal(dec("13.50")))

	// Zone fee revenue is delivery-fee money, not order revenue: Centro
	// collected 10.00 in fees even though its order revenue is 50.00.
	require.Len(t, r.ZoneFees, 2)
	assert.Equal(t, "Centro", r.ZoneFees[0].Neighborhood)
	assert.True(t, r.ZoneFees[0].FeeRevenue.Equal(dec("10.00")))

	centro := r.Neighborhoods[0]
	assert.True(t, centro.Revenue.Equal(dec("50.00")), "order revenue must stay order revenue")
}

func TestAggregate_WindowIsInclusiveOfWholeDays(t *testing.T) {
	w := window(
		time.Date(2026, time.August, 10, 15, 45, 0, 0, time.Local), // mid-day start
		time.Date(2026, time.August, 12, 8, 0, 0, 0, time.Local),   // mid-day end
	)

	orders := []order.Order{
		paidOrder("start-morning", payment.MethodCard, "10.00", "Centro", day(2026, time.August, 10, 8)),
		paidOrder("end-night", payment.MethodCard, "10.00", "Centro",
			time.Date(2026, time.August, 12, 23, 59, 0, 0, time.Local)),
		paidOrder("before", payment.MethodCard, "10.00", "Centro", day(2026, time.August, 9, 23)),
		paidOrder("after", payment.MethodCard, "10.00", "Centro", day(2026, time.August, 13, 0)),
	}

	r := Aggregate(orders, nil, w)

	assert.Equal(t, 2, r.Totals.TotalOrders)
}

func TestAggregate_Referential(t *testing.T) {
	w := window(day(2026, time.August, 1, 0), day(2026, time.August, 31, 0))
	orders := []order.Order{
		paidOrder("a", payment.MethodInstant, "50.00", "Centro", day(2026, time.August, 10, 19),
			item("Marmita Grande", "marmitas", "25.00", 2)),
	}

	first := Aggregate(orders, nil, w)
	second := Aggregate(orders, nil, w)

	assert.Equal(t, first.Totals.TotalOrders, second.Totals.TotalOrders)
	assert.True(t, first.Totals.TotalRevenue.Equal(second.Totals.TotalRevenue))
	assert.Equal(t, len(first.Products), len(second.Products))
}

func TestReport_LastDailySales(t *testing.T) {
	r := &Report{}
	for i := 1; i <= 40; i++ {
		r.DailySales = append(r.DailySales, SalesBucket{
			PeriodLabel: fmt.Sprintf("2026-07-%02d", i%31+1),
			OrderCount:  i,
		})
	}

	last := r.LastDailySales(30)
	require.Len(t, last, 30)
	assert.Equal(t, 11, last[0].OrderCount)

	assert.Len(t, r.LastDailySales(0), 40)
	assert.Len(t, r.LastDailySales(100), 40)
}
