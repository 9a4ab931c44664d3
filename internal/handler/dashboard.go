package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dborba/comanda-tracker/internal/domain/analytics"
	"github.com/dborba/comanda-tracker/internal/domain/payment"
)

const (
	defaultDashboardDays = 30
	defaultDashboardTop  = 10
)

type salesBucketJSON struct {
	Date       string          `json:"date"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type paymentStatJSON struct {
	Method       payment.Method  `json:"method"`
	OrderCount   int             `json:"order_count"`
	Revenue      decimal.Decimal `json:"revenue"`
	SharePercent decimal.Decimal `json:"share_percent"`
}

type neighborhoodStatJSON struct {
	Name           string          `json:"name"`
	DeliveryCount  int             `json:"delivery_count"`
	Revenue        decimal.Decimal `json:"revenue"`
	AverageRevenue decimal.Decimal `json:"average_revenue"`
}

type hourlyStatJSON struct {
	Hour       int             `json:"hour"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type productStatJSON struct {
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	UnitsSold int             `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type courierStatJSON struct {
	MotoboyID     string          `json:"motoboy_id"`
	DeliveryCount int             `json:"delivery_count"`
	FeeRevenue    decimal.Decimal `json:"fee_revenue"`
}

type zoneFeeJSON struct {
	Neighborhood  string          `json:"neighborhood"`
	DeliveryCount int             `json:"delivery_count"`
	FeeRevenue    decimal.Decimal `json:"fee_revenue"`
}

type totalsJSON struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalOrders       int             `json:"total_orders"`
	TotalDeliveries   int             `json:"total_deliveries"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	ConfirmedCount    int             `json:"confirmed_count"`
	UnconfirmedCount  int             `json:"unconfirmed_count"`
	ConfirmationRate  decimal.Decimal `json:"confirmation_rate"`
}

type dashboardJSON struct {
	Start             string                 `json:"start"`
	End               string                 `json:"end"`
	Totals            totalsJSON             `json:"totals"`
	DailySales        []salesBucketJSON      `json:"daily_sales"`
	PaymentMethods    []paymentStatJSON      `json:"payment_methods"`
	TopNeighborhoods  []neighborhoodStatJSON `json:"top_neighborhoods"`
	Hours             []hourlyStatJSON       `json:"hours"`
	TopProducts       []productStatJSON      `json:"top_products"`
	BottomProducts    []productStatJSON      `json:"bottom_products"`
	Couriers          []courierStatJSON      `json:"couriers"`
	ZoneFees          []zoneFeeJSON          `json:"zone_fees"`
	SkippedOrders     int                    `json:"skipped_orders,omitempty"`
	SkippedDeliveries int                    `json:"skipped_deliveries,omitempty"`
}

// Dashboard aggregates the analytics report for a date window. Defaults to
// the trailing 30 days; ?days= and ?top= control the display truncation the
// aggregator itself never applies.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	end := time.Now()
	if v := q.Get("end"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date", nil)
			return
		}
		end = t
	}
	// The default start trails the effective end, so ?end= alone still
	// yields the 30 days leading up to it.
	start := end.AddDate(0, 0, -(defaultDashboardDays - 1))
	if v := q.Get("start"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date", nil)
			return
		}
		start = t
	}

	days := defaultDashboardDays
	if v := q.Get("days"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid days", nil)
			return
		}
		days = n
	}
	top := defaultDashboardTop
	if v := q.Get("top"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid top", nil)
			return
		}
		top = n
	}

	// The storage range covers the window's whole days; the aggregator
	// applies the same bounds to anything extra the query returns.
	rangeStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	rangeEnd := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)

	orders, err := h.orders.LoadByDateRange(r.Context(), rangeStart, rangeEnd)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	deliveries, err := h.deliveries.LoadDeliveries(r.Context(), rangeStart, rangeEnd)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	report := analytics.Aggregate(orders, deliveries, analytics.Window{Start: start, End: end})
	writeJSON(w, http.StatusOK, buildDashboard(report, start, end, days, top))
}

func buildDashboard(report *analytics.Report, start, end time.Time, days, top int) dashboardJSON {
	out := dashboardJSON{
		Start: start.Format("2006-01-02"),
		End:   end.Format("2006-01-02"),
		Totals: totalsJSON{
			TotalRevenue:      report.Totals.TotalRevenue,
			TotalOrders:       report.Totals.TotalOrders,
			TotalDeliveries:   report.Totals.TotalDeliveries,
			AverageOrderValue: report.Totals.AverageOrderValue,
			ConfirmedCount:    report.Totals.ConfirmedCount,
			UnconfirmedCount:  report.Totals.UnconfirmedCount,
			ConfirmationRate:  report.Totals.ConfirmationRate,
		},
		SkippedOrders:     report.SkippedOrders,
		SkippedDeliveries: report.SkippedDeliveries,
	}

	for _, b := range report.LastDailySales(days) {
		out.DailySales = append(out.DailySales, salesBucketJSON{
			Date:       b.PeriodLabel,
			OrderCount: b.OrderCount,
			Revenue:    b.Revenue,
		})
	}
	for _, m := range report.PaymentMethods {
		out.PaymentMethods = append(out.PaymentMethods, paymentStatJSON{
			Method:       m.Method,
			OrderCount:   m.OrderCount,
			Revenue:      m.Revenue,
			SharePercent: m.SharePercent,
		})
	}
	for _, n := range report.TopNeighborhoods(top) {
		out.TopNeighborhoods = append(out.TopNeighborhoods, neighborhoodStatJSON{
			Name:           n.Name,
			DeliveryCount:  n.DeliveryCount,
			Revenue:        n.Revenue,
			AverageRevenue: n.AverageRevenue,
		})
	}
	for _, hh := range report.Hours {
		out.Hours = append(out.Hours, hourlyStatJSON{
			Hour:       hh.Hour,
			OrderCount: hh.OrderCount,
			Revenue:    hh.Revenue,
		})
	}
	for _, p := range report.TopProducts(top) {
		out.TopProducts = append(out.TopProducts, productStatJSON{
			Name: p.Name, Category: p.Category, UnitsSold: p.UnitsSold, Revenue: p.Revenue,
		})
	}
	for _, p := range report.BottomProducts(top) {
		out.BottomProducts = append(out.BottomProducts, productStatJSON{
			Name: p.Name, Category: p.Category, UnitsSold: p.UnitsSold, Revenue: p.Revenue,
		})
	}
	for _, c := range report.Couriers {
		out.Couriers = append(out.Couriers, courierStatJSON{
			MotoboyID: c.MotoboyID, DeliveryCount: c.DeliveryCount, FeeRevenue: c.FeeRevenue,
		})
	}
	for _, z := range report.ZoneFees {
		out.ZoneFees = append(out.ZoneFees, zoneFeeJSON{
			Neighborhood: z.Neighborhood, DeliveryCount: z.DeliveryCount, FeeRevenue: z.FeeRevenue,
		})
	}
	return out
}
