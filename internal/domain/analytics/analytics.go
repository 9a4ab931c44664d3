// Package analytics rolls historical comandas and delivery records up into
// the dashboard views: sales series, payment mix, neighborhood performance,
// hourly demand and product rankings.
//
// Aggregate is a pure function of its inputs. It holds no state between
// calls, so identical inputs always produce identical reports; callers that
// need memoization layer it outside, keyed by window and dataset version.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dborba/comanda-tracker/internal/domain/payment"
)

// Window is an inclusive whole-day date range. Start and End are truncated
// to their calendar days; an order created any time on the End day is in.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	start := dayStart(w.Start)
	end := dayStart(w.End).AddDate(0, 0, 1)
	return !ts.Before(start) && ts.Before(end)
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SalesBucket is one calendar day of confirmed sales.
type SalesBucket struct {
	Date        time.Time
	PeriodLabel string // YYYY-MM-DD
	OrderCount  int
	Revenue     decimal.Decimal
}

// PaymentMethodStat is the confirmed order volume for one payment method.
// SharePercent is the method's slice of confirmed revenue, rounded to two
// places for presentation.
type PaymentMethodStat struct {
	Method       payment.Method
	OrderCount   int
	Revenue      decimal.Decimal
	SharePercent decimal.Decimal
}

// NeighborhoodStat aggregates confirmed order revenue per neighborhood.
// This is order revenue; it is a different number from the delivery-fee
// revenue in ZoneFeeStat and the two must never be conflated.
type NeighborhoodStat struct {
	Name           string
	DeliveryCount  int
	Revenue        decimal.Decimal
	AverageRevenue decimal.Decimal
}

// HourlyStat is confirmed demand for one hour of day (0-23, local time).
type HourlyStat struct {
	Hour       int
	OrderCount int
	Revenue    decimal.Decimal
}

// ProductStat aggregates line items by product name across all confirmed
// orders in the window.
type ProductStat struct {
	Name      string
	Category  string
	UnitsSold int
	Revenue   decimal.Decimal
}

// CourierStat counts deliveries and fee revenue per motoboy.
type CourierStat struct {
	MotoboyID     string
	DeliveryCount int
	FeeRevenue    decimal.Decimal
}

// ZoneFeeStat is delivery-fee revenue per neighborhood, derived from the
// delivery records, not from orders.
type ZoneFeeStat struct {
	Neighborhood  string
	DeliveryCount int
	FeeRevenue    decimal.Decimal
}

// Totals is the headline summary for the window.
type Totals struct {
	TotalRevenue      decimal.Decimal
	TotalOrders       int // confirmed orders only
	TotalDeliveries   int
	AverageOrderValue decimal.Decimal
	ConfirmedCount    int
	UnconfirmedCount  int
	ConfirmationRate  decimal.Decimal // percent, 0 when the window is empty
}

// Report carries the full, untruncated views. Display caps (top 10 lists,
// last 30 buckets) belong to the caller so the aggregation itself stays
// reusable and testable.
type Report struct {
	Window         Window
	Totals         Totals
	DailySales     []SalesBucket       // ascending by date
	PaymentMethods []PaymentMethodStat // canonical method order
	Neighborhoods  []NeighborhoodStat  // by revenue, descending
	Hours          []HourlyStat        // all 24 hours
	Products       []ProductStat       // first-seen order
	Couriers       []CourierStat       // by delivery count, descending
	ZoneFees       []ZoneFeeStat       // by fee revenue, descending
	// SkippedOrders and SkippedDeliveries count malformed records that were
	// dropped instead of failing the whole report.
	SkippedOrders     int
	SkippedDeliveries int
}
