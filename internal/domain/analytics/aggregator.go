package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dborba/comanda-tracker/internal/domain/delivery"
	"github.com/dborba/comanda-tracker/internal/domain/order"
	"github.com/dborba/comanda-tracker/internal/domain/payment"
)

var hundred = decimal.NewFromInt(100)

// canonical rendering order for the payment mix table
var methodOrder = []payment.Method{
	payment.MethodInstant,
	payment.MethodCash,
	payment.MethodCard,
	payment.MethodMixed,
}

// Aggregate computes every view of the report in one pass over the filtered
// orders plus one pass over the deliveries. Unpaid orders only feed the
// confirmation counters; all revenue views are confirmed-only.
func Aggregate(orders []order.Order, deliveries []delivery.Delivery, w Window) *Report {
	r := &Report{Window: w}

	type dayAcc struct {
		count   int
		revenue decimal.Decimal
	}
	type neighborhoodAcc struct {
		count   int
		revenue decimal.Decimal
	}
	type productAcc struct {
		category string
		units    int
		revenue  decimal.Decimal
	}

	days := make(map[string]*dayAcc)
	methods := make(map[payment.Method]*PaymentMethodStat)
	neighborhoods := make(map[string]*neighborhoodAcc)
	var neighborhoodSeen []string
	hours := make([]HourlyStat, 24)
	for h := range hours {
		hours[h] = HourlyStat{Hour: h, Revenue: decimal.Zero}
	}
	products := make(map[string]*productAcc)
	var productSeen []string

	confirmedRevenue := decimal.Zero

	// Single order pass: every confirmed view accumulates here.
	for i := range orders {
		o := &orders[i]
		if !w.Contains(o.CreatedAt) {
			continue
		}
		if malformedOrder(o) {
			r.SkippedOrders++
			continue
		}

		if o.Paid {
			r.Totals.ConfirmedCount++
		} else {
			r.Totals.UnconfirmedCount++
			continue
		}

		confirmedRevenue = confirmedRevenue.Add(o.Total)

		key := o.CreatedAt.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &dayAcc{revenue: decimal.Zero}
			days[key] = d
		}
		d.count++
		d.revenue = d.revenue.Add(o.Total)

		m, ok := methods[o.PaymentMethod]
		if !ok {
			m = &PaymentMethodStat{Method: o.PaymentMethod, Revenue: decimal.Zero}
			methods[o.PaymentMethod] = m
		}
		m.OrderCount++
		m.Revenue = m.Revenue.Add(o.Total)

		if o.Neighborhood != "" {
			n, ok := neighborhoods[o.Neighborhood]
			if !ok {
				n = &neighborhoodAcc{revenue: decimal.Zero}
				neighborhoods[o.Neighborhood] = n
				neighborhoodSeen = append(neighborhoodSeen, o.Neighborhood)
			}
			n.count++
			n.revenue = n.revenue.Add(o.Total)
		}

		h := o.CreatedAt.Hour()
		hours[h].OrderCount++
		hours[h].Revenue = hours[h].Revenue.Add(o.Total)

		for _, it := range o.Items {
			p, ok := products[it.ProductName]
			if !ok {
				p = &productAcc{category: it.Category, revenue: decimal.Zero}
				products[it.ProductName] = p
				productSeen = append(productSeen, it.ProductName)
			}
			p.units += it.Quantity
			p.revenue = p.revenue.Add(it.LineTotal())
		}
	}

	// Daily series, ascending by date.
	dayKeys := make([]string, 0, len(days))
	for k := range days {
		dayKeys = append(dayKeys, k)
	}
	sort.Strings(dayKeys)
	r.DailySales = make([]SalesBucket, 0, len(dayKeys))
	for _, k := range dayKeys {
		date, _ := parseDay(k)
		r.DailySales = append(r.DailySales, SalesBucket{
			Date:        date,
			PeriodLabel: k,
			OrderCount:  days[k].count,
			Revenue:     days[k].revenue,
		})
	}

	// Payment mix in canonical order; shares of confirmed revenue.
	for _, method := range methodOrder {
		m, ok := methods[method]
		if !ok {
			continue
		}
		if confirmedRevenue.IsPositive() {
			m.SharePercent = m.Revenue.Div(confirmedRevenue).Mul(hundred).Round(2)
		} else {
			m.SharePercent = decimal.Zero
		}
		r.PaymentMethods = append(r.PaymentMethods, *m)
	}

	// Neighborhood table by revenue; ties keep first-seen order.
	r.Neighborhoods = make([]NeighborhoodStat, 0, len(neighborhoodSeen))
	for _, name := range neighborhoodSeen {
		n := neighborhoods[name]
		avg := decimal.Zero
		if n.count > 0 {
			avg = n.revenue.Div(decimal.NewFromInt(int64(n.count))).Round(2)
		}
		r.Neighborhoods = append(r.Neighborhoods, NeighborhoodStat{
			Name:           name,
			DeliveryCount:  n.count,
			Revenue:        n.revenue,
			AverageRevenue: avg,
		})
	}
	sort.SliceStable(r.Neighborhoods, func(i, j int) bool {
		return r.Neighborhoods[i].Revenue.GreaterThan(r.Neighborhoods[j].Revenue)
	})

	r.Hours = hours

	// Products stay in first-seen order; ranking helpers sort copies.
	r.Products = make([]ProductStat, 0, len(productSeen))
	for _, name := range productSeen {
		p := products[name]
		r.Products = append(r.Products, ProductStat{
			Name:      name,
			Category:  p.category,
			UnitsSold: p.units,
			Revenue:   p.revenue,
		})
	}

	r.Totals.TotalRevenue = confirmedRevenue
	r.Totals.TotalOrders = r.Totals.ConfirmedCount
	r.Totals.AverageOrderValue = decimal.Zero
	if r.Totals.TotalOrders > 0 {
		r.Totals.AverageOrderValue = confirmedRevenue.
			Div(decimal.NewFromInt(int64(r.Totals.TotalOrders))).Round(2)
	}
	r.Totals.ConfirmationRate = decimal.Zero
	if seen := r.Totals.ConfirmedCount + r.Totals.UnconfirmedCount; seen > 0 {
		r.Totals.ConfirmationRate = decimal.NewFromInt(int64(r.Totals.ConfirmedCount)).
			Div(decimal.NewFromInt(int64(seen))).Mul(hundred).Round(2)
	}

	aggregateDeliveries(r, deliveries, w)

	return r
}

// aggregateDeliveries runs the separate delivery pass. It joins nothing to
// the order views: courier and zone-fee numbers are delivery-fee revenue.
func aggregateDeliveries(r *Report, deliveries []delivery.Delivery, w Window) {
	type acc struct {
		count int
		fees  decimal.Decimal
	}
	couriers := make(map[string]*acc)
	var courierSeen []string
	zones := make(map[string]*acc)
	var zoneSeen []string

	for i := range deliveries {
		d := &deliveries[i]
		if !w.Contains(d.DeliveredAt) {
			continue
		}
		if d.MotoboyID == "" || d.DeliveredAt.IsZero() || d.Fee.IsNegative() {
			r.SkippedDeliveries++
			continue
		}

		r.Totals.TotalDeliveries++

		c, ok := couriers[d.MotoboyID]
		if !ok {
			c = &acc{fees: decimal.Zero}
			couriers[d.MotoboyID] = c
			courierSeen = append(courierSeen, d.MotoboyID)
		}
		c.count++
		c.fees = c.fees.Add(d.Fee)

		z, ok := zones[d.Neighborhood]
		if !ok {
			z = &acc{fees: decimal.Zero}
			zones[d.Neighborhood] = z
			zoneSeen = append(zoneSeen, d.Neighborhood)
		}
		z.count++
		z.fees = z.fees.Add(d.Fee)
	}

	r.Couriers = make([]CourierStat, 0, len(courierSeen))
	for _, id := range courierSeen {
		c := couriers[id]
		r.Couriers = append(r.Couriers, CourierStat{
			MotoboyID:     id,
			DeliveryCount: c.count,
			FeeRevenue:    c.fees,
		})
	}
	sort.SliceStable(r.Couriers, func(i, j int) bool {
		return r.Couriers[i].DeliveryCount > r.Couriers[j].DeliveryCount
	})

	r.ZoneFees = make([]ZoneFeeStat, 0, len(zoneSeen))
	for _, name := range zoneSeen {
		z := zones[name]
		r.ZoneFees = append(r.ZoneFees, ZoneFeeStat{
			Neighborhood:  name,
			DeliveryCount: z.count,
			FeeRevenue:    z.fees,
		})
	}
	sort.SliceStable(r.ZoneFees, func(i, j int) bool {
		return r.ZoneFees[i].FeeRevenue.GreaterThan(r.ZoneFees[j].FeeRevenue)
	})
}

// malformedOrder flags records that cannot contribute sane numbers: missing
// timestamps, negative totals or impossible quantities. They are skipped
// and counted instead of failing the whole dashboard.
func malformedOrder(o *order.Order) bool {
	if o.CreatedAt.IsZero() || o.Total.IsNegative() {
		return true
	}
	for _, it := range o.Items {
		if it.Quantity < 1 {
			return true
		}
	}
	return false
}

func parseDay(key string) (t time.Time, err error) {
	return time.Parse("2006-01-02", key)
}

// TopProducts returns the n best sellers by units sold, descending. Ties
// keep first-seen order so rankings are deterministic.
func (r *Report) TopProducts(n int) []ProductStat {
	ranked := make([]ProductStat, len(r.Products))
	copy(ranked, r.Products)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].UnitsSold > ranked[j].UnitsSold
	})
	return truncateProducts(ranked, n)
}

// BottomProducts returns the n worst sellers by units sold, ascending, with
// the same first-seen tie-break as TopProducts.
func (r *Report) BottomProducts(n int) []ProductStat {
	ranked := make([]ProductStat, len(r.Products))
	copy(ranked, r.Products)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].UnitsSold < ranked[j].UnitsSold
	})
	return truncateProducts(ranked, n)
}

// LastDailySales returns the trailing n buckets of the daily series (the
// default dashboard shows the last 30).
func (r *Report) LastDailySales(n int) []SalesBucket {
	if n <= 0 || n >= len(r.DailySales) {
		return r.DailySales
	}
	return r.DailySales[len(r.DailySales)-n:]
}

// TopNeighborhoods returns the first n rows of the neighborhood table.
func (r *Report) TopNeighborhoods(n int) []NeighborhoodStat {
	if n <= 0 || n >= len(r.Neighborhoods) {
		return r.Neighborhoods
	}
	return r.Neighborhoods[:n]
}

func truncateProducts(ranked []ProductStat, n int) []ProductStat {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
