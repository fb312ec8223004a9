package admin

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/orders"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// bounds turns a DateRange into instants. The end day is inclusive up to
// 23:59:59.
func (s *Service) bounds(r DateRange) (time.Time, time.Time, error) {
	var from, to time.Time
	if r.From != "" {
		d, err := time.ParseInLocation(dayLayout, r.From, s.loc)
		if err != nil {
			return from, to, apperr.NewValidation("Invalid start date", map[string]string{"from": "datetime"})
		}
		from = d
	}
	if r.To != "" {
		d, err := time.ParseInLocation(dayLayout, r.To, s.loc)
		if err != nil {
			return from, to, apperr.NewValidation("Invalid end date", map[string]string{"to": "datetime"})
		}
		to = d.Add(24*time.Hour - time.Second)
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from, to, apperr.NewValidation("Start date cannot be after end date", map[string]string{"from": "ltefield"})
	}
	return from, to, nil
}

// ListOrders returns orders placed within r, newest first.
func (s *Service) ListOrders(ctx context.Context, r DateRange) ([]orders.Order, error) {
	from, to, err := s.bounds(r)
	if err != nil {
		return nil, err
	}
	list, err := s.orders.List(ctx, from, to)
	if err != nil {
		return nil, apperr.NewTransient("list orders", err)
	}
	return list, nil
}

// Dashboard aggregates the orders placed within r and the whole catalog.
func (s *Service) Dashboard(ctx context.Context, r DateRange) (*Dashboard, error) {
	list, err := s.ListOrders(ctx, r)
	if err != nil {
		return nil, err
	}
	products, err := s.products.List(ctx, inventory.Filter{IncludeHidden: true})
	if err != nil {
		return nil, apperr.NewTransient("list products", err)
	}

	var watch, service decimal.Decimal
	byMonth := map[string]decimal.Decimal{}
	d := &Dashboard{
		TotalOrders:        len(list),
		OrdersByKind:       map[orders.Kind]int{},
		SalesByMonth:       map[string]float64{},
		ProductCount:       len(products),
		ProductsByCategory: map[string]int{},
	}
	for _, o := range list {
		d.OrdersByKind[o.Kind]++
		amount := sale(o)
		if o.Kind.IsService() {
			service = service.Add(amount)
		} else {
			watch = watch.Add(amount)
		}
		month := o.Timestamp.In(s.loc).Format(monthLayout)
		byMonth[month] = byMonth[month].Add(amount)
	}
	for m, v := range byMonth {
		d.SalesByMonth[m] = v.InexactFloat64()
	}
	for _, p := range products {
		d.ProductsByCategory[p.Category]++
	}

	d.WatchSales = watch.InexactFloat64()
	d.ServiceSales = service.InexactFloat64()
	d.TotalSales = watch.Add(service).InexactFloat64()
	return d, nil
}

// sale is what an order contributes to sales: the purchase total (or the
// subtotal on documents without one) or the billable service price.
func sale(o orders.Order) decimal.Decimal {
	return orders.Match(o,
		func(p orders.PurchaseDetails) decimal.Decimal {
			if p.TotalAmount != 0 {
				return decimal.NewFromFloat(p.TotalAmount)
			}
			return decimal.NewFromFloat(p.Subtotal)
		},
		func(sd orders.ServiceDetails) decimal.Decimal {
			return decimal.NewFromFloat(sd.Price.Billable())
		},
	)
}
