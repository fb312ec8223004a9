package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/dynamotest"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/orders"
	"github.com/imrishuroy/watch-storefront/internal/pricing"
)

func day(month time.Month, d, hour, minute, sec int) time.Time {
	return time.Date(2026, month, d, hour, minute, sec, 0, time.UTC)
}

func TestDashboardSums(t *testing.T) {
	f := newFixture(t)
	f.orderSet(t,
		purchase("p1", "ORD-1", 1180, 1000, day(time.October, 14, 23, 59, 59)),
		purchase("p2", "ORD-2", 0, 500, day(time.September, 10, 9, 0, 0)),
		booking("s1", "PK1", orders.KindPickup, pricing.ServicePrice{Kind: pricing.PriceFixed, Amount: 300, Surcharge: 100}, day(time.October, 1, 10, 0, 0)),
		booking("s2", "SV1", orders.KindStore, pricing.ServicePrice{Kind: pricing.PriceAssessed, Surcharge: 100}, day(time.September, 20, 10, 0, 0)),
		purchase("late", "ORD-3", 999, 846.61, day(time.October, 15, 0, 0, 1)),
	)
	f.fake.Seed(t, dynamotest.Tables.Watches,
		inventory.Product{ID: "w1", Category: "men"},
		inventory.Product{ID: "w2", Category: "men"},
		inventory.Product{ID: "w3", Category: "women", Hidden: true},
	)

	d, err := f.service.Dashboard(context.Background(), DateRange{From: "2026-09-01", To: "2026-10-14"})
	require.NoError(t, err)

	assert.Equal(t, 4, d.TotalOrders)
	assert.Equal(t, 1680.0, d.WatchSales)
	assert.Equal(t, 400.0, d.ServiceSales)
	assert.Equal(t, 2080.0, d.TotalSales)
	assert.Equal(t, map[orders.Kind]int{orders.KindPurchase: 2, orders.KindPickup: 1, orders.KindStore: 1}, d.OrdersByKind)
	assert.Equal(t, map[string]float64{"2026-09": 600, "2026-10": 1480}, d.SalesByMonth)
	assert.Equal(t, 3, d.ProductCount)
	assert.Equal(t, map[string]int{"men": 2, "women": 1}, d.ProductsByCategory)
}

func TestListOrdersRange(t *testing.T) {
	f := newFixture(t)
	f.orderSet(t,
		purchase("old", "ORD-1", 100, 100, day(time.October, 1, 8, 0, 0)),
		purchase("new", "ORD-2", 100, 100, day(time.October, 12, 8, 0, 0)),
	)
	ctx := context.Background()

	all, err := f.service.ListOrders(ctx, DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].DocID, "newest first")

	since, err := f.service.ListOrders(ctx, DateRange{From: "2026-10-05"})
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "new", since[0].DocID)

	_, err = f.service.ListOrders(ctx, DateRange{From: "2026-10-12", To: "2026-10-01"})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	_, err = f.service.Dashboard(ctx, DateRange{To: "14/10/2026"})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}
