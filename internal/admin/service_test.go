package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/cart"
	"github.com/imrishuroy/watch-storefront/internal/dynamotest"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/orders"
	"github.com/imrishuroy/watch-storefront/internal/pricing"
	"github.com/imrishuroy/watch-storefront/internal/session"
	"github.com/imrishuroy/watch-storefront/internal/validation"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	fake    *dynamotest.Fake
	carts   *cart.Store
	orders  *orders.Store
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := dynamotest.NewStorefront()
	carts := cart.NewStore(fake, dynamotest.Tables.Cart)
	orderStore := orders.NewStore(fake, dynamotest.Tables.Orders)
	svc := NewService(Deps{
		Products: inventory.NewStore(fake, dynamotest.Tables.Watches),
		Carts:    carts,
		Orders:   orderStore,
		Admins:   session.NewAdmins([]string{"owner@shop.in"}),
		Validate: validation.New(),
		Logger:   zaptest.NewLogger(t),
	})
	svc.nowFunc = func() time.Time { return testNow }
	svc.loc = time.UTC
	return &fixture{fake: fake, carts: carts, orders: orderStore, service: svc}
}

func (f *fixture) line(t *testing.T, id string) cart.Line {
	t.Helper()
	l, err := f.carts.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, l)
	return *l
}

func TestAuthorize(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.service.Authorize(session.Session{UserID: "a", Email: "Owner@shop.in"}))
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(f.service.Authorize(session.Session{UserID: "b", Email: "guest@shop.in"})))
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(f.service.Authorize(session.Session{})))
}

func TestSetVisibilityHideThenShowRestoresQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Seed(t, dynamotest.Tables.Watches, inventory.Product{ID: "P", Stock: 5})
	f.fake.Seed(t, dynamotest.Tables.Cart,
		cart.Line{ID: "c1", UserID: "u1", ProductID: "P", Quantity: 2, AddedAt: testNow},
		cart.Line{ID: "c2", UserID: "u2", ProductID: "P", Quantity: 3, AddedAt: testNow},
		cart.Line{ID: "c3", UserID: "u1", ProductID: "Q", Quantity: 1, AddedAt: testNow},
	)

	res, err := f.service.SetVisibility(ctx, "P", true)
	require.NoError(t, err)
	assert.Equal(t, VisibilityResult{ProductID: "P", Hidden: true, Lines: 2, Updated: 2}, *res)

	c1 := f.line(t, "c1")
	assert.Zero(t, c1.Quantity)
	assert.True(t, c1.Hidden)
	assert.True(t, c1.OutOfStock)
	assert.Equal(t, 2, c1.OriginalQuantity)
	assert.Equal(t, 1, f.line(t, "c3").Quantity, "other products untouched")

	// hiding twice keeps the remembered quantity
	_, err = f.service.SetVisibility(ctx, "P", true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.line(t, "c1").OriginalQuantity)
	assert.Equal(t, 3, f.line(t, "c2").OriginalQuantity)

	res, err = f.service.SetVisibility(ctx, "P", false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)

	c1 = f.line(t, "c1")
	assert.Equal(t, 2, c1.Quantity)
	assert.False(t, c1.Hidden)
	assert.False(t, c1.OutOfStock)
	assert.Zero(t, c1.OriginalQuantity)
	assert.Equal(t, 3, f.line(t, "c2").Quantity)

	p, err := inventory.NewStore(f.fake, dynamotest.Tables.Watches).Get(ctx, "P")
	require.NoError(t, err)
	assert.False(t, p.Hidden)
}

func TestShowSkipsLinesNotHiddenByTheCascade(t *testing.T) {
	f := newFixture(t)
	f.fake.Seed(t, dynamotest.Tables.Watches, inventory.Product{ID: "P", Stock: 5, Hidden: true})
	f.fake.Seed(t, dynamotest.Tables.Cart,
		cart.Line{ID: "hidden", UserID: "u1", ProductID: "P", Hidden: true, OutOfStock: true, AddedAt: testNow},
		cart.Line{ID: "zeroed", UserID: "u2", ProductID: "P", OutOfStock: true, OriginalQuantity: 2, AddedAt: testNow},
	)

	res, err := f.service.SetVisibility(context.Background(), "P", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, f.line(t, "hidden").Quantity, "missing original quantity restores one")
	assert.Zero(t, f.line(t, "zeroed").Quantity)
}

func TestSetVisibilityKeepsShopperZeroedLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Seed(t, dynamotest.Tables.Watches, inventory.Product{ID: "P", Stock: 5})
	f.fake.Seed(t, dynamotest.Tables.Cart,
		cart.Line{ID: "c1", UserID: "u1", ProductID: "P", Quantity: 0, OutOfStock: true, OriginalQuantity: 3, AddedAt: testNow},
		cart.Line{ID: "c2", UserID: "u2", ProductID: "P", Quantity: 2, AddedAt: testNow},
	)

	res, err := f.service.SetVisibility(ctx, "P", true)
	require.NoError(t, err)
	assert.Equal(t, VisibilityResult{ProductID: "P", Hidden: true, Lines: 2, Updated: 1}, *res)
	assert.False(t, f.line(t, "c1").Hidden)

	res, err = f.service.SetVisibility(ctx, "P", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	c1 := f.line(t, "c1")
	assert.Zero(t, c1.Quantity, "zeroed by the shopper, not by hiding")
	assert.True(t, c1.OutOfStock)
	assert.False(t, c1.Hidden)
	assert.Equal(t, 2, f.line(t, "c2").Quantity)
}

func TestSetVisibilityReportsLineFailures(t *testing.T) {
	f := newFixture(t)
	f.fake.Seed(t, dynamotest.Tables.Watches, inventory.Product{ID: "P", Stock: 5})
	f.fake.Seed(t, dynamotest.Tables.Cart,
		cart.Line{ID: "c1", UserID: "u1", ProductID: "P", Quantity: 2, AddedAt: testNow},
		cart.Line{ID: "c2", UserID: "u2", ProductID: "P", Quantity: 1, AddedAt: testNow},
	)
	f.fake.SetHook(dynamotest.FailOn("UpdateItem", dynamotest.Tables.Cart, "c2", errors.New("throttled")))

	res, err := f.service.SetVisibility(context.Background(), "P", true)
	assert.Equal(t, apperr.PartialConsistency, apperr.KindOf(err))
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Failed)
	f.fake.SetHook(nil)
	assert.True(t, f.line(t, "c1").Hidden)
	assert.False(t, f.line(t, "c2").Hidden)
}

func TestSetVisibilityMissingProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.SetVisibility(context.Background(), "ghost", true)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestProductLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	price, stock := 12500.0, 4

	_, err := f.service.CreateProduct(ctx, ProductInput{Name: "Orbit", Brand: "Titan", Category: "men"})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err), "price and stock are required")

	negative := -1
	_, err = f.service.CreateProduct(ctx, ProductInput{Name: "Orbit", Brand: "Titan", Category: "men", Price: &price, Stock: &negative})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	in := ProductInput{
		Name: " Orbit ", Brand: "Titan", Category: "men", Price: &price, Stock: &stock,
		Features: []string{"Sapphire glass", " ", "50m water resistant"},
	}
	p, err := f.service.CreateProduct(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Orbit", p.Name)
	assert.Equal(t, []string{"Sapphire glass", "50m water resistant"}, p.Features)

	f.fake.Seed(t, dynamotest.Tables.Cart, cart.Line{ID: "c1", UserID: "u1", ProductID: p.ID, Quantity: 2, AddedAt: testNow})

	in.Hidden = true
	updated, err := f.service.UpdateProduct(ctx, p.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.Hidden)
	assert.True(t, f.line(t, "c1").Hidden, "hiding through the form cascades")

	_, err = f.service.UpdateProduct(ctx, "ghost", in)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	res, err := f.service.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CartDeleted)
	assert.Zero(t, f.fake.Len(dynamotest.Tables.Cart))
	assert.Zero(t, f.fake.Len(dynamotest.Tables.Watches))

	_, err = f.service.DeleteProduct(ctx, p.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func purchase(docID, number string, total, subtotal float64, at time.Time) orders.Order {
	return orders.Order{
		DocID:         docID,
		Kind:          orders.KindPurchase,
		Status:        orders.StatusPending,
		CustomerEmail: "asha@example.in",
		Timestamp:     at,
		UpdatedAt:     at,
		Purchase: &orders.PurchaseDetails{
			OrderNumber:   number,
			Subtotal:      subtotal,
			TotalAmount:   total,
			PaymentMethod: orders.PaymentCOD,
			PaymentStatus: orders.PaymentPending,
		},
	}
}

func booking(docID, id string, kind orders.Kind, price pricing.ServicePrice, at time.Time) orders.Order {
	return orders.Order{
		DocID:         docID,
		Kind:          kind,
		Status:        orders.StatusOrderPlaced,
		CustomerEmail: "asha@example.in",
		Timestamp:     at,
		UpdatedAt:     at,
		Service:       &orders.ServiceDetails{ID: id, Service: pricing.ServiceBattery, Price: price},
	}
}

func (f *fixture) orderSet(t *testing.T, list ...orders.Order) {
	t.Helper()
	for _, o := range list {
		require.NoError(t, f.orders.Create(context.Background(), o))
	}
}

func TestAdvanceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.orderSet(t,
		purchase("d1", "ORD-1", 1180, 1000, testNow),
		booking("d2", "PK1", orders.KindPickup, pricing.ServicePrice{Kind: pricing.PriceFixed, Amount: 200}, testNow),
	)

	o, err := f.service.AdvanceOrder(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusConfirmed, o.Status)

	for range 4 {
		o, err = f.service.AdvanceOrder(ctx, "d1")
		require.NoError(t, err)
	}
	assert.Equal(t, orders.StatusPending, o.Status, "delivered wraps to the first state")

	o, err = f.service.AdvanceOrder(ctx, "PK1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPickupScheduled, o.Status)

	stored, err := f.orders.Get(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPickupScheduled, stored.Status)

	_, err = f.service.AdvanceOrder(ctx, "nope")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	_, err = f.service.AdvanceOrder(ctx, " ")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestAdvanceOrderStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.orderSet(t, purchase("d1", "ORD-1", 1180, 1000, testNow))
	f.fake.SetHook(dynamotest.FailOn("UpdateItem", dynamotest.Tables.Orders, "", errors.New("timeout")))

	_, err := f.service.AdvanceOrder(context.Background(), "d1")
	assert.Equal(t, apperr.TransientIO, apperr.KindOf(err))
}

func TestSetPaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.orderSet(t,
		purchase("d1", "ORD-1", 1180, 1000, testNow),
		booking("d2", "SV1", orders.KindStore, pricing.ServicePrice{Kind: pricing.PriceAssessed}, testNow),
	)

	o, err := f.service.SetPaymentStatus(ctx, "ORD-1", orders.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPaid, o.Purchase.PaymentStatus)

	stored, err := f.orders.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPaid, stored.Purchase.PaymentStatus)
	assert.Equal(t, orders.StatusPending, stored.Status)

	_, err = f.service.SetPaymentStatus(ctx, "SV1", orders.PaymentPaid)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	_, err = f.service.SetPaymentStatus(ctx, "ORD-1", "refunded")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}
