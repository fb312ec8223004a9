package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/dynamotest"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
)

var testNow = time.Unix(1700000000, 0)

type fixture struct {
	fake       *dynamotest.Fake
	store      *Store
	catalog    *inventory.Store
	reconciler *Reconciler
	service    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := dynamotest.NewStorefront()
	store := NewStore(fake, dynamotest.Tables.Cart)
	store.nowFunc = func() time.Time { return testNow }
	catalog := inventory.NewStore(fake, dynamotest.Tables.Watches)
	logger := zaptest.NewLogger(t)
	rec := NewReconciler(store, catalog, nil, logger)
	svc := NewService(store, catalog, rec, logger)
	svc.nowFunc = func() time.Time { return testNow }
	return &fixture{fake: fake, store: store, catalog: catalog, reconciler: rec, service: svc}
}

func (f *fixture) products(t *testing.T, ps ...inventory.Product) {
	t.Helper()
	values := make([]any, len(ps))
	for i, p := range ps {
		values[i] = p
	}
	f.fake.Seed(t, dynamotest.Tables.Watches, values...)
}

func (f *fixture) lines(t *testing.T, ls ...Line) {
	t.Helper()
	values := make([]any, len(ls))
	for i, l := range ls {
		if l.UserID == "" {
			l.UserID = "u1"
		}
		if l.AddedAt.IsZero() {
			l.AddedAt = testNow.Add(time.Duration(i) * time.Minute)
		}
		values[i] = l
	}
	f.fake.Seed(t, dynamotest.Tables.Cart, values...)
}

func (f *fixture) reconcileUser(t *testing.T, userID string) Result {
	t.Helper()
	lines, err := f.store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	res, err := f.reconciler.Reconcile(context.Background(), lines)
	require.NoError(t, err)
	return res
}

func TestReconcileClampsToStock(t *testing.T) {
	f := newFixture(t)
	f.products(t, inventory.Product{ID: "P", Name: "Orbit", Stock: 3, Price: 100})
	f.lines(t, Line{ID: "c1", ProductID: "P", Name: "Orbit", Price: 100, Quantity: 5})

	res := f.reconcileUser(t, "u1")

	require.Len(t, res.Lines, 1)
	assert.Equal(t, 3, res.Lines[0].Quantity)
	assert.True(t, res.Lines[0].Available)
	require.Len(t, res.Updated, 1)
	assert.Equal(t, Correction{LineID: "c1", ProductID: "P", Name: "Orbit", From: 5, To: 3, Persisted: true}, res.Updated[0])

	var stored Line
	require.True(t, f.fake.Load(t, dynamotest.Tables.Cart, "c1", &stored))
	assert.Equal(t, 3, stored.Quantity)
}

func TestReconcileClampStillAppliesWhenWriteFails(t *testing.T) {
	f := newFixture(t)
	f.products(t, inventory.Product{ID: "P", Stock: 1})
	f.lines(t, Line{ID: "c1", ProductID: "P", Quantity: 4})
	f.fake.SetHook(dynamotest.FailOn("UpdateItem", dynamotest.Tables.Cart, "c1", errors.New("throttled")))

	res := f.reconcileUser(t, "u1")

	assert.Equal(t, 1, res.Lines[0].Quantity)
	assert.False(t, res.Updated[0].Persisted)
}

func TestReconcileMarksUnavailableLines(t *testing.T) {
	f := newFixture(t)
	f.products(t,
		inventory.Product{ID: "hidden", Stock: 5, Hidden: true},
		inventory.Product{ID: "empty", Stock: 0},
		inventory.Product{ID: "ok", Stock: 5, Price: 250},
	)
	f.lines(t,
		Line{ID: "c1", ProductID: "hidden", Quantity: 2},
		Line{ID: "c2", ProductID: "empty", Quantity: 1},
		Line{ID: "c3", ProductID: "gone", Quantity: 1},
		Line{ID: "c4", ProductID: "ok", Price: 250, Quantity: 4, OutOfStock: true},
	)

	res := f.reconcileUser(t, "u1")
	byID := map[string]Line{}
	for _, l := range res.Lines {
		byID[l.ID] = l
	}

	assert.Equal(t, 1, res.Hidden)
	assert.Equal(t, 2, res.Unavailable)
	assert.Zero(t, byID["c1"].Quantity)
	assert.True(t, byID["c1"].Hidden)
	assert.Equal(t, 2, byID["c1"].OriginalQuantity)
	assert.True(t, byID["c2"].OutOfStock)
	assert.False(t, byID["c3"].Available)
	assert.True(t, byID["c4"].Available, "stale flag cleared")
	assert.False(t, byID["c4"].OutOfStock)

	sum := Summary(res.Lines)
	assert.Equal(t, 1000.0, sum.Subtotal)
	assert.Equal(t, 180.0, sum.Tax)
	assert.Equal(t, 1180.0, sum.Total)
	assert.True(t, res.CanCheckout())
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.products(t,
		inventory.Product{ID: "a", Stock: 2},
		inventory.Product{ID: "b", Stock: 4, Hidden: true},
		inventory.Product{ID: "c", Stock: 0},
	)
	f.lines(t,
		Line{ID: "c1", ProductID: "a", Quantity: 9},
		Line{ID: "c2", ProductID: "b", Quantity: 3},
		Line{ID: "c3", ProductID: "c", Quantity: 1},
	)

	first := f.reconcileUser(t, "u1")
	second := f.reconcileUser(t, "u1")

	assert.Equal(t, states(first.Lines), states(second.Lines))
	assert.Empty(t, second.Updated)
}

type lineState struct {
	ID                         string
	Quantity, OriginalQuantity int
	Available, OutOfStock      bool
	Hidden                     bool
}

func states(lines []Line) []lineState {
	out := make([]lineState, len(lines))
	for i, l := range lines {
		out[i] = lineState{l.ID, l.Quantity, l.OriginalQuantity, l.Available, l.OutOfStock, l.Hidden}
	}
	return out
}

func TestReconcileQuantityNeverExceedsStock(t *testing.T) {
	stocks := []int{0, 1, 2, 5, 10}
	for _, stock := range stocks {
		for _, hidden := range []bool{false, true} {
			for q := 0; q <= MaxQuantity; q++ {
				f := newFixture(t)
				f.products(t, inventory.Product{ID: "P", Stock: stock, Hidden: hidden})
				f.lines(t, Line{ID: "c1", ProductID: "P", Quantity: q})

				l := f.reconcileUser(t, "u1").Lines[0]
				assert.LessOrEqual(t, l.Quantity, stock)
				if hidden || stock == 0 {
					assert.Zero(t, l.Quantity)
				}
			}
		}
	}
}

func TestReconcileAbortsOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.SetHook(dynamotest.FailOn("GetItem", dynamotest.Tables.Watches, "", errors.New("timeout")))

	_, err := f.reconciler.Reconcile(context.Background(), []Line{{ID: "c1", ProductID: "P", Quantity: 1}})
	assert.Equal(t, apperr.TransientIO, apperr.KindOf(err))
}
