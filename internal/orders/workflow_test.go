package orders

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
	"github.com/imrishuroy/watch-storefront/internal/session"
)

func TestAdvanceWrapsAroundAfterFiveSteps(t *testing.T) {
	for _, kind := range []Kind{KindPurchase, KindPickup, KindStore} {
		for _, start := range Workflow(kind) {
			o := Order{Kind: kind, Status: start}
			for i := 0; i < 5; i++ {
				o = Advance(o, base)
			}
			assert.Equal(t, start, o.Status, "%s from %s", kind, start)
		}
	}
}

func TestAdvanceSequence(t *testing.T) {
	o := Order{Kind: KindPurchase, Status: StatusShipped}
	o = Advance(o, base)
	assert.Equal(t, StatusDelivered, o.Status)
	assert.Equal(t, base, o.UpdatedAt)
	assert.Equal(t, StatusPending, Advance(o, base).Status)

	assert.Equal(t, StatusPickupScheduled, NextStatus(KindPickup, StatusOrderPlaced))
	assert.Equal(t, StatusOrderPlaced, NextStatus(KindStore, StatusDelivered))
}

func TestAdvanceUnknownStatusResets(t *testing.T) {
	assert.Equal(t, StatusPending, NextStatus(KindPurchase, "lost"))
	assert.Equal(t, StatusOrderPlaced, NextStatus(KindPickup, ""))
	assert.Equal(t, StatusPending, NextStatus(KindPurchase, StatusInService), "service status on a purchase")
}

func TestResolve(t *testing.T) {
	s, fake := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, purchase("doc-a", "ORD-1700000000000", base)))
	require.NoError(t, s.Create(ctx, booking("doc-b", "PK1700000000001", KindPickup, base)))

	cases := []struct {
		token string
		doc   string
	}{
		{"doc-a", "doc-a"},
		{"ORD-1700000000000", "doc-a"},
		{"PK1700000000001", "doc-b"},
		{"  doc-b ", "doc-b"},
	}
	for _, tc := range cases {
		o, err := Resolve(ctx, s, tc.token)
		require.NoError(t, err, tc.token)
		assert.Equal(t, tc.doc, o.DocID, tc.token)
	}

	_, err := Resolve(ctx, s, "ORD-404")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	_, err = Resolve(ctx, s, " ")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	fake.SetHook(dynamotest.FailOn("Query", "", "", errors.New("timeout")))
	_, err = Resolve(ctx, s, "ORD-404")
	assert.Equal(t, apperr.TransientIO, apperr.KindOf(err))
}

func TestResolvePrefersDocumentKey(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, purchase("ORD-5", "ORD-6", base)))
	require.NoError(t, s.Create(ctx, purchase("doc-x", "ORD-5", base.Add(time.Minute))))

	o, err := Resolve(ctx, s, "ORD-5")
	require.NoError(t, err)
	assert.Equal(t, "ORD-5", o.DocID)
}

func TestGuessKind(t *testing.T) {
	assert.Equal(t, KindPurchase, GuessKind("ORD-1"))
	assert.Equal(t, KindPickup, GuessKind("PK1"))
	assert.Equal(t, KindStore, GuessKind("SV1"))
	assert.Equal(t, Kind(""), GuessKind("x9"))
}

func TestMatch(t *testing.T) {
	label := func(o Order) string {
		return Match(o,
			func(p PurchaseDetails) string { return "watch " + p.OrderNumber },
			func(s ServiceDetails) string { return "service " + s.ID },
		)
	}
	assert.Equal(t, "watch ORD-1", label(purchase("d", "ORD-1", base)))
	assert.Equal(t, "service SV2", label(booking("d", "SV2", KindStore, base)))
	assert.Equal(t, "", label(Order{Kind: KindPurchase}))
}

func TestServiceMineFilters(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, purchase("d1", "ORD-1", base)))
	require.NoError(t, s.Create(ctx, booking("d2", "PK2", KindPickup, base.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, booking("d3", "SV3", KindStore, base.Add(2*time.Hour))))
	svc := NewService(s, zaptest.NewLogger(t))
	me := session.Session{UserID: "u1", Email: "asha@example.in"}

	all, err := svc.Mine(ctx, me, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pickups, err := svc.Mine(ctx, me, "pickup")
	require.NoError(t, err)
	require.Len(t, pickups, 1)
	assert.Equal(t, "d2", pickups[0].DocID)

	_, err = svc.Mine(ctx, me, "gift")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	_, err = svc.Mine(ctx, session.Session{}, "")
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))

	o, err := svc.Track(ctx, "SV3")
	require.NoError(t, err)
	assert.Equal(t, KindStore, o.Kind)
}
