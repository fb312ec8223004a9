package cart

import (
	"context"

	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/aws"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
)

// AvailabilityReader is the read side of the inventory the reconciler needs.
type AvailabilityReader interface {
	Availability(ctx context.Context, productID string) (inventory.Availability, error)
}

// Reconciler re-validates cart lines against live inventory. Only a clamp to
// lower stock is written back; every other flag is derived in memory, which
// keeps a second pass over an unchanged store identical to the first.
type Reconciler struct {
	store   *Store
	stock   AvailabilityReader
	metrics *aws.Metrics
	logger  *zap.Logger
}

// NewReconciler wires a Reconciler.
func NewReconciler(store *Store, stock AvailabilityReader, metrics *aws.Metrics, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, stock: stock, metrics: metrics, logger: logger}
}

// Reconcile returns lines with quantity and flags reflecting current stock.
// A failed inventory read aborts the pass as TransientIO.
func (r *Reconciler) Reconcile(ctx context.Context, lines []Line) (Result, error) {
	res := Result{Lines: make([]Line, 0, len(lines))}

	for _, l := range lines {
		a, err := r.stock.Availability(ctx, l.ProductID)
		if err != nil {
			return Result{}, apperr.NewTransient("check cart availability", err)
		}

		switch {
		case !a.Exists:
			l.Available, l.OutOfStock, l.Hidden = false, true, false
			l.Quantity = 0
			res.Unavailable++

		case a.Hidden:
			l.OriginalQuantity = l.RestoreQuantity()
			l.Available, l.OutOfStock, l.Hidden = false, true, true
			l.Quantity = 0
			res.Hidden++

		case a.Stock <= 0:
			l.Available, l.OutOfStock, l.Hidden = false, true, false
			l.Quantity = 0
			res.Unavailable++

		case l.Quantity > a.Stock:
			c := Correction{LineID: l.ID, ProductID: l.ProductID, Name: l.Name, From: l.Quantity, To: a.Stock}
			err := r.store.SetState(ctx, l.ID, State{Quantity: a.Stock})
			if err != nil {
				r.logger.Warn("persist cart clamp failed",
					zap.String("cart_id", l.ID),
					zap.String("watch_id", l.ProductID),
					zap.Int("from", c.From),
					zap.Int("to", c.To),
					zap.Error(err))
			}
			c.Persisted = err == nil
			l.Quantity = a.Stock
			l.Available, l.OutOfStock, l.Hidden = true, false, false
			l.OriginalQuantity = 0
			res.Updated = append(res.Updated, c)

		default:
			l.Available, l.OutOfStock, l.Hidden = true, false, false
		}
		res.Lines = append(res.Lines, l)
	}

	if n := len(res.Updated); n > 0 {
		r.metrics.Count(ctx, aws.MetricReconcileCorrections, float64(n), nil)
	}
	return res, nil
}
