package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/pricing"
	"github.com/imrishuroy/watch-storefront/internal/session"
)

// Catalog is what the cart service reads from the inventory.
type Catalog interface {
	AvailabilityReader
	Get(ctx context.Context, productID string) (*inventory.Product, error)
}

// Service runs the shopper's cart operations. Every method requires a
// signed-in session.
type Service struct {
	store      *Store
	catalog    Catalog
	reconciler *Reconciler
	logger     *zap.Logger
	nowFunc    func() time.Time
}

// NewService wires a cart Service.
func NewService(store *Store, catalog Catalog, reconciler *Reconciler, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		catalog:    catalog,
		reconciler: reconciler,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// Add puts one unit of a product in the cart, creating the line if needed.
func (s *Service) Add(ctx context.Context, sess session.Session, productID string) (*Line, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, apperr.NewTransient("load product", err)
	}
	if p == nil {
		return nil, apperr.NewNotFound("product", productID)
	}
	if p.Hidden {
		return nil, apperr.NewUnavailable("Product is currently unavailable")
	}
	if p.Stock <= 0 {
		return nil, apperr.NewUnavailable("Out of stock")
	}

	lines, err := s.store.ListByUser(ctx, sess.UserID)
	if err != nil {
		return nil, apperr.NewTransient("load cart", err)
	}
	limit := min(p.Stock, MaxQuantity)
	for _, l := range lines {
		if l.ProductID != productID {
			continue
		}
		if l.Quantity >= limit {
			return nil, apperr.NewUnavailable("Maximum available quantity already in cart")
		}
		l.Quantity++
		l.OutOfStock, l.Hidden, l.OriginalQuantity = false, false, 0
		if err := s.store.SetState(ctx, l.ID, State{Quantity: l.Quantity}); err != nil {
			return nil, s.writeErr("update cart line", l.ID, err)
		}
		l.Available = true
		return &l, nil
	}

	now := s.nowFunc()
	l := Line{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		ProductID: p.ID,
		Name:      p.Name,
		Brand:     p.Brand,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  1,
		AddedAt:   now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, l); err != nil {
		return nil, apperr.NewTransient("add to cart", err)
	}
	l.Available = true
	return &l, nil
}

// Load reconciles the cart and returns it with totals over purchasable lines.
func (s *Service) Load(ctx context.Context, sess session.Session) (*View, error) {
	res, err := s.reconcile(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &View{Result: res, Summary: Summary(res.Lines), CanCheckout: res.CanCheckout()}, nil
}

// UpdateQuantity sets the quantity of one of the shopper's lines. Zero keeps
// the row but marks it unavailable.
func (s *Service) UpdateQuantity(ctx context.Context, sess session.Session, lineID string, quantity int) (*Line, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, apperr.NewValidation("Quantity cannot be negative", map[string]string{"quantity": "min"})
	}
	l, err := s.owned(ctx, sess, lineID)
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		st := State{Quantity: 0, OutOfStock: true, Hidden: l.Hidden, OriginalQuantity: l.RestoreQuantity()}
		if err := s.store.SetState(ctx, l.ID, st); err != nil {
			return nil, s.writeErr("update cart line", l.ID, err)
		}
		l.Quantity, l.OutOfStock, l.OriginalQuantity, l.Available = 0, true, st.OriginalQuantity, false
		return l, nil
	}

	p, err := s.catalog.Get(ctx, l.ProductID)
	if err != nil {
		return nil, apperr.NewTransient("check stock", err)
	}
	if p == nil {
		return nil, apperr.NewNotFound("product", l.ProductID)
	}
	if p.Hidden {
		return nil, apperr.NewUnavailable("Product is currently unavailable")
	}
	if quantity > p.Stock {
		return nil, apperr.NewUnavailable(fmt.Sprintf("Only %d items available in stock", p.Stock))
	}
	if quantity > MaxQuantity {
		return nil, apperr.NewUnavailable(fmt.Sprintf("Maximum %d items allowed per product", MaxQuantity))
	}

	if err := s.store.SetState(ctx, l.ID, State{Quantity: quantity}); err != nil {
		return nil, s.writeErr("update cart line", l.ID, err)
	}
	l.Quantity, l.OutOfStock, l.Hidden, l.OriginalQuantity, l.Available = quantity, false, false, 0, true
	return l, nil
}

// Remove deletes one of the shopper's lines. No stock is restored.
func (s *Service) Remove(ctx context.Context, sess session.Session, lineID string) error {
	if err := sess.Require(); err != nil {
		return err
	}
	if _, err := s.owned(ctx, sess, lineID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, lineID); err != nil {
		return apperr.NewTransient("remove cart line", err)
	}
	return nil
}

// Clear deletes every line of the shopper.
func (s *Service) Clear(ctx context.Context, sess session.Session) (int, error) {
	if err := sess.Require(); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteByUser(ctx, sess.UserID)
	if err != nil {
		return n, apperr.NewTransient("clear cart", err)
	}
	return n, nil
}

// Checkout is the reconciled, purchasable content of a cart.
type Checkout struct {
	Items   []Line         `json:"items"`
	Totals  pricing.Totals `json:"totals"`
	Updated []Correction   `json:"updated,omitempty"`
}

// PrepareCheckout reconciles again right before an order is built. An empty
// result is Unavailable.
func (s *Service) PrepareCheckout(ctx context.Context, sess session.Session) (*Checkout, error) {
	res, err := s.reconcile(ctx, sess)
	if err != nil {
		return nil, err
	}
	items := res.Purchasable()
	if len(items) == 0 {
		return nil, apperr.NewUnavailable("All items in your cart are currently unavailable!")
	}
	return &Checkout{Items: items, Totals: Summary(items), Updated: res.Updated}, nil
}

func (s *Service) reconcile(ctx context.Context, sess session.Session) (Result, error) {
	if err := sess.Require(); err != nil {
		return Result{}, err
	}
	lines, err := s.store.ListByUser(ctx, sess.UserID)
	if err != nil {
		return Result{}, apperr.NewTransient("load cart", err)
	}
	return s.reconciler.Reconcile(ctx, lines)
}

func (s *Service) owned(ctx context.Context, sess session.Session, lineID string) (*Line, error) {
	l, err := s.store.Get(ctx, lineID)
	if err != nil {
		return nil, apperr.NewTransient("load cart line", err)
	}
	if l == nil || l.UserID != sess.UserID {
		return nil, apperr.NewNotFound("cart item", lineID)
	}
	return l, nil
}

func (s *Service) writeErr(op, lineID string, err error) error {
	if errors.Is(err, ErrLineNotFound) {
		return apperr.NewNotFound("cart item", lineID)
	}
	s.logger.Error(op+" failed", zap.String("cart_id", lineID), zap.Error(err))
	return apperr.NewTransient(op, err)
}
