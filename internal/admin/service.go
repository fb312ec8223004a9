// Package admin implements the store owner's operations: catalog edits with
// the cart visibility cascade, order status changes and the sales dashboard.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/cart"
	"github.com/imrishuroy/watch-storefront/internal/inventory"
	"github.com/imrishuroy/watch-storefront/internal/orders"
	"github.com/imrishuroy/watch-storefront/internal/session"
	"github.com/imrishuroy/watch-storefront/internal/validation"
)

const maxAdvanceAttempts = 3

// Service runs admin operations. Callers check Authorize first; storectl,
// which runs with operator credentials, does not.
type Service struct {
	products *inventory.Store
	carts    *cart.Store
	orders   *orders.Store
	admins   session.Admins
	validate *validatorv10.Validate
	logger   *zap.Logger
	nowFunc  func() time.Time
	loc      *time.Location
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Products *inventory.Store
	Carts    *cart.Store
	Orders   *orders.Store
	Admins   session.Admins
	Validate *validatorv10.Validate
	Logger   *zap.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		products: d.Products,
		carts:    d.Carts,
		orders:   d.Orders,
		admins:   d.Admins,
		validate: d.Validate,
		logger:   d.Logger,
		nowFunc:  time.Now,
		loc:      time.Local,
	}
}

// Authorize reports whether sess may run admin operations.
func (s *Service) Authorize(sess session.Session) error {
	if err := sess.Require(); err != nil {
		return err
	}
	if !s.admins.Allows(sess) {
		return &apperr.Error{Kind: apperr.Unauthenticated, Message: "Admin access required"}
	}
	return nil
}

// SetVisibility hides or shows a product and cascades the change to every
// cart line referencing it. Line failures do not undo the product update;
// they come back as a PartialConsistency error next to the result.
func (s *Service) SetVisibility(ctx context.Context, productID string, hidden bool) (*VisibilityResult, error) {
	if err := s.products.SetHidden(ctx, productID, hidden); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, apperr.NewNotFound("product", productID)
		}
		return nil, apperr.NewTransient("set product visibility", err)
	}

	res := &VisibilityResult{ProductID: productID, Hidden: hidden}
	lines, err := s.carts.ListByProduct(ctx, productID)
	if err != nil {
		perr := apperr.NewPartial("Product updated but carts were not", err)
		s.logger.Error("visibility cascade failed", zap.String("watch_id", productID), zap.Error(perr))
		return res, perr
	}
	res.Lines = len(lines)

	var errs error
	for _, l := range lines {
		st, ok := cascadeState(l, hidden)
		if !ok {
			continue
		}
		if err := s.carts.SetState(ctx, l.ID, st); err != nil {
			if errors.Is(err, cart.ErrLineNotFound) {
				continue
			}
			res.Failed++
			errs = multierr.Append(errs, fmt.Errorf("line %s: %w", l.ID, err))
			continue
		}
		res.Updated++
	}

	s.logger.Info("product visibility changed",
		zap.String("watch_id", productID),
		zap.Bool("hidden", hidden),
		zap.Int("lines", res.Lines),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed))
	if errs != nil {
		perr := apperr.NewPartial(fmt.Sprintf("%d cart items could not be updated", res.Failed), errs)
		s.logger.Warn("visibility cascade incomplete", zap.String("watch_id", productID), zap.Error(perr))
		return res, perr
	}
	return res, nil
}

// cascadeState is the state a line takes when its product is hidden or
// shown. Showing only touches lines that hiding zeroed. Lines the shopper
// set to zero stay as they are in both directions.
func cascadeState(l cart.Line, hidden bool) (cart.State, bool) {
	if hidden {
		if l.Quantity == 0 && l.OutOfStock && !l.Hidden {
			return cart.State{}, false
		}
		return cart.State{
			Quantity:         0,
			OutOfStock:       true,
			Hidden:           true,
			OriginalQuantity: l.RestoreQuantity(),
		}, true
	}
	if !l.Hidden {
		return cart.State{}, false
	}
	return cart.State{Quantity: max(l.OriginalQuantity, 1)}, true
}

// CreateProduct validates the form and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*inventory.Product, error) {
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}
	p, err := s.products.Create(ctx, in.product(""))
	if err != nil {
		return nil, apperr.NewTransient("create product", err)
	}
	s.logger.Info("product created", zap.String("watch_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdateProduct replaces the editable fields of a product. A change of the
// hidden flag runs the visibility cascade.
func (s *Service) UpdateProduct(ctx context.Context, productID string, in ProductInput) (*inventory.Product, error) {
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}
	current, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, apperr.NewTransient("load product", err)
	}
	if current == nil {
		return nil, apperr.NewNotFound("product", productID)
	}

	updated, err := s.products.Update(ctx, in.product(productID))
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, apperr.NewNotFound("product", productID)
		}
		return nil, apperr.NewTransient("update product", err)
	}
	if in.Hidden == current.Hidden {
		return updated, nil
	}
	if _, err := s.SetVisibility(ctx, productID, in.Hidden); err != nil {
		if apperr.KindOf(err) != apperr.PartialConsistency {
			return updated, apperr.NewPartial("Product saved but visibility was not changed", err)
		}
		updated.Hidden = in.Hidden
		return updated, err
	}
	updated.Hidden = in.Hidden
	return updated, nil
}

// DeleteProduct removes a product and then every cart line holding it.
func (s *Service) DeleteProduct(ctx context.Context, productID string) (*DeleteResult, error) {
	if err := s.products.Delete(ctx, productID); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, apperr.NewNotFound("product", productID)
		}
		return nil, apperr.NewTransient("delete product", err)
	}

	res := &DeleteResult{ProductID: productID}
	lines, err := s.carts.ListByProduct(ctx, productID)
	if err != nil {
		perr := apperr.NewPartial("Product deleted but carts were not cleaned up", err)
		s.logger.Error("cart cleanup failed", zap.String("watch_id", productID), zap.Error(perr))
		return res, perr
	}
	var errs error
	for _, l := range lines {
		if err := s.carts.Delete(ctx, l.ID); err != nil {
			res.CartFailed++
			errs = multierr.Append(errs, fmt.Errorf("line %s: %w", l.ID, err))
			continue
		}
		res.CartDeleted++
	}

	s.logger.Info("product deleted",
		zap.String("watch_id", productID),
		zap.Int("cart_deleted", res.CartDeleted),
		zap.Int("cart_failed", res.CartFailed))
	if errs != nil {
		perr := apperr.NewPartial(fmt.Sprintf("%d cart items could not be removed", res.CartFailed), errs)
		s.logger.Warn("cart cleanup incomplete", zap.String("watch_id", productID), zap.Error(perr))
		return res, perr
	}
	return res, nil
}

// FindOrder resolves an order token the way the tracking page does.
func (s *Service) FindOrder(ctx context.Context, token string) (*orders.Order, error) {
	return orders.Resolve(ctx, s.orders, token)
}

// AdvanceOrder moves an order one step along its workflow. The write is
// conditional on the status it was computed from; if another writer got
// there first the order is re-read and advanced from its new status.
func (s *Service) AdvanceOrder(ctx context.Context, token string) (*orders.Order, error) {
	o, err := orders.Resolve(ctx, s.orders, token)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxAdvanceAttempts; attempt++ {
		next := orders.Advance(*o, s.nowFunc())
		err := s.orders.UpdateStatus(ctx, o.DocID, o.Status, next.Status)
		switch {
		case err == nil:
			s.logger.Info("order status advanced",
				zap.String("order_id", o.DocID),
				zap.String("from", o.Status),
				zap.String("to", next.Status))
			return &next, nil
		case errors.Is(err, orders.ErrNotFound):
			return nil, apperr.NewNotFound("order", token)
		case !errors.Is(err, orders.ErrStatusMismatch):
			return nil, apperr.NewTransient("update order status", err)
		}

		s.logger.Debug("order status moved, retrying", zap.String("order_id", o.DocID), zap.Int("attempt", attempt+1))
		if o, err = s.orders.Get(ctx, o.DocID); err != nil {
			return nil, apperr.NewTransient("reload order", err)
		}
		if o == nil {
			return nil, apperr.NewNotFound("order", token)
		}
	}
	return nil, apperr.NewUnavailable("Order status is changing, please try again")
}

// SetPaymentStatus records a payment status change on a purchase order.
func (s *Service) SetPaymentStatus(ctx context.Context, token, status string) (*orders.Order, error) {
	if status != orders.PaymentPending && status != orders.PaymentPaid {
		return nil, apperr.NewValidation("Unknown payment status", map[string]string{"paymentStatus": "oneof"})
	}
	o, err := orders.Resolve(ctx, s.orders, token)
	if err != nil {
		return nil, err
	}
	if o.Kind != orders.KindPurchase || o.Purchase == nil {
		return nil, apperr.NewValidation("Only purchase orders have a payment status", map[string]string{"token": "purchase"})
	}
	if err := s.orders.UpdatePaymentStatus(ctx, o.DocID, status); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			return nil, apperr.NewNotFound("order", token)
		}
		return nil, apperr.NewTransient("update payment status", err)
	}
	o.Purchase.PaymentStatus = status
	o.UpdatedAt = s.nowFunc()
	return o, nil
}
