package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/address"
	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/aws"
	"github.com/imrishuroy/watch-storefront/internal/cart"
	"github.com/imrishuroy/watch-storefront/internal/idempotency"
	"github.com/imrishuroy/watch-storefront/internal/notify"
	"github.com/imrishuroy/watch-storefront/internal/orders"
	"github.com/imrishuroy/watch-storefront/internal/pricing"
	"github.com/imrishuroy/watch-storefront/internal/session"
	"github.com/imrishuroy/watch-storefront/internal/validation"
)

// maxIDAttempts bounds the search for an unused order number or booking id.
const maxIDAttempts = 3

// Cart is the part of the cart service the builder drives.
type Cart interface {
	PrepareCheckout(ctx context.Context, sess session.Session) (*cart.Checkout, error)
	Clear(ctx context.Context, sess session.Session) (int, error)
}

// Addresses resolves or saves the shipping address.
type Addresses interface {
	Get(ctx context.Context, sess session.Session, id string) (*address.Address, error)
	Create(ctx context.Context, sess session.Session, in address.Input) (*address.Address, error)
}

// Stock drains inventory for purchased items.
type Stock interface {
	Decrement(ctx context.Context, productID string, qty int) (newStock int, floored bool, err error)
}

// Builder turns reconciled carts and service requests into committed orders.
type Builder struct {
	cart      Cart
	addresses Addresses
	stock     Stock
	orders    *orders.Store
	idem      *idempotency.Store
	notifier  notify.Notifier
	validate  *validatorv10.Validate
	metrics   *aws.Metrics
	logger    *zap.Logger
	nowFunc   func() time.Time
	newDocID  func() string
}

// Deps groups the collaborators of a Builder. Notifier and Metrics may be nil.
type Deps struct {
	Cart      Cart
	Addresses Addresses
	Stock     Stock
	Orders    *orders.Store
	Idem      *idempotency.Store
	Notifier  notify.Notifier
	Validate  *validatorv10.Validate
	Metrics   *aws.Metrics
	Logger    *zap.Logger
}

func NewBuilder(d Deps) *Builder {
	return &Builder{
		cart:      d.Cart,
		addresses: d.Addresses,
		stock:     d.Stock,
		orders:    d.Orders,
		idem:      d.Idem,
		notifier:  d.Notifier,
		validate:  d.Validate,
		metrics:   d.Metrics,
		logger:    d.Logger,
		nowFunc:   time.Now,
		newDocID:  uuid.NewString,
	}
}

// PlacePurchase commits the shopper's purchasable cart lines as one order,
// then drains stock, clears the cart and queues the confirmation. Once the
// order is persisted the call succeeds; later steps only log their failures.
func (b *Builder) PlacePurchase(ctx context.Context, sess session.Session, req PurchaseRequest) (*Placed, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	if err := validation.Check(b.validate, req); err != nil {
		return nil, err
	}

	var idemKey string
	if req.IdempotencyKey != "" {
		idemKey = idempotency.CheckoutKey(sess.UserID, req.IdempotencyKey)
		replay, err := b.claim(ctx, idemKey)
		if err != nil || replay != nil {
			return replay, err
		}
	}

	o, co, err := b.buildPurchase(ctx, sess, req)
	if err != nil {
		b.release(ctx, idemKey, err)
		return nil, err
	}

	if idemKey != "" {
		err = b.orders.CreateWithIdempotency(ctx, o, b.idem.CompleteItem(idemKey, o.DocID))
	} else {
		err = b.orders.Create(ctx, o)
	}
	if err != nil {
		b.logger.Error("persist order failed",
			zap.String("user_id", sess.UserID),
			zap.String("order_number", o.Purchase.OrderNumber),
			zap.Error(err))
		if errors.Is(err, orders.ErrCommitConflict) {
			return nil, apperr.NewUnavailable("This order is already being placed")
		}
		b.release(ctx, idemKey, err)
		return nil, apperr.NewTransient("place order", err)
	}

	b.logger.Info("order placed",
		zap.String("order_id", o.DocID),
		zap.String("order_number", o.Purchase.OrderNumber),
		zap.Int("items", len(o.Purchase.Items)),
		zap.Float64("total", o.Purchase.TotalAmount))

	b.drainStock(ctx, o)
	if n, err := b.cart.Clear(ctx, sess); err != nil {
		b.logger.Warn("clear cart after order failed",
			zap.String("order_id", o.DocID),
			zap.Int("deleted", n),
			zap.Error(apperr.NewPartial("cart not fully cleared", err)))
	}
	b.notify(ctx, o)
	b.metrics.Count(ctx, aws.MetricOrdersPlaced, 1, map[string]string{"kind": string(orders.KindPurchase)})

	return &Placed{Order: &o, Updated: co.Updated}, nil
}

// claim takes the idempotency key. A key that already produced an order
// replays it; a key held by a request still in flight is Unavailable.
func (b *Builder) claim(ctx context.Context, key string) (*Placed, error) {
	created, err := b.idem.CreateIfNotExists(ctx, key)
	if err != nil {
		return nil, apperr.NewTransient("claim idempotency key", err)
	}
	if created {
		return nil, nil
	}

	rec, err := b.idem.Get(ctx, key)
	if err != nil {
		return nil, apperr.NewTransient("load idempotency key", err)
	}
	if rec == nil || rec.Status != idempotency.StatusDone || rec.OrderID == "" {
		return nil, apperr.NewUnavailable("This order is already being placed")
	}
	o, err := b.orders.Get(ctx, rec.OrderID)
	if err != nil {
		return nil, apperr.NewTransient("load order", err)
	}
	if o == nil {
		return nil, apperr.NewNotFound("order", rec.OrderID)
	}
	b.logger.Info("replaying placed order", zap.String("order_id", o.DocID), zap.String("idempotency_key", key))
	return &Placed{Order: o, Replayed: true}, nil
}

// release marks a claimed key FAILED so the client can retry with it.
func (b *Builder) release(ctx context.Context, key string, cause error) {
	if key == "" {
		return
	}
	if err := b.idem.MarkFailed(ctx, key, apperr.KindOf(cause).String()); err != nil {
		b.logger.Warn("release idempotency key failed", zap.String("idempotency_key", key), zap.Error(err))
	}
}

func (b *Builder) buildPurchase(ctx context.Context, sess session.Session, req PurchaseRequest) (orders.Order, *cart.Checkout, error) {
	co, err := b.cart.PrepareCheckout(ctx, sess)
	if err != nil {
		return orders.Order{}, nil, err
	}
	addr, err := b.shippingAddress(ctx, sess, req)
	if err != nil {
		return orders.Order{}, nil, err
	}

	items := make([]orders.Item, len(co.Items))
	for i, l := range co.Items {
		items[i] = orders.Item{
			WatchID:  l.ProductID,
			Name:     l.Name,
			Brand:    l.Brand,
			Price:    l.Price,
			Quantity: l.Quantity,
			Image:    l.Image,
		}
	}

	number, err := b.uniqueID(ctx, "ORD-", b.orders.FindByOrderNumber)
	if err != nil {
		return orders.Order{}, nil, err
	}

	now := b.nowFunc()
	o := orders.Order{
		DocID:         b.newDocID(),
		Kind:          orders.KindPurchase,
		Status:        orders.InitialStatus(orders.KindPurchase),
		UserID:        sess.UserID,
		CustomerName:  addr.FullName,
		CustomerEmail: sess.Email,
		CustomerPhone: addr.Phone,
		Timestamp:     now,
		UpdatedAt:     now,
		Purchase: &orders.PurchaseDetails{
			OrderNumber:     number,
			Items:           items,
			Subtotal:        co.Totals.Subtotal,
			Tax:             co.Totals.Tax,
			TotalAmount:     co.Totals.Total,
			ShippingAddress: *addr,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   orders.PaymentStatusFor(req.PaymentMethod),
		},
	}
	return o, co, nil
}

func (b *Builder) shippingAddress(ctx context.Context, sess session.Session, req PurchaseRequest) (*address.Address, error) {
	if req.AddressID != "" {
		return b.addresses.Get(ctx, sess, req.AddressID)
	}
	if req.NewAddress == nil {
		return nil, apperr.NewValidation("Please select an address or add a new one", map[string]string{"addressId": "required_without"})
	}
	return b.addresses.Create(ctx, sess, *req.NewAddress)
}

// uniqueID returns prefix+epoch millis, stepping forward a millisecond while
// the candidate is taken. After maxIDAttempts a random suffix is added.
func (b *Builder) uniqueID(ctx context.Context, prefix string, find func(context.Context, string) (*orders.Order, error)) (string, error) {
	millis := b.nowFunc().UnixMilli()
	for i := 0; i < maxIDAttempts; i++ {
		candidate := prefix + strconv.FormatInt(millis+int64(i), 10)
		existing, err := find(ctx, candidate)
		if err != nil {
			return "", apperr.NewTransient("check order id", err)
		}
		if existing == nil {
			return candidate, nil
		}
		b.logger.Warn("order id collision", zap.String("candidate", candidate))
	}
	return fmt.Sprintf("%s%d-%s", prefix, millis, uuid.NewString()[:8]), nil
}

// drainStock decrements every purchased item. Failures are logged and the
// remaining items still run.
func (b *Builder) drainStock(ctx context.Context, o orders.Order) {
	for _, it := range o.Purchase.Items {
		left, floored, err := b.stock.Decrement(ctx, it.WatchID, it.Quantity)
		if err != nil {
			b.logger.Error("stock decrement failed",
				zap.String("order_id", o.DocID),
				zap.String("watch_id", it.WatchID),
				zap.Int("quantity", it.Quantity),
				zap.Error(apperr.NewPartial("inventory not updated", err)))
			b.metrics.Count(ctx, aws.MetricStockUpdateFailures, 1, nil)
			continue
		}
		if floored {
			b.logger.Warn("stock floored at zero",
				zap.String("order_id", o.DocID),
				zap.String("watch_id", it.WatchID),
				zap.Int("quantity", it.Quantity))
			b.metrics.Count(ctx, aws.MetricStockFloored, 1, map[string]string{"watch_id": it.WatchID})
			continue
		}
		b.logger.Debug("stock decremented", zap.String("watch_id", it.WatchID), zap.Int("stock", left))
	}
}

func (b *Builder) notify(ctx context.Context, o orders.Order) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.Notify(ctx, notify.FromOrder(o)); err != nil {
		b.logger.Warn("queue order notification failed", zap.String("order_id", o.DocID), zap.Error(err))
	}
}

// BookService commits a repair booking priced from the service table.
func (b *Builder) BookService(ctx context.Context, sess session.Session, req ServiceRequest) (*orders.Order, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	if err := validation.Check(b.validate, req); err != nil {
		return nil, err
	}
	now := b.nowFunc()
	if req.Date < now.Format("2006-01-02") {
		return nil, apperr.NewValidation("Please select a date that is not in the past", map[string]string{"date": "future"})
	}
	price, ok := pricing.QuoteService(req.Service, req.Express)
	if !ok {
		return nil, apperr.NewValidation("Unknown service", map[string]string{"service": "oneof"})
	}

	prefix := "PK"
	if req.Kind == orders.KindStore {
		prefix = "SV"
	}
	id, err := b.uniqueID(ctx, prefix, b.orders.FindByServiceID)
	if err != nil {
		return nil, err
	}

	o := orders.Order{
		DocID:         b.newDocID(),
		Kind:          req.Kind,
		Status:        orders.InitialStatus(req.Kind),
		UserID:        sess.UserID,
		CustomerName:  req.CustomerName,
		CustomerEmail: sess.Email,
		CustomerPhone: req.Phone,
		Timestamp:     now,
		UpdatedAt:     now,
		Service: &orders.ServiceDetails{
			ID:      id,
			Email:   req.Email,
			Brand:   req.Brand,
			Issue:   req.Issue,
			Service: req.Service,
			Price:   price,
			Express: req.Express,
			Date:    req.Date,
			Time:    req.Time,
		},
	}
	if req.Kind == orders.KindPickup {
		o.Service.Address = req.Address
	} else {
		o.Service.Store = req.Store
	}

	if err := b.orders.Create(ctx, o); err != nil {
		b.logger.Error("persist service booking failed", zap.String("user_id", sess.UserID), zap.String("id", id), zap.Error(err))
		return nil, apperr.NewTransient("book service", err)
	}
	b.logger.Info("service booked", zap.String("order_id", o.DocID), zap.String("id", id), zap.String("kind", string(o.Kind)))

	b.notify(ctx, o)
	b.metrics.Count(ctx, aws.MetricServiceBookings, 1, map[string]string{"kind": string(o.Kind)})
	return &o, nil
}
