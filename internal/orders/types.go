package orders

import (
	"time"

	"github.com/imrishuroy/watch-storefront/internal/address"
	"github.com/imrishuroy/watch-storefront/internal/pricing"
)

// Kind is the canonical order type, written on every order at creation.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindPickup   Kind = "pickup"
	KindStore    Kind = "store"
)

// IsService reports whether k is a repair booking.
func (k Kind) IsService() bool { return k == KindPickup || k == KindStore }

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool { return k == KindPurchase || k.IsService() }

// Purchase statuses
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
)

// Service statuses. A service booking also ends in StatusDelivered.
const (
	StatusOrderPlaced     = "order_placed"
	StatusPickupScheduled = "pickup_scheduled"
	StatusInService       = "in_service"
	StatusCompleted       = "completed"
)

// Payment statuses
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Payment methods
const (
	PaymentCard       = "card"
	PaymentUPI        = "upi"
	PaymentNetbanking = "netbanking"
	PaymentCOD        = "cod"
)

// PaymentStatusFor is pending for cash on delivery and paid otherwise.
func PaymentStatusFor(method string) string {
	if method == PaymentCOD {
		return PaymentPending
	}
	return PaymentPaid
}

// Item is a purchased product line, frozen at order time.
type Item struct {
	WatchID  string  `json:"watchId" dynamodbav:"watch_id"`
	Name     string  `json:"name" dynamodbav:"name"`
	Brand    string  `json:"brand" dynamodbav:"brand"`
	Price    float64 `json:"price" dynamodbav:"price"`
	Quantity int     `json:"quantity" dynamodbav:"quantity"`
	Image    string  `json:"image,omitempty" dynamodbav:"image,omitempty"`
}

// PurchaseDetails are the fields of a watch purchase.
type PurchaseDetails struct {
	OrderNumber     string          `json:"orderNumber"`
	Items           []Item          `json:"items"`
	Subtotal        float64         `json:"subtotal"`
	Tax             float64         `json:"tax"`
	TotalAmount     float64         `json:"totalAmount"`
	ShippingAddress address.Address `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
}

// ServiceDetails are the fields of a pickup or store-visit booking.
type ServiceDetails struct {
	ID      string               `json:"id"`
	Email   string               `json:"email"`
	Brand   string               `json:"brand"`
	Issue   string               `json:"issue"`
	Service string               `json:"service"`
	Price   pricing.ServicePrice `json:"price"`
	Express bool                 `json:"express"`
	Date    string               `json:"date"`
	Time    string               `json:"time"`
	Address string               `json:"address,omitempty"`
	Store   string               `json:"store,omitempty"`
}

// Order is a committed order. Exactly one of Purchase and Service is set,
// matching Kind.
type Order struct {
	DocID         string           `json:"docId"`
	Kind          Kind             `json:"type"`
	Status        string           `json:"status"`
	UserID        string           `json:"userId"`
	CustomerName  string           `json:"customerName"`
	CustomerEmail string           `json:"customerEmail"`
	CustomerPhone string           `json:"customerPhone,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	Purchase      *PurchaseDetails `json:"purchase,omitempty"`
	Service       *ServiceDetails  `json:"service,omitempty"`
}

// PublicID is the identifier a customer is given: the order number of a
// purchase or the booking id of a service order.
func (o Order) PublicID() string {
	return Match(o,
		func(p PurchaseDetails) string { return p.OrderNumber },
		func(s ServiceDetails) string { return s.ID },
	)
}

// Match calls purchase or service depending on the order's kind. An order
// whose details are missing yields the zero value.
func Match[T any](o Order, purchase func(PurchaseDetails) T, service func(ServiceDetails) T) T {
	var zero T
	switch {
	case o.Kind == KindPurchase && o.Purchase != nil:
		return purchase(*o.Purchase)
	case o.Kind.IsService() && o.Service != nil:
		return service(*o.Service)
	default:
		return zero
	}
}

// record is the stored shape of an Order. Purchase and service fields share
// one item; the unused side is omitted so the order_number and id indexes
// stay sparse.
type record struct {
	DocID         string    `dynamodbav:"doc_id"`
	Kind          Kind      `dynamodbav:"kind,omitempty"`
	Status        string    `dynamodbav:"status"`
	UserID        string    `dynamodbav:"user_id"`
	CustomerName  string    `dynamodbav:"customer_name"`
	CustomerEmail string    `dynamodbav:"customer_email"`
	CustomerPhone string    `dynamodbav:"customer_phone,omitempty"`
	Timestamp     time.Time `dynamodbav:"timestamp,unixtime"`
	UpdatedAt     time.Time `dynamodbav:"updated_at,unixtime"`

	OrderNumber     string           `dynamodbav:"order_number,omitempty"`
	Items           []Item           `dynamodbav:"items,omitempty"`
	Subtotal        float64          `dynamodbav:"subtotal,omitempty"`
	Tax             float64          `dynamodbav:"tax,omitempty"`
	TotalAmount     float64          `dynamodbav:"total_amount,omitempty"`
	ShippingAddress *address.Address `dynamodbav:"shipping_address,omitempty"`
	PaymentMethod   string           `dynamodbav:"payment_method,omitempty"`
	PaymentStatus   string           `dynamodbav:"payment_status,omitempty"`

	ServiceID        string            `dynamodbav:"id,omitempty"`
	ContactEmail     string            `dynamodbav:"contact_email,omitempty"`
	Brand            string            `dynamodbav:"brand,omitempty"`
	Issue            string            `dynamodbav:"issue,omitempty"`
	Service          string            `dynamodbav:"service,omitempty"`
	PriceKind        pricing.PriceKind `dynamodbav:"price_kind,omitempty"`
	Price            float64           `dynamodbav:"price,omitempty"`
	ExpressSurcharge float64           `dynamodbav:"express_surcharge,omitempty"`
	Express          bool              `dynamodbav:"express,omitempty"`
	Date             string            `dynamodbav:"date,omitempty"`
	Time             string            `dynamodbav:"time,omitempty"`
	PickupAddress    string            `dynamodbav:"pickup_address,omitempty"`
	Store            string            `dynamodbav:"store,omitempty"`
}

func toRecord(o Order) record {
	r := record{
		DocID:         o.DocID,
		Kind:          o.Kind,
		Status:        o.Status,
		UserID:        o.UserID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		Timestamp:     o.Timestamp,
		UpdatedAt:     o.UpdatedAt,
	}
	if p := o.Purchase; p != nil {
		addr := p.ShippingAddress
		r.OrderNumber = p.OrderNumber
		r.Items = p.Items
		r.Subtotal = p.Subtotal
		r.Tax = p.Tax
		r.TotalAmount = p.TotalAmount
		r.ShippingAddress = &addr
		r.PaymentMethod = p.PaymentMethod
		r.PaymentStatus = p.PaymentStatus
	}
	if s := o.Service; s != nil {
		r.ServiceID = s.ID
		r.ContactEmail = s.Email
		r.Brand = s.Brand
		r.Issue = s.Issue
		r.Service = s.Service
		r.PriceKind = s.Price.Kind
		r.Price = s.Price.Amount
		r.ExpressSurcharge = s.Price.Surcharge
		r.Express = s.Express
		r.Date = s.Date
		r.Time = s.Time
		r.PickupAddress = s.Address
		r.Store = s.Store
	}
	return r
}

// fromRecord rebuilds an Order. Documents written before the kind tag
// existed are classified from their identifiers.
func fromRecord(r record) Order {
	o := Order{
		DocID:         r.DocID,
		Kind:          r.Kind,
		Status:        r.Status,
		UserID:        r.UserID,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		Timestamp:     r.Timestamp,
		UpdatedAt:     r.UpdatedAt,
	}
	if !o.Kind.Valid() {
		o.Kind = legacyKind(r)
	}

	if o.Kind == KindPurchase {
		p := &PurchaseDetails{
			OrderNumber:   r.OrderNumber,
			Items:         r.Items,
			Subtotal:      r.Subtotal,
			Tax:           r.Tax,
			TotalAmount:   r.TotalAmount,
			PaymentMethod: r.PaymentMethod,
			PaymentStatus: r.PaymentStatus,
		}
		if r.ShippingAddress != nil {
			p.ShippingAddress = *r.ShippingAddress
		}
		o.Purchase = p
		return o
	}

	kind := r.PriceKind
	if kind == "" {
		kind = pricing.PriceFixed
	}
	o.Service = &ServiceDetails{
		ID:      r.ServiceID,
		Email:   r.ContactEmail,
		Brand:   r.Brand,
		Issue:   r.Issue,
		Service: r.Service,
		Price:   pricing.ServicePrice{Kind: kind, Amount: r.Price, Surcharge: r.ExpressSurcharge},
		Express: r.Express,
		Date:    r.Date,
		Time:    r.Time,
		Address: r.PickupAddress,
		Store:   r.Store,
	}
	return o
}

func legacyKind(r record) Kind {
	if r.OrderNumber != "" || len(r.Items) > 0 {
		return KindPurchase
	}
	if k := GuessKind(r.ServiceID); k.IsService() {
		return k
	}
	if r.Store != "" {
		return KindStore
	}
	return KindPickup
}
