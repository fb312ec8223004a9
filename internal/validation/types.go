package validation

// Request bodies that exist only at the HTTP edge. Domain requests
// (addresses, checkout, service bookings, products) carry their own tags in
// their packages.

// AddToCartRequest is the payload for POST /v1/cart/items.
type AddToCartRequest struct {
	WatchID string `json:"watchId" validate:"required"`
}

// UpdateQuantityRequest is the payload for PATCH /v1/cart/items/:id. Zero is
// a valid quantity, hence the pointer.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// VisibilityRequest is the payload for PUT /v1/admin/products/:id/visibility.
type VisibilityRequest struct {
	Hidden *bool `json:"hidden" validate:"required"`
}

// DateRangeQuery filters admin order listings and the dashboard.
type DateRangeQuery struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

// OrdersQuery filters a shopper's order history.
type OrdersQuery struct {
	Type string `form:"type" validate:"omitempty,oneof=all purchase pickup store"`
}

// ProductsQuery filters catalog browsing.
type ProductsQuery struct {
	Category string   `form:"category"`
	MinPrice *float64 `form:"min_price" validate:"omitempty,gte=0"`
	MaxPrice *float64 `form:"max_price" validate:"omitempty,gte=0"`
	Brands   []string `form:"brand"`
	Sort     string   `form:"sort" validate:"omitempty,oneof=featured price_asc price_desc newest name"`
}

// PaymentStatusRequest is the payload for PUT /v1/admin/orders/:token/payment.
type PaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required,oneof=pending paid"`
}
