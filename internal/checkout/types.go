package checkout

import (
	"github.com/imrishuroy/watch-storefront/internal/address"
	"github.com/imrishuroy/watch-storefront/internal/cart"
	"github.com/imrishuroy/watch-storefront/internal/orders"
)

// PurchaseRequest places the shopper's cart as an order. An existing
// AddressID wins over NewAddress when both are given.
type PurchaseRequest struct {
	AddressID      string         `json:"addressId" validate:"required_without=NewAddress"`
	NewAddress     *address.Input `json:"newAddress"`
	PaymentMethod  string         `json:"paymentMethod" validate:"required,oneof=card upi netbanking cod"`
	IdempotencyKey string         `json:"-" validate:"omitempty,max=128"`
}

// ServiceRequest books a repair pickup or a store visit.
type ServiceRequest struct {
	Kind         orders.Kind `json:"type" validate:"required,oneof=pickup store"`
	CustomerName string      `json:"customerName" validate:"required"`
	Phone        string      `json:"phone" validate:"required,in_phone"`
	Email        string      `json:"email" validate:"required,email"`
	Brand        string      `json:"brand" validate:"required"`
	Issue        string      `json:"issue" validate:"required"`
	Service      string      `json:"service" validate:"required,oneof=battery full glass other"`
	Express      bool        `json:"express"`
	Date         string      `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string      `json:"time" validate:"required"`
	Address      string      `json:"address" validate:"required_if=Kind pickup"`
	Store        string      `json:"store" validate:"required_if=Kind store"`
}

// Placed is the outcome of PlacePurchase.
type Placed struct {
	Order    *orders.Order     `json:"order"`
	Updated  []cart.Correction `json:"updated,omitempty"`
	Replayed bool              `json:"replayed"`
}
