package cart

import (
	"time"

	"github.com/imrishuroy/watch-storefront/internal/pricing"
)

// MaxQuantity is the per-product cap on a cart line.
const MaxQuantity = 10

// Line is one product line in a shopper's cart. OutOfStock and Hidden are
// re-derived on every load; Available is never stored.
type Line struct {
	ID               string    `json:"id" dynamodbav:"cart_id"`
	UserID           string    `json:"userId" dynamodbav:"user_id"`
	ProductID        string    `json:"watchId" dynamodbav:"watch_id"`
	Name             string    `json:"name" dynamodbav:"name"`
	Brand            string    `json:"brand" dynamodbav:"brand"`
	Price            float64   `json:"price" dynamodbav:"price"`
	Image            string    `json:"image,omitempty" dynamodbav:"image"`
	Quantity         int       `json:"quantity" dynamodbav:"quantity"`
	AddedAt          time.Time `json:"addedAt" dynamodbav:"added_at,unixtime"`
	UpdatedAt        time.Time `json:"updatedAt" dynamodbav:"updated_at,unixtime"`
	OutOfStock       bool      `json:"outOfStock" dynamodbav:"out_of_stock"`
	Hidden           bool      `json:"hidden" dynamodbav:"hidden"`
	OriginalQuantity int       `json:"originalQuantity,omitempty" dynamodbav:"original_quantity,omitempty"`
	Available        bool      `json:"available" dynamodbav:"-"`
}

// Purchasable reports whether the line counts towards totals and checkout.
func (l Line) Purchasable() bool {
	return l.Available && l.Quantity > 0
}

// RestoreQuantity is the quantity to give back when a hidden product returns.
// A row zeroed by the visibility cascade already carries it.
func (l Line) RestoreQuantity() int {
	if l.Quantity > 0 {
		return l.Quantity
	}
	return l.OriginalQuantity
}

// Correction tells the shopper a line was clamped to live stock.
type Correction struct {
	LineID    string `json:"lineId"`
	ProductID string `json:"watchId"`
	Name      string `json:"name"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	Persisted bool   `json:"persisted"`
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Lines       []Line       `json:"lines"`
	Updated     []Correction `json:"updated,omitempty"`
	Unavailable int          `json:"unavailable"`
	Hidden      int          `json:"hidden"`
}

// CanCheckout reports whether at least one line may be purchased.
func (r Result) CanCheckout() bool {
	for _, l := range r.Lines {
		if l.Purchasable() {
			return true
		}
	}
	return false
}

// Purchasable returns the lines that count towards totals.
func (r Result) Purchasable() []Line {
	var out []Line
	for _, l := range r.Lines {
		if l.Purchasable() {
			out = append(out, l)
		}
	}
	return out
}

// Summary computes totals over purchasable lines only.
func Summary(lines []Line) pricing.Totals {
	var pl []pricing.Line
	for _, l := range lines {
		if l.Purchasable() {
			pl = append(pl, pricing.Line{Price: l.Price, Quantity: l.Quantity})
		}
	}
	return pricing.Compute(pl)
}

// View is what a shopper sees when loading the cart.
type View struct {
	Result
	Summary     pricing.Totals `json:"summary"`
	CanCheckout bool           `json:"canCheckout"`
}
