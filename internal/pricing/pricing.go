// Package pricing holds the storefront money rules: line totals, the flat
// 18% GST, and the repair service price table. All arithmetic is done in
// decimal and rounded to paise before it is handed back as float64.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the currency precision (INR, two decimal places).
const Places = 2

var taxRate = decimal.RequireFromString("0.18")

// Line is anything that contributes price x quantity to a total.
type Line struct {
	Price    float64
	Quantity int
}

// Totals is the order summary shown in the cart and stored on purchase orders.
type Totals struct {
	Items    int     `json:"items"`
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Compute sums lines and applies tax. Lines with a non-positive quantity are
// skipped. It holds that Total == Subtotal + Tax exactly in decimal.
func Compute(lines []Line) Totals {
	subtotal := decimal.Zero
	items := 0
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		items += l.Quantity
		subtotal = subtotal.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(Places)
	tax := Tax(subtotal)
	return Totals{
		Items:    items,
		Subtotal: subtotal.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    subtotal.Add(tax).InexactFloat64(),
	}
}

// Tax is 18% of subtotal rounded to currency precision.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(taxRate).Round(Places)
}

// Service keys offered by the repair desk.
const (
	ServiceBattery = "battery"
	ServiceFull    = "full"
	ServiceGlass   = "glass"
	ServiceOther   = "other"
)

// ExpressSurcharge is added on top of any service price when express is set.
const ExpressSurcharge = 100

var serviceBase = map[string]int64{
	ServiceBattery: 200,
	ServiceFull:    500,
	ServiceGlass:   150,
	ServiceOther:   0,
}

// PriceKind separates a quoted price from one decided after inspection.
type PriceKind string

const (
	PriceFixed    PriceKind = "fixed"
	PriceAssessed PriceKind = "assessed"
)

// ServicePrice is Fixed(amount) or Assessed. An assessed price still carries
// the express surcharge the customer agreed to.
type ServicePrice struct {
	Kind      PriceKind `json:"kind" dynamodbav:"price_kind"`
	Amount    float64   `json:"amount" dynamodbav:"price"`
	Surcharge float64   `json:"expressSurcharge" dynamodbav:"express_surcharge"`
}

// QuoteService prices a repair booking. It returns false for an unknown key.
func QuoteService(service string, express bool) (ServicePrice, bool) {
	base, ok := serviceBase[service]
	if !ok {
		return ServicePrice{}, false
	}
	var surcharge int64
	if express {
		surcharge = ExpressSurcharge
	}
	if base == 0 {
		return ServicePrice{Kind: PriceAssessed, Surcharge: float64(surcharge)}, true
	}
	return ServicePrice{
		Kind:      PriceFixed,
		Amount:    float64(base + surcharge),
		Surcharge: float64(surcharge),
	}, true
}

// Billable is the amount that counts towards sales: the fixed price, or just
// the surcharge for an assessed booking.
func (p ServicePrice) Billable() float64 {
	if p.Kind == PriceFixed {
		return p.Amount
	}
	return p.Surcharge
}

func (p ServicePrice) String() string {
	if p.Kind == PriceFixed {
		return FormatINR(p.Amount)
	}
	if p.Surcharge > 0 {
		return fmt.Sprintf("As per issue assessed + express service %s", FormatINR(p.Surcharge))
	}
	return "As per issue assessed"
}

// FormatINR renders an amount as rupees with two decimals.
func FormatINR(amount float64) string {
	return "₹" + decimal.NewFromFloat(amount).StringFixed(Places)
}
