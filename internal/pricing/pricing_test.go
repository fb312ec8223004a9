package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompute_TaxScenario(t *testing.T) {
	got := Compute([]Line{{Price: 250, Quantity: 4}})

	assert.Equal(t, 4, got.Items)
	assert.Equal(t, 1000.00, got.Subtotal)
	assert.Equal(t, 180.00, got.Tax)
	assert.Equal(t, 1180.00, got.Total)
}

func TestCompute_SkipsEmptyLines(t *testing.T) {
	got := Compute([]Line{{Price: 999.99, Quantity: 0}, {Price: 10.5, Quantity: 2}, {Price: 5, Quantity: -1}})

	assert.Equal(t, 2, got.Items)
	assert.Equal(t, 21.0, got.Subtotal)
	assert.Equal(t, 3.78, got.Tax)
	assert.Equal(t, 24.78, got.Total)
}

func TestCompute_TotalIsSubtotalPlusRoundedTax(t *testing.T) {
	for _, price := range []float64{0, 0.01, 0.05, 1.11, 19.99, 333.33, 12345.67, 99999.99} {
		for q := 1; q <= 10; q++ {
			got := Compute([]Line{{Price: price, Quantity: q}})
			sub := decimal.NewFromFloat(got.Subtotal)
			want := sub.Add(sub.Mul(decimal.RequireFromString("0.18")).Round(2))
			assert.True(t, decimal.NewFromFloat(got.Total).Equal(want),
				"price=%v q=%d total=%v want=%v", price, q, got.Total, want)
		}
	}
}

func TestQuoteService(t *testing.T) {
	p, ok := QuoteService(ServiceBattery, true)
	assert.True(t, ok)
	assert.Equal(t, PriceFixed, p.Kind)
	assert.Equal(t, 300.0, p.Amount)

	p, _ = QuoteService(ServiceGlass, false)
	assert.Equal(t, 150.0, p.Amount)
	assert.Equal(t, 150.0, p.Billable())

	p, _ = QuoteService(ServiceOther, true)
	assert.Equal(t, PriceAssessed, p.Kind)
	assert.Equal(t, 100.0, p.Surcharge)
	assert.Equal(t, 100.0, p.Billable())
	assert.Contains(t, p.String(), "As per issue assessed")

	p, _ = QuoteService(ServiceOther, false)
	assert.Equal(t, "As per issue assessed", p.String())

	_, ok = QuoteService("Nothing", false)
	assert.False(t, ok)
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹1180.00", FormatINR(1180))
}
