// Package pricing computes order totals in rupees.
package pricing

import (
	"errors"
	"fmt"

	"crackers-backend/internal/models"

	"github.com/shopspring/decimal"
)

var (
	TaxRate               = decimal.RequireFromString("0.18")
	FreeShippingThreshold = decimal.NewFromInt(1000)
	ShippingFee           = decimal.NewFromInt(50)
)

var ErrInconsistent = errors.New("pricing is inconsistent")

type Line struct {
	Price    float64
	Quantity int
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Compute prices the lines: 18% tax on the subtotal, free shipping above ₹1000, flat ₹50 otherwise.
func Compute(lines []Line, discount float64) models.Pricing {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(money(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(TaxRate).Round(2)
	shipping := ShippingFee
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	disc := money(discount).Round(2)
	total := subtotal.Add(tax).Add(shipping).Sub(disc)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return models.Pricing{
		Subtotal: subtotal.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Shipping: shipping.InexactFloat64(),
		Discount: disc.InexactFloat64(),
		Total:    total.Round(2).InexactFloat64(),
	}
}

// Validate checks that the stored figures add up, to the paisa.
func Validate(p models.Pricing) error {
	for name, v := range map[string]float64{
		"subtotal": p.Subtotal, "tax": p.Tax, "shipping": p.Shipping, "discount": p.Discount, "total": p.Total,
	} {
		if v < 0 {
			return fmt.Errorf("%w: negative %s", ErrInconsistent, name)
		}
	}
	want := money(p.Subtotal).Add(money(p.Tax)).Add(money(p.Shipping)).Sub(money(p.Discount))
	if want.Sub(money(p.Total)).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
		return fmt.Errorf("%w: total %.2f, expected %s", ErrInconsistent, p.Total, want.StringFixed(2))
	}
	return nil
}
