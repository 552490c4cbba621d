package domain

import "github.com/shopspring/decimal"

// Pricing holds the checkout rules used to derive order totals.
type Pricing struct {
	TaxRate      decimal.Decimal
	ShippingFlat decimal.Decimal
	// FreeShippingOver waives shipping when the subtotal reaches it. Zero
	// disables the threshold.
	FreeShippingOver decimal.Decimal
}

// Quote derives the totals for a cart. Tax applies to the discounted
// subtotal and is rounded to cents.
func (p Pricing) Quote(items []OrderItem, discount decimal.Decimal, f Fulfillment) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(p.TaxRate).Round(2)

	shipping := p.ShippingFlat
	if f.IsPickup() || (p.FreeShippingOver.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingOver)) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal:     subtotal,
		Discount:     discount,
		Tax:          tax,
		ShippingCost: shipping,
		Total:        taxable.Add(tax).Add(shipping),
	}
}
