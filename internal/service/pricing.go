package service

import (
	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/config"
)

// Pricing computes order totals from a cart subtotal and a discount.
type Pricing struct {
	TaxRate               decimal.Decimal
	ShippingFlatRate      decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// NewPricing builds Pricing from configuration.
func NewPricing(cfg config.PricingConfig) Pricing {
	return Pricing{
		TaxRate:               decimal.NewFromFloat(cfg.TaxRate),
		ShippingFlatRate:      decimal.NewFromFloat(cfg.ShippingFlatRate),
		FreeShippingThreshold: decimal.NewFromFloat(cfg.FreeShippingThreshold),
	}
}

// Totals is the priced breakdown of a cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Compute applies shipping and tax. Free shipping is decided on the
// subtotal before discount; tax is charged on the discounted subtotal.
func (p Pricing) Compute(subtotal, discount decimal.Decimal) Totals {
	subtotal = subtotal.Round(2)
	discount = decimal.Min(discount.Round(2), subtotal)

	shipping := p.ShippingFlatRate
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(p.TaxRate).Round(2)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping.Round(2),
		Tax:      tax,
		Total:    taxable.Add(shipping).Add(tax).Round(2),
	}
}
