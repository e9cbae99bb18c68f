package cart

import (
	"fmt"

	"github.com/angelmondragon/littlemirai-storefront/pkg/config"
	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

// Pricing holds the shipping and tax constants used to total an order.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
	Currency              enums.Currency
}

// DefaultPricing is free shipping strictly above 500, a flat 50 otherwise, 18% tax, INR.
func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: decimal.NewFromInt(500),
		FlatShippingFee:       decimal.NewFromInt(50),
		TaxRate:               decimal.RequireFromString("0.18"),
		Currency:              enums.CurrencyINR,
	}
}

// PricingFromConfig converts env configuration into Pricing.
func PricingFromConfig(cfg config.PricingConfig) (Pricing, error) {
	currency, err := enums.ParseCurrency(cfg.Currency)
	if err != nil {
		return Pricing{}, fmt.Errorf("pricing: %w", err)
	}
	return Pricing{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
		TaxRate:               cfg.TaxRate,
		Currency:              currency,
	}, nil
}

// Totals is derived from the cart on every read and never stored.
type Totals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	Savings         decimal.Decimal `json:"savings"`
	FreeShippingGap decimal.Decimal `json:"free_shipping_gap"`
	Currency        enums.Currency  `json:"currency"`
	ItemCount       int             `json:"item_count"`
}

// Compute totals items. An empty cart still carries the flat shipping fee.
func (p Pricing) Compute(items []LineItem) Totals {
	subtotal := decimal.Zero
	savings := decimal.Zero
	count := 0
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
		savings = savings.Add(item.Savings())
		count += item.Quantity
	}

	shipping := p.FlatShippingFee
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	gap := decimal.Zero
	if subtotal.LessThan(p.FreeShippingThreshold) {
		gap = p.FreeShippingThreshold.Sub(subtotal)
	}

	tax := subtotal.Mul(p.TaxRate)

	return Totals{
		Subtotal:        subtotal,
		ShippingFee:     shipping,
		Tax:             tax,
		Total:           subtotal.Add(shipping).Add(tax),
		Savings:         savings,
		FreeShippingGap: gap,
		Currency:        p.Currency,
		ItemCount:       count,
	}
}

// MinorUnits is the total in the smallest currency unit, rounded half away from zero.
func (t Totals) MinorUnits() int64 {
	return t.Total.Shift(2).Round(0).IntPart()
}
