package service

import (
	"github.com/shopspring/decimal"

	"lovincraft-store/internal/model"
)

// Order pricing constants shared by the cart summary and checkout.
var (
	// FreeShippingThreshold is exclusive: a subtotal of exactly $50 pays
	// shipping.
	FreeShippingThreshold = decimal.NewFromInt(50)
	ShippingFee           = decimal.RequireFromString("5.99")
	GiftWrapFee           = decimal.RequireFromString("5.99")
)

var hundred = decimal.NewFromInt(100)

// Subtotal sums unit price times quantity over the cart.
func Subtotal(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// ItemCount sums quantities over the cart.
func ItemCount(items []model.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// ShippingFor returns the shipping fee for a subtotal.
func ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(FreeShippingThreshold) {
		return decimal.Zero
	}
	return ShippingFee
}

// PriceOrder computes the checkout breakdown. The discount applies to the
// subtotal only; the total is rounded to cents and points are its whole
// dollars.
func PriceOrder(items []model.CartItem, discountPercent int, giftWrap bool) model.Quote {
	subtotal := Subtotal(items)
	discount := subtotal.Mul(decimal.NewFromInt(int64(discountPercent))).Div(hundred).Round(2)

	wrap := decimal.Zero
	if giftWrap {
		wrap = GiftWrapFee
	}
	shipping := ShippingFor(subtotal)

	total := subtotal.Sub(discount).Add(wrap).Add(shipping).Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return model.Quote{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		Discount:        discount,
		GiftWrap:        wrap,
		Shipping:        shipping,
		Total:           total,
		PointsToEarn:    total.Floor().IntPart(),
	}
}
