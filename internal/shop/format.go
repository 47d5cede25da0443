package shop

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"lovincraft-store/internal/catalog"
	"lovincraft-store/internal/model"
)

const divider = "━━━━━━━━━━━━━━━\n"

// CartLine is one cart row as shown in chat.
type CartLine struct {
	ProductID int
	Name      string
	Quantity  int
	LineTotal decimal.Decimal
}

// CartLines converts cart items for display.
func CartLines(items []model.CartItem) []CartLine {
	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, CartLine{
			ProductID: it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		})
	}
	return lines
}

// FormatShopMessage creates the shop welcome message.
func FormatShopMessage(points int64, tier model.Tier) string {
	msg := "🍰 Welcome to Lovincraft\n"
	msg += divider
	if tier != "" {
		msg += fmt.Sprintf("⭐ %d points · %s member\n", points, strings.ToUpper(string(tier[:1]))+string(tier[1:]))
		msg += divider
	}
	msg += "Tap a kit to see what's inside:"
	return msg
}

// FormatProductDetail creates the product detail message.
func FormatProductDetail(p catalog.Product, avgRating float64, reviews int) string {
	msg := fmt.Sprintf("%s %s\n", p.Emoji, p.Name)
	msg += divider
	msg += fmt.Sprintf("💰 Price: $%s\n", p.Price.StringFixed(2))
	if reviews > 0 {
		msg += fmt.Sprintf("⭐ %.1f (%d reviews)\n", avgRating, reviews)
	}
	msg += fmt.Sprintf("📝 %s\n", p.Description)
	if len(p.Ingredients) > 0 {
		msg += "🧂 Includes: " + strings.Join(p.Ingredients, ", ") + "\n"
	}
	if !p.InStock {
		msg += "❌ Out of stock\n"
	}
	return msg
}

// FormatCart creates the cart summary message.
func FormatCart(lines []CartLine, quote model.Quote) string {
	if len(lines) == 0 {
		return "🛒 Your cart is empty\n\nBrowse kits with /shop"
	}

	msg := "🛒 Your cart\n"
	msg += divider
	for _, l := range lines {
		msg += fmt.Sprintf("%s x%d  $%s\n", l.Name, l.Quantity, l.LineTotal.StringFixed(2))
	}
	msg += divider
	msg += fmt.Sprintf("Subtotal: $%s\n", quote.Subtotal.StringFixed(2))
	if quote.Discount.IsPositive() {
		msg += fmt.Sprintf("Loyalty discount (%d%%): -$%s\n", quote.DiscountPercent, quote.Discount.StringFixed(2))
	}
	if quote.GiftWrap.IsPositive() {
		msg += fmt.Sprintf("Gift wrap: $%s\n", quote.GiftWrap.StringFixed(2))
	}
	if quote.Shipping.IsZero() {
		msg += "Shipping: FREE\n"
	} else {
		msg += fmt.Sprintf("Shipping: $%s\n", quote.Shipping.StringFixed(2))
	}
	msg += fmt.Sprintf("Total: $%s\n", quote.Total.StringFixed(2))
	msg += fmt.Sprintf("⭐ You'll earn %d points", quote.PointsToEarn)
	return msg
}

// FormatOrder creates the order confirmation and tracking message.
func FormatOrder(o *model.Order) string {
	msg := "📦 Order " + o.ID + "\n"
	msg += divider
	for _, it := range o.Items {
		msg += fmt.Sprintf("%s x%d\n", it.Name, it.Quantity)
	}
	msg += divider
	msg += fmt.Sprintf("Total: $%s\n", o.Quote.Total.StringFixed(2))
	msg += fmt.Sprintf("Status: %s\n", o.Status)
	msg += "Tracking: " + o.TrackingNumber
	return msg
}
