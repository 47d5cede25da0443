// Package shop renders the storefront for Telegram: inline keyboards and
// the text of shop, cart and account messages.
package shop

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"lovincraft-store/internal/catalog"
)

// Callback data prefixes. Product callbacks carry the product id,
// e.g. shop_item:1.
const (
	CallbackShopItem    = "shop_item:"
	CallbackShopAdd     = "shop_add:"
	CallbackShopWish    = "shop_wish:"
	CallbackShopBack    = "shop_back"
	CallbackShopCart    = "shop_cart"
	CallbackCartRemove  = "cart_rm:"
	CallbackCartClear   = "cart_clear"
	CallbackCartConfirm = "cart_order"
	CallbackCartWrap    = "cart_wrap"
)

// BuildShopPanel creates the main shop panel with a button per product.
func BuildShopPanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	products := catalog.All()
	var rows []tele.Row

	// 2 buttons per row
	var currentRow []tele.Btn
	for i, p := range products {
		btn := markup.Data(
			fmt.Sprintf("%s %s ($%s)", p.Emoji, p.Name, p.Price.StringFixed(2)),
			CallbackShopItem+strconv.Itoa(p.ID),
		)
		currentRow = append(currentRow, btn)

		if len(currentRow) == 2 || i == len(products)-1 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}

	rows = append(rows, markup.Row(markup.Data("🛒 View cart", CallbackShopCart)))

	markup.Inline(rows...)
	return markup
}

// BuildProductPanel creates the buttons under a product detail message.
func BuildProductPanel(productID int, wishlisted bool) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	id := strconv.Itoa(productID)

	wish := "🤍 Save"
	if wishlisted {
		wish = "❤️ Saved"
	}

	markup.Inline(
		markup.Row(
			markup.Data("➕ Add to cart", CallbackShopAdd+id),
			markup.Data(wish, CallbackShopWish+id),
		),
		markup.Row(markup.Data("⬅️ Back", CallbackShopBack)),
	)
	return markup
}

// BuildCartPanel creates the cart buttons: one remove button per line and
// the checkout controls.
func BuildCartPanel(lines []CartLine, giftWrap bool) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row

	for _, l := range lines {
		rows = append(rows, markup.Row(markup.Data("🗑 "+l.Name, CallbackCartRemove+strconv.Itoa(l.ProductID))))
	}

	wrap := "🎁 Add gift wrap"
	if giftWrap {
		wrap = "🎁 Gift wrap: on"
	}
	if len(lines) > 0 {
		rows = append(rows,
			markup.Row(markup.Data(wrap, CallbackCartWrap)),
			markup.Row(
				markup.Data("✅ Place order", CallbackCartConfirm),
				markup.Data("🧹 Clear", CallbackCartClear),
			),
		)
	}
	rows = append(rows, markup.Row(markup.Data("⬅️ Shop", CallbackShopBack)))

	markup.Inline(rows...)
	return markup
}

// ParseProductCallback extracts the product id following prefix.
func ParseProductCallback(data, prefix string) (int, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil {
		return 0, false
	}
	return id, true
}
