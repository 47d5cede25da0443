package shop

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovincraft-store/internal/catalog"
	"lovincraft-store/internal/model"
)

func TestBuildShopPanel(t *testing.T) {
	markup := BuildShopPanel()
	require.NotNil(t, markup)

	// 6 products two per row plus the cart row.
	require.Len(t, markup.InlineKeyboard, 4)
	assert.Equal(t, CallbackShopItem+"1", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, CallbackShopCart, markup.InlineKeyboard[3][0].Data)
}

func TestBuildCartPanel(t *testing.T) {
	empty := BuildCartPanel(nil, false)
	require.Len(t, empty.InlineKeyboard, 1)

	lines := []CartLine{{ProductID: 1, Name: "The First Kiss Kit", Quantity: 1}}
	markup := BuildCartPanel(lines, true)
	require.Len(t, markup.InlineKeyboard, 4)
	assert.Equal(t, CallbackCartRemove+"1", markup.InlineKeyboard[0][0].Data)
	assert.Contains(t, markup.InlineKeyboard[1][0].Text, "on")
}

func TestParseProductCallback(t *testing.T) {
	id, ok := ParseProductCallback("shop_add:4", CallbackShopAdd)
	assert.True(t, ok)
	assert.Equal(t, 4, id)

	_, ok = ParseProductCallback("shop_add:x", CallbackShopAdd)
	assert.False(t, ok)
	_, ok = ParseProductCallback("shop_item:4", CallbackShopAdd)
	assert.False(t, ok)
}

func TestFormatCart(t *testing.T) {
	assert.Contains(t, FormatCart(nil, model.Quote{}), "empty")

	lines := []CartLine{{ProductID: 2, Name: "Anniversary Blend", Quantity: 2, LineTotal: decimal.RequireFromString("79.98")}}
	msg := FormatCart(lines, model.Quote{
		Subtotal:        decimal.RequireFromString("79.98"),
		DiscountPercent: 10,
		Discount:        decimal.RequireFromString("8.00"),
		Shipping:        decimal.Zero,
		Total:           decimal.RequireFromString("71.98"),
		PointsToEarn:    71,
	})
	assert.Contains(t, msg, "Anniversary Blend x2  $79.98")
	assert.Contains(t, msg, "Loyalty discount (10%): -$8.00")
	assert.Contains(t, msg, "Shipping: FREE")
	assert.Contains(t, msg, "earn 71 points")
	assert.NotContains(t, msg, "Gift wrap")
}

func TestFormatProductAndOrder(t *testing.T) {
	p, ok := catalog.Get(1)
	require.True(t, ok)
	msg := FormatProductDetail(p, 4.5, 2)
	assert.True(t, strings.HasPrefix(msg, p.Emoji+" "+p.Name))
	assert.Contains(t, msg, "$34.99")
	assert.Contains(t, msg, "4.5 (2 reviews)")

	order := &model.Order{
		ID:             "ORD-1",
		Items:          []model.CartItem{{ID: 1, Name: p.Name, Quantity: 1}},
		Quote:          model.Quote{Total: decimal.RequireFromString("40.98")},
		Status:         model.OrderShipped,
		TrackingNumber: "TRK123456789",
		CreatedAt:      time.Now(),
	}
	msg = FormatOrder(order)
	assert.Contains(t, msg, "Total: $40.98")
	assert.Contains(t, msg, "Status: shipped")
	assert.Contains(t, msg, "TRK123456789")

	assert.Contains(t, FormatShopMessage(600, model.TierSilver), "600 points · Silver member")
}
