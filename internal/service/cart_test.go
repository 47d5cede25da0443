package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"lovincraft-store/internal/model"
)

func TestAddToCart_MergesById(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	session := model.NewSession("u1", "s1")

	notice, err := s.cart.AddProduct(ctx, session, 1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, NoticeAdded, notice.Kind)

	notice, err = s.cart.AddProduct(ctx, session, 1, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, NoticeQuantityUpdated, notice.Kind)
	assert.Equal(t, 2, notice.Quantity)

	items, err := s.cart.Items(ctx, session)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	_, err = s.cart.AddProduct(ctx, session, 42, 1, nil)
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestAddToCart_KeepsCustomization(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	session := model.NewSession("u1", "")

	custom := &model.Customization{Ingredients: []string{"vanilla"}, SecretIngredient: "love"}
	_, err := s.cart.AddProduct(ctx, session, 1, 1, custom)
	require.NoError(t, err)

	items, err := s.cart.Items(ctx, session)
	require.NoError(t, err)
	require.NotNil(t, items[0].Customization)
	assert.Equal(t, "love", items[0].Customization.SecretIngredient)
}

func TestUpdateQuantity(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	session := model.NewSession("u1", "")

	_, err := s.cart.AddProduct(ctx, session, 3, 1, nil)
	require.NoError(t, err)

	require.NoError(t, s.cart.UpdateQuantity(ctx, session, 3, 4))
	totals, err := s.cart.Totals(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 4, totals.ItemCount)
	assert.Equal(t, "119.96", totals.Subtotal.StringFixed(2))
	assert.True(t, totals.Shipping.IsZero())

	assert.ErrorIs(t, s.cart.UpdateQuantity(ctx, session, 5, 2), ErrItemNotInCart)

	require.NoError(t, s.cart.UpdateQuantity(ctx, session, 3, 0))
	items, err := s.cart.Items(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartIsolatedPerSession(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	tabA := model.NewSession("u1", "tab-a")
	tabB := model.NewSession("u1", "tab-b")

	_, err := s.cart.AddProduct(ctx, tabA, 6, 1, nil)
	require.NoError(t, err)

	items, err := s.cart.Items(ctx, tabB)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRemoveAndClear(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	session := model.NewSession("u1", "")

	_, err := s.cart.AddProduct(ctx, session, 1, 1, nil)
	require.NoError(t, err)
	_, err = s.cart.AddProduct(ctx, session, 2, 1, nil)
	require.NoError(t, err)

	notice, err := s.cart.RemoveFromCart(ctx, session, 1)
	require.NoError(t, err)
	require.NotNil(t, notice)
	assert.Equal(t, NoticeRemoved, notice.Kind)

	notice, err = s.cart.RemoveFromCart(ctx, session, 1)
	require.NoError(t, err)
	assert.Nil(t, notice)

	require.NoError(t, s.cart.ClearCart(ctx, session))
	totals, err := s.cart.Totals(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 0, totals.ItemCount)
	assert.True(t, totals.Shipping.IsZero(), "an empty cart shows no shipping")
}

// TestCartQuantityProperty: after a sequence of adds the line quantity is
// the sum of the added quantities.
func TestCartQuantityProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := newTestServices(t)
		ctx := context.Background()
		session := model.NewSession("u1", "")

		adds := rapid.SliceOfN(rapid.IntRange(1, 5), 1, 10).Draw(rt, "adds")
		want := 0
		for _, q := range adds {
			_, err := s.cart.AddProduct(ctx, session, 4, q, nil)
			require.NoError(rt, err)
			want += q
		}

		totals, err := s.cart.Totals(ctx, session)
		require.NoError(rt, err)
		if totals.ItemCount != want || len(totals.Items) != 1 {
			rt.Fatalf("got %d items over %d lines, want %d on one line", totals.ItemCount, len(totals.Items), want)
		}
	})
}
