package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestShippingFor_Boundary(t *testing.T) {
	assert.True(t, ShippingFee.Equal(ShippingFor(dec("50.00"))), "exactly $50 pays shipping")
	assert.True(t, ShippingFor(dec("50.01")).IsZero())
	assert.True(t, ShippingFee.Equal(ShippingFor(dec("12.00"))))
}

// TestPriceOrderProperty checks the breakdown arithmetic.
func TestPriceOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "lines")
		items := make([]model.CartItem, n)
		for i := range items {
			cents := rapid.Int64Range(1, 10000).Draw(t, "cents")
			items[i] = model.CartItem{
				ID:       i + 1,
				Price:    decimal.New(cents, -2),
				Quantity: rapid.IntRange(1, 5).Draw(t, "qty"),
			}
		}
		pct := rapid.SampledFrom([]int{0, 5, 10, 15, 20}).Draw(t, "pct")
		wrap := rapid.Bool().Draw(t, "wrap")

		q := PriceOrder(items, pct, wrap)

		if !q.Subtotal.Equal(Subtotal(items)) {
			t.Fatalf("subtotal mismatch")
		}
		if q.Discount.GreaterThan(q.Subtotal) || q.Discount.IsNegative() {
			t.Fatalf("discount %s out of range for subtotal %s", q.Discount, q.Subtotal)
		}
		want := q.Subtotal.Sub(q.Discount).Add(q.GiftWrap).Add(q.Shipping).Round(2)
		if !q.Total.Equal(want) {
			t.Fatalf("total %s, want %s", q.Total, want)
		}
		if q.PointsToEarn != q.Total.Floor().IntPart() {
			t.Fatalf("points %d for total %s", q.PointsToEarn, q.Total)
		}
		if q.Subtotal.GreaterThan(FreeShippingThreshold) != q.Shipping.IsZero() {
			t.Fatalf("shipping %s for subtotal %s", q.Shipping, q.Subtotal)
		}
	})
}

func TestPriceOrder_Example(t *testing.T) {
	items := []model.CartItem{
		{ID: 1, Price: dec("34.99"), Quantity: 1},
		{ID: 6, Price: dec("14.99"), Quantity: 1},
	}
	q := PriceOrder(items, 10, true)
	assert.Equal(t, "49.98", q.Subtotal.StringFixed(2))
	assert.Equal(t, "5.00", q.Discount.StringFixed(2))
	assert.Equal(t, "5.99", q.Shipping.StringFixed(2))
	assert.Equal(t, "5.99", q.GiftWrap.StringFixed(2))
	assert.Equal(t, "56.96", q.Total.StringFixed(2))
	assert.Equal(t, int64(56), q.PointsToEarn)
}

func TestPlaceOrder_AwardsPointsAndClearsCart(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	session := model.NewSession("u1", "s1")

	_, err := s.cart.AddProduct(ctx, session, 2, 2, nil) // 2 x 39.99
	require.NoError(t, err)

	res, err := s.checkout.PlaceOrder(ctx, session, CheckoutRequest{})
	require.NoError(t, err)

	// 79.98, no discount for a new shopper, free shipping.
	assert.Equal(t, "79.98", res.Order.Quote.Total.StringFixed(2))
	assert.Equal(t, int64(79), res.Account.Points)
	assert.Equal(t, 1, res.Account.TotalPurchases)
	assert.Equal(t, "79.98", res.Account.TotalSpent.StringFixed(2))
	assert.Equal(t, model.OrderProcessing, res.Order.Status)
	assert.Regexp(t, `^TRK[0-9]{9}$`, res.Order.TrackingNumber)

	items, err := s.cart.Items(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, items)

	tracked, err := s.checkout.TrackOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, tracked.ID)

	txs, err := s.loyalty.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Purchase of $79.98", txs[0].Description)

	acct, err := s.loyalty.Account(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "79.98", acct.TotalSpent.StringFixed(2))
}

func TestPlaceOrder_GuestEarnsNothing(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	first := model.NewSession("", "anon-1")
	second := model.NewSession("", "anon-2")

	_, err := s.cart.AddProduct(ctx, first, 2, 20, nil)
	require.NoError(t, err)
	res, err := s.checkout.PlaceOrder(ctx, first, CheckoutRequest{Email: "a@example.com"})
	require.NoError(t, err)
	assert.Nil(t, res.Account)

	pct, err := s.loyalty.GetDiscountPercentage(ctx, model.GuestUserID)
	require.NoError(t, err)
	assert.Equal(t, 0, pct)
	txs, err := s.loyalty.Transactions(ctx, model.GuestUserID)
	require.NoError(t, err)
	assert.Empty(t, txs)

	// A later guest pays full price and starts with an empty cart.
	items, err := s.cart.Items(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = s.cart.AddProduct(ctx, second, 1, 1, nil)
	require.NoError(t, err)
	q, _, err := s.checkout.Quote(ctx, second, false)
	require.NoError(t, err)
	assert.Equal(t, 0, q.DiscountPercent)
}

func TestPlaceOrder_PointsFailureKeepsOrder(t *testing.T) {
	s := newTestServicesOn(t, &failingStore{Store: kv.NewMemoryStore(), prefix: "lovincraft-loyalty-"})
	ctx := context.Background()
	session := model.NewSession("u1", "s1")

	_, err := s.cart.AddProduct(ctx, session, 2, 1, nil)
	require.NoError(t, err)

	res, err := s.checkout.PlaceOrder(ctx, session, CheckoutRequest{})
	require.NoError(t, err)
	assert.Nil(t, res.Account)

	tracked, err := s.checkout.TrackOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, tracked.ID)

	// The cart is gone, so a retry cannot place the order twice.
	items, err := s.cart.Items(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, items)
	_, err = s.checkout.PlaceOrder(ctx, session, CheckoutRequest{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_AppliesTierDiscount(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	session := model.NewSession("u1", "")

	_, _, err := s.loyalty.AddPoints(ctx, "u1", 600, model.TxPurchase, "seed")
	require.NoError(t, err)
	_, err = s.cart.AddProduct(ctx, session, 1, 1, nil)
	require.NoError(t, err)

	q, _, err := s.checkout.Quote(ctx, session, false)
	require.NoError(t, err)
	assert.Equal(t, 10, q.DiscountPercent)
	assert.Equal(t, "3.50", q.Discount.StringFixed(2))
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	s := newTestServices(t)
	_, err := s.checkout.PlaceOrder(context.Background(), model.NewSession("u1", ""), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_Validation(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	session := model.NewSession("u1", "")

	_, err := s.checkout.PlaceOrder(ctx, session, CheckoutRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = s.checkout.PlaceOrder(ctx, session, CheckoutRequest{PaymentMethod: "barter"})
	assert.ErrorIs(t, err, ErrInvalidPayment)
}

// Referral completes on the first checkout with an email, and only once.
func TestPlaceOrder_CompletesReferralOnce(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	seedReferrer(t, s, "ab12", "LOVINAB12CD34")
	s.referral.suffix = func() string { return "QQQQ" }

	buyer := model.NewSession("buyer", "buyer-tab")
	_, err := s.referral.ApplyReferralCode(ctx, buyer, "LOVINAB12CD34")
	require.NoError(t, err)

	_, err = s.cart.AddProduct(ctx, buyer, 3, 1, nil)
	require.NoError(t, err)
	res, err := s.checkout.PlaceOrder(ctx, buyer, CheckoutRequest{Email: "friend@example.com"})
	require.NoError(t, err)
	require.NotNil(t, res.Referral)
	assert.Equal(t, "LOVINAB12CD34", res.Order.ReferralCode)

	_, err = s.cart.AddProduct(ctx, buyer, 3, 1, nil)
	require.NoError(t, err)
	res, err = s.checkout.PlaceOrder(ctx, buyer, CheckoutRequest{Email: "friend@example.com"})
	require.NoError(t, err)
	assert.Nil(t, res.Referral)

	refs, err := s.referral.Referrals(ctx, "ab12")
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

// Without an email the pending code survives for a later checkout.
func TestPlaceOrder_KeepsReferralWithoutEmail(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	seedReferrer(t, s, "ab12", "LOVINAB12CD34")

	buyer := model.NewSession("buyer", "")
	_, err := s.referral.ApplyReferralCode(ctx, buyer, "LOVINAB12CD34")
	require.NoError(t, err)
	_, err = s.cart.AddProduct(ctx, buyer, 4, 1, nil)
	require.NoError(t, err)

	res, err := s.checkout.PlaceOrder(ctx, buyer, CheckoutRequest{})
	require.NoError(t, err)
	assert.Nil(t, res.Referral)

	pending, err := s.referral.AppliedCode(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, "LOVINAB12CD34", pending)
}

func TestPlaceOrder_CancelledDuringProcessing(t *testing.T) {
	s := newTestServices(t)
	s.checkout.delay = time.Hour
	session := model.NewSession("u1", "")

	_, err := s.cart.AddProduct(context.Background(), session, 1, 1, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.checkout.PlaceOrder(ctx, session, CheckoutRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	items, err := s.cart.Items(context.Background(), session)
	require.NoError(t, err)
	assert.Len(t, items, 1, "cart untouched")
	pct, err := s.loyalty.GetDiscountPercentage(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, pct, "no points awarded")
}

func TestPlaceOrder_SecondSubmitRejectedWhileRunning(t *testing.T) {
	s := newTestServices(t)
	s.checkout.delay = 200 * time.Millisecond
	ctx := context.Background()
	session := model.NewSession("u1", "")

	_, err := s.cart.AddProduct(ctx, session, 1, 1, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.checkout.PlaceOrder(ctx, session, CheckoutRequest{})
		done <- err
	}()

	require.Eventually(t, func() bool {
		return s.checkout.InProgress(session)
	}, time.Second, 5*time.Millisecond)

	_, err = s.checkout.PlaceOrder(ctx, session, CheckoutRequest{})
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	require.NoError(t, <-done)
	assert.False(t, s.checkout.InProgress(session))
}

func TestAdvanceOrder(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	session := model.NewSession("u1", "")

	_, err := s.cart.AddProduct(ctx, session, 5, 1, nil)
	require.NoError(t, err)
	res, err := s.checkout.PlaceOrder(ctx, session, CheckoutRequest{})
	require.NoError(t, err)

	o, err := s.checkout.AdvanceOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, o.Status)
	o, err = s.checkout.AdvanceOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderDelivered, o.Status)
	_, err = s.checkout.AdvanceOrder(ctx, res.Order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.checkout.TrackOrder(ctx, "ORD-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
