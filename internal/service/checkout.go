package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/idgen"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
)

// Checkout errors.
var (
	ErrEmptyCart          = errors.New("your cart is empty")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrInvalidPayment     = errors.New("unsupported payment method")
	ErrGiftMessageTooLong = errors.New("gift message is too long")
	ErrOrderNotFound      = errors.New("order not found")
)

// Payment methods offered at checkout. Payment is simulated.
const (
	PaymentCard   = "card"
	PaymentPayPal = "paypal"
)

// CheckoutRequest carries the checkout form.
type CheckoutRequest struct {
	Email         string `json:"email" validate:"omitempty,email,max=255"`
	GiftWrap      bool   `json:"giftWrap"`
	GiftMessage   string `json:"giftMessage" validate:"max=500"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=card paypal"`
}

var checkoutFieldErrors = fieldErrors{
	"Email":         ErrInvalidEmail,
	"GiftMessage":   ErrGiftMessageTooLong,
	"PaymentMethod": ErrInvalidPayment,
}

// OrderResult is what a completed checkout produced.
type OrderResult struct {
	Order    *model.Order          `json:"order"`
	Account  *model.LoyaltyAccount `json:"account,omitempty"`
	Referral *model.Referral       `json:"referral,omitempty"`
}

// CheckoutService prices carts and places orders.
type CheckoutService struct {
	cart     *CartService
	loyalty  *LoyaltyService
	referral *ReferralService
	orders   *repository.OrderRepository
	locks    *lock.KeyLock
	delay    time.Duration
	now      func() time.Time
}

// NewCheckoutService creates a new CheckoutService instance. delay stands
// in for payment processing.
func NewCheckoutService(
	cart *CartService,
	loyalty *LoyaltyService,
	referral *ReferralService,
	orders *repository.OrderRepository,
	locks *lock.KeyLock,
	delay time.Duration,
) *CheckoutService {
	return &CheckoutService{
		cart:     cart,
		loyalty:  loyalty,
		referral: referral,
		orders:   orders,
		locks:    locks,
		delay:    delay,
		now:      time.Now,
	}
}

// Quote prices the session's cart with the shopper's tier discount.
// Guests have no account and pay full price.
func (s *CheckoutService) Quote(ctx context.Context, session model.Session, giftWrap bool) (*model.Quote, []model.CartItem, error) {
	items, err := s.cart.Items(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	pct := 0
	if !session.IsGuest() {
		pct, err = s.loyalty.GetDiscountPercentage(ctx, session.UserID)
		if err != nil {
			return nil, nil, err
		}
	}
	q := PriceOrder(items, pct, giftWrap)
	return &q, items, nil
}

func checkoutLockKey(sessionID string) string { return "checkout:" + sessionID }

// InProgress reports whether a checkout is running for the session.
func (s *CheckoutService) InProgress(session model.Session) bool {
	return s.locks.IsLocked(checkoutLockKey(session.SessionID))
}

// PlaceOrder runs checkout: after the processing delay it stores the order,
// clears the cart, awards floor(total) purchase points to a signed-in
// shopper and completes a pending referral when an email was given.
// Cancelling ctx during the delay aborts without side effects. One checkout
// per session runs at a time.
func (s *CheckoutService) PlaceOrder(ctx context.Context, session model.Session, req CheckoutRequest) (*OrderResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.GiftMessage = strings.TrimSpace(req.GiftMessage)
	if req.PaymentMethod == "" {
		req.PaymentMethod = PaymentCard
	}
	if err := checkoutFieldErrors.check(req); err != nil {
		return nil, err
	}

	lockKey := checkoutLockKey(session.SessionID)
	if !s.locks.TryLock(lockKey) {
		return nil, ErrCheckoutInProgress
	}
	defer s.locks.Unlock(lockKey)

	quote, items, err := s.Quote(ctx, session, req.GiftWrap)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	if err := s.simulateProcessing(ctx); err != nil {
		log.Info().Str("session_id", session.SessionID).Msg("Checkout cancelled")
		return nil, err
	}

	applied, err := s.referral.AppliedCode(ctx, session)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:             idgen.New("ORD"),
		UserID:         session.UserID,
		Email:          req.Email,
		Items:          items,
		Quote:          *quote,
		PaymentMethod:  req.PaymentMethod,
		Status:         model.OrderProcessing,
		TrackingNumber: "TRK" + idgen.Digits(9),
		ReferralCode:   applied,
		CreatedAt:      s.now(),
	}
	if req.GiftWrap {
		order.GiftMessage = req.GiftMessage
	}

	// The order is committed from here on; later steps must not be cut
	// short by the caller going away.
	ctx = context.WithoutCancel(ctx)

	err = s.locks.WithLock("orders:"+session.UserID, func() error {
		return s.orders.Create(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}
	if err := s.cart.ClearCart(ctx, session); err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Msg("Failed to clear cart after order")
	}

	result := &OrderResult{Order: order}
	if !session.IsGuest() {
		result.Account = s.awardPurchase(ctx, session.UserID, order)
	}

	if req.Email != "" && applied != "" {
		ref, err := s.referral.CompleteReferral(ctx, session, req.Email)
		if err != nil {
			log.Error().Err(err).Str("order_id", order.ID).Msg("Failed to complete referral")
		}
		result.Referral = ref
	}

	log.Info().
		Str("order_id", order.ID).
		Str("user_id", session.UserID).
		Str("total", quote.Total.StringFixed(2)).
		Int64("points", quote.PointsToEarn).
		Msg("Order placed")

	return result, nil
}

// awardPurchase credits purchase points and lifetime spend for a placed
// order and returns the updated account. Failures are logged against the
// order rather than failing a checkout that is already stored.
func (s *CheckoutService) awardPurchase(ctx context.Context, userID string, order *model.Order) *model.LoyaltyAccount {
	quote := order.Quote
	if _, _, err := s.loyalty.AddPoints(ctx, userID, quote.PointsToEarn, model.TxPurchase,
		"Purchase of $"+quote.Total.StringFixed(2)); err != nil {
		log.Error().Err(err).Str("order_id", order.ID).Str("user_id", userID).Msg("Failed to award purchase points")
		return nil
	}
	if err := s.loyalty.RecordSpend(ctx, userID, quote.Total); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to record spend")
	}
	acct, err := s.loyalty.Account(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to reload loyalty account")
		return nil
	}
	return acct
}

func (s *CheckoutService) simulateProcessing(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrackOrder returns an order by id.
func (s *CheckoutService) TrackOrder(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.orders.Get(ctx, strings.TrimSpace(orderID))
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// Orders returns the user's orders, newest first.
func (s *CheckoutService) Orders(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, nil
}

// orderFlow lists the status each order status advances to.
var orderFlow = map[model.OrderStatus]model.OrderStatus{
	model.OrderProcessing: model.OrderShipped,
	model.OrderShipped:    model.OrderDelivered,
}

// AdvanceOrder moves an order to its next fulfilment status.
func (s *CheckoutService) AdvanceOrder(ctx context.Context, orderID string) (*model.Order, error) {
	s.locks.Lock("order:" + orderID)
	defer s.locks.Unlock("order:" + orderID)

	order, err := s.TrackOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, ok := orderFlow[order.Status]
	if !ok {
		return nil, fmt.Errorf("%w: order already %s", ErrInvalidTransition, order.Status)
	}
	order.Status = next
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	log.Info().Str("order_id", order.ID).Str("status", string(next)).Msg("Order advanced")
	return order, nil
}
