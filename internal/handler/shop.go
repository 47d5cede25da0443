package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"lovincraft-store/internal/catalog"
	"lovincraft-store/internal/model"
	"lovincraft-store/internal/service"
	"lovincraft-store/internal/shop"
)

// ShopHandler handles browsing, the cart and checkout.
type ShopHandler struct {
	cartService     *service.CartService
	checkoutService *service.CheckoutService
	loyaltyService  *service.LoyaltyService
	referralService *service.ReferralService
	reviewService   *service.ReviewService
	wishlistService *service.WishlistService

	// gift wrap choice per session, toggled from the cart panel
	wrapMu   sync.Mutex
	giftWrap map[string]bool
}

// NewShopHandler creates a new ShopHandler
func NewShopHandler(
	cartService *service.CartService,
	checkoutService *service.CheckoutService,
	loyaltyService *service.LoyaltyService,
	referralService *service.ReferralService,
	reviewService *service.ReviewService,
	wishlistService *service.WishlistService,
) *ShopHandler {
	return &ShopHandler{
		cartService:     cartService,
		checkoutService: checkoutService,
		loyaltyService:  loyaltyService,
		referralService: referralService,
		reviewService:   reviewService,
		wishlistService: wishlistService,
		giftWrap:        make(map[string]bool),
	}
}

func (h *ShopHandler) wrapFor(sessionID string) bool {
	h.wrapMu.Lock()
	defer h.wrapMu.Unlock()
	return h.giftWrap[sessionID]
}

func (h *ShopHandler) toggleWrap(sessionID string) bool {
	h.wrapMu.Lock()
	defer h.wrapMu.Unlock()
	h.giftWrap[sessionID] = !h.giftWrap[sessionID]
	return h.giftWrap[sessionID]
}

func (h *ShopHandler) resetWrap(sessionID string) {
	h.wrapMu.Lock()
	defer h.wrapMu.Unlock()
	delete(h.giftWrap, sessionID)
}

// HandleStart handles /start. A deep-link payload (t.me/bot?start=CODE)
// is applied as a referral code.
func (h *ShopHandler) HandleStart(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	session := sessionFor(sender)

	if payload := strings.TrimSpace(c.Message().Payload); payload != "" {
		applied, err := h.referralService.ApplyReferralCode(ctx, session, payload)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to apply referral from start link")
		} else if applied {
			if err := c.Send("🎉 Referral code " + service.NormalizeCode(payload) + " applied! Your friend earns a bonus when you check out with your email."); err != nil {
				return err
			}
		}
	}

	return h.HandleShop(c)
}

// HandleShop handles /shop to show the catalog panel
func (h *ShopHandler) HandleShop(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acct, err := h.loyaltyService.Account(ctx, sessionFor(sender).UserID)
	if err != nil {
		return replyError(c, err)
	}
	return c.Send(shop.FormatShopMessage(acct.Points, acct.Tier), shop.BuildShopPanel())
}

// HandleAdd handles /add <product_id> [quantity]
func (h *ShopHandler) HandleAdd(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	productID, qty, err := parseAddArgs(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	notice, err := h.cartService.AddProduct(ctx, sessionFor(sender), productID, qty, nil)
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply("🛒 " + notice.Message + "\n\nView your cart with /cart")
}

// parseAddArgs parses "/add <product_id> [quantity]".
func parseAddArgs(args []string) (productID, quantity int, err error) {
	if len(args) < 1 {
		return 0, 0, errors.New("❌ Usage: /add <product_id> [quantity]")
	}
	productID, err = strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, errors.New("❌ Invalid product id")
	}
	quantity = 1
	if len(args) > 1 {
		quantity, err = strconv.Atoi(args[1])
		if err != nil || quantity <= 0 {
			return 0, 0, errors.New("❌ Quantity must be a positive number")
		}
	}
	return productID, quantity, nil
}

// HandleCart handles /cart
func (h *ShopHandler) HandleCart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	msg, markup, err := h.cartView(sessionFor(sender))
	if err != nil {
		return replyError(c, err)
	}
	return c.Send(msg, markup)
}

func (h *ShopHandler) cartView(session model.Session) (string, *tele.ReplyMarkup, error) {
	ctx, cancel := handlerContext()
	defer cancel()

	wrap := h.wrapFor(session.SessionID)
	quote, items, err := h.checkoutService.Quote(ctx, session, wrap)
	if err != nil {
		return "", nil, err
	}
	lines := shop.CartLines(items)
	return shop.FormatCart(lines, *quote), shop.BuildCartPanel(lines, wrap), nil
}

// HandleCheckout handles /checkout [email]. The email is needed for a
// pending referral to be credited.
func (h *ShopHandler) HandleCheckout(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	var email string
	if args := c.Args(); len(args) > 0 {
		email = args[0]
	}
	return h.placeOrder(c, sessionFor(sender), email)
}

func (h *ShopHandler) placeOrder(c tele.Context, session model.Session, email string) error {
	ctx, cancel := handlerContext()
	defer cancel()

	_ = c.Notify(tele.Typing)

	result, err := h.checkoutService.PlaceOrder(ctx, session, service.CheckoutRequest{
		Email:    email,
		GiftWrap: h.wrapFor(session.SessionID),
	})
	if err != nil {
		return replyError(c, err)
	}
	h.resetWrap(session.SessionID)

	msg := "✅ Order placed!\n\n" + shop.FormatOrder(result.Order)
	if result.Account != nil {
		msg += fmt.Sprintf("\n\n⭐ +%d points · balance %d", result.Order.Quote.PointsToEarn, result.Account.Points)
	}
	if result.Referral != nil {
		msg += "\n💌 Thanks for joining through a friend's referral!"
	}
	return c.Send(msg)
}

// HandleTrack handles /track <order_id>
func (h *ShopHandler) HandleTrack(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /track <order_id>")
	}
	order, err := h.checkoutService.TrackOrder(ctx, args[0])
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply(shop.FormatOrder(order))
}

// HandleShopCallback handles shop and cart button callbacks
func (h *ShopHandler) HandleShopCallback(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	callback := c.Callback()
	sender := c.Sender()
	if callback == nil || sender == nil {
		return nil
	}
	session := sessionFor(sender)
	data := callback.Data

	switch {
	case data == shop.CallbackShopBack:
		acct, err := h.loyaltyService.Account(ctx, session.UserID)
		if err != nil {
			return replyError(c, err)
		}
		return c.Edit(shop.FormatShopMessage(acct.Points, acct.Tier), shop.BuildShopPanel())

	case data == shop.CallbackShopCart:
		return h.editCart(c, session)

	case data == shop.CallbackCartWrap:
		h.toggleWrap(session.SessionID)
		return h.editCart(c, session)

	case data == shop.CallbackCartClear:
		if err := h.cartService.ClearCart(ctx, session); err != nil {
			return replyError(c, err)
		}
		h.resetWrap(session.SessionID)
		_ = c.Respond(&tele.CallbackResponse{Text: "🧹 Cart cleared"})
		return h.editCart(c, session)

	case data == shop.CallbackCartConfirm:
		if h.checkoutService.InProgress(session) {
			return c.Respond(&tele.CallbackResponse{Text: "⏳ Your order is already being processed"})
		}
		_ = c.Respond(&tele.CallbackResponse{Text: "⏳ Processing your order..."})
		return h.placeOrder(c, session, "")
	}

	if id, ok := shop.ParseProductCallback(data, shop.CallbackShopItem); ok {
		return h.showProduct(c, session, id)
	}

	if id, ok := shop.ParseProductCallback(data, shop.CallbackShopAdd); ok {
		notice, err := h.cartService.AddProduct(ctx, session, id, 1, nil)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "❌ " + err.Error(), ShowAlert: true})
		}
		return c.Respond(&tele.CallbackResponse{Text: "✅ " + notice.Message})
	}

	if id, ok := shop.ParseProductCallback(data, shop.CallbackShopWish); ok {
		if _, err := h.wishlistService.Toggle(ctx, session.UserID, id); err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "❌ " + err.Error(), ShowAlert: true})
		}
		return h.showProduct(c, session, id)
	}

	if id, ok := shop.ParseProductCallback(data, shop.CallbackCartRemove); ok {
		notice, err := h.cartService.RemoveFromCart(ctx, session, id)
		if err != nil {
			return replyError(c, err)
		}
		if notice != nil {
			_ = c.Respond(&tele.CallbackResponse{Text: notice.Message})
		}
		return h.editCart(c, session)
	}

	return nil
}

func (h *ShopHandler) editCart(c tele.Context, session model.Session) error {
	msg, markup, err := h.cartView(session)
	if err != nil {
		return replyError(c, err)
	}
	return c.Edit(msg, markup)
}

func (h *ShopHandler) showProduct(c tele.Context, session model.Session, productID int) error {
	ctx, cancel := handlerContext()
	defer cancel()

	p, ok := catalog.Get(productID)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Product not found"})
	}
	rating, err := h.reviewService.ProductRating(ctx, productID)
	if err != nil {
		return replyError(c, err)
	}
	saved, err := h.wishlistService.Contains(ctx, session.UserID, productID)
	if err != nil {
		return replyError(c, err)
	}
	return c.Edit(shop.FormatProductDetail(p, rating.Average, rating.Count), shop.BuildProductPanel(productID, saved))
}
