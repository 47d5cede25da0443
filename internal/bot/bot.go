// Package bot provides the Telegram storefront bot initialization and
// handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"lovincraft-store/internal/config"
	"lovincraft-store/internal/handler"
	"lovincraft-store/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	// Handlers
	shopHandler    *handler.ShopHandler
	accountHandler *handler.AccountHandler
	supportHandler *handler.SupportHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config            *config.Config
	LoyaltyService    *service.LoyaltyService
	ReferralService   *service.ReferralService
	ReviewService     *service.ReviewService
	SupportService    *service.SupportService
	CartService       *service.CartService
	CheckoutService   *service.CheckoutService
	WishlistService   *service.WishlistService
	PreferenceService *service.PreferenceService
	NewsletterService *service.NewsletterService
	DashboardService  *service.DashboardService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	// Initialize handlers
	b.shopHandler = handler.NewShopHandler(
		deps.CartService,
		deps.CheckoutService,
		deps.LoyaltyService,
		deps.ReferralService,
		deps.ReviewService,
		deps.WishlistService,
	)
	b.accountHandler = handler.NewAccountHandler(
		deps.LoyaltyService,
		deps.ReferralService,
		deps.DashboardService,
		deps.WishlistService,
		deps.PreferenceService,
		deps.NewsletterService,
	)
	b.supportHandler = handler.NewSupportHandler(deps.ReviewService, deps.SupportService)
	b.adminHandler = handler.NewAdminHandler(b.supportHandler, deps.SupportService, deps.CheckoutService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(PrivateChatMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Shop handlers
	b.bot.Handle("/start", b.shopHandler.HandleStart)
	b.bot.Handle("/shop", b.shopHandler.HandleShop)
	b.bot.Handle("/add", b.shopHandler.HandleAdd)
	b.bot.Handle("/cart", b.shopHandler.HandleCart)
	b.bot.Handle("/checkout", b.shopHandler.HandleCheckout)
	b.bot.Handle("/track", b.shopHandler.HandleTrack)

	// Account handlers
	b.bot.Handle("/points", b.accountHandler.HandlePoints)
	b.bot.Handle("/withdraw", b.accountHandler.HandleWithdraw)
	b.bot.Handle("/referral", b.accountHandler.HandleReferral)
	b.bot.Handle("/apply", b.accountHandler.HandleApply)
	b.bot.Handle("/share", b.accountHandler.HandleShare)
	b.bot.Handle("/wishlist", b.accountHandler.HandleWishlist)
	b.bot.Handle("/language", b.accountHandler.HandleLanguage)
	b.bot.Handle("/subscribe", b.accountHandler.HandleSubscribe)

	// Review and support handlers
	b.bot.Handle("/review", b.supportHandler.HandleReview)
	b.bot.Handle("/ticket", b.supportHandler.HandleTicket)
	b.bot.Handle("/tickets", b.supportHandler.HandleTickets)
	b.bot.Handle("/reply", b.supportHandler.HandleReply)
	b.bot.Handle("/rate_ticket", b.supportHandler.HandleRateTicket)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/ticket_status", b.adminHandler.HandleTicketStatus)
	adminGroup.Handle("/ticket_reply", b.adminHandler.HandleTicketReply)
	adminGroup.Handle("/order_advance", b.adminHandler.HandleOrderAdvance)

	// Inline keyboard buttons
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")
	callback.Data = data
	log.Debug().Str("data", data).Msg("Callback received")

	if strings.HasPrefix(data, "shop_") || strings.HasPrefix(data, "cart_") {
		return b.shopHandler.HandleShopCallback(c)
	}
	return c.Respond()
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
