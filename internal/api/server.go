// Package api serves the storefront as a JSON HTTP API on gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/config"
	"lovincraft-store/internal/service"
)

// Dependencies holds the services the HTTP handlers call.
type Dependencies struct {
	Config     *config.Config
	Loyalty    *service.LoyaltyService
	Referral   *service.ReferralService
	Review     *service.ReviewService
	Support    *service.SupportService
	Cart       *service.CartService
	Checkout   *service.CheckoutService
	Registry   *service.RegistryService
	Newsletter *service.NewsletterService
	Preference *service.PreferenceService
	Wishlist   *service.WishlistService
	Dashboard  *service.DashboardService

	// Health reports backend readiness for /healthz; nil means always ready.
	Health func(context.Context) error
}

// Server is the HTTP front of the storefront.
type Server struct {
	deps    *Dependencies
	engine  *gin.Engine
	limiter *RateLimiter
	http    *http.Server
}

// New creates a Server with all routes registered.
func New(deps *Dependencies) *Server {
	gin.SetMode(gin.ReleaseMode)

	cfg := deps.Config.HTTP
	s := &Server{
		deps:    deps,
		engine:  gin.New(),
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

func (s *Server) registerMiddleware() {
	s.engine.Use(RecoveryMiddleware())
	s.engine.Use(LoggingMiddleware())
	s.engine.Use(s.limiter.Middleware())
	s.engine.Use(SessionMiddleware())
	s.engine.Use(ReferralMiddleware(s.deps.Referral))
}

func (s *Server) registerRoutes() {
	r := s.engine.Group("/api")

	r.GET("/products", s.listProducts)
	r.GET("/products/:id", s.getProduct)
	r.GET("/products/:id/reviews", s.listReviews)
	r.POST("/products/:id/reviews", s.submitReview)
	r.POST("/reviews/:id/helpful", s.markHelpful)

	r.GET("/cart", s.getCart)
	r.POST("/cart", s.addToCart)
	r.DELETE("/cart", s.clearCart)
	r.PATCH("/cart/:productId", s.updateCartItem)
	r.DELETE("/cart/:productId", s.removeCartItem)

	r.GET("/checkout/quote", s.quote)
	r.POST("/checkout", s.placeOrder)
	r.GET("/orders/:id", s.trackOrder)

	r.POST("/tickets", s.createTicket)
	r.GET("/tickets", s.listTickets)
	r.GET("/tickets/:id", s.getTicket)
	r.PATCH("/tickets/:id", s.updateTicket)
	r.POST("/tickets/:id/messages", s.addTicketMessage)
	r.POST("/tickets/:id/rating", s.rateTicket)
	r.POST("/tickets/:id/messages/:messageId/rating", s.rateTicketMessage)

	r.GET("/registries/:code", s.getRegistryByCode)
	r.POST("/registries/:id/items/:productId/purchase", s.purchaseRegistryItem)

	r.POST("/newsletter", s.subscribe)
	r.GET("/languages", s.listLanguages)
	r.GET("/language", s.getLanguage)
	r.PUT("/language", s.setLanguage)

	// Signed-in shoppers only.
	account := r.Group("", RequireUser())
	account.GET("/dashboard", s.dashboard)
	account.GET("/loyalty", s.loyalty)
	account.POST("/loyalty/withdraw", s.withdraw)
	account.POST("/loyalty/share", s.share)
	account.GET("/referral", s.referral)
	account.POST("/referral/apply", s.applyReferral)
	account.GET("/referral/qr", s.referralQR)
	account.GET("/wishlist", s.wishlist)
	account.POST("/wishlist/:productId", s.toggleWishlist)
	account.GET("/registries", s.myRegistries)
	account.POST("/registries", s.createRegistry)
	account.POST("/registries/:id/items", s.addRegistryItem)
	account.DELETE("/registries/:id", s.deleteRegistry)

	s.engine.GET("/healthz", s.healthz)
}

func (s *Server) healthz(c *gin.Context) {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request.Context()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Msg("Starting HTTP API...")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping HTTP API...")
	s.limiter.Stop()
	return s.http.Shutdown(ctx)
}
