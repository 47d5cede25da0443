// Package main is the entry point for the Lovincraft storefront: the JSON
// API and, when a token is configured, the Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/api"
	"lovincraft-store/internal/bot"
	"lovincraft-store/internal/config"
	"lovincraft-store/internal/pkg/db"
	"lovincraft-store/internal/pkg/kv"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
	"lovincraft-store/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Log)
	log.Info().Str("backend", cfg.Storage.Backend).Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer storage.close()
	store := storage.store

	// Initialize repositories
	loyaltyRepo := repository.NewLoyaltyRepository(store)
	referralRepo := repository.NewReferralRepository(store)
	reviewRepo := repository.NewReviewRepository(store)
	supportRepo := repository.NewSupportRepository(store)
	cartRepo := repository.NewCartRepository(store)
	orderRepo := repository.NewOrderRepository(store)
	registryRepo := repository.NewRegistryRepository(store)
	preferenceRepo := repository.NewPreferenceRepository(store)
	wishlistRepo := repository.NewWishlistRepository(store)

	// One lock table serializes every read-modify-write on the store
	locks := lock.New()

	// Initialize services
	loyaltyService := service.NewLoyaltyService(loyaltyRepo, locks, cfg.Loyalty)
	referralService := service.NewReferralService(referralRepo, loyaltyService, locks, cfg.Referral)
	reviewService := service.NewReviewService(reviewRepo, loyaltyService, locks, cfg.Review, cfg.Loyalty.ReviewReward)
	supportService := service.NewSupportService(supportRepo, locks)
	cartService := service.NewCartService(cartRepo, locks)
	checkoutService := service.NewCheckoutService(
		cartService,
		loyaltyService,
		referralService,
		orderRepo,
		locks,
		cfg.Simulation.CheckoutDelay,
	)
	registryService := service.NewRegistryService(registryRepo, locks)
	newsletterService := service.NewNewsletterService(preferenceRepo, locks, cfg.Simulation.NewsletterDelay)
	preferenceService := service.NewPreferenceService(preferenceRepo)
	wishlistService := service.NewWishlistService(wishlistRepo, locks)
	dashboardService := service.NewDashboardService(
		loyaltyService,
		referralService,
		checkoutService,
		wishlistService,
		supportService,
	)

	server := api.New(&api.Dependencies{
		Config:     cfg,
		Loyalty:    loyaltyService,
		Referral:   referralService,
		Review:     reviewService,
		Support:    supportService,
		Cart:       cartService,
		Checkout:   checkoutService,
		Registry:   registryService,
		Newsletter: newsletterService,
		Preference: preferenceService,
		Wishlist:   wishlistService,
		Dashboard:  dashboardService,
		Health:     storage.health,
	})

	var telegramBot *bot.Bot
	if cfg.Bot.Token != "" {
		telegramBot, err = bot.New(&bot.Dependencies{
			Config:            cfg,
			LoyaltyService:    loyaltyService,
			ReferralService:   referralService,
			ReviewService:     reviewService,
			SupportService:    supportService,
			CartService:       cartService,
			CheckoutService:   checkoutService,
			WishlistService:   wishlistService,
			PreferenceService: preferenceService,
			NewsletterService: newsletterService,
			DashboardService:  dashboardService,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
	} else {
		log.Info().Msg("No bot token configured, Telegram bot disabled")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP API is starting...")
		serverErr <- server.Start()
	}()

	if telegramBot != nil {
		go func() {
			log.Info().Msg("Bot is starting...")
			telegramBot.Start()
		}()
	}

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP API stopped unexpectedly")
		}
	}

	// Graceful shutdown
	if telegramBot != nil {
		telegramBot.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP API")
	}
	log.Info().Msg("Storefront stopped gracefully")
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// backend is an open key-value store plus its lifecycle hooks.
type backend struct {
	store  kv.Store
	health func(context.Context) error
	close  func()
}

// openBackend opens the configured key-value backend.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory storage, data is lost on exit")
		store := kv.NewMemoryStore()
		return &backend{store: store, close: func() { _ = store.Close() }}, nil

	case config.BackendBolt:
		store, err := kv.NewBoltStore(cfg.Storage.BoltPath)
		if err != nil {
			return nil, err
		}
		return &backend{
			store: store,
			close: func() {
				if err := store.Close(); err != nil {
					log.Error().Err(err).Msg("Failed to close bolt store")
				}
			},
		}, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		// Run database migrations
		if err := db.Migrate(ctx, pool.Pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return &backend{
			store:  kv.NewPostgresStore(pool.Pool),
			health: pool.HealthCheck,
			close:  pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
