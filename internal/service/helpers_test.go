package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lovincraft-store/internal/config"
	"lovincraft-store/internal/pkg/kv"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
)

// testServices wires every service over one in-memory store.
type testServices struct {
	store     kv.Store
	loyalty   *LoyaltyService
	referral  *ReferralService
	review    *ReviewService
	support   *SupportService
	cart      *CartService
	checkout  *CheckoutService
	registry  *RegistryService
	wishlist  *WishlistService
	dashboard *DashboardService
}

func testLoyaltyConfig() config.LoyaltyConfig {
	return config.LoyaltyConfig{PointsPerDollar: 100, ReviewReward: 50, ShareReward: 10}
}

func testReferralConfig() config.ReferralConfig {
	return config.ReferralConfig{
		BaseURL:       "https://lovincraft.com",
		Bonus:         100,
		CreditLoyalty: true,
		QRSize:        128,
	}
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	return newTestServicesOn(t, kv.NewMemoryStore())
}

// newTestServicesOn wires every service over store.
func newTestServicesOn(t *testing.T, store kv.Store) *testServices {
	t.Helper()

	locks := lock.New()

	loyalty := NewLoyaltyService(repository.NewLoyaltyRepository(store), locks, testLoyaltyConfig())
	referral := NewReferralService(repository.NewReferralRepository(store), loyalty, locks, testReferralConfig())
	cart := NewCartService(repository.NewCartRepository(store), locks)
	checkout := NewCheckoutService(cart, loyalty, referral, repository.NewOrderRepository(store), locks, 0)
	support := NewSupportService(repository.NewSupportRepository(store), locks)
	wishlist := NewWishlistService(repository.NewWishlistRepository(store), locks)

	return &testServices{
		store:    store,
		loyalty:  loyalty,
		referral: referral,
		review: NewReviewService(repository.NewReviewRepository(store), loyalty, locks,
			config.ReviewConfig{MaxPhotoBytes: 5 * 1024 * 1024, MaxPhotos: 6}, 50),
		support:   support,
		cart:      cart,
		checkout:  checkout,
		registry:  NewRegistryService(repository.NewRegistryRepository(store), locks),
		wishlist:  wishlist,
		dashboard: NewDashboardService(loyalty, referral, checkout, wishlist, support),
	}
}

// failingStore rejects writes to keys under prefix.
type failingStore struct {
	kv.Store
	prefix string
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if strings.HasPrefix(key, f.prefix) {
		return errors.New("store unavailable")
	}
	return f.Store.Set(ctx, key, value)
}
