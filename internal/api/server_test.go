package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovincraft-store/internal/config"
	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
	"lovincraft-store/internal/service"
)

func newTestServer(t *testing.T, rateLimit float64, burst int) (*Server, *Dependencies) {
	t.Helper()

	cfg := &config.Config{
		HTTP: config.HTTPConfig{Addr: ":0", RateLimit: rateLimit, RateBurst: burst},
		Loyalty: config.LoyaltyConfig{
			PointsPerDollar: 100,
			ReviewReward:    50,
			ShareReward:     10,
		},
		Referral: config.ReferralConfig{
			BaseURL:       "https://lovincraft.com",
			Bonus:         100,
			CreditLoyalty: true,
			QRSize:        128,
		},
		Review: config.ReviewConfig{MaxPhotoBytes: 1024, MaxPhotos: 2},
	}

	store := kv.NewMemoryStore()
	locks := lock.New()
	loyalty := service.NewLoyaltyService(repository.NewLoyaltyRepository(store), locks, cfg.Loyalty)
	referral := service.NewReferralService(repository.NewReferralRepository(store), loyalty, locks, cfg.Referral)
	cart := service.NewCartService(repository.NewCartRepository(store), locks)
	checkout := service.NewCheckoutService(cart, loyalty, referral, repository.NewOrderRepository(store), locks, 0)
	support := service.NewSupportService(repository.NewSupportRepository(store), locks)
	wishlist := service.NewWishlistService(repository.NewWishlistRepository(store), locks)
	prefs := repository.NewPreferenceRepository(store)

	deps := &Dependencies{
		Config:     cfg,
		Loyalty:    loyalty,
		Referral:   referral,
		Review:     service.NewReviewService(repository.NewReviewRepository(store), loyalty, locks, cfg.Review, cfg.Loyalty.ReviewReward),
		Support:    support,
		Cart:       cart,
		Checkout:   checkout,
		Registry:   service.NewRegistryService(repository.NewRegistryRepository(store), locks),
		Newsletter: service.NewNewsletterService(prefs, locks, 0),
		Preference: service.NewPreferenceService(prefs),
		Wishlist:   wishlist,
		Dashboard:  service.NewDashboardService(loyalty, referral, checkout, wishlist, support),
	}
	srv := New(deps)
	t.Cleanup(srv.limiter.Stop)
	return srv, deps
}

// do sends a request as userID (empty for a guest) and returns the recorder.
func do(t *testing.T, srv *Server, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

// doWith sends a request with the given raw headers, for callers that
// carry a session rather than a user id.
func doWith(t *testing.T, srv *Server, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestProducts(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	w := do(t, srv, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["products"], 6)

	w = do(t, srv, http.MethodGet, "/api/products?category=Basic+Ingredients", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["products"], 3)

	w = do(t, srv, http.MethodGet, "/api/products/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "The First Kiss Kit", body["name"])
	assert.Equal(t, true, body["customizable"])

	w = do(t, srv, http.MethodGet, "/api/products/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, srv, http.MethodGet, "/api/products/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviews(t *testing.T) {
	srv, deps := newTestServer(t, 0, 0)

	w := do(t, srv, http.MethodPost, "/api/products/1/reviews", "u1", obj{"userName": "Sarah", "rating": 0, "comment": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/api/products/1/reviews", "u1", obj{"userName": "Sarah", "rating": 5, "comment": "Lovely"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = do(t, srv, http.MethodPost, "/api/reviews/"+id+"/helpful", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["helpful"])

	w = do(t, srv, http.MethodGet, "/api/products/1/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["reviews"], 1)

	acct, err := deps.Loyalty.Account(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), acct.Points)
}

func TestCartAndCheckout(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	w := do(t, srv, http.MethodPost, "/api/checkout", "u1", obj{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, srv, http.MethodPost, "/api/cart", "u1", obj{"productId": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "added", decode(t, w)["kind"])

	w = do(t, srv, http.MethodPost, "/api/cart", "u1", obj{"productId": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "quantity_updated", decode(t, w)["kind"])

	w = do(t, srv, http.MethodGet, "/api/cart", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["itemCount"])

	w = do(t, srv, http.MethodPatch, "/api/cart/1", "u1", obj{"quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/api/checkout/quote?giftWrap=true", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	quote := decode(t, w)["quote"].(map[string]any)
	assert.EqualValues(t, 46.97, quote["total"]) // 34.99 + 5.99 wrap + 5.99 shipping

	w = do(t, srv, http.MethodPost, "/api/checkout", "u1", obj{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodPost, "/api/checkout", "u1", obj{"email": "u1@example.com", "giftWrap": true})
	require.Equal(t, http.StatusCreated, w.Code)
	order := decode(t, w)["order"].(map[string]any)

	w = do(t, srv, http.MethodGet, "/api/orders/"+order["id"].(string), "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "processing", decode(t, w)["status"])

	w = do(t, srv, http.MethodDelete, "/api/cart/1", "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "cart was cleared by checkout")
}

func TestGuestSessionsAreIsolated(t *testing.T) {
	srv, deps := newTestServer(t, 0, 0)
	ctx := context.Background()

	code, err := deps.Referral.ReferralCode(ctx, "owner")
	require.NoError(t, err)

	// Guest A arrives through a referral link and is handed a session.
	w := doWith(t, srv, http.MethodGet, "/api/products?ref="+code, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sidA := w.Header().Get(HeaderSessionID)
	require.True(t, strings.HasPrefix(sidA, "anon-"), sidA)
	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == SessionCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, sidA, cookie.Value)

	guestA := map[string]string{HeaderSessionID: sidA}
	w = doWith(t, srv, http.MethodPost, "/api/cart", guestA, obj{"productId": 1})
	require.Equal(t, http.StatusOK, w.Code)

	// The cookie alone resumes the same session.
	w = doWith(t, srv, http.MethodGet, "/api/cart", map[string]string{"Cookie": SessionCookie + "=" + sidA}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["itemCount"])

	// Guest B sends no identity and sees neither the cart nor the referral.
	w = doWith(t, srv, http.MethodGet, "/api/cart", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["itemCount"])
	assert.NotEqual(t, sidA, w.Header().Get(HeaderSessionID))

	w = doWith(t, srv, http.MethodPost, "/api/checkout", nil, obj{"email": "b@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	refs, err := deps.Referral.Referrals(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, refs)

	// Guest A checks out: the referral is credited and no points are pooled.
	w = doWith(t, srv, http.MethodPost, "/api/checkout", guestA, obj{"email": "a@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Nil(t, body["account"])
	assert.NotNil(t, body["referral"])

	refs, err = deps.Referral.Referrals(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, refs, 1)

	pct, err := deps.Loyalty.GetDiscountPercentage(ctx, model.GuestUserID)
	require.NoError(t, err)
	assert.Equal(t, 0, pct)
}

func TestGuestQuoteHasNoDiscount(t *testing.T) {
	srv, deps := newTestServer(t, 0, 0)
	ctx := context.Background()

	// Points left on the shared guest id by older data must not leak.
	_, _, err := deps.Loyalty.AddPoints(ctx, model.GuestUserID, 2000, model.TxPurchase, "Legacy guest purchases")
	require.NoError(t, err)

	guest := map[string]string{HeaderSessionID: "anon-quote"}
	w := doWith(t, srv, http.MethodPost, "/api/cart", guest, obj{"productId": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = doWith(t, srv, http.MethodGet, "/api/checkout/quote", guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	quote := decode(t, w)["quote"].(map[string]any)
	assert.EqualValues(t, 0, quote["discountPercent"])
}

func TestAccountRoutesRequireUser(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	for _, path := range []string{"/api/dashboard", "/api/loyalty", "/api/referral", "/api/wishlist"} {
		w := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := do(t, srv, http.MethodGet, "/api/dashboard?tab=loyalty", "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, srv, http.MethodGet, "/api/dashboard?tab=nope", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReferralLinkDetection(t *testing.T) {
	srv, deps := newTestServer(t, 0, 0)
	ctx := context.Background()

	code, err := deps.Referral.ReferralCode(ctx, "owner")
	require.NoError(t, err)

	// Any request carrying ?ref= applies the code to the caller's session.
	w := do(t, srv, http.MethodGet, "/api/products?ref="+code, "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/api/referral", "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, code, decode(t, w)["appliedCode"])

	w = do(t, srv, http.MethodPost, "/api/cart", "buyer", obj{"productId": 2})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, srv, http.MethodPost, "/api/checkout", "buyer", obj{"email": "friend@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotNil(t, decode(t, w)["referral"])

	refs, err := deps.Referral.Referrals(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestReferralQR(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)
	w := do(t, srv, http.MethodGet, "/api/referral/qr", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestWithdraw(t *testing.T) {
	srv, deps := newTestServer(t, 0, 0)
	_, _, err := deps.Loyalty.RecordShare(context.Background(), "u1", "facebook")
	require.NoError(t, err)

	w := do(t, srv, http.MethodPost, "/api/loyalty/withdraw", "u1", obj{"points": 500})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = do(t, srv, http.MethodPost, "/api/loyalty/withdraw", "u1", obj{"points": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, srv, http.MethodPost, "/api/loyalty/withdraw", "u1", obj{"points": 10})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTickets(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	w := do(t, srv, http.MethodPost, "/api/tickets", "", obj{"subject": "Late", "description": "Where is it?", "email": "a@b.co"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = do(t, srv, http.MethodPatch, "/api/tickets/"+id, "", obj{"status": "resolved"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = do(t, srv, http.MethodPatch, "/api/tickets/"+id, "", obj{"status": "in-progress"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodPost, "/api/tickets/"+id+"/messages", "", obj{"text": "Any news?"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, srv, http.MethodGet, "/api/tickets?email=a@b.co", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["tickets"], 1)

	w = do(t, srv, http.MethodGet, "/api/tickets/TICKET-missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegistries(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	w := do(t, srv, http.MethodPost, "/api/registries", "u1", obj{"name": "Our Wedding", "occasion": "wedding", "date": "June"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.ErrInvalidDate.Error(), decode(t, w)["error"])

	w = do(t, srv, http.MethodPost, "/api/registries", "u1", obj{"name": "Our Wedding", "occasion": "wedding"})
	require.Equal(t, http.StatusCreated, w.Code)
	reg := decode(t, w)
	id, code := reg["id"].(string), reg["shareCode"].(string)

	w = do(t, srv, http.MethodPost, "/api/registries/"+id+"/items", "u2", obj{"productId": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, srv, http.MethodPost, "/api/registries/"+id+"/items", "u1", obj{"productId": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodPost, "/api/registries/"+id+"/items/1/purchase", "", obj{"name": "Aunt May"})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, srv, http.MethodPost, "/api/registries/"+id+"/items/1/purchase", "", obj{"name": "Aunt May"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, srv, http.MethodGet, "/api/registries/"+code, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodDelete, "/api/registries/"+id, "u1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestNewsletterAndLanguage(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	w := do(t, srv, http.MethodPost, "/api/newsletter", "", obj{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, srv, http.MethodPost, "/api/newsletter", "", obj{"email": "a@b.co"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["new"])

	w = do(t, srv, http.MethodPut, "/api/language", "u1", obj{"code": "ar"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["rtl"])
	w = do(t, srv, http.MethodGet, "/api/language", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ar", decode(t, w)["code"])
	w = do(t, srv, http.MethodPut, "/api/language", "u1", obj{"code": "xx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, 1, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, srv, http.MethodGet, "/healthz", "", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestHealthz(t *testing.T) {
	srv, deps := newTestServer(t, 0, 0)

	w := do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	deps.Health = func(context.Context) error { return assert.AnError }
	w = do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", decode(t, w)["status"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(service.ErrTicketNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(service.ErrInvalidRating))
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrCheckoutInProgress))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

// obj is a JSON body shorthand.
type obj = map[string]any
