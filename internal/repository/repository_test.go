package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/db"
	"lovincraft-store/internal/pkg/kv"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a kv store on it.
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (kv.Store, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return kv.NewPostgresStore(pool), cleanup
}

// ============================================================================
// LoyaltyRepository Tests
// ============================================================================

func TestLoyaltyRepository_AccountRoundTrip(t *testing.T) {
	repo := NewLoyaltyRepository(kv.NewMemoryStore())
	ctx := context.Background()

	_, err := repo.GetAccount(ctx, "u1")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	acct := &model.LoyaltyAccount{
		UserID:         "u1",
		Points:         600,
		Tier:           model.TierSilver,
		TotalSpent:     decimal.RequireFromString("64.97"),
		TotalPurchases: 1,
	}
	require.NoError(t, repo.SaveAccount(ctx, acct))

	got, err := repo.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(600), got.Points)
	assert.Equal(t, model.TierSilver, got.Tier)
	assert.True(t, acct.TotalSpent.Equal(got.TotalSpent))
}

func TestLoyaltyRepository_TransactionsDefaultEmpty(t *testing.T) {
	repo := NewLoyaltyRepository(kv.NewMemoryStore())
	ctx := context.Background()

	txs, err := repo.GetTransactions(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

// The stored document uses the storefront's field names.
func TestLoyaltyRepository_DocumentShape(t *testing.T) {
	store := kv.NewMemoryStore()
	repo := NewLoyaltyRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.SaveAccount(ctx, &model.LoyaltyAccount{UserID: "u1", Points: 10, Tier: model.TierBronze}))

	raw, err := store.Get(ctx, "lovincraft-loyalty-u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","points":10,"tier":"bronze","totalSpent":0,
		"totalPurchases":0,"totalReviews":0,"totalShares":0}`, string(raw))
}

// ============================================================================
// ReferralRepository Tests
// ============================================================================

func TestReferralRepository_FindOwnerUsesIndex(t *testing.T) {
	repo := NewReferralRepository(kv.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, repo.SaveCode(ctx, "abcd-user", "LOVINABCDXY12"))

	owner, err := repo.FindOwner(ctx, "LOVINABCDXY12")
	require.NoError(t, err)
	assert.Equal(t, "abcd-user", owner)

	_, err = repo.FindOwner(ctx, "LOVINNOPE0000")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestReferralRepository_FindOwnerScansLegacyCodes(t *testing.T) {
	store := kv.NewMemoryStore()
	repo := NewReferralRepository(store)
	ctx := context.Background()

	// A code written without the owner index.
	require.NoError(t, kv.SetJSON(ctx, store, "lovincraft-referral-code-legacy", "LOVINLEGA1234"))

	owner, err := repo.FindOwner(ctx, "LOVINLEGA1234")
	require.NoError(t, err)
	assert.Equal(t, "legacy", owner)

	// The scan backfilled the index.
	var indexed string
	found, err := kv.GetJSON(ctx, store, "lovincraft-referral-owner-LOVINLEGA1234", &indexed)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "legacy", indexed)
}

func TestReferralRepository_AppliedMarker(t *testing.T) {
	repo := NewReferralRepository(kv.NewMemoryStore())
	ctx := context.Background()

	code, err := repo.GetApplied(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, code)

	require.NoError(t, repo.SetApplied(ctx, "s1", "LOVINAB12CD34"))
	code, err = repo.GetApplied(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "LOVINAB12CD34", code)

	// Markers are per session.
	code, err = repo.GetApplied(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, code)

	require.NoError(t, repo.ClearApplied(ctx, "s1"))
	code, err = repo.GetApplied(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, code)
}

// ============================================================================
// CartRepository / OrderRepository Tests
// ============================================================================

func TestCartRepository_SaveAndClear(t *testing.T) {
	repo := NewCartRepository(kv.NewMemoryStore())
	ctx := context.Background()

	items := []model.CartItem{{ID: 1, Name: "The First Kiss Kit", Price: decimal.RequireFromString("34.99"), Quantity: 2}}
	require.NoError(t, repo.Save(ctx, "s1", items))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Quantity)

	require.NoError(t, repo.Clear(ctx, "s1"))
	got, err = repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOrderRepository_ListByUserNewestFirst(t *testing.T) {
	repo := NewOrderRepository(kv.NewMemoryStore())
	ctx := context.Background()

	for _, id := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		require.NoError(t, repo.Create(ctx, &model.Order{ID: id, UserID: "u1", Status: model.OrderProcessing}))
	}
	require.NoError(t, repo.Create(ctx, &model.Order{ID: "ORD-X", UserID: "u2"}))

	orders, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "ORD-3", orders[0].ID)
	assert.Equal(t, "ORD-1", orders[2].ID)

	_, err = repo.Get(ctx, "ORD-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.True(t, IsNotFound(err))
}

// ============================================================================
// PostgreSQL-backed round trip
// ============================================================================

func TestRepositories_Postgres(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	loyalty := NewLoyaltyRepository(store)
	require.NoError(t, loyalty.SaveAccount(ctx, &model.LoyaltyAccount{UserID: "pg-user", Points: 1500, Tier: model.TierGold}))
	acct, err := loyalty.GetAccount(ctx, "pg-user")
	require.NoError(t, err)
	assert.Equal(t, model.TierGold, acct.Tier)

	referrals := NewReferralRepository(store)
	require.NoError(t, kv.SetJSON(ctx, store, "lovincraft-referral-code-old", "LOVINOLD00000"))
	owner, err := referrals.FindOwner(ctx, "LOVINOLD00000")
	require.NoError(t, err)
	assert.Equal(t, "old", owner)

	reviews := NewReviewRepository(store)
	require.NoError(t, reviews.Save(ctx, []model.Review{{ID: "review-1", ProductID: 1, Rating: 5, Comment: "Perfect"}}))
	list, err := reviews.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Perfect", list[0].Comment)
}
