// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"lovincraft-store/internal/config"
	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/idgen"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
)

// Loyalty errors.
var (
	ErrMissingUser            = errors.New("user id is required")
	ErrInvalidTransactionType = errors.New("unknown transaction type")
	ErrInvalidPoints          = errors.New("points must be positive")
	ErrInsufficientPoints     = errors.New("insufficient points")
)

// TierInfo describes a loyalty tier.
type TierInfo struct {
	Tier      model.Tier `json:"tier"`
	Name      string     `json:"name"`
	MinPoints int64      `json:"minPoints"`
	Discount  int        `json:"discount"`
	Benefits  []string   `json:"benefits"`
}

// tiers is ordered by ascending threshold.
var tiers = []TierInfo{
	{
		Tier:      model.TierBronze,
		Name:      "Bronze Baker",
		MinPoints: 0,
		Discount:  5,
		Benefits:  []string{"5% discount on all purchases", "Early access to new products", "Birthday bonus points"},
	},
	{
		Tier:      model.TierSilver,
		Name:      "Silver Chef",
		MinPoints: 500,
		Discount:  10,
		Benefits:  []string{"10% discount on all purchases", "Free shipping on orders over $50", "Exclusive recipe access", "Priority customer support"},
	},
	{
		Tier:      model.TierGold,
		Name:      "Gold Artisan",
		MinPoints: 1500,
		Discount:  15,
		Benefits:  []string{"15% discount on all purchases", "Free shipping on all orders", "Monthly free sample kit", "VIP customer support", "Access to masterclasses"},
	},
	{
		Tier:      model.TierPlatinum,
		Name:      "Platinum Master",
		MinPoints: 3000,
		Discount:  20,
		Benefits:  []string{"20% discount on all purchases", "Free shipping worldwide", "Quarterly premium gift box", "24/7 VIP support", "Exclusive masterclass invitations", "First access to limited editions"},
	},
}

// AllTiers returns every tier, lowest first.
func AllTiers() []TierInfo {
	out := make([]TierInfo, len(tiers))
	copy(out, tiers)
	return out
}

// TierFromPoints returns the highest tier whose threshold is at or below
// points. Negative balances stay bronze.
func TierFromPoints(points int64) model.Tier {
	tier := tiers[0].Tier
	for _, t := range tiers {
		if points >= t.MinPoints {
			tier = t.Tier
		}
	}
	return tier
}

// TierBenefits returns the description of a tier. Unknown tiers describe
// bronze.
func TierBenefits(tier model.Tier) TierInfo {
	for _, t := range tiers {
		if t.Tier == tier {
			return t
		}
	}
	return tiers[0]
}

// NextTier returns the next tier above points and how many points are
// still needed. ok is false at the top tier.
func NextTier(points int64) (next TierInfo, remaining int64, ok bool) {
	for _, t := range tiers {
		if t.MinPoints > points {
			return t, t.MinPoints - points, true
		}
	}
	return TierInfo{}, 0, false
}

// LoyaltyService manages points balances, tiers and the points log.
type LoyaltyService struct {
	repo  *repository.LoyaltyRepository
	locks *lock.KeyLock
	cfg   config.LoyaltyConfig
	now   func() time.Time
}

// NewLoyaltyService creates a new LoyaltyService instance.
func NewLoyaltyService(repo *repository.LoyaltyRepository, locks *lock.KeyLock, cfg config.LoyaltyConfig) *LoyaltyService {
	return &LoyaltyService{
		repo:  repo,
		locks: locks,
		cfg:   cfg,
		now:   time.Now,
	}
}

func loyaltyLockKey(userID string) string { return "loyalty:" + userID }

// Account returns the user's account, creating the default zero state on
// first access. A configured signup bonus is awarded on creation.
func (s *LoyaltyService) Account(ctx context.Context, userID string) (*model.LoyaltyAccount, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	if err := s.locks.LockContext(ctx, loyaltyLockKey(userID)); err != nil {
		return nil, err
	}
	defer s.locks.Unlock(loyaltyLockKey(userID))

	acct, created, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !created {
		return acct, nil
	}

	if err := s.repo.SaveAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("failed to create loyalty account: %w", err)
	}
	log.Debug().Str("user_id", userID).Msg("Loyalty account created")

	if s.cfg.SignupBonus > 0 {
		acct, _, err = s.addPointsLocked(ctx, acct, s.cfg.SignupBonus, model.TxSignup, "Welcome bonus")
		if err != nil {
			return nil, err
		}
	}
	return acct, nil
}

// Transactions returns the user's points log, newest first.
func (s *LoyaltyService) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	txs, err := s.repo.GetTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return txs, nil
}

// AddPoints applies amount (which may be negative) to the user's balance,
// recomputes the tier, bumps the activity counter for purchase, review and
// share, and prepends a transaction to the log. Every call records a new
// transaction; callers must not retry blindly.
func (s *LoyaltyService) AddPoints(ctx context.Context, userID string, amount int64, txType model.TransactionType, description string) (*model.LoyaltyAccount, *model.Transaction, error) {
	if userID == "" {
		return nil, nil, ErrMissingUser
	}
	if !txType.Valid() {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidTransactionType, txType)
	}

	if err := s.locks.LockContext(ctx, loyaltyLockKey(userID)); err != nil {
		return nil, nil, err
	}
	defer s.locks.Unlock(loyaltyLockKey(userID))

	acct, _, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return s.addPointsLocked(ctx, acct, amount, txType, description)
}

// addPointsLocked must be called with the user's loyalty lock held.
func (s *LoyaltyService) addPointsLocked(ctx context.Context, acct *model.LoyaltyAccount, amount int64, txType model.TransactionType, description string) (*model.LoyaltyAccount, *model.Transaction, error) {
	previousTier := acct.Tier

	acct.Points += amount
	acct.Tier = TierFromPoints(acct.Points)
	switch txType {
	case model.TxPurchase:
		acct.TotalPurchases++
	case model.TxReview:
		acct.TotalReviews++
	case model.TxShare:
		acct.TotalShares++
	}

	tx := model.Transaction{
		ID:          idgen.New("trans"),
		UserID:      acct.UserID,
		Points:      amount,
		Type:        txType,
		Description: description,
		Date:        s.now(),
	}

	txs, err := s.repo.GetTransactions(ctx, acct.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	txs = append([]model.Transaction{tx}, txs...)

	if err := s.repo.SaveAccount(ctx, acct); err != nil {
		return nil, nil, fmt.Errorf("failed to save loyalty account: %w", err)
	}
	if err := s.repo.SaveTransactions(ctx, acct.UserID, txs); err != nil {
		return nil, nil, fmt.Errorf("failed to save transactions: %w", err)
	}

	event := log.Info().
		Str("user_id", acct.UserID).
		Int64("points", amount).
		Str("type", string(txType)).
		Int64("balance", acct.Points)
	if acct.Tier != previousTier {
		event = event.Str("tier", string(acct.Tier))
	}
	event.Msg("Points recorded")

	return acct, &tx, nil
}

// loadOrCreate returns the stored account or a fresh bronze one.
func (s *LoyaltyService) loadOrCreate(ctx context.Context, userID string) (*model.LoyaltyAccount, bool, error) {
	acct, err := s.repo.GetAccount(ctx, userID)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, false, fmt.Errorf("failed to load loyalty account: %w", err)
	}
	return &model.LoyaltyAccount{
		UserID:     userID,
		Tier:       model.TierBronze,
		TotalSpent: decimal.Zero,
	}, true, nil
}

// GetDiscountPercentage returns the user's tier discount, or 0 when the
// user has no stored account.
func (s *LoyaltyService) GetDiscountPercentage(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	acct, err := s.repo.GetAccount(ctx, userID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get discount: %w", err)
	}
	return TierBenefits(acct.Tier).Discount, nil
}

// RecordSpend adds a completed purchase amount to the account's lifetime
// spend.
func (s *LoyaltyService) RecordSpend(ctx context.Context, userID string, amount decimal.Decimal) error {
	if userID == "" {
		return ErrMissingUser
	}

	if err := s.locks.LockContext(ctx, loyaltyLockKey(userID)); err != nil {
		return err
	}
	defer s.locks.Unlock(loyaltyLockKey(userID))

	acct, _, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	acct.TotalSpent = acct.TotalSpent.Add(amount)
	if err := s.repo.SaveAccount(ctx, acct); err != nil {
		return fmt.Errorf("failed to record spend: %w", err)
	}
	return nil
}

// Withdrawal is the result of cashing out points.
type Withdrawal struct {
	Points      int64                 `json:"points"`
	CashValue   decimal.Decimal       `json:"cashValue"`
	Account     *model.LoyaltyAccount `json:"account"`
	Transaction *model.Transaction    `json:"transaction"`
}

// WithdrawPoints debits points from the balance. The balance check and the
// debit happen under the same lock, so concurrent withdrawals cannot
// overdraw the account.
func (s *LoyaltyService) WithdrawPoints(ctx context.Context, userID string, points int64) (*Withdrawal, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if points <= 0 {
		return nil, ErrInvalidPoints
	}

	if err := s.locks.LockContext(ctx, loyaltyLockKey(userID)); err != nil {
		return nil, err
	}
	defer s.locks.Unlock(loyaltyLockKey(userID))

	acct, _, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if points > acct.Points {
		return nil, ErrInsufficientPoints
	}

	value := s.CashValue(points)
	acct, tx, err := s.addPointsLocked(ctx, acct, -points, model.TxWithdrawal,
		fmt.Sprintf("Withdrew %d points ($%s)", points, value.StringFixed(2)))
	if err != nil {
		return nil, err
	}

	return &Withdrawal{Points: points, CashValue: value, Account: acct, Transaction: tx}, nil
}

// CashValue converts points to dollars at the configured rate.
func (s *LoyaltyService) CashValue(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Div(decimal.NewFromInt(s.cfg.PointsPerDollar)).Round(2)
}

// RecordShare awards the share reward for sharing a product or referral
// link on channel.
func (s *LoyaltyService) RecordShare(ctx context.Context, userID, channel string) (*model.LoyaltyAccount, *model.Transaction, error) {
	description := "Shared with friends"
	if channel != "" {
		description = "Shared on " + channel
	}
	return s.AddPoints(ctx, userID, s.cfg.ShareReward, model.TxShare, description)
}
