package repository

import (
	"context"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
)

// LoyaltyRepository handles loyalty account and points log persistence.
type LoyaltyRepository struct {
	store kv.Store
}

// NewLoyaltyRepository creates a new LoyaltyRepository instance.
func NewLoyaltyRepository(store kv.Store) *LoyaltyRepository {
	return &LoyaltyRepository{store: store}
}

// GetAccount retrieves a user's loyalty account.
// Returns ErrAccountNotFound if none was ever stored.
func (r *LoyaltyRepository) GetAccount(ctx context.Context, userID string) (*model.LoyaltyAccount, error) {
	var acct model.LoyaltyAccount
	found, err := kv.GetJSON(ctx, r.store, loyaltyKey(userID), &acct)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrAccountNotFound
	}
	return &acct, nil
}

// SaveAccount persists a loyalty account.
func (r *LoyaltyRepository) SaveAccount(ctx context.Context, acct *model.LoyaltyAccount) error {
	return kv.SetJSON(ctx, r.store, loyaltyKey(acct.UserID), acct)
}

// GetTransactions retrieves a user's points log, newest first.
func (r *LoyaltyRepository) GetTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	txs := make([]model.Transaction, 0)
	if _, err := kv.GetJSON(ctx, r.store, transactionsKey(userID), &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// SaveTransactions replaces a user's points log.
func (r *LoyaltyRepository) SaveTransactions(ctx context.Context, userID string, txs []model.Transaction) error {
	return kv.SetJSON(ctx, r.store, transactionsKey(userID), txs)
}
