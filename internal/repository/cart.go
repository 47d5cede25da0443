package repository

import (
	"context"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
)

// CartRepository handles per-session carts.
type CartRepository struct {
	store kv.Store
}

// NewCartRepository creates a new CartRepository instance.
func NewCartRepository(store kv.Store) *CartRepository {
	return &CartRepository{store: store}
}

// Get returns the session's cart lines; an unknown session has an empty cart.
func (r *CartRepository) Get(ctx context.Context, sessionID string) ([]model.CartItem, error) {
	items := make([]model.CartItem, 0)
	if _, err := kv.GetJSON(ctx, r.store, cartKey(sessionID), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Save replaces the session's cart lines.
func (r *CartRepository) Save(ctx context.Context, sessionID string, items []model.CartItem) error {
	return kv.SetJSON(ctx, r.store, cartKey(sessionID), items)
}

// Clear empties the session's cart.
func (r *CartRepository) Clear(ctx context.Context, sessionID string) error {
	return r.store.Delete(ctx, cartKey(sessionID))
}
