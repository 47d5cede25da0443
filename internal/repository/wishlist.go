package repository

import (
	"context"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
)

const wishlistPrefix = "lovincraft-wishlist-"

// WishlistRepository handles per-user wishlists.
type WishlistRepository struct {
	store kv.Store
}

// NewWishlistRepository creates a new WishlistRepository instance.
func NewWishlistRepository(store kv.Store) *WishlistRepository {
	return &WishlistRepository{store: store}
}

// Get returns the user's saved products.
func (r *WishlistRepository) Get(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	items := make([]model.WishlistItem, 0)
	if _, err := kv.GetJSON(ctx, r.store, wishlistPrefix+userID, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Save replaces the user's saved products.
func (r *WishlistRepository) Save(ctx context.Context, userID string, items []model.WishlistItem) error {
	return kv.SetJSON(ctx, r.store, wishlistPrefix+userID, items)
}
