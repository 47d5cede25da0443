package service

import (
	"context"
	"fmt"

	"lovincraft-store/internal/catalog"
	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
)

// WishlistService manages saved products.
type WishlistService struct {
	repo  *repository.WishlistRepository
	locks *lock.KeyLock
}

// NewWishlistService creates a new WishlistService instance.
func NewWishlistService(repo *repository.WishlistRepository, locks *lock.KeyLock) *WishlistService {
	return &WishlistService{repo: repo, locks: locks}
}

// Toggle saves a product, or removes it when already saved. It reports
// whether the product is saved afterwards.
func (s *WishlistService) Toggle(ctx context.Context, userID string, productID int) (bool, error) {
	p, ok := catalog.Get(productID)
	if !ok {
		return false, ErrUnknownProduct
	}

	saved := false
	err := s.locks.WithLock("wishlist:"+userID, func() error {
		items, err := s.repo.Get(ctx, userID)
		if err != nil {
			return err
		}
		for i, it := range items {
			if it.ID == productID {
				return s.repo.Save(ctx, userID, append(items[:i], items[i+1:]...))
			}
		}
		saved = true
		return s.repo.Save(ctx, userID, append(items, model.WishlistItem{
			ID:    p.ID,
			Name:  p.Name,
			Price: p.Price,
			Image: p.Image,
		}))
	})
	if err != nil {
		return false, fmt.Errorf("failed to update wishlist: %w", err)
	}
	return saved, nil
}

// Items returns the saved products.
func (s *WishlistService) Items(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	items, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist: %w", err)
	}
	return items, nil
}

// Contains reports whether a product is saved.
func (s *WishlistService) Contains(ctx context.Context, userID string, productID int) (bool, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.ID == productID {
			return true, nil
		}
	}
	return false, nil
}
