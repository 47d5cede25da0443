package repository

import (
	"context"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
)

// ReviewRepository handles the shared review list.
type ReviewRepository struct {
	store kv.Store
}

// NewReviewRepository creates a new ReviewRepository instance.
func NewReviewRepository(store kv.Store) *ReviewRepository {
	return &ReviewRepository{store: store}
}

// List returns all reviews, newest first.
func (r *ReviewRepository) List(ctx context.Context) ([]model.Review, error) {
	reviews := make([]model.Review, 0)
	if _, err := kv.GetJSON(ctx, r.store, reviewsKey, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// Save replaces the review list.
func (r *ReviewRepository) Save(ctx context.Context, reviews []model.Review) error {
	return kv.SetJSON(ctx, r.store, reviewsKey, reviews)
}
