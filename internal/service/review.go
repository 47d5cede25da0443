package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/catalog"
	"lovincraft-store/internal/config"
	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/idgen"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
)

// Review errors.
var (
	ErrInvalidRating  = errors.New("please select a rating between 1 and 5")
	ErrEmptyComment   = errors.New("please write a review")
	ErrMissingName    = errors.New("please enter your name")
	ErrPhotoTooLarge  = errors.New("photo exceeds the size limit")
	ErrTooManyPhotos  = errors.New("too many photos")
	ErrUnknownProduct = errors.New("product not found")
	ErrReviewNotFound = errors.New("review not found")
)

const reviewsLockKey = "reviews"

// ReviewInput is a review as submitted by a shopper. Photos are encoded
// images (data URLs or uploaded blobs) whose length is checked against the
// size limit.
type ReviewInput struct {
	ProductID int      `validate:"gt=0"`
	UserID    string   `validate:"omitempty"`
	UserName  string   `validate:"required"`
	Rating    int      `validate:"min=1,max=5"`
	Comment   string   `validate:"required"`
	Photos    []string `validate:"omitempty"`
}

var reviewFieldErrors = fieldErrors{
	"ProductID": ErrUnknownProduct,
	"UserName":  ErrMissingName,
	"Rating":    ErrInvalidRating,
	"Comment":   ErrEmptyComment,
}

// ReviewService manages product reviews.
type ReviewService struct {
	repo    *repository.ReviewRepository
	loyalty *LoyaltyService
	locks   *lock.KeyLock
	cfg     config.ReviewConfig
	reward  int64
	now     func() time.Time
}

// NewReviewService creates a new ReviewService instance. reward is the
// number of points granted for a submitted review; zero disables it.
func NewReviewService(
	repo *repository.ReviewRepository,
	loyalty *LoyaltyService,
	locks *lock.KeyLock,
	cfg config.ReviewConfig,
	reward int64,
) *ReviewService {
	return &ReviewService{
		repo:    repo,
		loyalty: loyalty,
		locks:   locks,
		cfg:     cfg,
		reward:  reward,
		now:     time.Now,
	}
}

// Validate checks a submission without touching the store.
func (s *ReviewService) Validate(in *ReviewInput) error {
	in.Comment = strings.TrimSpace(in.Comment)
	in.UserName = strings.TrimSpace(in.UserName)

	// Rating is reported before the comment.
	if in.Rating < 1 || in.Rating > 5 {
		return ErrInvalidRating
	}
	if err := reviewFieldErrors.check(in); err != nil {
		return err
	}
	if _, ok := catalog.Get(in.ProductID); !ok {
		return ErrUnknownProduct
	}
	if s.cfg.MaxPhotos > 0 && len(in.Photos) > s.cfg.MaxPhotos {
		return ErrTooManyPhotos
	}
	for _, p := range in.Photos {
		if s.cfg.MaxPhotoBytes > 0 && len(p) > s.cfg.MaxPhotoBytes {
			return ErrPhotoTooLarge
		}
	}
	return nil
}

// SubmitReview validates and stores a review, then awards the review
// reward to a signed-in author.
func (s *ReviewService) SubmitReview(ctx context.Context, in ReviewInput) (*model.Review, error) {
	if err := s.Validate(&in); err != nil {
		return nil, err
	}

	review, err := s.AddReview(ctx, in)
	if err != nil {
		return nil, err
	}

	if s.reward > 0 && s.loyalty != nil && in.UserID != "" {
		product, _ := catalog.Get(in.ProductID)
		if _, _, err := s.loyalty.AddPoints(ctx, in.UserID, s.reward, model.TxReview,
			"Review for "+product.Name); err != nil {
			log.Error().Err(err).Str("user_id", in.UserID).Msg("Failed to award review points")
		}
	}
	return review, nil
}

// AddReview stores a review as given, newest first, with helpful=0.
func (s *ReviewService) AddReview(ctx context.Context, in ReviewInput) (*model.Review, error) {
	review := model.Review{
		ID:        idgen.New("review"),
		ProductID: in.ProductID,
		UserID:    in.UserID,
		UserName:  in.UserName,
		Rating:    in.Rating,
		Comment:   in.Comment,
		Photos:    in.Photos,
		Date:      s.now(),
	}

	err := s.locks.WithLock(reviewsLockKey, func() error {
		reviews, err := s.repo.List(ctx)
		if err != nil {
			return err
		}
		return s.repo.Save(ctx, append([]model.Review{review}, reviews...))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add review: %w", err)
	}

	log.Info().
		Str("review_id", review.ID).
		Int("product_id", review.ProductID).
		Int("rating", review.Rating).
		Msg("Review added")
	return &review, nil
}

// GetProductReviews returns a product's reviews, newest first.
func (s *ReviewService) GetProductReviews(ctx context.Context, productID int) ([]model.Review, error) {
	reviews, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	out := make([]model.Review, 0)
	for _, r := range reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

// MarkHelpful increments a review's helpful count. Votes are not tied to
// a voter, so the same shopper may vote repeatedly.
func (s *ReviewService) MarkHelpful(ctx context.Context, reviewID string) (*model.Review, error) {
	var updated *model.Review
	err := s.locks.WithLock(reviewsLockKey, func() error {
		reviews, err := s.repo.List(ctx)
		if err != nil {
			return err
		}
		for i := range reviews {
			if reviews[i].ID == reviewID {
				reviews[i].Helpful++
				r := reviews[i]
				updated = &r
				return s.repo.Save(ctx, reviews)
			}
		}
		return ErrReviewNotFound
	})
	if err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to mark review helpful: %w", err)
	}
	return updated, nil
}

// RatingSummary is the aggregate rating of a product.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ProductRating averages a product's review ratings.
func (s *ReviewService) ProductRating(ctx context.Context, productID int) (RatingSummary, error) {
	reviews, err := s.GetProductReviews(ctx, productID)
	if err != nil {
		return RatingSummary{}, err
	}
	if len(reviews) == 0 {
		return RatingSummary{}, nil
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return RatingSummary{
		Average: float64(sum) / float64(len(reviews)),
		Count:   len(reviews),
	}, nil
}
