package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
)

// NewsletterService handles mailing-list signups.
type NewsletterService struct {
	repo  *repository.PreferenceRepository
	locks *lock.KeyLock
	delay time.Duration
	now   func() time.Time
}

// NewNewsletterService creates a new NewsletterService instance. delay
// stands in for the mailing-list provider call.
func NewNewsletterService(repo *repository.PreferenceRepository, locks *lock.KeyLock, delay time.Duration) *NewsletterService {
	return &NewsletterService{repo: repo, locks: locks, delay: delay, now: time.Now}
}

// Subscribe adds email to the list. It reports false when the address was
// already subscribed.
func (s *NewsletterService) Subscribe(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if !ValidEmail(email) {
		return false, ErrInvalidEmail
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	added := false
	err := s.locks.WithLock("newsletter", func() error {
		subs, err := s.repo.Subscribers(ctx)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			if sub.Email == email {
				return nil
			}
		}
		added = true
		return s.repo.SaveSubscribers(ctx, append(subs, model.Subscriber{Email: email, SubscribedAt: s.now()}))
	})
	if err != nil {
		return false, fmt.Errorf("failed to subscribe: %w", err)
	}
	if added {
		log.Info().Str("email", email).Msg("Newsletter subscription added")
	}
	return added, nil
}
