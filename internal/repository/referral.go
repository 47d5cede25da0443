package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
)

// ReferralRepository handles referral codes, referral records and the
// pending code a session applied before checkout.
type ReferralRepository struct {
	store kv.Store
}

// NewReferralRepository creates a new ReferralRepository instance.
func NewReferralRepository(store kv.Store) *ReferralRepository {
	return &ReferralRepository{store: store}
}

// GetCode returns the user's referral code or ErrCodeNotFound.
func (r *ReferralRepository) GetCode(ctx context.Context, userID string) (string, error) {
	var code string
	found, err := kv.GetJSON(ctx, r.store, referralCodeKey(userID), &code)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrCodeNotFound
	}
	return code, nil
}

// SaveCode stores the user's code together with the code to owner index.
func (r *ReferralRepository) SaveCode(ctx context.Context, userID, code string) error {
	if err := kv.SetJSON(ctx, r.store, referralCodeKey(userID), code); err != nil {
		return err
	}
	return kv.SetJSON(ctx, r.store, referralOwnerKey(code), userID)
}

// FindOwner resolves a code to the user who owns it. Codes stored before
// the owner index existed are found by scanning every user's code; a hit
// backfills the index.
func (r *ReferralRepository) FindOwner(ctx context.Context, code string) (string, error) {
	var owner string
	found, err := kv.GetJSON(ctx, r.store, referralOwnerKey(code), &owner)
	if err != nil {
		return "", err
	}
	if found {
		return owner, nil
	}

	keys, err := r.store.Keys(ctx, referralCodePrefix)
	if err != nil {
		return "", err
	}
	for _, key := range keys {
		var stored string
		ok, err := kv.GetJSON(ctx, r.store, key, &stored)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Skipping unreadable referral code")
			continue
		}
		if !ok || !strings.EqualFold(stored, code) {
			continue
		}
		owner = strings.TrimPrefix(key, referralCodePrefix)
		if err := kv.SetJSON(ctx, r.store, referralOwnerKey(code), owner); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("Failed to backfill referral owner index")
		}
		return owner, nil
	}
	return "", ErrCodeNotFound
}

// GetReferrals returns the referral records owned by a user.
func (r *ReferralRepository) GetReferrals(ctx context.Context, userID string) ([]model.Referral, error) {
	refs := make([]model.Referral, 0)
	if _, err := kv.GetJSON(ctx, r.store, referralsKey(userID), &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// SaveReferrals replaces a user's referral records.
func (r *ReferralRepository) SaveReferrals(ctx context.Context, userID string, refs []model.Referral) error {
	return kv.SetJSON(ctx, r.store, referralsKey(userID), refs)
}

// GetApplied returns the pending code for a session, or "" if none.
func (r *ReferralRepository) GetApplied(ctx context.Context, sessionID string) (string, error) {
	var code string
	if _, err := kv.GetJSON(ctx, r.store, appliedKey(sessionID), &code); err != nil {
		return "", err
	}
	return code, nil
}

// SetApplied stores the pending code for a session.
func (r *ReferralRepository) SetApplied(ctx context.Context, sessionID, code string) error {
	return kv.SetJSON(ctx, r.store, appliedKey(sessionID), code)
}

// ClearApplied removes the pending code for a session.
func (r *ReferralRepository) ClearApplied(ctx context.Context, sessionID string) error {
	return r.store.Delete(ctx, appliedKey(sessionID))
}

// IsNotFound reports whether err is a repository not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCodeNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}
