package repository

import (
	"context"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
)

// PreferenceRepository handles newsletter subscribers and per-session
// language choice.
type PreferenceRepository struct {
	store kv.Store
}

// NewPreferenceRepository creates a new PreferenceRepository instance.
func NewPreferenceRepository(store kv.Store) *PreferenceRepository {
	return &PreferenceRepository{store: store}
}

// GetLanguage returns the session's language code, or "" if unset.
func (r *PreferenceRepository) GetLanguage(ctx context.Context, sessionID string) (string, error) {
	var lang string
	if _, err := kv.GetJSON(ctx, r.store, languageKey(sessionID), &lang); err != nil {
		return "", err
	}
	return lang, nil
}

// SetLanguage stores the session's language code.
func (r *PreferenceRepository) SetLanguage(ctx context.Context, sessionID, lang string) error {
	return kv.SetJSON(ctx, r.store, languageKey(sessionID), lang)
}

// Subscribers returns the newsletter list in signup order.
func (r *PreferenceRepository) Subscribers(ctx context.Context) ([]model.Subscriber, error) {
	subs := make([]model.Subscriber, 0)
	if _, err := kv.GetJSON(ctx, r.store, newsletterKey, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// SaveSubscribers replaces the newsletter list.
func (r *PreferenceRepository) SaveSubscribers(ctx context.Context, subs []model.Subscriber) error {
	return kv.SetJSON(ctx, r.store, newsletterKey, subs)
}
