package service

import (
	"context"
	"errors"
	"fmt"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/repository"
)

// ErrUnsupportedLanguage is returned for a language the storefront does
// not ship translations for.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// DefaultLanguage is used until a session picks one.
const DefaultLanguage = "en-US"

// Language is a supported storefront language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
	RTL  bool   `json:"rtl"`
}

var languages = []Language{
	{Code: "en-US", Name: "English (US)"},
	{Code: "en-GB", Name: "English (UK)"},
	{Code: "ta", Name: "தமிழ்"},
	{Code: "ar", Name: "العربية", RTL: true},
	{Code: "zh", Name: "中文"},
	{Code: "ja", Name: "日本語"},
	{Code: "ml", Name: "മലയാളം"},
	{Code: "te", Name: "తెలుగు"},
	{Code: "si", Name: "සිංහල"},
	{Code: "de", Name: "Deutsch"},
	{Code: "ko", Name: "한국어"},
	{Code: "it", Name: "Italiano"},
	{Code: "nl", Name: "Nederlands"},
	{Code: "sv", Name: "Svenska"},
	{Code: "hi", Name: "हिन्दी"},
}

// Languages returns the supported languages.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

func findLanguage(code string) (Language, bool) {
	for _, l := range languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// IsRTL reports whether a language is written right to left.
func IsRTL(code string) bool {
	l, ok := findLanguage(code)
	return ok && l.RTL
}

// PreferenceService stores per-session display preferences.
type PreferenceService struct {
	repo *repository.PreferenceRepository
}

// NewPreferenceService creates a new PreferenceService instance.
func NewPreferenceService(repo *repository.PreferenceRepository) *PreferenceService {
	return &PreferenceService{repo: repo}
}

// Language returns the session's language, or the default.
func (s *PreferenceService) Language(ctx context.Context, session model.Session) (Language, error) {
	code, err := s.repo.GetLanguage(ctx, session.SessionID)
	if err != nil {
		return Language{}, fmt.Errorf("failed to get language: %w", err)
	}
	if l, ok := findLanguage(code); ok {
		return l, nil
	}
	l, _ := findLanguage(DefaultLanguage)
	return l, nil
}

// SetLanguage stores the session's language.
func (s *PreferenceService) SetLanguage(ctx context.Context, session model.Session, code string) (Language, error) {
	l, ok := findLanguage(code)
	if !ok {
		return Language{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}
	if err := s.repo.SetLanguage(ctx, session.SessionID, code); err != nil {
		return Language{}, fmt.Errorf("failed to set language: %w", err)
	}
	return l, nil
}
