package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/config"
	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/idgen"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
)

const referralCodePrefix = "LOVIN"

// ReferralService manages referral codes, pending applied codes and the
// referral records credited to code owners.
type ReferralService struct {
	repo    *repository.ReferralRepository
	loyalty *LoyaltyService
	qr      *QRCodeRenderer
	locks   *lock.KeyLock
	cfg     config.ReferralConfig
	suffix  func() string
	now     func() time.Time
}

// NewReferralService creates a new ReferralService instance.
func NewReferralService(
	repo *repository.ReferralRepository,
	loyalty *LoyaltyService,
	locks *lock.KeyLock,
	cfg config.ReferralConfig,
) *ReferralService {
	return &ReferralService{
		repo:    repo,
		loyalty: loyalty,
		qr:      NewQRCodeRenderer(cfg.QRSize, cfg.QRRecoveryLevel),
		locks:   locks,
		cfg:     cfg,
		suffix:  func() string { return idgen.Code(4) },
		now:     time.Now,
	}
}

// NormalizeCode trims and upper-cases a code as typed by a shopper.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateCode builds a code from the owner's id and a random suffix.
func GenerateCode(userID, suffix string) string {
	prefix := []rune(userID)
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return referralCodePrefix + strings.ToUpper(string(prefix)) + suffix
}

// ReferralCode returns the user's code, generating and persisting it on
// first use. Later calls return the same code.
func (s *ReferralService) ReferralCode(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", ErrMissingUser
	}

	s.locks.Lock("referral-code:" + userID)
	defer s.locks.Unlock("referral-code:" + userID)

	code, err := s.repo.GetCode(ctx, userID)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, repository.ErrCodeNotFound) {
		return "", fmt.Errorf("failed to get referral code: %w", err)
	}

	code = GenerateCode(userID, s.suffix())
	if err := s.repo.SaveCode(ctx, userID, code); err != nil {
		return "", fmt.Errorf("failed to save referral code: %w", err)
	}
	log.Info().Str("user_id", userID).Str("code", code).Msg("Referral code generated")
	return code, nil
}

// ApplyReferralCode remembers code as the session's pending referral.
// It reports false without storing anything for an empty code or the
// shopper's own code.
func (s *ReferralService) ApplyReferralCode(ctx context.Context, session model.Session, code string) (bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return false, nil
	}

	own, err := s.ownCode(ctx, session)
	if err != nil {
		return false, err
	}
	if code == own {
		log.Debug().Str("user_id", session.UserID).Msg("Ignoring own referral code")
		return false, nil
	}

	if err := s.repo.SetApplied(ctx, session.SessionID, code); err != nil {
		return false, fmt.Errorf("failed to apply referral code: %w", err)
	}
	log.Info().Str("session_id", session.SessionID).Str("code", code).Msg("Referral code applied")
	return true, nil
}

// ownCode returns the session user's code. Guests have none.
func (s *ReferralService) ownCode(ctx context.Context, session model.Session) (string, error) {
	if session.IsGuest() {
		return "", nil
	}
	return s.ReferralCode(ctx, session.UserID)
}

// AppliedCode returns the session's pending code, or "".
func (s *ReferralService) AppliedCode(ctx context.Context, session model.Session) (string, error) {
	code, err := s.repo.GetApplied(ctx, session.SessionID)
	if err != nil {
		return "", fmt.Errorf("failed to get applied referral: %w", err)
	}
	return code, nil
}

// CompleteReferral credits the owner of the session's pending code with a
// completed referral for email and clears the pending code. An unknown
// code is dropped with a warning rather than failing checkout. It returns
// the new referral record, or nil when nothing was credited.
func (s *ReferralService) CompleteReferral(ctx context.Context, session model.Session, email string) (*model.Referral, error) {
	code, err := s.AppliedCode(ctx, session)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, nil
	}

	own, err := s.ownCode(ctx, session)
	if err != nil {
		return nil, err
	}
	if code == own {
		return nil, nil
	}

	defer func() {
		if err := s.repo.ClearApplied(ctx, session.SessionID); err != nil {
			log.Warn().Err(err).Str("session_id", session.SessionID).Msg("Failed to clear applied referral")
		}
	}()

	owner, err := s.repo.FindOwner(ctx, code)
	if errors.Is(err, repository.ErrCodeNotFound) {
		log.Warn().Str("code", code).Msg("Referral code has no owner")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}
	if owner == session.UserID {
		return nil, nil
	}

	ref := model.Referral{
		ID:            idgen.New("ref"),
		ReferredEmail: email,
		Status:        model.ReferralCompleted,
		PointsEarned:  s.cfg.Bonus,
		Date:          s.now(),
	}

	err = s.locks.WithLock("referrals:"+owner, func() error {
		refs, err := s.repo.GetReferrals(ctx, owner)
		if err != nil {
			return err
		}
		return s.repo.SaveReferrals(ctx, owner, append(refs, ref))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record referral: %w", err)
	}

	log.Info().
		Str("referrer_id", owner).
		Str("code", code).
		Int64("points", ref.PointsEarned).
		Msg("Referral completed")

	if s.cfg.CreditLoyalty && s.loyalty != nil && ref.PointsEarned != 0 {
		if _, _, err := s.loyalty.AddPoints(ctx, owner, ref.PointsEarned, model.TxReferral,
			"Referral bonus for "+email); err != nil {
			log.Error().Err(err).Str("referrer_id", owner).Msg("Failed to credit referral bonus")
		}
	}

	return &ref, nil
}

// Referrals returns the referral records the user has earned.
func (s *ReferralService) Referrals(ctx context.Context, userID string) ([]model.Referral, error) {
	refs, err := s.repo.GetReferrals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrals: %w", err)
	}
	return refs, nil
}

// TotalReferralPoints sums pointsEarned over the user's referrals.
func (s *ReferralService) TotalReferralPoints(ctx context.Context, userID string) (int64, error) {
	refs, err := s.Referrals(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, r := range refs {
		total += r.PointsEarned
	}
	return total, nil
}

// ShareReferralLink returns the storefront URL carrying the user's code.
func (s *ReferralService) ShareReferralLink(ctx context.Context, userID string) (string, error) {
	code, err := s.ReferralCode(ctx, userID)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid referral base url: %w", err)
	}
	q := u.Query()
	q.Set("ref", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ReferralQR renders the user's share link as a PNG QR code.
func (s *ReferralService) ReferralQR(ctx context.Context, userID string) ([]byte, error) {
	link, err := s.ShareReferralLink(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.qr.PNG(link)
}
