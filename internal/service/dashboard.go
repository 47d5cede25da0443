package service

import (
	"context"
	"errors"

	"lovincraft-store/internal/model"
)

// ErrUnknownTab is returned for a dashboard tab that does not exist.
var ErrUnknownTab = errors.New("unknown dashboard tab")

// Dashboard tabs.
const (
	TabLoyalty   = "loyalty"
	TabReferrals = "referrals"
	TabOrders    = "orders"
	TabWishlist  = "wishlist"
	TabSupport   = "support"
)

// LoyaltyCard is the points summary on the loyalty tab.
type LoyaltyCard struct {
	Account      *model.LoyaltyAccount `json:"account"`
	Tier         TierInfo              `json:"tier"`
	NextTier     *TierInfo             `json:"nextTier,omitempty"`
	PointsToNext int64                 `json:"pointsToNext,omitempty"`
	Tiers        []TierInfo            `json:"tiers"`
	Transactions []model.Transaction   `json:"transactions"`
}

// ReferralCard is the summary on the referrals tab.
type ReferralCard struct {
	Code        string           `json:"code"`
	ShareLink   string           `json:"shareLink"`
	Referrals   []model.Referral `json:"referrals"`
	TotalPoints int64            `json:"totalPoints"`
}

// DashboardView is one tab of the account dashboard. Only the selected
// tab's section is filled.
type DashboardView struct {
	Tab       string                `json:"tab"`
	Loyalty   *LoyaltyCard          `json:"loyalty,omitempty"`
	Referrals *ReferralCard         `json:"referrals,omitempty"`
	Orders    []model.Order         `json:"orders,omitempty"`
	Wishlist  []model.WishlistItem  `json:"wishlist,omitempty"`
	Tickets   []model.SupportTicket `json:"tickets,omitempty"`
}

// DashboardService assembles the account dashboard.
type DashboardService struct {
	loyalty  *LoyaltyService
	referral *ReferralService
	checkout *CheckoutService
	wishlist *WishlistService
	support  *SupportService
}

// NewDashboardService creates a new DashboardService instance.
func NewDashboardService(
	loyalty *LoyaltyService,
	referral *ReferralService,
	checkout *CheckoutService,
	wishlist *WishlistService,
	support *SupportService,
) *DashboardService {
	return &DashboardService{
		loyalty:  loyalty,
		referral: referral,
		checkout: checkout,
		wishlist: wishlist,
		support:  support,
	}
}

// View builds the named tab. An empty tab means loyalty. email selects the
// support tickets to show.
func (s *DashboardService) View(ctx context.Context, userID, tab, email string) (*DashboardView, error) {
	if tab == "" {
		tab = TabLoyalty
	}
	view := &DashboardView{Tab: tab}

	switch tab {
	case TabLoyalty:
		card, err := s.LoyaltyCard(ctx, userID)
		if err != nil {
			return nil, err
		}
		view.Loyalty = card
	case TabReferrals:
		card, err := s.ReferralCard(ctx, userID)
		if err != nil {
			return nil, err
		}
		view.Referrals = card
	case TabOrders:
		orders, err := s.checkout.Orders(ctx, userID)
		if err != nil {
			return nil, err
		}
		view.Orders = orders
	case TabWishlist:
		items, err := s.wishlist.Items(ctx, userID)
		if err != nil {
			return nil, err
		}
		view.Wishlist = items
	case TabSupport:
		if email == "" {
			view.Tickets = []model.SupportTicket{}
			break
		}
		tickets, err := s.support.ListTickets(ctx, email)
		if err != nil {
			return nil, err
		}
		view.Tickets = tickets
	default:
		return nil, ErrUnknownTab
	}
	return view, nil
}

// LoyaltyCard summarizes the user's points and tier progress.
func (s *DashboardService) LoyaltyCard(ctx context.Context, userID string) (*LoyaltyCard, error) {
	acct, err := s.loyalty.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.loyalty.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	card := &LoyaltyCard{
		Account:      acct,
		Tier:         TierBenefits(acct.Tier),
		Tiers:        AllTiers(),
		Transactions: txs,
	}
	if next, remaining, ok := NextTier(acct.Points); ok {
		card.NextTier = &next
		card.PointsToNext = remaining
	}
	return card, nil
}

// ReferralCard summarizes the user's referral program standing.
func (s *DashboardService) ReferralCard(ctx context.Context, userID string) (*ReferralCard, error) {
	code, err := s.referral.ReferralCode(ctx, userID)
	if err != nil {
		return nil, err
	}
	link, err := s.referral.ShareReferralLink(ctx, userID)
	if err != nil {
		return nil, err
	}
	refs, err := s.referral.Referrals(ctx, userID)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, r := range refs {
		total += r.PointsEarned
	}
	return &ReferralCard{Code: code, ShareLink: link, Referrals: refs, TotalPoints: total}, nil
}
