package handler

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"lovincraft-store/internal/service"
)

// AccountHandler handles loyalty, referral and preference commands.
type AccountHandler struct {
	loyaltyService    *service.LoyaltyService
	referralService   *service.ReferralService
	dashboardService  *service.DashboardService
	wishlistService   *service.WishlistService
	preferenceService *service.PreferenceService
	newsletterService *service.NewsletterService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	loyaltyService *service.LoyaltyService,
	referralService *service.ReferralService,
	dashboardService *service.DashboardService,
	wishlistService *service.WishlistService,
	preferenceService *service.PreferenceService,
	newsletterService *service.NewsletterService,
) *AccountHandler {
	return &AccountHandler{
		loyaltyService:    loyaltyService,
		referralService:   referralService,
		dashboardService:  dashboardService,
		wishlistService:   wishlistService,
		preferenceService: preferenceService,
		newsletterService: newsletterService,
	}
}

// recentTransactions is how many log entries /points shows.
const recentTransactions = 5

// HandlePoints handles the /points command.
// Shows balance, tier, progress to the next tier and recent activity.
func (h *AccountHandler) HandlePoints(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	card, err := h.dashboardService.LoyaltyCard(ctx, sessionFor(sender).UserID)
	if err != nil {
		return replyError(c, err)
	}

	msg := fmt.Sprintf("⭐ %s member\n", card.Tier.Name)
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("💰 Points: %d (worth $%s)\n", card.Account.Points,
		h.loyaltyService.CashValue(card.Account.Points).StringFixed(2))
	msg += fmt.Sprintf("🏷 Discount: %d%% on every order\n", card.Tier.Discount)
	if card.NextTier != nil {
		msg += fmt.Sprintf("📈 %d points to %s\n", card.PointsToNext, card.NextTier.Name)
	}
	msg += "\nBenefits:\n"
	for _, b := range card.Tier.Benefits {
		msg += "• " + b + "\n"
	}

	if len(card.Transactions) > 0 {
		msg += "\nRecent activity:\n"
		for i, tx := range card.Transactions {
			if i == recentTransactions {
				break
			}
			msg += fmt.Sprintf("%+d  %s\n", tx.Points, tx.Description)
		}
	}
	return c.Reply(msg)
}

// HandleWithdraw handles the /withdraw command.
// Format: /withdraw <points>
func (h *AccountHandler) HandleWithdraw(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /withdraw <points>")
	}
	points, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Reply("❌ Invalid number of points")
	}

	w, err := h.loyaltyService.WithdrawPoints(ctx, sessionFor(sender).UserID, points)
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"✅ Withdrew %d points ($%s)\n💰 Remaining: %d points",
		w.Points, w.CashValue.StringFixed(2), w.Account.Points,
	))
}

// HandleReferral handles the /referral command.
// Sends the share link as text and as a QR code.
func (h *AccountHandler) HandleReferral(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	userID := sessionFor(sender).UserID

	card, err := h.dashboardService.ReferralCard(ctx, userID)
	if err != nil {
		return replyError(c, err)
	}

	caption := "💌 Share the love\n"
	caption += "━━━━━━━━━━━━━━━\n"
	caption += "Your code: " + card.Code + "\n"
	caption += "Link: " + card.ShareLink + "\n"
	caption += fmt.Sprintf("Friends referred: %d · %d points earned", len(card.Referrals), card.TotalPoints)

	png, err := h.referralService.ReferralQR(ctx, userID)
	if err != nil {
		return c.Reply(caption)
	}
	return c.Send(&tele.Photo{File: tele.FromReader(bytes.NewReader(png)), Caption: caption})
}

// HandleApply handles the /apply command.
// Format: /apply <code>
func (h *AccountHandler) HandleApply(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /apply <code>")
	}
	applied, err := h.referralService.ApplyReferralCode(ctx, sessionFor(sender), args[0])
	if err != nil {
		return replyError(c, err)
	}
	if !applied {
		return c.Reply("❌ You can't use your own referral code")
	}
	return c.Reply("🎉 Referral code applied! Check out with /checkout <email> to thank your friend.")
}

// HandleShare handles the /share command and awards the share reward.
func (h *AccountHandler) HandleShare(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acct, tx, err := h.loyaltyService.RecordShare(ctx, sessionFor(sender).UserID, "telegram")
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("🙌 Thanks for sharing! +%d points · balance %d", tx.Points, acct.Points))
}

// HandleWishlist handles the /wishlist command.
func (h *AccountHandler) HandleWishlist(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	items, err := h.wishlistService.Items(ctx, sessionFor(sender).UserID)
	if err != nil {
		return replyError(c, err)
	}
	if len(items) == 0 {
		return c.Reply("🤍 Your wishlist is empty\n\nSave kits from /shop")
	}
	var b strings.Builder
	b.WriteString("❤️ Your wishlist\n━━━━━━━━━━━━━━━\n")
	for _, it := range items {
		fmt.Fprintf(&b, "%d. %s  $%s\n", it.ID, it.Name, it.Price.StringFixed(2))
	}
	b.WriteString("\nAdd one with /add <id>")
	return c.Reply(b.String())
}

// HandleLanguage handles the /language command.
// Format: /language [code]
func (h *AccountHandler) HandleLanguage(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	session := sessionFor(sender)

	args := c.Args()
	if len(args) == 0 {
		current, err := h.preferenceService.Language(ctx, session)
		if err != nil {
			return replyError(c, err)
		}
		codes := make([]string, 0)
		for _, l := range service.Languages() {
			codes = append(codes, l.Code)
		}
		return c.Reply("🌐 Language: " + current.Name + "\nAvailable: " + strings.Join(codes, ", "))
	}

	lang, err := h.preferenceService.SetLanguage(ctx, session, args[0])
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply("🌐 Language set to " + lang.Name)
}

// HandleSubscribe handles the /subscribe command.
// Format: /subscribe <email>
func (h *AccountHandler) HandleSubscribe(c tele.Context) error {
	ctx, cancel := handlerContext()
	defer cancel()

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /subscribe <email>")
	}
	added, err := h.newsletterService.Subscribe(ctx, args[0])
	if err != nil {
		return replyError(c, err)
	}
	if !added {
		return c.Reply("📬 You're already subscribed")
	}
	return c.Reply("📬 Subscribed! Watch your inbox for new kits and recipes.")
}
