// Package model defines the data models for the Lovincraft storefront.
// Field names follow the JSON documents kept in the key-value store.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Stored documents carry prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// GuestUserID identifies a shopper who is not signed in.
const GuestUserID = "guest"

// Session identifies who is acting. SessionID scopes the cart, the pending
// referral marker and the language preference; UserID owns loyalty,
// referrals and orders.
type Session struct {
	UserID    string
	SessionID string
}

// NewSession fills in the guest user and falls back to the user id for a
// missing session id.
func NewSession(userID, sessionID string) Session {
	if userID == "" {
		userID = GuestUserID
	}
	if sessionID == "" {
		sessionID = userID
	}
	return Session{UserID: userID, SessionID: sessionID}
}

// IsGuest reports whether the session belongs to an anonymous shopper.
func (s Session) IsGuest() bool {
	return s.UserID == GuestUserID
}

// Tier is a loyalty level.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// LoyaltyAccount is a user's points balance and activity counters.
type LoyaltyAccount struct {
	UserID         string          `json:"userId"`
	Points         int64           `json:"points"`
	Tier           Tier            `json:"tier"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	TotalPurchases int             `json:"totalPurchases"`
	TotalReviews   int             `json:"totalReviews"`
	TotalShares    int             `json:"totalShares"`
}

// TransactionType categorizes a points change.
type TransactionType string

const (
	TxPurchase   TransactionType = "purchase"
	TxReview     TransactionType = "review"
	TxShare      TransactionType = "share"
	TxSignup     TransactionType = "signup"
	TxBirthday   TransactionType = "birthday"
	TxReferral   TransactionType = "referral"   // referral bonus credited to the referrer
	TxWithdrawal TransactionType = "withdrawal" // points cashed out
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxPurchase, TxReview, TxShare, TxSignup, TxBirthday, TxReferral, TxWithdrawal:
		return true
	}
	return false
}

// Transaction is one entry of a user's points log.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Points      int64           `json:"points"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

// ReferralStatus is the state of a referral record.
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)

// Referral records a friend who checked out with the owner's code.
type Referral struct {
	ID            string         `json:"id"`
	ReferredEmail string         `json:"referredEmail"`
	Status        ReferralStatus `json:"status"`
	PointsEarned  int64          `json:"pointsEarned"`
	Date          time.Time      `json:"date"`
}

// Review is a product review.
type Review struct {
	ID        string    `json:"id"`
	ProductID int       `json:"productId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Photos    []string  `json:"photos,omitempty"`
	Date      time.Time `json:"date"`
	Helpful   int       `json:"helpful"`
}

// TicketStatus is the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in-progress"
	TicketResolved   TicketStatus = "resolved"
	TicketCancelled  TicketStatus = "cancelled"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketCancelled:
		return true
	}
	return false
}

// MessageSender identifies who wrote a ticket message.
type MessageSender string

const (
	SenderUser MessageSender = "user"
	// SenderBot marks replies from the support side, human or automated.
	SenderBot MessageSender = "bot"
)

// Valid reports whether m is a known sender.
func (m MessageSender) Valid() bool {
	return m == SenderUser || m == SenderBot
}

// TicketMessage is one message in a ticket thread.
type TicketMessage struct {
	ID             string        `json:"id"`
	Text           string        `json:"text"`
	Sender         MessageSender `json:"sender"`
	Timestamp      time.Time     `json:"timestamp"`
	Rating         *int          `json:"rating,omitempty"`
	RatingFeedback string        `json:"ratingFeedback,omitempty"`
}

// SupportTicket is a customer support request.
type SupportTicket struct {
	ID             string          `json:"id"`
	Subject        string          `json:"subject"`
	Description    string          `json:"description"`
	Email          string          `json:"email"`
	Status         TicketStatus    `json:"status"`
	Messages       []TicketMessage `json:"messages"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Rating         *int            `json:"rating,omitempty"`
	RatingFeedback string          `json:"ratingFeedback,omitempty"`
}

// Customization is the shopper's ingredient selection for a kit.
type Customization struct {
	Ingredients      []string `json:"ingredients"`
	SecretIngredient string   `json:"secretIngredient,omitempty"`
}

// CartItem is one cart line, keyed by product id.
type CartItem struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	Image         string          `json:"image,omitempty"`
	Customization *Customization  `json:"customization,omitempty"`
}

// LineTotal returns price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Quote is the price breakdown shown at checkout.
type Quote struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent int             `json:"discountPercent"`
	Discount        decimal.Decimal `json:"discount"`
	GiftWrap        decimal.Decimal `json:"giftWrap"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
	PointsToEarn    int64           `json:"pointsToEarn"`
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
)

// Order is a placed checkout.
type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Email          string      `json:"email,omitempty"`
	Items          []CartItem  `json:"items"`
	Quote          Quote       `json:"quote"`
	GiftMessage    string      `json:"giftMessage,omitempty"`
	PaymentMethod  string      `json:"paymentMethod"`
	Status         OrderStatus `json:"status"`
	TrackingNumber string      `json:"trackingNumber"`
	ReferralCode   string      `json:"referralCode,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Purchaser records who bought a registry item.
type Purchaser struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// RegistryItem is a wished-for product in a gift registry.
type RegistryItem struct {
	ProductID    int             `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductPrice decimal.Decimal `json:"productPrice"`
	ProductImage string          `json:"productImage,omitempty"`
	Quantity     int             `json:"quantity"`
	Purchased    int             `json:"purchased"`
	PurchasedBy  []Purchaser     `json:"purchasedBy,omitempty"`
}

// GiftRegistry is a shareable wish list for an occasion.
type GiftRegistry struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Occasion  string         `json:"occasion"`
	Date      string         `json:"date"`
	CreatedBy string         `json:"createdBy"`
	Message   string         `json:"message,omitempty"`
	Items     []RegistryItem `json:"items"`
	ShareCode string         `json:"shareCode"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Subscriber is a newsletter signup.
type Subscriber struct {
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// WishlistItem is a saved product.
type WishlistItem struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}
