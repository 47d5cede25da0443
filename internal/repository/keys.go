// Package repository provides typed access to the documents kept in the
// key-value store.
package repository

import (
	"errors"
	"strings"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound = errors.New("loyalty account not found")
	ErrCodeNotFound    = errors.New("referral code not found")
	ErrOrderNotFound   = errors.New("order not found")
)

// Key names are shared with the web storefront's local storage.
const (
	loyaltyPrefix       = "lovincraft-loyalty-"
	transactionsPrefix  = "lovincraft-transactions-"
	referralCodePrefix  = "lovincraft-referral-code-"
	referralsPrefix     = "lovincraft-referrals-"
	appliedPrefix       = "lovincraft-applied-referral-"
	referralOwnerPrefix = "lovincraft-referral-owner-"
	reviewsKey          = "lovincraft-reviews"
	ticketsKey          = "lovincraft-support-tickets"
	registriesKey       = "lovincraft-registries"
	cartPrefix          = "cart-"
	ordersPrefix        = "lovincraft-orders-"
	orderPrefix         = "lovincraft-order-"
	newsletterKey       = "lovincraft-newsletter"
	languagePrefix      = "language-"
)

func loyaltyKey(userID string) string      { return loyaltyPrefix + userID }
func transactionsKey(userID string) string { return transactionsPrefix + userID }
func referralCodeKey(userID string) string { return referralCodePrefix + userID }
func referralsKey(userID string) string    { return referralsPrefix + userID }
func appliedKey(sessionID string) string   { return appliedPrefix + sessionID }
func cartKey(sessionID string) string      { return cartPrefix + sessionID }
func ordersKey(userID string) string       { return ordersPrefix + userID }
func orderKey(orderID string) string       { return orderPrefix + orderID }
func languageKey(sessionID string) string  { return languagePrefix + sessionID }

func referralOwnerKey(code string) string {
	return referralOwnerPrefix + strings.ToUpper(code)
}
