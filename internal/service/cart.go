package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"lovincraft-store/internal/catalog"
	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
)

// Cart errors.
var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrItemNotInCart   = errors.New("item is not in the cart")
	ErrOutOfStock      = errors.New("product is out of stock")
)

// NoticeKind classifies a cart notification.
type NoticeKind string

const (
	NoticeAdded           NoticeKind = "added"
	NoticeQuantityUpdated NoticeKind = "quantity_updated"
	NoticeRemoved         NoticeKind = "removed"
)

// CartNotice is the user-facing notification for a cart change.
type CartNotice struct {
	Kind     NoticeKind     `json:"kind"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Item     model.CartItem `json:"item"`
	Quantity int            `json:"quantity"`
}

// CartTotals is the cart summary.
type CartTotals struct {
	Items     []model.CartItem `json:"items"`
	ItemCount int              `json:"itemCount"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
	Shipping  decimal.Decimal  `json:"shipping"`
	Total     decimal.Decimal  `json:"total"`
}

// CartService manages per-session carts.
type CartService struct {
	repo  *repository.CartRepository
	locks *lock.KeyLock
}

// NewCartService creates a new CartService instance.
func NewCartService(repo *repository.CartRepository, locks *lock.KeyLock) *CartService {
	return &CartService{repo: repo, locks: locks}
}

func cartLockKey(sessionID string) string { return "cart:" + sessionID }

// AddToCart adds item, or raises the quantity of the existing line with the
// same product id by item.Quantity. A zero quantity means one.
func (s *CartService) AddToCart(ctx context.Context, session model.Session, item model.CartItem) (*CartNotice, error) {
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	var notice CartNotice
	err := s.withCart(ctx, session, func(items []model.CartItem) ([]model.CartItem, error) {
		for i := range items {
			if items[i].ID == item.ID {
				items[i].Quantity += item.Quantity
				if item.Customization != nil {
					items[i].Customization = item.Customization
				}
				notice = CartNotice{
					Kind:     NoticeQuantityUpdated,
					Title:    "Cart updated",
					Message:  fmt.Sprintf("%s quantity updated to %d.", items[i].Name, items[i].Quantity),
					Item:     items[i],
					Quantity: items[i].Quantity,
				}
				return items, nil
			}
		}
		notice = CartNotice{
			Kind:     NoticeAdded,
			Title:    "Added to cart",
			Message:  fmt.Sprintf("%s has been added to your cart.", item.Name),
			Item:     item,
			Quantity: item.Quantity,
		}
		return append(items, item), nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("session_id", session.SessionID).
		Int("product_id", item.ID).
		Str("notice", string(notice.Kind)).
		Msg("Cart changed")
	return &notice, nil
}

// AddProduct adds a catalog product by id.
func (s *CartService) AddProduct(ctx context.Context, session model.Session, productID, quantity int, custom *model.Customization) (*CartNotice, error) {
	p, ok := catalog.Get(productID)
	if !ok {
		return nil, ErrUnknownProduct
	}
	if !p.InStock {
		return nil, ErrOutOfStock
	}
	return s.AddToCart(ctx, session, model.CartItem{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		Quantity:      quantity,
		Image:         p.Image,
		Customization: custom,
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, session model.Session, productID, quantity int) error {
	if quantity <= 0 {
		_, err := s.RemoveFromCart(ctx, session, productID)
		return err
	}
	return s.withCart(ctx, session, func(items []model.CartItem) ([]model.CartItem, error) {
		for i := range items {
			if items[i].ID == productID {
				items[i].Quantity = quantity
				return items, nil
			}
		}
		return nil, ErrItemNotInCart
	})
}

// RemoveFromCart deletes a line. Removing a missing line is not an error.
func (s *CartService) RemoveFromCart(ctx context.Context, session model.Session, productID int) (*CartNotice, error) {
	var notice *CartNotice
	err := s.withCart(ctx, session, func(items []model.CartItem) ([]model.CartItem, error) {
		out := items[:0]
		for _, it := range items {
			if it.ID == productID {
				notice = &CartNotice{
					Kind:    NoticeRemoved,
					Title:   "Removed from cart",
					Message: fmt.Sprintf("%s has been removed from your cart.", it.Name),
					Item:    it,
				}
				continue
			}
			out = append(out, it)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return notice, nil
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context, session model.Session) error {
	return s.locks.WithLockContext(ctx, cartLockKey(session.SessionID), func() error {
		if err := s.repo.Clear(ctx, session.SessionID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
}

// Items returns the cart lines.
func (s *CartService) Items(ctx context.Context, session model.Session) ([]model.CartItem, error) {
	items, err := s.repo.Get(ctx, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return items, nil
}

// Totals returns the cart summary with the same shipping rule as checkout.
func (s *CartService) Totals(ctx context.Context, session model.Session) (*CartTotals, error) {
	items, err := s.Items(ctx, session)
	if err != nil {
		return nil, err
	}
	subtotal := Subtotal(items)
	shipping := decimal.Zero
	if len(items) > 0 {
		shipping = ShippingFor(subtotal)
	}
	return &CartTotals{
		Items:     items,
		ItemCount: ItemCount(items),
		Subtotal:  subtotal,
		Shipping:  shipping,
		Total:     subtotal.Add(shipping),
	}, nil
}

// withCart runs a read-modify-write on the session's cart under its lock.
func (s *CartService) withCart(ctx context.Context, session model.Session, fn func([]model.CartItem) ([]model.CartItem, error)) error {
	if err := s.locks.LockContext(ctx, cartLockKey(session.SessionID)); err != nil {
		return err
	}
	defer s.locks.Unlock(cartLockKey(session.SessionID))

	items, err := s.repo.Get(ctx, session.SessionID)
	if err != nil {
		return fmt.Errorf("failed to get cart: %w", err)
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, session.SessionID, items); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}
