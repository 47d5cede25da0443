package repository

import (
	"context"

	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
)

// OrderRepository handles placed orders. Each order is its own document so
// it can be tracked by id; a per-user index lists a user's orders.
type OrderRepository struct {
	store kv.Store
}

// NewOrderRepository creates a new OrderRepository instance.
func NewOrderRepository(store kv.Store) *OrderRepository {
	return &OrderRepository{store: store}
}

// Create stores the order and prepends it to the owner's index. Guest
// orders are reachable by id only. Callers serialize writes per user.
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	if err := kv.SetJSON(ctx, r.store, orderKey(order.ID), order); err != nil {
		return err
	}
	if order.UserID == "" || order.UserID == model.GuestUserID {
		return nil
	}

	ids := make([]string, 0)
	if _, err := kv.GetJSON(ctx, r.store, ordersKey(order.UserID), &ids); err != nil {
		return err
	}
	ids = append([]string{order.ID}, ids...)
	return kv.SetJSON(ctx, r.store, ordersKey(order.UserID), ids)
}

// Get retrieves an order by id.
// Returns ErrOrderNotFound if the order does not exist.
func (r *OrderRepository) Get(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	found, err := kv.GetJSON(ctx, r.store, orderKey(orderID), &order)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

// Save overwrites an existing order document.
func (r *OrderRepository) Save(ctx context.Context, order *model.Order) error {
	return kv.SetJSON(ctx, r.store, orderKey(order.ID), order)
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	ids := make([]string, 0)
	if _, err := kv.GetJSON(ctx, r.store, ordersKey(userID), &ids); err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(ids))
	for _, id := range ids {
		order, err := r.Get(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("order_id", id).Msg("Skipping missing order in user index")
			continue
		}
		orders = append(orders, *order)
	}
	return orders, nil
}
