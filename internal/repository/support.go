package repository

import (
	"context"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
)

// SupportRepository handles the shared support ticket list.
type SupportRepository struct {
	store kv.Store
}

// NewSupportRepository creates a new SupportRepository instance.
func NewSupportRepository(store kv.Store) *SupportRepository {
	return &SupportRepository{store: store}
}

// List returns all tickets, newest first.
func (r *SupportRepository) List(ctx context.Context) ([]model.SupportTicket, error) {
	tickets := make([]model.SupportTicket, 0)
	if _, err := kv.GetJSON(ctx, r.store, ticketsKey, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Save replaces the ticket list.
func (r *SupportRepository) Save(ctx context.Context, tickets []model.SupportTicket) error {
	return kv.SetJSON(ctx, r.store, ticketsKey, tickets)
}
