package repository

import (
	"context"

	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/kv"
)

// RegistryRepository handles the shared gift registry list.
type RegistryRepository struct {
	store kv.Store
}

// NewRegistryRepository creates a new RegistryRepository instance.
func NewRegistryRepository(store kv.Store) *RegistryRepository {
	return &RegistryRepository{store: store}
}

// List returns all registries.
func (r *RegistryRepository) List(ctx context.Context) ([]model.GiftRegistry, error) {
	regs := make([]model.GiftRegistry, 0)
	if _, err := kv.GetJSON(ctx, r.store, registriesKey, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// Save replaces the registry list.
func (r *RegistryRepository) Save(ctx context.Context, regs []model.GiftRegistry) error {
	return kv.SetJSON(ctx, r.store, registriesKey, regs)
}
