package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lovincraft-store/internal/catalog"
	"lovincraft-store/internal/model"
	"lovincraft-store/internal/pkg/idgen"
	"lovincraft-store/internal/pkg/lock"
	"lovincraft-store/internal/repository"
)

// Registry errors.
var (
	ErrRegistryNotFound = errors.New("registry not found")
	ErrNotRegistryOwner = errors.New("registry belongs to another user")
	ErrMissingRegistry  = errors.New("registry name and occasion are required")
	ErrInvalidDate      = errors.New("registry date must be YYYY-MM-DD")
	ErrLongRegistryText = errors.New("registry name, occasion or message is too long")
	ErrFullyPurchased   = errors.New("item already fully purchased")
	ErrMissingPurchaser = errors.New("purchaser name is required")
	ErrNotInRegistry    = errors.New("product is not in the registry")
)

const (
	registriesLockKey = "registries"
	shareCodeLength   = 8
)

// RegistryInput describes a new gift registry.
type RegistryInput struct {
	Name      string `json:"name" validate:"required,max=120"`
	Occasion  string `json:"occasion" validate:"required,max=60"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	CreatedBy string `json:"createdBy" validate:"required"`
	Message   string `json:"message" validate:"max=500"`
}

// Blank names and occasions are caught before validation, so a failure on
// either one is a length overflow.
var registryFieldErrors = fieldErrors{
	"Name":      ErrLongRegistryText,
	"Occasion":  ErrLongRegistryText,
	"Date":      ErrInvalidDate,
	"CreatedBy": ErrMissingUser,
	"Message":   ErrLongRegistryText,
}

// RegistryService manages shareable gift registries.
type RegistryService struct {
	repo  *repository.RegistryRepository
	locks *lock.KeyLock
	now   func() time.Time
}

// NewRegistryService creates a new RegistryService instance.
func NewRegistryService(repo *repository.RegistryRepository, locks *lock.KeyLock) *RegistryService {
	return &RegistryService{repo: repo, locks: locks, now: time.Now}
}

// CreateRegistry stores an empty registry with a fresh share code.
func (s *RegistryService) CreateRegistry(ctx context.Context, in RegistryInput) (*model.GiftRegistry, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Occasion = strings.TrimSpace(in.Occasion)
	in.Message = strings.TrimSpace(in.Message)
	if in.Name == "" || in.Occasion == "" {
		return nil, ErrMissingRegistry
	}
	if err := registryFieldErrors.check(in); err != nil {
		return nil, err
	}

	reg := model.GiftRegistry{
		ID:        idgen.New("registry"),
		Name:      in.Name,
		Occasion:  in.Occasion,
		Date:      in.Date,
		CreatedBy: in.CreatedBy,
		Message:   in.Message,
		Items:     []model.RegistryItem{},
		CreatedAt: s.now(),
	}

	err := s.locks.WithLock(registriesLockKey, func() error {
		regs, err := s.repo.List(ctx)
		if err != nil {
			return err
		}
		reg.ShareCode = uniqueShareCode(regs)
		return s.repo.Save(ctx, append(regs, reg))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	log.Info().Str("registry_id", reg.ID).Str("share_code", reg.ShareCode).Msg("Gift registry created")
	return &reg, nil
}

func uniqueShareCode(regs []model.GiftRegistry) string {
	for {
		code := idgen.Code(shareCodeLength)
		taken := false
		for _, r := range regs {
			if r.ShareCode == code {
				taken = true
				break
			}
		}
		if !taken {
			return code
		}
	}
}

// AddItem adds quantity of a catalog product to the registry, merging with
// an existing line for the same product. Only the owner may add.
func (s *RegistryService) AddItem(ctx context.Context, registryID, userID string, productID, quantity int) (*model.GiftRegistry, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	p, ok := catalog.Get(productID)
	if !ok {
		return nil, ErrUnknownProduct
	}

	return s.mutate(ctx, registryID, func(r *model.GiftRegistry) error {
		if r.CreatedBy != userID {
			return ErrNotRegistryOwner
		}
		for i := range r.Items {
			if r.Items[i].ProductID == productID {
				r.Items[i].Quantity += quantity
				return nil
			}
		}
		r.Items = append(r.Items, model.RegistryItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			ProductImage: p.Image,
			Quantity:     quantity,
		})
		return nil
	})
}

// MarkItemPurchased records one purchase of a registry item by a guest.
// Purchases never exceed the wished-for quantity.
func (s *RegistryService) MarkItemPurchased(ctx context.Context, registryID string, productID int, purchaser string) (*model.GiftRegistry, error) {
	purchaser = strings.TrimSpace(purchaser)
	if purchaser == "" {
		return nil, ErrMissingPurchaser
	}

	return s.mutate(ctx, registryID, func(r *model.GiftRegistry) error {
		for i := range r.Items {
			it := &r.Items[i]
			if it.ProductID != productID {
				continue
			}
			if it.Purchased >= it.Quantity {
				return ErrFullyPurchased
			}
			it.Purchased++
			it.PurchasedBy = append(it.PurchasedBy, model.Purchaser{Name: purchaser, Date: s.now()})
			return nil
		}
		return ErrNotInRegistry
	})
}

// GetRegistryByCode finds a registry by its share code, case-insensitively.
func (s *RegistryService) GetRegistryByCode(ctx context.Context, shareCode string) (*model.GiftRegistry, error) {
	regs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get registries: %w", err)
	}
	code := strings.ToUpper(strings.TrimSpace(shareCode))
	for i := range regs {
		if regs[i].ShareCode == code {
			return &regs[i], nil
		}
	}
	return nil, ErrRegistryNotFound
}

// GetUserRegistries lists the registries a user created.
func (s *RegistryService) GetUserRegistries(ctx context.Context, userID string) ([]model.GiftRegistry, error) {
	regs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get registries: %w", err)
	}
	out := make([]model.GiftRegistry, 0)
	for _, r := range regs {
		if r.CreatedBy == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteRegistry removes a registry owned by userID.
func (s *RegistryService) DeleteRegistry(ctx context.Context, registryID, userID string) error {
	return s.locks.WithLock(registriesLockKey, func() error {
		regs, err := s.repo.List(ctx)
		if err != nil {
			return err
		}
		for i, r := range regs {
			if r.ID != registryID {
				continue
			}
			if r.CreatedBy != userID {
				return ErrNotRegistryOwner
			}
			return s.repo.Save(ctx, append(regs[:i], regs[i+1:]...))
		}
		return ErrRegistryNotFound
	})
}

func (s *RegistryService) mutate(ctx context.Context, registryID string, fn func(*model.GiftRegistry) error) (*model.GiftRegistry, error) {
	var updated model.GiftRegistry
	err := s.locks.WithLock(registriesLockKey, func() error {
		regs, err := s.repo.List(ctx)
		if err != nil {
			return err
		}
		for i := range regs {
			if regs[i].ID != registryID {
				continue
			}
			if err := fn(&regs[i]); err != nil {
				return err
			}
			updated = regs[i]
			return s.repo.Save(ctx, regs)
		}
		return ErrRegistryNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
