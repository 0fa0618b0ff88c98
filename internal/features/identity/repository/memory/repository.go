package memory

import (
	"context"
	"strings"
	"sync"

	"tg-reward-ledger/internal/features/identity/models"
	"tg-reward-ledger/internal/features/identity/repository"
)

type Repository struct {
	mu         sync.RWMutex
	byExternal map[int64]*models.Identity
	byID       map[string]int64
}

func NewRepository() *Repository {
	return &Repository{
		byExternal: make(map[int64]*models.Identity),
		byID:       make(map[string]int64),
	}
}

var _ repository.Repository = (*Repository)(nil)

func (r *Repository) GetByExternalID(_ context.Context, externalID int64) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byExternal[externalID]
	if !ok {
		return nil, models.ErrIdentityNotFound
	}
	return i.Clone(), nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext, ok := r.byID[id]
	if !ok {
		return nil, models.ErrIdentityNotFound
	}
	return r.byExternal[ext].Clone(), nil
}

func (r *Repository) GetByUsername(_ context.Context, username string) (*models.Identity, error) {
	if username == "" {
		return nil, models.ErrIdentityNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, i := range r.byExternal {
		if strings.EqualFold(i.Username, username) {
			return i.Clone(), nil
		}
	}
	return nil, models.ErrIdentityNotFound
}

func (r *Repository) Create(_ context.Context, identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byExternal[identity.ExternalID]; ok {
		return models.ErrIdentityExists
	}
	r.byExternal[identity.ExternalID] = identity.Clone()
	r.byID[identity.ID] = identity.ExternalID
	return nil
}

func (r *Repository) Update(_ context.Context, identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byExternal[identity.ExternalID]; !ok {
		return models.ErrIdentityNotFound
	}
	r.byExternal[identity.ExternalID] = identity.Clone()
	return nil
}
