package memory

import (
	"context"
	"sort"
	"sync"

	"tg-reward-ledger/internal/features/address/models"
	"tg-reward-ledger/internal/features/address/repository"
)

type ownerKey struct {
	chain   models.Chain
	address string
}

type bindingKey struct {
	identity int64
	chain    models.Chain
}

type Repository struct {
	mu         sync.RWMutex
	byAddress  map[ownerKey]int64
	byIdentity map[bindingKey]models.Binding
}

func NewRepository() *Repository {
	return &Repository{
		byAddress:  make(map[ownerKey]int64),
		byIdentity: make(map[bindingKey]models.Binding),
	}
}

var _ repository.Repository = (*Repository)(nil)

func (r *Repository) GetOwner(_ context.Context, chain models.Chain, address string) (*models.Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAddress[ownerKey{chain, address}]
	if !ok {
		return nil, models.ErrBindingNotFound
	}
	b := r.byIdentity[bindingKey{id, chain}]
	return &b, nil
}

func (r *Repository) Get(_ context.Context, identityID int64, chain models.Chain) (*models.Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byIdentity[bindingKey{identityID, chain}]
	if !ok {
		return nil, models.ErrBindingNotFound
	}
	return &b, nil
}

func (r *Repository) List(_ context.Context, identityID int64) ([]*models.Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Binding
	for k, b := range r.byIdentity {
		if k.identity == identityID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chain < out[j].Chain })
	return out, nil
}

func (r *Repository) Upsert(_ context.Context, b *models.Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	addrKey := ownerKey{b.Chain, b.Address}
	if owner, taken := r.byAddress[addrKey]; taken && owner != b.IdentityID {
		return models.ErrAddressTaken
	}

	bk := bindingKey{b.IdentityID, b.Chain}
	if prev, had := r.byIdentity[bk]; had {
		delete(r.byAddress, ownerKey{prev.Chain, prev.Address})
	}
	r.byIdentity[bk] = *b
	r.byAddress[addrKey] = b.IdentityID
	return nil
}

func (r *Repository) Delete(_ context.Context, identityID int64, chain models.Chain) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bk := bindingKey{identityID, chain}
	prev, had := r.byIdentity[bk]
	if !had {
		return models.ErrBindingNotFound
	}
	delete(r.byIdentity, bk)
	delete(r.byAddress, ownerKey{prev.Chain, prev.Address})
	return nil
}
