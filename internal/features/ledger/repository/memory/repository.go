package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tg-reward-ledger/internal/features/ledger/models"
	"tg-reward-ledger/internal/features/ledger/repository"
)

const defaultEventLimit = 50

type balanceKey struct {
	owner int64
	token string
}

type refKey struct {
	token string
	ref   string
}

type Repository struct {
	mu       sync.RWMutex
	balances map[balanceKey]models.Balance
	policies map[balanceKey]models.RewardPolicy
	tokens   map[string]models.Token
	events   []*models.RewardEvent
	byRef    map[refKey]*models.RewardEvent
	nextID   int64
	now      func() time.Time
}

func NewRepository(now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{
		balances: make(map[balanceKey]models.Balance),
		policies: make(map[balanceKey]models.RewardPolicy),
		tokens:   make(map[string]models.Token),
		byRef:    make(map[refKey]*models.RewardEvent),
		now:      now,
	}
}

var _ repository.Repository = (*Repository)(nil)

// RunInTx stages writes and applies them in one critical section once fn
// succeeds. Callers serialize conflicting work with keylock, so staged
// reads never race on the same key.
func (r *Repository) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx := &memTx{
		repo:     r,
		balances: make(map[balanceKey]models.Balance),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return r.commit(tx)
}

func (r *Repository) commit(tx *memTx) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range tx.events {
		if e.ExternalMessageRef == nil {
			continue
		}
		if _, dup := r.byRef[refKey{e.TokenID, *e.ExternalMessageRef}]; dup {
			return models.ErrDuplicateRef
		}
	}

	for k, b := range tx.balances {
		r.balances[k] = b
	}
	for _, e := range tx.events {
		r.nextID++
		e.ID = r.nextID
		stored := *e
		r.events = append(r.events, &stored)
		if e.ExternalMessageRef != nil {
			r.byRef[refKey{e.TokenID, *e.ExternalMessageRef}] = &stored
		}
	}
	return nil
}

func (r *Repository) GetOrCreateBalance(_ context.Context, ownerID int64, tokenID string) (*models.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := balanceKey{ownerID, tokenID}
	b, ok := r.balances[k]
	if !ok {
		b = zeroBalance(ownerID, tokenID, r.now())
		r.balances[k] = b
	}
	return &b, nil
}

func (r *Repository) ListBalances(_ context.Context, ownerID int64) ([]*models.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Balance
	for k, b := range r.balances {
		if k.owner == ownerID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out, nil
}

func (r *Repository) GetPolicy(_ context.Context, ownerID int64, tokenID string) (*models.RewardPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getPolicyLocked(ownerID, tokenID)
}

func (r *Repository) getPolicyLocked(ownerID int64, tokenID string) (*models.RewardPolicy, error) {
	p, ok := r.policies[balanceKey{ownerID, tokenID}]
	if !ok {
		return nil, models.ErrPolicyNotFound
	}
	return &p, nil
}

func (r *Repository) PutPolicy(_ context.Context, p *models.RewardPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[balanceKey{p.OwnerID, p.TokenID}] = *p
	return nil
}

func (r *Repository) GetToken(_ context.Context, tokenID string) (*models.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getTokenLocked(tokenID)
}

func (r *Repository) getTokenLocked(tokenID string) (*models.Token, error) {
	t, ok := r.tokens[tokenID]
	if !ok {
		return nil, models.ErrTokenNotFound
	}
	return &t, nil
}

func (r *Repository) PutToken(_ context.Context, t *models.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.tokens[t.ID]; ok {
		t.CreatedAt = prev.CreatedAt
	}
	r.tokens[t.ID] = *t
	return nil
}

func (r *Repository) ListTokens(_ context.Context) ([]*models.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repository) ListEvents(_ context.Context, filter models.EventFilter) ([]*models.RewardEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}

	var out []*models.RewardEvent
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.events[i]
		if filter.BeforeID > 0 && e.ID >= filter.BeforeID {
			continue
		}
		if filter.TokenID != "" && e.TokenID != filter.TokenID {
			continue
		}
		if filter.OwnerID != nil && !involves(e, *filter.OwnerID) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func involves(e *models.RewardEvent, owner int64) bool {
	for _, id := range []*int64{e.FromID, e.ToID, e.PoolID} {
		if id != nil && *id == owner {
			return true
		}
	}
	return false
}

func zeroBalance(ownerID int64, tokenID string, now time.Time) models.Balance {
	return models.Balance{OwnerID: ownerID, TokenID: tokenID, UpdatedAt: now}
}

type memTx struct {
	repo     *Repository
	balances map[balanceKey]models.Balance
	events   []*models.RewardEvent
}

func (t *memTx) GetBalance(_ context.Context, ownerID int64, tokenID string) (*models.Balance, error) {
	k := balanceKey{ownerID, tokenID}
	if b, ok := t.balances[k]; ok {
		return &b, nil
	}

	t.repo.mu.RLock()
	b, ok := t.repo.balances[k]
	t.repo.mu.RUnlock()
	if !ok {
		b = zeroBalance(ownerID, tokenID, t.repo.now())
	}
	return &b, nil
}

func (t *memTx) PutBalance(_ context.Context, b *models.Balance) error {
	t.balances[balanceKey{b.OwnerID, b.TokenID}] = *b
	return nil
}

func (t *memTx) GetPolicy(_ context.Context, ownerID int64, tokenID string) (*models.RewardPolicy, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	return t.repo.getPolicyLocked(ownerID, tokenID)
}

func (t *memTx) GetToken(_ context.Context, tokenID string) (*models.Token, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	return t.repo.getTokenLocked(tokenID)
}

func (t *memTx) FindEventByRef(_ context.Context, tokenID, ref string) (*models.RewardEvent, error) {
	for _, e := range t.events {
		if e.TokenID == tokenID && e.ExternalMessageRef != nil && *e.ExternalMessageRef == ref {
			c := *e
			return &c, nil
		}
	}

	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	e, ok := t.repo.byRef[refKey{tokenID, ref}]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	c := *e
	return &c, nil
}

func (t *memTx) AppendEvent(_ context.Context, e *models.RewardEvent) error {
	t.events = append(t.events, e)
	return nil
}
