package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-reward-ledger/internal/common/keylock"
	"tg-reward-ledger/internal/common/logger"
	"tg-reward-ledger/internal/features/address/models"
	"tg-reward-ledger/internal/features/address/repository"
)

type AddressService interface {
	// Bind sets the identity's address on chain. The address must not be
	// bound to any other identity on that chain.
	Bind(ctx context.Context, identityID int64, chain models.Chain, address string) (*models.BindResult, error)
	Unbind(ctx context.Context, identityID int64, chain models.Chain) (*models.Binding, error)
	Lookup(ctx context.Context, chain models.Chain, address string) (*models.Binding, error)
	List(ctx context.Context, identityID int64) ([]*models.Binding, error)
}

type addressService struct {
	repo   repository.Repository
	locks  keylock.Locker
	now    func() time.Time
	logger zerolog.Logger
}

func NewAddressService(repo repository.Repository, locks keylock.Locker, now func() time.Time) AddressService {
	if now == nil {
		now = time.Now
	}
	return &addressService{
		repo:   repo,
		locks:  locks,
		now:    now,
		logger: logger.Component("address"),
	}
}

func (s *addressService) Bind(ctx context.Context, identityID int64, chain models.Chain, raw string) (*models.BindResult, error) {
	address, err := Canonicalize(chain, raw)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, addressLockKey(chain, address), bindingLockKey(identityID, chain))
	if err != nil {
		return nil, err
	}
	defer unlock()

	owner, err := s.repo.GetOwner(ctx, chain, address)
	switch {
	case err == nil && owner.IdentityID != identityID:
		return nil, models.ErrAddressTaken
	case err != nil && !errors.Is(err, models.ErrBindingNotFound):
		return nil, err
	}

	var previous string
	prev, err := s.repo.Get(ctx, identityID, chain)
	switch {
	case err == nil:
		previous = prev.Address
		if previous == address {
			return &models.BindResult{Binding: *prev, PreviousAddress: previous}, nil
		}
	case !errors.Is(err, models.ErrBindingNotFound):
		return nil, err
	}

	binding := models.Binding{
		IdentityID: identityID,
		Chain:      chain,
		Address:    address,
		BoundAt:    s.now(),
	}
	if err := s.repo.Upsert(context.WithoutCancel(ctx), &binding); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("identity_id", identityID).
		Str("chain", string(chain)).
		Str("address", address).
		Str("previous", previous).
		Msg("Address bound")

	return &models.BindResult{Binding: binding, PreviousAddress: previous}, nil
}

func (s *addressService) Unbind(ctx context.Context, identityID int64, chain models.Chain) (*models.Binding, error) {
	unlock, err := s.locks.Lock(ctx, bindingLockKey(identityID, chain))
	if err != nil {
		return nil, err
	}
	defer unlock()

	prev, err := s.repo.Get(ctx, identityID, chain)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(context.WithoutCancel(ctx), identityID, chain); err != nil {
		return nil, err
	}
	return prev, nil
}

func (s *addressService) Lookup(ctx context.Context, chain models.Chain, raw string) (*models.Binding, error) {
	address, err := Canonicalize(chain, raw)
	if err != nil {
		return nil, err
	}
	return s.repo.GetOwner(ctx, chain, address)
}

func (s *addressService) List(ctx context.Context, identityID int64) ([]*models.Binding, error) {
	return s.repo.List(ctx, identityID)
}

func addressLockKey(chain models.Chain, address string) string {
	return fmt.Sprintf("address:%s:%s", chain, address)
}

func bindingLockKey(identityID int64, chain models.Chain) string {
	return fmt.Sprintf("binding:%d:%s", identityID, chain)
}
