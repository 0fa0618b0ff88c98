package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"tg-reward-ledger/internal/features/ledger/models"
	"tg-reward-ledger/internal/features/ledger/repository"
)

const (
	GuardIdempotency = "idempotency"
	GuardToken       = "token_active"
	GuardPolicy      = "policy_enabled"
	GuardAmount      = "amount_in_range"
	GuardCooldown    = "cooldown_inactive"
	GuardFunds       = "sender_funds"
)

// transfer is a reward normalized across the direct and pool paths.
type transfer struct {
	source      *int64 // debited balance owner, nil for minted rewards
	recipient   int64
	policyOwner int64
	actor       int64 // carries the cooldown
	tokenID     string
	amount      decimal.Decimal
	ref         *string
	action      string

	// filled while guards run
	token  *models.Token
	policy *models.RewardPolicy
	prior  *models.RewardEvent
}

type guard struct {
	name  string
	check func(ctx context.Context, tx repository.Tx, t *transfer) error
}

// errShortCircuit stops the chain without rejecting the request.
var errShortCircuit = errors.New("short circuit")

// rewardGuards run in order; the first failure wins.
func (s *ledgerService) rewardGuards() []guard {
	return []guard{
		{name: GuardIdempotency, check: checkIdempotency},
		{name: GuardToken, check: checkToken},
		{name: GuardPolicy, check: checkPolicy},
		{name: GuardAmount, check: checkAmount},
		{name: GuardCooldown, check: s.checkCooldown},
		{name: GuardFunds, check: checkFunds},
	}
}

func runGuards(ctx context.Context, tx repository.Tx, t *transfer, guards []guard) error {
	for _, g := range guards {
		err := g.check(ctx, tx, t)
		switch {
		case err == nil:
			continue
		case errors.Is(err, errShortCircuit):
			return err
		case isRejection(err):
			return &models.Rejection{Guard: g.name, Err: err}
		default:
			return err
		}
	}
	return nil
}

func isRejection(err error) bool {
	for _, target := range []error{
		models.ErrTokenNotFound,
		models.ErrTokenInactive,
		models.ErrPolicyDisabled,
		models.ErrAmountOutOfRange,
		models.ErrAmountPrecision,
		models.ErrCooldownActive,
		models.ErrInsufficientFunds,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func checkIdempotency(ctx context.Context, tx repository.Tx, t *transfer) error {
	if t.ref == nil {
		return nil
	}
	prior, err := tx.FindEventByRef(ctx, t.tokenID, *t.ref)
	switch {
	case err == nil:
		t.prior = prior
		return errShortCircuit
	case errors.Is(err, models.ErrEventNotFound):
		return nil
	default:
		return err
	}
}

func checkToken(ctx context.Context, tx repository.Tx, t *transfer) error {
	tok, err := tx.GetToken(ctx, t.tokenID)
	if err != nil {
		return err
	}
	if !tok.Active {
		return models.ErrTokenInactive
	}
	t.token = tok
	return nil
}

func checkPolicy(ctx context.Context, tx repository.Tx, t *transfer) error {
	p, err := tx.GetPolicy(ctx, t.policyOwner, t.tokenID)
	switch {
	case errors.Is(err, models.ErrPolicyNotFound):
		return models.ErrPolicyDisabled
	case err != nil:
		return err
	case !p.Enabled:
		return models.ErrPolicyDisabled
	}
	t.policy = p
	return nil
}

func checkAmount(_ context.Context, _ repository.Tx, t *transfer) error {
	if err := t.token.CheckAmount(t.amount); err != nil {
		return err
	}
	if !t.amount.IsPositive() ||
		t.amount.LessThan(t.policy.MinAmount) ||
		t.amount.GreaterThan(t.policy.MaxAmount) {
		return models.ErrAmountOutOfRange
	}
	return nil
}

func (s *ledgerService) checkCooldown(ctx context.Context, _ repository.Tx, t *transfer) error {
	active, err := s.cooldowns.IsActive(ctx, t.actor, t.action)
	if err != nil {
		return err
	}
	if active {
		return models.ErrCooldownActive
	}
	return nil
}

func checkFunds(ctx context.Context, tx repository.Tx, t *transfer) error {
	if t.source == nil {
		return nil
	}
	b, err := tx.GetBalance(ctx, *t.source, t.tokenID)
	if err != nil {
		return err
	}
	if b.Available().LessThan(t.amount) {
		return models.ErrInsufficientFunds
	}
	return nil
}
