package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tg-reward-ledger/internal/common/keylock"
	"tg-reward-ledger/internal/common/logger"
	"tg-reward-ledger/internal/features/cooldown"
	"tg-reward-ledger/internal/features/ledger/models"
	"tg-reward-ledger/internal/features/ledger/repository"
)

const (
	ActionDeposit  = "deposit"
	ActionWithdraw = "withdraw"

	maxEventLimit = 200
)

type LedgerService interface {
	GetOrCreateBalance(ctx context.Context, ownerID int64, tokenID string) (*models.Balance, error)
	ListBalances(ctx context.Context, ownerID int64) ([]*models.Balance, error)

	// ApplyReward credits req.ToID, debiting req.FromID when present.
	// A request whose ExternalMessageRef was already applied returns the
	// recorded event without mutating anything.
	ApplyReward(ctx context.Context, req models.RewardRequest) (*models.RewardEvent, error)
	// ApplyPoolReward pays req.ToID out of req.PoolID under the pool's policy.
	ApplyPoolReward(ctx context.Context, req models.PoolRewardRequest) (*models.RewardEvent, error)

	Freeze(ctx context.Context, ownerID int64, tokenID string, amount decimal.Decimal) (*models.Balance, error)
	Unfreeze(ctx context.Context, ownerID int64, tokenID string, amount decimal.Decimal) (*models.Balance, error)
	Deposit(ctx context.Context, ownerID int64, tokenID string, amount decimal.Decimal, reason string) (*models.Balance, error)
	Withdraw(ctx context.Context, ownerID int64, tokenID string, amount decimal.Decimal, reason string) (*models.Balance, error)

	// RegisterToken inserts or updates a token. Deactivating a token blocks
	// new credits but still lets holders withdraw and unfreeze.
	RegisterToken(ctx context.Context, t models.Token) (*models.Token, error)
	GetToken(ctx context.Context, tokenID string) (*models.Token, error)
	ListTokens(ctx context.Context) ([]*models.Token, error)

	SetPolicy(ctx context.Context, p models.RewardPolicy) (*models.RewardPolicy, error)
	GetPolicy(ctx context.Context, ownerID int64, tokenID string) (*models.RewardPolicy, error)
	ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.RewardEvent, error)
}

type ledgerService struct {
	repo      repository.Repository
	cooldowns cooldown.Tracker
	locks     keylock.Locker
	now       func() time.Time
	logger    zerolog.Logger
}

func NewLedgerService(repo repository.Repository, cooldowns cooldown.Tracker, locks keylock.Locker, now func() time.Time) LedgerService {
	if now == nil {
		now = time.Now
	}
	return &ledgerService{
		repo:      repo,
		cooldowns: cooldowns,
		locks:     locks,
		now:       now,
		logger:    logger.Component("ledger"),
	}
}

func (s *ledgerService) GetOrCreateBalance(ctx context.Context, ownerID int64, tokenID string) (*models.Balance, error) {
	if tokenID == "" {
		return nil, models.ErrInvalidRequest
	}
	if _, err := s.repo.GetToken(ctx, tokenID); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreateBalance(ctx, ownerID, tokenID)
}

func (s *ledgerService) ListBalances(ctx context.Context, ownerID int64) ([]*models.Balance, error) {
	return s.repo.ListBalances(ctx, ownerID)
}

func (s *ledgerService) ApplyReward(ctx context.Context, req models.RewardRequest) (*models.RewardEvent, error) {
	if req.TokenID == "" || (req.FromID != nil && *req.FromID == req.ToID) {
		return nil, models.ErrInvalidRequest
	}

	actor := req.ToID
	if req.FromID != nil {
		actor = *req.FromID
	}
	t := &transfer{
		source:      req.FromID,
		recipient:   req.ToID,
		policyOwner: req.ToID,
		actor:       actor,
		tokenID:     req.TokenID,
		amount:      req.Amount,
		ref:         normalizeRef(req.ExternalMessageRef),
		action:      actionOrDefault(req.Action),
	}
	return s.apply(ctx, t, req.Reason, nil)
}

func (s *ledgerService) ApplyPoolReward(ctx context.Context, req models.PoolRewardRequest) (*models.RewardEvent, error) {
	if req.TokenID == "" || req.FromID == 0 || req.PoolID == req.ToID {
		return nil, models.ErrInvalidRequest
	}

	pool := req.PoolID
	t := &transfer{
		source:      &pool,
		recipient:   req.ToID,
		policyOwner: req.PoolID,
		actor:       req.FromID,
		tokenID:     req.TokenID,
		amount:      req.Amount,
		ref:         normalizeRef(req.ExternalMessageRef),
		action:      actionOrDefault(req.Action),
	}
	from := req.FromID
	return s.apply(ctx, t, req.Reason, &from)
}

// apply runs the guards and the balance mutation inside one transaction.
// triggeredBy is recorded as FromID on pool events. The cooldown is started
// before the transaction commits, so a tracker failure aborts the reward;
// a commit failure after that leaves a cooldown without a reward.
func (s *ledgerService) apply(ctx context.Context, t *transfer, reason string, triggeredBy *int64) (*models.RewardEvent, error) {
	keys := []string{
		balanceLockKey(t.recipient, t.tokenID),
		cooldown.Key(t.actor, t.action),
	}
	if t.source != nil {
		keys = append(keys, balanceLockKey(*t.source, t.tokenID))
	}
	if t.ref != nil {
		keys = append(keys, refLockKey(t.tokenID, *t.ref))
	}

	unlock, err := s.locks.Lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Past this point the request runs to completion regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	var event *models.RewardEvent
	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		if err := runGuards(ctx, tx, t, s.rewardGuards()); err != nil {
			return err
		}

		now := s.now()
		if t.source != nil {
			if err := s.adjust(ctx, tx, *t.source, t.tokenID, now, func(b *models.Balance) {
				b.Total = b.Total.Sub(t.amount)
			}); err != nil {
				return err
			}
		}
		if err := s.adjust(ctx, tx, t.recipient, t.tokenID, now, func(b *models.Balance) {
			b.Total = b.Total.Add(t.amount)
		}); err != nil {
			return err
		}

		recipient := t.recipient
		event = &models.RewardEvent{
			ToID:               &recipient,
			TokenID:            t.tokenID,
			Amount:             t.amount,
			ExternalMessageRef: t.ref,
			Reason:             reason,
			Action:             t.action,
			AppliedAt:          now,
		}
		if triggeredBy != nil {
			event.PoolID = t.source
			event.FromID = triggeredBy
		} else {
			event.FromID = t.source
		}
		if err := tx.AppendEvent(ctx, event); err != nil {
			return err
		}

		if t.policy.Cooldown > 0 {
			if err := s.cooldowns.Grant(ctx, t.actor, t.action, t.policy.Cooldown); err != nil {
				return fmt.Errorf("failed to start cooldown: %w", err)
			}
		}
		return nil
	})

	switch {
	case errors.Is(err, errShortCircuit):
		s.logger.Debug().
			Str("token_id", t.tokenID).
			Str("ref", *t.ref).
			Int64("event_id", t.prior.ID).
			Msg("Reward already applied")
		return t.prior, nil
	case errors.Is(err, models.ErrDuplicateRef):
		// another instance recorded the same ref first
		return s.findByRef(ctx, t.tokenID, *t.ref)
	case err != nil:
		var rej *models.Rejection
		if errors.As(err, &rej) {
			s.logger.Info().
				Str("guard", rej.Guard).
				Int64("actor", t.actor).
				Int64("recipient", t.recipient).
				Str("token_id", t.tokenID).
				Str("amount", t.amount.String()).
				Msg("Reward rejected")
		}
		return nil, err
	}

	s.logger.Info().
		Int64("event_id", event.ID).
		Int64("actor", t.actor).
		Int64("recipient", t.recipient).
		Str("token_id", t.tokenID).
		Str("amount", t.amount.String()).
		Msg("Reward applied")

	return event, nil
}

func (s *ledgerService) findByRef(ctx context.Context, tokenID, ref string) (*models.RewardEvent, error) {
	var prior *models.RewardEvent
	err := s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		prior, err = tx.FindEventByRef(ctx, tokenID, ref)
		return err
	})
	return prior, err
}

func (s *ledgerService) Freeze(ctx context.Context, ownerID int64, tokenID string, amount decimal.Decimal) (*models.Balance, error) {
	if _, err := s.usableToken(ctx, tokenID, amount, true); err != nil {
		return nil, err
	}
	return s.mutate(ctx, ownerID, tokenID, func(b *models.Balance) error {
		if !amount.IsPositive() {
			return models.ErrInvalidFreezeAmount
		}
		if b.Available().LessThan(amount) {
			return models.ErrInsufficientFunds
		}
		b.Frozen = b.Frozen.Add(amount)
		return nil
	}, nil)
}

func (s *ledgerService) Unfreeze(ctx context.Context, ownerID int64, tokenID string, amount decimal.Decimal) (*models.Balance, error) {
	if _, err := s.usableToken(ctx, tokenID, amount, false); err != nil {
		return nil, err
	}
	return s.mutate(ctx, ownerID, tokenID, func(b *models.Balance) error {
		if !amount.IsPositive() || b.Frozen.LessThan(amount) {
			return models.ErrInvalidFreezeAmount
		}
		b.Frozen = b.Frozen.Sub(amount)
		return nil
	}, nil)
}

func (s *ledgerService) Deposit(ctx context.Context, ownerID int64, tokenID string, amount decimal.Decimal, reason string) (*models.Balance, error) {
	if err := s.transferable(ctx, tokenID, amount, true); err != nil {
		return nil, err
	}
	owner := ownerID
	return s.mutate(ctx, ownerID, tokenID, func(b *models.Balance) error {
		if !amount.IsPositive() {
			return models.ErrInvalidRequest
		}
		b.Total = b.Total.Add(amount)
		return nil
	}, &models.RewardEvent{ToID: &owner, TokenID: tokenID, Amount: amount, Reason: reason, Action: ActionDeposit})
}

func (s *ledgerService) Withdraw(ctx context.Context, ownerID int64, tokenID string, amount decimal.Decimal, reason string) (*models.Balance, error) {
	if err := s.transferable(ctx, tokenID, amount, false); err != nil {
		return nil, err
	}
	owner := ownerID
	return s.mutate(ctx, ownerID, tokenID, func(b *models.Balance) error {
		if !amount.IsPositive() {
			return models.ErrInvalidRequest
		}
		if b.Available().LessThan(amount) {
			return models.ErrInsufficientFunds
		}
		b.Total = b.Total.Sub(amount)
		return nil
	}, &models.RewardEvent{FromID: &owner, TokenID: tokenID, Amount: amount, Reason: reason, Action: ActionWithdraw})
}

// usableToken loads tokenID and checks amount against its scale. Freezing
// and crediting need an active token; releasing funds does not.
func (s *ledgerService) usableToken(ctx context.Context, tokenID string, amount decimal.Decimal, needActive bool) (*models.Token, error) {
	if tokenID == "" {
		return nil, models.ErrInvalidRequest
	}
	tok, err := s.repo.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if needActive && !tok.Active {
		return nil, models.ErrTokenInactive
	}
	if amount.IsPositive() {
		if err := tok.CheckAmount(amount); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

// transferable adds the token's deposit and withdrawal bounds. Non-positive
// amounts are left to the balance check.
func (s *ledgerService) transferable(ctx context.Context, tokenID string, amount decimal.Decimal, needActive bool) error {
	tok, err := s.usableToken(ctx, tokenID, amount, needActive)
	if err != nil || !amount.IsPositive() {
		return err
	}
	return tok.CheckTransfer(amount)
}

// mutate applies change to a single balance under its lock and, when event
// is set, records it in the same transaction.
func (s *ledgerService) mutate(
	ctx context.Context,
	ownerID int64,
	tokenID string,
	change func(b *models.Balance) error,
	event *models.RewardEvent,
) (*models.Balance, error) {
	if tokenID == "" {
		return nil, models.ErrInvalidRequest
	}

	unlock, err := s.locks.Lock(ctx, balanceLockKey(ownerID, tokenID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx = context.WithoutCancel(ctx)

	var out *models.Balance
	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		b, err := tx.GetBalance(ctx, ownerID, tokenID)
		if err != nil {
			return err
		}
		if err := change(b); err != nil {
			return err
		}
		now := s.now()
		if err := s.put(ctx, tx, b, now); err != nil {
			return err
		}
		if event != nil {
			event.AppliedAt = now
			if err := tx.AppendEvent(ctx, event); err != nil {
				return err
			}
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ledgerService) adjust(ctx context.Context, tx repository.Tx, ownerID int64, tokenID string, now time.Time, change func(b *models.Balance)) error {
	b, err := tx.GetBalance(ctx, ownerID, tokenID)
	if err != nil {
		return err
	}
	change(b)
	return s.put(ctx, tx, b, now)
}

func (s *ledgerService) put(ctx context.Context, tx repository.Tx, b *models.Balance, now time.Time) error {
	if !b.Valid() {
		return fmt.Errorf("balance %d/%s would become total=%s frozen=%s",
			b.OwnerID, b.TokenID, b.Total, b.Frozen)
	}
	b.UpdatedAt = now
	return tx.PutBalance(ctx, b)
}

func (s *ledgerService) SetPolicy(ctx context.Context, p models.RewardPolicy) (*models.RewardPolicy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	tok, err := s.usableToken(ctx, p.TokenID, decimal.Zero, true)
	if err != nil {
		return nil, err
	}
	if !models.FitsScale(p.MinAmount, tok.Decimals) || !models.FitsScale(p.MaxAmount, tok.Decimals) {
		return nil, models.ErrInvalidPolicy
	}
	p.UpdatedAt = s.now()
	if err := s.repo.PutPolicy(ctx, &p); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("owner_id", p.OwnerID).
		Str("token_id", p.TokenID).
		Bool("enabled", p.Enabled).
		Dur("cooldown", p.Cooldown).
		Msg("Reward policy updated")

	return &p, nil
}

func (s *ledgerService) GetPolicy(ctx context.Context, ownerID int64, tokenID string) (*models.RewardPolicy, error) {
	return s.repo.GetPolicy(ctx, ownerID, tokenID)
}

func (s *ledgerService) RegisterToken(ctx context.Context, t models.Token) (*models.Token, error) {
	t.ID = strings.TrimSpace(t.ID)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := s.repo.PutToken(ctx, &t); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("token_id", t.ID).
		Str("chain", t.Chain).
		Int32("decimals", t.Decimals).
		Bool("active", t.Active).
		Msg("Token registered")

	return &t, nil
}

func (s *ledgerService) GetToken(ctx context.Context, tokenID string) (*models.Token, error) {
	return s.repo.GetToken(ctx, tokenID)
}

func (s *ledgerService) ListTokens(ctx context.Context) ([]*models.Token, error) {
	return s.repo.ListTokens(ctx)
}

func (s *ledgerService) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.RewardEvent, error) {
	if filter.Limit > maxEventLimit {
		filter.Limit = maxEventLimit
	}
	return s.repo.ListEvents(ctx, filter)
}

func balanceLockKey(ownerID int64, tokenID string) string {
	return fmt.Sprintf("balance:%d:%s", ownerID, tokenID)
}

func refLockKey(tokenID, ref string) string {
	return fmt.Sprintf("ref:%s:%s", tokenID, ref)
}

func normalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := strings.TrimSpace(*ref)
	if v == "" {
		return nil
	}
	return &v
}

func actionOrDefault(action string) string {
	if action == "" {
		return models.DefaultAction
	}
	return action
}
