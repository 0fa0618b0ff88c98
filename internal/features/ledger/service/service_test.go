package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-reward-ledger/internal/common/keylock"
	"tg-reward-ledger/internal/features/cooldown"
	cdmemory "tg-reward-ledger/internal/features/cooldown/memory"
	"tg-reward-ledger/internal/features/ledger/models"
	"tg-reward-ledger/internal/features/ledger/repository/memory"
)

const token = "STAR"

var (
	alice int64 = 1001
	bob   int64 = 1002
	carol int64 = 1003
	chat  int64 = -100500
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc       LedgerService
	cooldowns *cdmemory.Tracker
	clock     *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cooldowns := cdmemory.NewTracker(clock.Now)
	svc := NewLedgerService(memory.NewRepository(clock.Now), cooldowns, keylock.NewLocal(), clock.Now)
	f := &fixture{svc: svc, cooldowns: cooldowns, clock: clock}
	f.token(t, models.Token{ID: token, Decimals: 2, Active: true})
	return f
}

func (f *fixture) token(t *testing.T, tok models.Token) {
	t.Helper()
	_, err := f.svc.RegisterToken(context.Background(), tok)
	require.NoError(t, err)
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr[T any](v T) *T {
	return &v
}

func (f *fixture) policy(t *testing.T, owner int64, lo, hi string, cooldown time.Duration) {
	t.Helper()
	_, err := f.svc.SetPolicy(context.Background(), models.RewardPolicy{
		OwnerID:   owner,
		TokenID:   token,
		MinAmount: d(lo),
		MaxAmount: d(hi),
		Enabled:   true,
		Cooldown:  cooldown,
	})
	require.NoError(t, err)
}

// fund sets total and frozen for owner.
func (f *fixture) fund(t *testing.T, owner int64, total, frozen string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Deposit(ctx, owner, token, d(total), "seed")
	require.NoError(t, err)
	if frozen != "0" {
		_, err = f.svc.Freeze(ctx, owner, token, d(frozen))
		require.NoError(t, err)
	}
}

func (f *fixture) balance(t *testing.T, owner int64) *models.Balance {
	t.Helper()
	b, err := f.svc.GetOrCreateBalance(context.Background(), owner, token)
	require.NoError(t, err)
	return b
}

func assertBalance(t *testing.T, b *models.Balance, total, frozen string) {
	t.Helper()
	assert.True(t, d(total).Equal(b.Total), "total: want %s, got %s", total, b.Total)
	assert.True(t, d(frozen).Equal(b.Frozen), "frozen: want %s, got %s", frozen, b.Frozen)
}

func reward(from *int64, to int64, amount string) models.RewardRequest {
	return models.RewardRequest{FromID: from, ToID: to, TokenID: token, Amount: d(amount)}
}

func TestGetOrCreateBalance_StartsAtZero(t *testing.T) {
	f := newFixture(t)
	b := f.balance(t, alice)
	assertBalance(t, b, "0", "0")
	assert.True(t, b.Available().IsZero())
}

func TestApplyReward_DebitsAvailableOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, bob, "1", "100", 0)
	f.fund(t, alice, "100", "20")

	ev, err := f.svc.ApplyReward(ctx, reward(&alice, bob, "50"))
	require.NoError(t, err)
	assert.NotZero(t, ev.ID)
	assert.Equal(t, alice, *ev.FromID)
	assert.Equal(t, bob, *ev.ToID)
	assert.Equal(t, models.DefaultAction, ev.Action)

	assertBalance(t, f.balance(t, alice), "50", "20")
	assertBalance(t, f.balance(t, bob), "50", "0")

	// 30 available left
	_, err = f.svc.ApplyReward(ctx, reward(&alice, bob, "50"))
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	var rej *models.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, GuardFunds, rej.Guard)

	assertBalance(t, f.balance(t, alice), "50", "20")
	assertBalance(t, f.balance(t, bob), "50", "0")
}

func TestFreeze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, alice, "50", "20")

	b, err := f.svc.Freeze(ctx, alice, token, d("30"))
	require.NoError(t, err)
	assertBalance(t, b, "50", "50")
	assert.True(t, b.Available().IsZero())

	_, err = f.svc.Freeze(ctx, alice, token, d("1"))
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	for _, amt := range []string{"0", "-5"} {
		_, err = f.svc.Freeze(ctx, alice, token, d(amt))
		assert.ErrorIs(t, err, models.ErrInvalidFreezeAmount, amt)
	}
	assertBalance(t, f.balance(t, alice), "50", "50")
}

func TestUnfreeze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, alice, "50", "20")

	_, err := f.svc.Unfreeze(ctx, alice, token, d("21"))
	assert.ErrorIs(t, err, models.ErrInvalidFreezeAmount)

	_, err = f.svc.Unfreeze(ctx, alice, token, d("0"))
	assert.ErrorIs(t, err, models.ErrInvalidFreezeAmount)

	b, err := f.svc.Unfreeze(ctx, alice, token, d("20"))
	require.NoError(t, err)
	assertBalance(t, b, "50", "0")
}

func TestFrozenFundsAreNotSpendable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, bob, "1", "100", 0)
	f.fund(t, alice, "10", "10")

	_, err := f.svc.ApplyReward(ctx, reward(&alice, bob, "1"))
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	_, err = f.svc.Withdraw(ctx, alice, token, d("1"), "")
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
}

func TestApplyReward_AmountOutOfRangeLeavesBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, bob, "5", "10", 0)
	f.fund(t, alice, "100", "0")

	for _, amt := range []string{"4.99", "10.01", "0", "-1"} {
		_, err := f.svc.ApplyReward(ctx, reward(&alice, bob, amt))
		assert.ErrorIs(t, err, models.ErrAmountOutOfRange, amt)
	}

	// bounds are inclusive
	for _, amt := range []string{"5", "10"} {
		_, err := f.svc.ApplyReward(ctx, reward(&alice, bob, amt))
		assert.NoError(t, err, amt)
	}

	assertBalance(t, f.balance(t, alice), "85", "0")
	assertBalance(t, f.balance(t, bob), "15", "0")
}

func TestApplyReward_PolicyDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// no policy at all
	_, err := f.svc.ApplyReward(ctx, reward(nil, bob, "1"))
	assert.ErrorIs(t, err, models.ErrPolicyDisabled)

	_, err = f.svc.SetPolicy(ctx, models.RewardPolicy{
		OwnerID: bob, TokenID: token, MinAmount: d("1"), MaxAmount: d("10"), Enabled: false,
	})
	require.NoError(t, err)

	_, err = f.svc.ApplyReward(ctx, reward(nil, bob, "1"))
	assert.ErrorIs(t, err, models.ErrPolicyDisabled)
	assertBalance(t, f.balance(t, bob), "0", "0")
}

func TestApplyReward_SystemRewardMints(t *testing.T) {
	f := newFixture(t)
	f.policy(t, bob, "1", "10", 0)

	ev, err := f.svc.ApplyReward(context.Background(), reward(nil, bob, "7"))
	require.NoError(t, err)
	assert.Nil(t, ev.FromID)
	assertBalance(t, f.balance(t, bob), "7", "0")
}

func TestApplyReward_GuardOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("policy before funds", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ApplyReward(ctx, reward(&alice, bob, "50"))
		var rej *models.Rejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, GuardPolicy, rej.Guard)
	})

	t.Run("amount before cooldown", func(t *testing.T) {
		f := newFixture(t)
		f.policy(t, bob, "1", "10", 0)
		require.NoError(t, f.cooldowns.Grant(ctx, alice, models.DefaultAction, time.Minute))

		_, err := f.svc.ApplyReward(ctx, reward(&alice, bob, "50"))
		var rej *models.Rejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, GuardAmount, rej.Guard)
	})

	t.Run("cooldown before funds", func(t *testing.T) {
		f := newFixture(t)
		f.policy(t, bob, "1", "10", 0)
		require.NoError(t, f.cooldowns.Grant(ctx, alice, models.DefaultAction, time.Minute))

		_, err := f.svc.ApplyReward(ctx, reward(&alice, bob, "5"))
		var rej *models.Rejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, GuardCooldown, rej.Guard)
		assert.ErrorIs(t, err, models.ErrCooldownActive)
	})
}

func TestApplyReward_CooldownStartsOnSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, bob, "1", "10", time.Minute)
	f.policy(t, carol, "1", "10", 0)
	f.fund(t, alice, "100", "0")

	_, err := f.svc.ApplyReward(ctx, reward(&alice, bob, "5"))
	require.NoError(t, err)

	remaining, err := f.cooldowns.Remaining(ctx, alice, models.DefaultAction)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, remaining)

	// the sender is throttled regardless of recipient
	_, err = f.svc.ApplyReward(ctx, reward(&alice, carol, "5"))
	assert.ErrorIs(t, err, models.ErrCooldownActive)

	// other actions are independent
	req := reward(&alice, carol, "5")
	req.Action = "tip"
	_, err = f.svc.ApplyReward(ctx, req)
	assert.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.svc.ApplyReward(ctx, reward(&alice, carol, "5"))
	assert.NoError(t, err)
}

func TestApplyReward_CooldownOnRecipientWithoutSender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, bob, "1", "10", time.Hour)

	_, err := f.svc.ApplyReward(ctx, reward(nil, bob, "5"))
	require.NoError(t, err)

	active, err := f.cooldowns.IsActive(ctx, bob, models.DefaultAction)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = f.svc.ApplyReward(ctx, reward(nil, bob, "5"))
	assert.ErrorIs(t, err, models.ErrCooldownActive)
}

func TestApplyReward_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, bob, "1", "10", time.Hour)
	f.fund(t, alice, "100", "0")

	req := reward(&alice, bob, "5")
	req.ExternalMessageRef = ptr("-100500:42")

	first, err := f.svc.ApplyReward(ctx, req)
	require.NoError(t, err)

	// replays short-circuit ahead of the cooldown the first call started
	second, err := f.svc.ApplyReward(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	assertBalance(t, f.balance(t, alice), "95", "0")
	assertBalance(t, f.balance(t, bob), "5", "0")

	events, err := f.svc.ListEvents(ctx, models.EventFilter{OwnerID: ptr(bob), TokenID: token})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestApplyReward_ConcurrentSendersCannotOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, bob, "1", "100", 0)
	f.policy(t, carol, "1", "100", 0)
	f.fund(t, alice, "100", "0")

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := bob
			if i%2 == 0 {
				to = carol
			}
			_, err := f.svc.ApplyReward(ctx, reward(&alice, to, "10"))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	a := f.balance(t, alice)
	assertBalance(t, a, "0", "0")

	sum := f.balance(t, bob).Total.Add(f.balance(t, carol).Total)
	assert.True(t, d("100").Equal(sum))
}

func TestApplyReward_InvalidRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyReward(ctx, reward(&alice, alice, "1"))
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	req := reward(nil, bob, "1")
	req.TokenID = ""
	_, err = f.svc.ApplyReward(ctx, req)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestApplyPoolReward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, chat, "1", "10", time.Minute)
	f.fund(t, chat, "20", "5")

	req := models.PoolRewardRequest{PoolID: chat, FromID: alice, ToID: bob, TokenID: token, Amount: d("10")}
	ev, err := f.svc.ApplyPoolReward(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, chat, *ev.PoolID)
	assert.Equal(t, alice, *ev.FromID)
	assert.Equal(t, bob, *ev.ToID)

	assertBalance(t, f.balance(t, chat), "10", "5")
	assertBalance(t, f.balance(t, bob), "10", "0")
	// the triggering user pays nothing
	assertBalance(t, f.balance(t, alice), "0", "0")

	// the cooldown belongs to the triggering user
	_, err = f.svc.ApplyPoolReward(ctx, req)
	assert.ErrorIs(t, err, models.ErrCooldownActive)

	req.FromID = carol
	_, err = f.svc.ApplyPoolReward(ctx, req)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	req.Amount = d("5")
	_, err = f.svc.ApplyPoolReward(ctx, req)
	require.NoError(t, err)
	assertBalance(t, f.balance(t, chat), "5", "5")
}

func TestApplyPoolReward_UsesPoolPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, bob, "1", "100", 0)
	f.fund(t, chat, "50", "0")

	_, err := f.svc.ApplyPoolReward(ctx, models.PoolRewardRequest{
		PoolID: chat, FromID: alice, ToID: bob, TokenID: token, Amount: d("1"),
	})
	assert.ErrorIs(t, err, models.ErrPolicyDisabled)
}

func TestDepositWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Deposit(ctx, alice, token, d("0"), "")
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	b, err := f.svc.Deposit(ctx, alice, token, d("12.5"), "top up")
	require.NoError(t, err)
	assertBalance(t, b, "12.5", "0")

	_, err = f.svc.Withdraw(ctx, alice, token, d("13"), "")
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	b, err = f.svc.Withdraw(ctx, alice, token, d("2.5"), "payout")
	require.NoError(t, err)
	assertBalance(t, b, "10", "0")

	events, err := f.svc.ListEvents(ctx, models.EventFilter{OwnerID: ptr(alice)})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionWithdraw, events[0].Action)
	assert.Equal(t, ActionDeposit, events[1].Action)
}

func TestSetPolicy_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		policy models.RewardPolicy
	}{
		{"min above max", models.RewardPolicy{OwnerID: bob, TokenID: token, MinAmount: d("10"), MaxAmount: d("1")}},
		{"negative min", models.RewardPolicy{OwnerID: bob, TokenID: token, MinAmount: d("-1"), MaxAmount: d("1")}},
		{"missing token", models.RewardPolicy{OwnerID: bob, MinAmount: d("1"), MaxAmount: d("1")}},
		{"negative cooldown", models.RewardPolicy{OwnerID: bob, TokenID: token, MaxAmount: d("1"), Cooldown: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SetPolicy(ctx, tt.policy)
			assert.ErrorIs(t, err, models.ErrInvalidPolicy)
		})
	}

	_, err := f.svc.GetPolicy(ctx, bob, token)
	assert.ErrorIs(t, err, models.ErrPolicyNotFound)
}

func TestListEvents_Paging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, bob, "1", "10", 0)

	for i := 0; i < 5; i++ {
		_, err := f.svc.ApplyReward(ctx, reward(nil, bob, "1"))
		require.NoError(t, err)
	}

	page, err := f.svc.ListEvents(ctx, models.EventFilter{OwnerID: ptr(bob), Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Greater(t, page[0].ID, page[1].ID)

	next, err := f.svc.ListEvents(ctx, models.EventFilter{OwnerID: ptr(bob), Limit: 10, BeforeID: page[1].ID})
	require.NoError(t, err)
	assert.Len(t, next, 3)
}

func TestApplyReward_RejectsAmountsFinerThanToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.token(t, models.Token{ID: "WEI", Decimals: models.MaxDecimals, Active: true})
	_, err := f.svc.SetPolicy(ctx, models.RewardPolicy{OwnerID: bob, TokenID: "WEI", MinAmount: d("0"), MaxAmount: d("10"), Enabled: true})
	require.NoError(t, err)
	_, err = f.svc.Deposit(ctx, alice, "WEI", d("1"), "seed")
	require.NoError(t, err)

	_, err = f.svc.ApplyReward(ctx, models.RewardRequest{FromID: &alice, ToID: bob, TokenID: "WEI", Amount: d("0.0000000000000000001")})
	var rej *models.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, GuardAmount, rej.Guard)
	assert.ErrorIs(t, err, models.ErrAmountPrecision)

	// the smallest representable unit still moves
	_, err = f.svc.ApplyReward(ctx, models.RewardRequest{FromID: &alice, ToID: bob, TokenID: "WEI", Amount: d("0.000000000000000001")})
	require.NoError(t, err)

	a, err := f.svc.GetOrCreateBalance(ctx, alice, "WEI")
	require.NoError(t, err)
	assert.Equal(t, "0.999999999999999999", a.Total.String())

	// a 2-decimal token rejects cents of cents
	f.policy(t, bob, "0", "10", 0)
	f.fund(t, alice, "10", "0")
	_, err = f.svc.ApplyReward(ctx, reward(&alice, bob, "0.005"))
	assert.ErrorIs(t, err, models.ErrAmountPrecision)
	_, err = f.svc.ApplyReward(ctx, reward(&alice, bob, "0.50"))
	assert.NoError(t, err)
}

func TestBalanceOps_RejectAmountsFinerThanToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(t, alice, "10", "0")
	fine := d("0.001")

	_, err := f.svc.Deposit(ctx, alice, token, fine, "")
	assert.ErrorIs(t, err, models.ErrAmountPrecision)
	_, err = f.svc.Withdraw(ctx, alice, token, fine, "")
	assert.ErrorIs(t, err, models.ErrAmountPrecision)
	_, err = f.svc.Freeze(ctx, alice, token, fine)
	assert.ErrorIs(t, err, models.ErrAmountPrecision)
	_, err = f.svc.Unfreeze(ctx, alice, token, fine)
	assert.ErrorIs(t, err, models.ErrAmountPrecision)

	assertBalance(t, f.balance(t, alice), "10", "0")
}

func TestSetPolicy_BoundsMustFitTokenScale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetPolicy(ctx, models.RewardPolicy{OwnerID: bob, TokenID: token, MinAmount: d("0.001"), MaxAmount: d("1")})
	assert.ErrorIs(t, err, models.ErrInvalidPolicy)

	p := models.RewardPolicy{OwnerID: bob, TokenID: token, MinAmount: d("0.0000000000000000001"), MaxAmount: d("1")}
	assert.ErrorIs(t, p.Validate(), models.ErrInvalidPolicy)
}

func TestTokens_UnknownAndInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, bob, "1", "10", 0)
	f.fund(t, alice, "50", "10")

	_, err := f.svc.Deposit(ctx, alice, "NOPE", d("1"), "")
	assert.ErrorIs(t, err, models.ErrTokenNotFound)
	_, err = f.svc.GetOrCreateBalance(ctx, alice, "NOPE")
	assert.ErrorIs(t, err, models.ErrTokenNotFound)
	_, err = f.svc.SetPolicy(ctx, models.RewardPolicy{OwnerID: bob, TokenID: "NOPE", MinAmount: d("1"), MaxAmount: d("2")})
	assert.ErrorIs(t, err, models.ErrTokenNotFound)

	_, err = f.svc.ApplyReward(ctx, models.RewardRequest{FromID: &alice, ToID: bob, TokenID: "NOPE", Amount: d("1")})
	var rej *models.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, GuardToken, rej.Guard)

	f.token(t, models.Token{ID: token, Decimals: 2, Active: false})

	_, err = f.svc.ApplyReward(ctx, reward(&alice, bob, "1"))
	assert.ErrorIs(t, err, models.ErrTokenInactive)
	_, err = f.svc.Deposit(ctx, alice, token, d("1"), "")
	assert.ErrorIs(t, err, models.ErrTokenInactive)
	_, err = f.svc.Freeze(ctx, alice, token, d("1"))
	assert.ErrorIs(t, err, models.ErrTokenInactive)

	// holders can still get their funds out
	_, err = f.svc.Unfreeze(ctx, alice, token, d("10"))
	require.NoError(t, err)
	b, err := f.svc.Withdraw(ctx, alice, token, d("50"), "")
	require.NoError(t, err)
	assertBalance(t, b, "0", "0")
}

func TestDepositWithdraw_TransferBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.token(t, models.Token{ID: "USDC", Decimals: 6, Active: true, MinTransfer: d("1"), MaxTransfer: d("1000")})

	_, err := f.svc.Deposit(ctx, alice, "USDC", d("0.5"), "")
	assert.ErrorIs(t, err, models.ErrAmountOutOfRange)
	_, err = f.svc.Deposit(ctx, alice, "USDC", d("1000.000001"), "")
	assert.ErrorIs(t, err, models.ErrAmountOutOfRange)

	_, err = f.svc.Deposit(ctx, alice, "USDC", d("1000"), "")
	require.NoError(t, err)
	_, err = f.svc.Withdraw(ctx, alice, "USDC", d("0.999999"), "")
	assert.ErrorIs(t, err, models.ErrAmountOutOfRange)
}

func TestRegisterToken_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		token models.Token
	}{
		{"missing id", models.Token{Decimals: 2}},
		{"too many decimals", models.Token{ID: "X", Decimals: models.MaxDecimals + 1}},
		{"negative decimals", models.Token{ID: "X", Decimals: -1}},
		{"min above max", models.Token{ID: "X", Decimals: 2, MinTransfer: d("5"), MaxTransfer: d("1")}},
		{"min finer than decimals", models.Token{ID: "X", Decimals: 0, MinTransfer: d("0.5")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RegisterToken(ctx, tt.token)
			assert.ErrorIs(t, err, models.ErrInvalidToken)
		})
	}

	tokens, err := f.svc.ListTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, token, tokens[0].ID)
}

func TestApplyPoolReward_RequiresTriggeringUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.policy(t, chat, "1", "10", time.Minute)
	f.fund(t, chat, "20", "0")

	_, err := f.svc.ApplyPoolReward(ctx, models.PoolRewardRequest{PoolID: chat, ToID: bob, TokenID: token, Amount: d("1")})
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
	assertBalance(t, f.balance(t, chat), "20", "0")
}

type failingGrants struct {
	cooldown.Tracker
}

func (failingGrants) Grant(context.Context, int64, string, time.Duration) error {
	return errors.New("tracker unavailable")
}

func TestApplyReward_CooldownFailureAbortsReward(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tracker := failingGrants{Tracker: cdmemory.NewTracker(clock.Now)}
	f := &fixture{svc: NewLedgerService(memory.NewRepository(clock.Now), tracker, keylock.NewLocal(), clock.Now), clock: clock}
	f.token(t, models.Token{ID: token, Decimals: 2, Active: true})
	ctx := context.Background()
	f.policy(t, bob, "1", "10", time.Minute)
	f.fund(t, alice, "10", "0")

	_, err := f.svc.ApplyReward(ctx, reward(&alice, bob, "5"))
	require.Error(t, err)

	assertBalance(t, f.balance(t, alice), "10", "0")
	assertBalance(t, f.balance(t, bob), "0", "0")
	events, err := f.svc.ListEvents(ctx, models.EventFilter{OwnerID: ptr(bob)})
	require.NoError(t, err)
	assert.Empty(t, events)

	// without a cooldown the tracker is never written
	f.policy(t, carol, "1", "10", 0)
	_, err = f.svc.ApplyReward(ctx, reward(&alice, carol, "5"))
	assert.NoError(t, err)
}
