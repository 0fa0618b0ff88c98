package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-reward-ledger/internal/common/keylock"
	authmodels "tg-reward-ledger/internal/features/auth/models"
	"tg-reward-ledger/internal/features/identity/models"
	"tg-reward-ledger/internal/features/identity/repository/memory"
	"tg-reward-ledger/internal/platform/telegram"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, admins ...int64) IdentityService {
	t.Helper()
	return NewIdentityService(memory.NewRepository(), keylock.NewLocal(), Options{
		Now: func() time.Time { return testNow },
		BootstrapTier: func(id int64) authmodels.Tier {
			for _, a := range admins {
				if a == id {
					return authmodels.TierFull
				}
			}
			return authmodels.TierNone
		},
	})
}

func TestLogin_CreatesThenRefreshes(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	created, isNew, err := svc.Login(ctx, models.Profile{ExternalID: 10, Username: "ada", FirstName: "Ada"})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.KindUser, created.Kind)
	assert.True(t, created.Active)
	assert.Equal(t, authmodels.TierNone, created.AccessTier)
	assert.Equal(t, "Ada", created.DisplayName())

	again, isNew, err := svc.Login(ctx, models.Profile{ExternalID: 10, Username: "ada", FirstName: "Ada", LastName: "L", SuspectedAutomated: true})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "L", again.LastName)
	assert.True(t, again.SuspectedAutomated)

	bySubject, err := svc.GetBySubject(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), bySubject.ExternalID)
}

func TestLogin_BootstrapAdmin(t *testing.T) {
	svc := newService(t, 99)
	ctx := context.Background()

	admin, _, err := svc.Login(ctx, models.Profile{ExternalID: 99})
	require.NoError(t, err)
	assert.Equal(t, authmodels.TierFull, admin.AccessTier)

	_, err = svc.GrantTier(ctx, 99, authmodels.TierAlpha)
	require.NoError(t, err)
	admin, _, err = svc.Login(ctx, models.Profile{ExternalID: 99})
	require.NoError(t, err)
	assert.Equal(t, authmodels.TierFull, admin.AccessTier, "bootstrap tier is a floor")
}

func TestLogin_UsernameReclaim(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, models.Profile{ExternalID: 1, Username: "handle"})
	require.NoError(t, err)
	_, _, err = svc.Login(ctx, models.Profile{ExternalID: 2, Username: "Handle"})
	require.NoError(t, err)

	first, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, first.Username)

	second, err := svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Handle", second.Username)
}

func TestLogin_Referral(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, models.Profile{ExternalID: 1})
	require.NoError(t, err)

	referred, _, err := svc.Login(ctx, models.Profile{ExternalID: 2, ReferrerID: ReferrerFromStartParam("ref_1")})
	require.NoError(t, err)
	require.NotNil(t, referred.ReferredBy)
	assert.Equal(t, int64(1), *referred.ReferredBy)

	unknown, _, err := svc.Login(ctx, models.Profile{ExternalID: 3, ReferrerID: ReferrerFromStartParam("ref_404")})
	require.NoError(t, err)
	assert.Nil(t, unknown.ReferredBy)

	self, _, err := svc.Login(ctx, models.Profile{ExternalID: 4, ReferrerID: ReferrerFromStartParam("ref_4")})
	require.NoError(t, err)
	assert.Nil(t, self.ReferredBy)

	// only honoured at creation
	again, _, err := svc.Login(ctx, models.Profile{ExternalID: 3, ReferrerID: ReferrerFromStartParam("ref_1")})
	require.NoError(t, err)
	assert.Nil(t, again.ReferredBy)
}

func TestReferrerFromStartParam(t *testing.T) {
	assert.Nil(t, ReferrerFromStartParam(""))
	assert.Nil(t, ReferrerFromStartParam("promo"))
	assert.Nil(t, ReferrerFromStartParam("ref_abc"))
	assert.Nil(t, ReferrerFromStartParam("ref_-5"))
	require.NotNil(t, ReferrerFromStartParam("ref_77"))
	assert.Equal(t, int64(77), *ReferrerFromStartParam("ref_77"))
}

func TestGrantTierAndSetActive(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.GrantTier(ctx, 5, authmodels.TierBeta)
	assert.ErrorIs(t, err, models.ErrIdentityNotFound)

	_, _, err = svc.Login(ctx, models.Profile{ExternalID: 5})
	require.NoError(t, err)

	updated, err := svc.GrantTier(ctx, 5, authmodels.TierBeta)
	require.NoError(t, err)
	assert.Equal(t, authmodels.TierBeta, updated.AccessTier)

	_, err = svc.GrantTier(ctx, 5, authmodels.Tier(42))
	assert.Error(t, err)

	deactivated, err := svc.SetActive(ctx, 5, false)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	stored, err := svc.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, stored.Active, "soft deactivation keeps the record")
}

func TestRegisterChat(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	chat, err := svc.RegisterChat(ctx, models.ChatProfile{ExternalID: -100123, Title: "Pool"})
	require.NoError(t, err)
	assert.Equal(t, models.KindChat, chat.Kind)
	assert.Equal(t, "Pool", chat.DisplayName())

	renamed, err := svc.RegisterChat(ctx, models.ChatProfile{ExternalID: -100123, Title: "Pool 2"})
	require.NoError(t, err)
	assert.Equal(t, chat.ID, renamed.ID)
	assert.Equal(t, "Pool 2", renamed.Title)

	_, _, err = svc.Login(ctx, models.Profile{ExternalID: 7})
	require.NoError(t, err)
	_, err = svc.RegisterChat(ctx, models.ChatProfile{ExternalID: 7, Title: "x"})
	assert.ErrorIs(t, err, models.ErrIdentityExists)
}

type stubChats map[int64]*telegram.Chat

func (s stubChats) GetChat(_ context.Context, chatID int64) (*telegram.Chat, error) {
	if chat, ok := s[chatID]; ok {
		return chat, nil
	}
	return nil, telegram.ErrChatNotFound
}

func TestRegisterChat_ResolvesMissingTitle(t *testing.T) {
	svc := NewIdentityService(memory.NewRepository(), keylock.NewLocal(), Options{
		Now: func() time.Time { return testNow },
		Chats: stubChats{
			-100500: {ID: -100500, Type: "supergroup", Title: "Rewards", Username: "rewardschat"},
		},
	})
	ctx := context.Background()

	chat, err := svc.RegisterChat(ctx, models.ChatProfile{ExternalID: -100500})
	require.NoError(t, err)
	assert.Equal(t, "Rewards", chat.Title)
	assert.Equal(t, "rewardschat", chat.Username)

	_, err = svc.RegisterChat(ctx, models.ChatProfile{ExternalID: -100999})
	assert.ErrorIs(t, err, telegram.ErrChatNotFound)
}

func TestRegisterChat_TitleRequiredWithoutResolver(t *testing.T) {
	svc := newService(t)

	_, err := svc.RegisterChat(context.Background(), models.ChatProfile{ExternalID: -100500, Title: "  "})
	require.Error(t, err)
	_, err = svc.Get(context.Background(), -100500)
	assert.ErrorIs(t, err, models.ErrIdentityNotFound)
}
