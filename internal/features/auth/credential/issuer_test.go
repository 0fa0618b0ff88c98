package credential

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-reward-ledger/internal/features/auth/models"
)

var secret = []byte("test-secret")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)}
}

func subject() models.Subject {
	return models.Subject{ID: "5f0c7a4e-2b1d-4c84-9a43-0c7e1b0f6d11", TelegramID: 42, Tier: models.TierBeta}
}

func TestIssueThenValidateRoundTrips(t *testing.T) {
	c := newClock()
	iss := NewIssuer(secret, WithClock(c.now), WithIssuer("test"))

	cred, err := iss.Issue(subject())
	require.NoError(t, err)
	assert.Len(t, strings.Split(cred.Token, "."), 3)
	assert.Equal(t, c.t.Truncate(time.Second), cred.Claims.IssuedAt)
	assert.Equal(t, cred.Claims.IssuedAt.Add(DefaultLifetime), cred.Claims.ExpiresAt)

	claims, err := iss.Validate(context.Background(), cred.Token)
	require.NoError(t, err)
	assert.Equal(t, cred.Claims, *claims)
}

func TestValidate_TamperedToken(t *testing.T) {
	iss := NewIssuer(secret)
	cred, err := iss.Issue(subject())
	require.NoError(t, err)

	parts := strings.Split(cred.Token, ".")
	other := NewIssuer([]byte("other-secret"))
	forged, err := other.Issue(models.Subject{ID: "x", TelegramID: 42, Tier: models.TierFull})
	require.NoError(t, err)
	forgedParts := strings.Split(forged.Token, ".")

	tests := map[string]string{
		"garbage":         "not-a-token",
		"swapped payload": parts[0] + "." + forgedParts[1] + "." + parts[2],
		"wrong secret":    forged.Token,
		"truncated sig":   parts[0] + "." + parts[1] + "." + parts[2][:len(parts[2])-2],
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Validate(context.Background(), token)
			assert.ErrorIs(t, err, models.ErrInvalidSignature)
		})
	}
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	iss := NewIssuer(secret)
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, tokenClaims{
		TelegramID: 42,
		Tier:       models.TierFull,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	_, err = iss.Validate(context.Background(), signed)
	assert.ErrorIs(t, err, models.ErrInvalidSignature)
}

func TestValidate_Expired(t *testing.T) {
	c := newClock()
	iss := NewIssuer(secret, WithClock(c.now), WithLifetime(time.Hour))

	cred, err := iss.Issue(subject())
	require.NoError(t, err)

	c.t = c.t.Add(59 * time.Minute)
	_, err = iss.Validate(context.Background(), cred.Token)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Minute)
	_, err = iss.Validate(context.Background(), cred.Token)
	assert.ErrorIs(t, err, models.ErrExpired)
}

func TestIssue_DoesNotInvalidateOlderCredentials(t *testing.T) {
	iss := NewIssuer(secret)
	first, err := iss.Issue(subject())
	require.NoError(t, err)
	_, err = iss.Issue(subject())
	require.NoError(t, err)

	_, err = iss.Validate(context.Background(), first.Token)
	assert.NoError(t, err)
}

func TestRevocation(t *testing.T) {
	c := newClock()
	rl := NewMemoryRevocation(c.now)
	iss := NewIssuer(secret, WithClock(c.now), WithRevocationList(rl))
	ctx := context.Background()

	cred, err := iss.Issue(subject())
	require.NoError(t, err)
	other, err := iss.Issue(subject())
	require.NoError(t, err)

	require.NoError(t, iss.Revoke(ctx, cred.Claims.ID, c.t.Add(time.Hour)))

	_, err = iss.Validate(ctx, cred.Token)
	assert.ErrorIs(t, err, models.ErrRevoked)
	_, err = iss.Validate(ctx, other.Token)
	assert.NoError(t, err)

	c.t = c.t.Add(2 * time.Hour)
	_, err = iss.Validate(ctx, cred.Token)
	assert.NoError(t, err, "revocation entries lapse at their deadline")
}

func TestRevoke_WithoutListFails(t *testing.T) {
	iss := NewIssuer(secret)
	assert.Error(t, iss.Revoke(context.Background(), "jti", time.Time{}))
}

func TestIssue_RejectsInvalidSubject(t *testing.T) {
	iss := NewIssuer(secret)

	_, err := iss.Issue(models.Subject{})
	assert.Error(t, err)

	_, err = iss.Issue(models.Subject{ID: "x", Tier: models.Tier(9)})
	assert.Error(t, err)
}
