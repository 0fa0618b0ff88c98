package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tg-reward-ledger/internal/common/logger"
	"tg-reward-ledger/internal/features/auth/models"
)

const DefaultLifetime = 100 * 365 * 24 * time.Hour

type tokenClaims struct {
	TelegramID int64       `json:"tid"`
	Tier       models.Tier `json:"tier"`
	jwt.RegisteredClaims
}

// Issuer mints and validates HS256 credentials. Validity is a function of
// signature, expiry and the optional revocation list only.
type Issuer struct {
	secret     []byte
	issuer     string
	lifetime   time.Duration
	revocation RevocationList
	now        func() time.Time
}

type Option func(*Issuer)

func WithLifetime(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.lifetime = d
		}
	}
}

func WithIssuer(name string) Option {
	return func(i *Issuer) { i.issuer = name }
}

func WithRevocationList(r RevocationList) Option {
	return func(i *Issuer) {
		if r != nil {
			i.revocation = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret []byte, opts ...Option) *Issuer {
	i := &Issuer{
		secret:     secret,
		lifetime:   DefaultLifetime,
		revocation: NoRevocation{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	if _, none := i.revocation.(NoRevocation); none && i.lifetime > 365*24*time.Hour {
		logger.Warn().
			Dur("lifetime", i.lifetime).
			Msg("Credentials outlive a year and no revocation list is configured; a leaked token stays valid until expiry")
	}
	return i
}

// Issue signs a credential for subject. Times are truncated to seconds so
// the returned claims equal what Validate later reports.
func (i *Issuer) Issue(subject models.Subject) (*models.Credential, error) {
	if subject.ID == "" {
		return nil, fmt.Errorf("credential subject is empty")
	}
	if !subject.Tier.Valid() {
		return nil, fmt.Errorf("invalid access tier %d", int(subject.Tier))
	}

	now := i.now().UTC().Truncate(time.Second)
	claims := models.Claims{
		SubjectID:  subject.ID,
		TelegramID: subject.TelegramID,
		Tier:       subject.Tier,
		IssuedAt:   now,
		ExpiresAt:  now.Add(i.lifetime),
		ID:         uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		TelegramID: claims.TelegramID,
		Tier:       claims.Tier,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   claims.SubjectID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
			ID:        claims.ID,
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign credential: %w", err)
	}

	return &models.Credential{Token: signed, Claims: claims}, nil
}

func (i *Issuer) Validate(ctx context.Context, raw string) (*models.Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(i.issuer))
	}

	var tc tokenClaims
	_, err := jwt.ParseWithClaims(raw, &tc, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSignature, err)
	}
	if tc.Subject == "" || tc.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing claims", models.ErrInvalidSignature)
	}

	if tc.ID != "" {
		revoked, err := i.revocation.IsRevoked(ctx, tc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check revocation: %w", err)
		}
		if revoked {
			return nil, models.ErrRevoked
		}
	}

	return &models.Claims{
		SubjectID:  tc.Subject,
		TelegramID: tc.TelegramID,
		Tier:       tc.Tier,
		IssuedAt:   tc.IssuedAt.Time.UTC(),
		ExpiresAt:  tc.ExpiresAt.Time.UTC(),
		ID:         tc.ID,
	}, nil
}

// Revoke blocks jti until the given time, or until the default lifetime
// from now when until is zero.
func (i *Issuer) Revoke(ctx context.Context, jti string, until time.Time) error {
	if until.IsZero() {
		until = i.now().Add(i.lifetime)
	}
	return i.revocation.Revoke(ctx, jti, until)
}
