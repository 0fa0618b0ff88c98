package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"tg-reward-ledger/internal/common/logger"
	"tg-reward-ledger/internal/features/auth/models"
	"tg-reward-ledger/internal/features/auth/policy"
	"tg-reward-ledger/internal/features/auth/signature"
	identitymodels "tg-reward-ledger/internal/features/identity/models"
	identityservice "tg-reward-ledger/internal/features/identity/service"
)

type AuthService interface {
	LoginWidget(ctx context.Context, req models.LoginWidgetRequest) (*models.LoginResponse, error)
	// LoginWidgetQuery handles the widget's redirect mode, where the signed
	// fields arrive as query parameters.
	LoginWidgetQuery(ctx context.Context, query url.Values) (*models.LoginResponse, error)
	LoginWebApp(ctx context.Context, initData string) (*models.LoginResponse, error)
	// Authenticate validates a bearer credential and returns its claims and
	// the identity behind it.
	Authenticate(ctx context.Context, token string) (*models.Claims, *identitymodels.Identity, error)
	Revoke(ctx context.Context, jti string, until time.Time) error
}

// CredentialIssuer is satisfied by credential.Issuer.
type CredentialIssuer interface {
	Issue(subject models.Subject) (*models.Credential, error)
	Validate(ctx context.Context, token string) (*models.Claims, error)
	Revoke(ctx context.Context, jti string, until time.Time) error
}

type authService struct {
	verifier   *signature.Verifier
	issuer     CredentialIssuer
	identities identityservice.IdentityService
	heuristics policy.Heuristics
	freshness  time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

type Options struct {
	Freshness  time.Duration
	Heuristics policy.Heuristics
	Now        func() time.Time
}

func NewAuthService(verifier *signature.Verifier, issuer CredentialIssuer, identities identityservice.IdentityService, opts Options) AuthService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &authService{
		verifier:   verifier,
		issuer:     issuer,
		identities: identities,
		heuristics: opts.Heuristics,
		freshness:  opts.Freshness,
		now:        opts.Now,
		logger:     logger.Component("auth"),
	}
}

func (s *authService) LoginWidget(ctx context.Context, req models.LoginWidgetRequest) (*models.LoginResponse, error) {
	return s.loginWidget(ctx, signature.Payload{Kind: signature.KindWidget, Fields: req.Fields()}, req.Hash)
}

func (s *authService) LoginWidgetQuery(ctx context.Context, query url.Values) (*models.LoginResponse, error) {
	payload, hash := signature.ParseWidgetQuery(query)
	return s.loginWidget(ctx, payload, hash)
}

func (s *authService) loginWidget(ctx context.Context, payload signature.Payload, hash string) (*models.LoginResponse, error) {
	claims, err := s.verifier.Verify(payload, hash, s.freshness)
	if err != nil {
		s.logger.Warn().Err(err).Str("telegram_id", payload.Fields["id"]).Msg("Login widget verification failed")
		return nil, err
	}
	return s.login(ctx, claims)
}

func (s *authService) LoginWebApp(ctx context.Context, initData string) (*models.LoginResponse, error) {
	payload, hash, err := signature.ParseWebAppInitData(initData)
	if err != nil {
		return nil, err
	}
	claims, err := s.verifier.Verify(payload, hash, s.freshness)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Init data verification failed")
		return nil, err
	}
	return s.login(ctx, claims)
}

func (s *authService) login(ctx context.Context, claims *signature.VerifiedClaims) (*models.LoginResponse, error) {
	now := s.now()

	var prevLogin *time.Time
	prev, err := s.identities.Get(ctx, claims.TelegramID)
	switch {
	case err == nil:
		prevLogin = prev.LastLoginAt
	case !errors.Is(err, identitymodels.ErrIdentityNotFound):
		return nil, err
	}

	assessment := s.heuristics.Assess(policy.AuthSignal{
		TelegramID:  claims.TelegramID,
		HasProfile:  claims.HasProfile(),
		PrevLoginAt: prevLogin,
		Now:         now,
	})
	if assessment.Suspected {
		s.logger.Info().
			Int64("telegram_id", claims.TelegramID).
			Strs("reasons", assessment.Reasons).
			Msg("Login flagged as possibly automated")
	}

	identity, created, err := s.identities.Login(ctx, identitymodels.Profile{
		ExternalID:         claims.TelegramID,
		Username:           claims.Username,
		FirstName:          claims.FirstName,
		LastName:           claims.LastName,
		PhotoURL:           claims.PhotoURL,
		ReferrerID:         identityservice.ReferrerFromStartParam(claims.StartParam),
		SuspectedAutomated: assessment.Suspected,
	})
	if err != nil {
		return nil, err
	}
	if !identity.Active {
		return nil, identitymodels.ErrInactive
	}

	cred, err := s.issuer.Issue(models.Subject{
		ID:         identity.ID,
		TelegramID: identity.ExternalID,
		Tier:       identity.AccessTier,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("telegram_id", identity.ExternalID).
		Str("via", claims.Kind.String()).
		Bool("created", created).
		Msg("Credential issued")

	return &models.LoginResponse{
		Token:              cred.Token,
		TokenType:          "Bearer",
		ExpiresAt:          cred.Claims.ExpiresAt,
		TelegramID:         identity.ExternalID,
		AccessTier:         identity.AccessTier.String(),
		SuspectedAutomated: identity.SuspectedAutomated,
		Created:            created,
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.Claims, *identitymodels.Identity, error) {
	claims, err := s.issuer.Validate(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	identity, err := s.identities.Get(ctx, claims.TelegramID)
	if err != nil {
		if errors.Is(err, identitymodels.ErrIdentityNotFound) {
			return nil, nil, models.ErrInvalidSignature
		}
		return nil, nil, err
	}
	if identity.ID != claims.SubjectID {
		return nil, nil, models.ErrInvalidSignature
	}
	if !identity.Active {
		return nil, nil, identitymodels.ErrInactive
	}
	return claims, identity, nil
}

func (s *authService) Revoke(ctx context.Context, jti string, until time.Time) error {
	if err := s.issuer.Revoke(ctx, jti, until); err != nil {
		return err
	}
	s.logger.Info().Str("jti", jti).Time("until", until).Msg("Credential revoked")
	return nil
}
