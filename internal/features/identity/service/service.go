package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-reward-ledger/internal/common/cache"
	apperrors "tg-reward-ledger/internal/common/errors"
	"tg-reward-ledger/internal/common/keylock"
	"tg-reward-ledger/internal/common/logger"
	authmodels "tg-reward-ledger/internal/features/auth/models"
	"tg-reward-ledger/internal/features/identity/models"
	"tg-reward-ledger/internal/features/identity/repository"
	"tg-reward-ledger/internal/platform/telegram"
)

const referralPrefix = "ref_"

type IdentityService interface {
	Get(ctx context.Context, externalID int64) (*models.Identity, error)
	GetBySubject(ctx context.Context, id string) (*models.Identity, error)
	// Login creates or refreshes a user identity from a verified profile.
	// created reports whether the identity is new.
	Login(ctx context.Context, p models.Profile) (identity *models.Identity, created bool, err error)
	RegisterChat(ctx context.Context, p models.ChatProfile) (*models.Identity, error)
	GrantTier(ctx context.Context, externalID int64, tier authmodels.Tier) (*models.Identity, error)
	SetActive(ctx context.Context, externalID int64, active bool) (*models.Identity, error)
}

// Cache is satisfied by cache.CacheService.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error
	Delete(ctx context.Context, keys ...string) error
}

// ChatResolver looks up chats through the Bot API. Satisfied by
// telegram.Client.
type ChatResolver interface {
	GetChat(ctx context.Context, chatID int64) (*telegram.Chat, error)
}

type Options struct {
	// BootstrapTier returns the minimum tier an identity holds regardless of
	// grants, used for configured administrators.
	BootstrapTier func(externalID int64) authmodels.Tier
	Cache         Cache
	CacheTTL      time.Duration
	// Chats fills in missing chat titles on registration. Optional.
	Chats ChatResolver
	Now   func() time.Time
}

type identityService struct {
	repo   repository.Repository
	locks  keylock.Locker
	opts   Options
	logger zerolog.Logger
}

func NewIdentityService(repo repository.Repository, locks keylock.Locker, opts Options) IdentityService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BootstrapTier == nil {
		opts.BootstrapTier = func(int64) authmodels.Tier { return authmodels.TierNone }
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	return &identityService{
		repo:   repo,
		locks:  locks,
		opts:   opts,
		logger: logger.Component("identity"),
	}
}

func (s *identityService) Get(ctx context.Context, externalID int64) (*models.Identity, error) {
	if s.opts.Cache == nil {
		return s.repo.GetByExternalID(ctx, externalID)
	}
	var identity models.Identity
	err := s.opts.Cache.GetOrSet(ctx, cache.IdentityKey(externalID), &identity, s.opts.CacheTTL, func() (interface{}, error) {
		return s.repo.GetByExternalID(ctx, externalID)
	})
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *identityService) GetBySubject(ctx context.Context, id string) (*models.Identity, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *identityService) Login(ctx context.Context, p models.Profile) (*models.Identity, bool, error) {
	if p.ExternalID == 0 {
		return nil, false, fmt.Errorf("external id is required")
	}

	keys := []string{identityLockKey(p.ExternalID)}
	if p.Username != "" {
		keys = append(keys, usernameLockKey(p.Username))
	}
	unlock, err := s.locks.Lock(ctx, keys...)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	now := s.opts.Now()
	if err := s.reclaimUsername(ctx, p.Username, p.ExternalID, now); err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetByExternalID(ctx, p.ExternalID)
	switch {
	case errors.Is(err, models.ErrIdentityNotFound):
		identity := &models.Identity{
			ID:                 uuid.NewString(),
			ExternalID:         p.ExternalID,
			Kind:               models.KindUser,
			Username:           p.Username,
			FirstName:          p.FirstName,
			LastName:           p.LastName,
			PhotoURL:           p.PhotoURL,
			AccessTier:         s.opts.BootstrapTier(p.ExternalID),
			SuspectedAutomated: p.SuspectedAutomated,
			Active:             true,
			ReferredBy:         s.validReferrer(ctx, p.ReferrerID, p.ExternalID),
			CreatedAt:          now,
			UpdatedAt:          now,
			LastLoginAt:        &now,
		}
		if err := s.repo.Create(ctx, identity); err != nil {
			return nil, false, err
		}
		s.logger.Info().
			Int64("external_id", identity.ExternalID).
			Str("tier", identity.AccessTier.String()).
			Bool("suspected_automated", identity.SuspectedAutomated).
			Msg("Identity created")
		return identity, true, nil
	case err != nil:
		return nil, false, err
	}

	existing.Username = p.Username
	existing.FirstName = p.FirstName
	existing.LastName = p.LastName
	existing.PhotoURL = p.PhotoURL
	existing.SuspectedAutomated = p.SuspectedAutomated
	if floor := s.opts.BootstrapTier(p.ExternalID); existing.AccessTier < floor {
		existing.AccessTier = floor
	}
	existing.UpdatedAt = now
	existing.LastLoginAt = &now

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, false, err
	}
	s.invalidate(ctx, existing.ExternalID)
	return existing, false, nil
}

// reclaimUsername clears username on any other identity still holding it.
func (s *identityService) reclaimUsername(ctx context.Context, username string, owner int64, now time.Time) error {
	if username == "" {
		return nil
	}
	prev, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, models.ErrIdentityNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if prev.ExternalID == owner {
		return nil
	}

	prev.Username = ""
	prev.UpdatedAt = now
	if err := s.repo.Update(ctx, prev); err != nil {
		return err
	}
	s.invalidate(ctx, prev.ExternalID)
	s.logger.Info().
		Str("username", username).
		Int64("from", prev.ExternalID).
		Int64("to", owner).
		Msg("Username reclaimed")
	return nil
}

func (s *identityService) validReferrer(ctx context.Context, referrer *int64, self int64) *int64 {
	if referrer == nil || *referrer == self {
		return nil
	}
	if _, err := s.repo.GetByExternalID(ctx, *referrer); err != nil {
		return nil
	}
	v := *referrer
	return &v
}

func (s *identityService) RegisterChat(ctx context.Context, p models.ChatProfile) (*models.Identity, error) {
	if p.ExternalID == 0 {
		return nil, fmt.Errorf("external id is required")
	}
	p, err := s.resolveChat(ctx, p)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, identityLockKey(p.ExternalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.opts.Now()
	existing, err := s.repo.GetByExternalID(ctx, p.ExternalID)
	if errors.Is(err, models.ErrIdentityNotFound) {
		chat := &models.Identity{
			ID:         uuid.NewString(),
			ExternalID: p.ExternalID,
			Kind:       models.KindChat,
			Title:      p.Title,
			Username:   p.Username,
			Active:     true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Create(ctx, chat); err != nil {
			return nil, err
		}
		return chat, nil
	}
	if err != nil {
		return nil, err
	}
	if existing.Kind != models.KindChat {
		return nil, fmt.Errorf("%w: %d is a user", models.ErrIdentityExists, p.ExternalID)
	}

	existing.Title = p.Title
	existing.Username = p.Username
	existing.UpdatedAt = now
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.invalidate(ctx, existing.ExternalID)
	return existing, nil
}

func (s *identityService) resolveChat(ctx context.Context, p models.ChatProfile) (models.ChatProfile, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title != "" {
		return p, nil
	}
	if s.opts.Chats == nil {
		return p, apperrors.NewValidationError("title", "cannot be empty")
	}

	chat, err := s.opts.Chats.GetChat(ctx, p.ExternalID)
	if err != nil {
		return p, err
	}
	p.Title = chat.Title
	if p.Username == "" {
		p.Username = chat.Username
	}
	if p.Title == "" {
		// private chats have no title
		return p, apperrors.NewValidationError("title", "chat has no title")
	}
	return p, nil
}

func (s *identityService) GrantTier(ctx context.Context, externalID int64, tier authmodels.Tier) (*models.Identity, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("invalid access tier %d", int(tier))
	}
	return s.mutate(ctx, externalID, func(i *models.Identity) {
		i.AccessTier = tier
	})
}

func (s *identityService) SetActive(ctx context.Context, externalID int64, active bool) (*models.Identity, error) {
	return s.mutate(ctx, externalID, func(i *models.Identity) {
		i.Active = active
	})
}

func (s *identityService) mutate(ctx context.Context, externalID int64, fn func(*models.Identity)) (*models.Identity, error) {
	unlock, err := s.locks.Lock(ctx, identityLockKey(externalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	identity, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	fn(identity)
	identity.UpdatedAt = s.opts.Now()

	if err := s.repo.Update(ctx, identity); err != nil {
		return nil, err
	}
	s.invalidate(ctx, externalID)
	return identity, nil
}

func (s *identityService) invalidate(ctx context.Context, externalID int64) {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Delete(ctx, cache.IdentityKey(externalID)); err != nil {
		s.logger.Warn().Err(err).Int64("external_id", externalID).Msg("Failed to invalidate identity cache")
	}
}

// ReferrerFromStartParam extracts the referrer from a "ref_<telegram id>"
// start parameter.
func ReferrerFromStartParam(startParam string) *int64 {
	if !strings.HasPrefix(startParam, referralPrefix) {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(startParam, referralPrefix), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func identityLockKey(externalID int64) string {
	return fmt.Sprintf("identity:%d", externalID)
}

func usernameLockKey(username string) string {
	return "username:" + strings.ToLower(username)
}
