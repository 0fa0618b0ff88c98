package workers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "tg-reward-ledger/internal/common/errors"
	"tg-reward-ledger/internal/common/logger"
	"tg-reward-ledger/internal/common/middleware"
	"tg-reward-ledger/internal/common/validation"
	identitymodels "tg-reward-ledger/internal/features/identity/models"
	identityservice "tg-reward-ledger/internal/features/identity/service"
	ledgermodels "tg-reward-ledger/internal/features/ledger/models"
	ledgerservice "tg-reward-ledger/internal/features/ledger/service"
	"tg-reward-ledger/internal/platform/telegram"
)

// Event types published by the bot.
const (
	EventReward     = "reward"
	EventPoolReward = "pool_reward"
	EventChat       = "chat_updated"
)

type StreamConfig struct {
	Key      string
	Group    string
	Consumer string
	// MinIdle is how long an entry stays unacknowledged before Reclaim takes
	// it over, from this consumer or a dead one.
	MinIdle time.Duration
	// ReclaimInterval is how often Start runs Reclaim.
	ReclaimInterval time.Duration
}

const (
	readBatch              = 10
	defaultMinIdle         = time.Minute
	defaultReclaimInterval = 30 * time.Second
)

// RewardStreamWorker applies bot events from a Redis stream to the ledger.
// Delivery is at least once; external_message_ref makes replays harmless.
type RewardStreamWorker struct {
	rdb        redis.UniversalClient
	ledger     ledgerservice.LedgerService
	identities identityservice.IdentityService
	cfg        StreamConfig
	logger     zerolog.Logger
}

func NewRewardStreamWorker(rdb redis.UniversalClient, ledger ledgerservice.LedgerService, identities identityservice.IdentityService, cfg StreamConfig) *RewardStreamWorker {
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = defaultMinIdle
	}
	if cfg.ReclaimInterval <= 0 {
		cfg.ReclaimInterval = defaultReclaimInterval
	}
	return &RewardStreamWorker{
		rdb:        rdb,
		ledger:     ledger,
		identities: identities,
		cfg:        cfg,
		logger:     logger.Component("reward_stream"),
	}
}

// Start blocks until ctx is done. Entries left pending by a previous run are
// retried first; afterwards entries idle for MinIdle are reclaimed every
// ReclaimInterval.
func (w *RewardStreamWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, w.cfg.Key, w.cfg.Group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		w.logger.Error().Err(err).Str("stream", w.cfg.Key).Msg("Failed to create consumer group")
	}

	w.logger.Info().
		Str("stream", w.cfg.Key).
		Str("group", w.cfg.Group).
		Str("consumer", w.cfg.Consumer).
		Dur("min_idle", w.cfg.MinIdle).
		Msg("Starting reward stream worker")

	if n := w.DrainPending(ctx); n > 0 {
		w.logger.Info().Int("entries", n).Msg("Replayed pending entries")
	}

	ticker := time.NewTicker(w.cfg.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping reward stream worker")
			return
		case <-ticker.C:
			if n := w.Reclaim(ctx); n > 0 {
				w.logger.Info().Int("entries", n).Msg("Reclaimed idle entries")
			}
		default:
			w.poll(ctx)
		}
	}
}

// DrainPending replays this consumer's unacknowledged entries, batch by
// batch, until the pending list is exhausted. Entries that fail again stay
// pending for Reclaim. It returns the number of entries handled.
func (w *RewardStreamWorker) DrainPending(ctx context.Context) int {
	handled := 0
	cursor := "0"
	for ctx.Err() == nil {
		entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			Streams:  []string{w.cfg.Key, cursor},
			Count:    readBatch,
			Block:    -1,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("Failed to read pending entries")
			}
			return handled
		}

		msgs := messages(entries)
		if len(msgs) == 0 {
			return handled
		}
		for _, msg := range msgs {
			w.handle(ctx, msg)
		}
		handled += len(msgs)
		cursor = msgs[len(msgs)-1].ID
	}
	return handled
}

// Reclaim takes over every entry of the group idle for at least MinIdle and
// handles it. It returns the number of entries handled.
func (w *RewardStreamWorker) Reclaim(ctx context.Context) int {
	handled := 0
	cursor := "0-0"
	for ctx.Err() == nil {
		msgs, next, err := w.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   w.cfg.Key,
			Group:    w.cfg.Group,
			Consumer: w.cfg.Consumer,
			MinIdle:  w.cfg.MinIdle,
			Start:    cursor,
			Count:    readBatch,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("Failed to reclaim idle entries")
			}
			return handled
		}

		for _, msg := range msgs {
			w.handle(ctx, msg)
		}
		handled += len(msgs)
		if next == "" || next == "0-0" {
			return handled
		}
		cursor = next
	}
	return handled
}

func (w *RewardStreamWorker) poll(ctx context.Context) {
	entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.cfg.Group,
		Consumer: w.cfg.Consumer,
		Streams:  []string{w.cfg.Key, ">"},
		Count:    readBatch,
		Block:    5 * time.Second,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("Failed to read stream")
			time.Sleep(time.Second)
		}
		return
	}

	for _, msg := range messages(entries) {
		w.handle(ctx, msg)
	}
}

func messages(entries []redis.XStream) []redis.XMessage {
	var out []redis.XMessage
	for _, stream := range entries {
		out = append(out, stream.Messages...)
	}
	return out
}

func (w *RewardStreamWorker) handle(ctx context.Context, msg redis.XMessage) {
	err := w.Process(ctx, msg.Values)
	switch {
	case err == nil:
	case Retryable(err):
		// left pending; Reclaim retries it once idle for MinIdle
		w.logger.Error().Err(err).Str("id", msg.ID).Msg("Reward event failed, will retry")
		return
	default:
		w.logger.Info().Err(err).Str("id", msg.ID).Msg("Reward event rejected")
	}

	if err := w.rdb.XAck(ctx, w.cfg.Key, w.cfg.Group, msg.ID).Err(); err != nil {
		w.logger.Error().Err(err).Str("id", msg.ID).Msg("Failed to ack event")
	}
}

// Process applies one stream entry.
func (w *RewardStreamWorker) Process(ctx context.Context, values map[string]interface{}) error {
	eventType := field(values, "type")
	switch eventType {
	case EventReward:
		req, err := decodeReward(values)
		if err != nil {
			return err
		}
		ev, err := w.ledger.ApplyReward(ctx, req)
		if err != nil {
			return err
		}
		w.logger.Debug().Int64("event_id", ev.ID).Msg("Reward applied from stream")
		return nil

	case EventPoolReward:
		req, err := decodePoolReward(values)
		if err != nil {
			return err
		}
		ev, err := w.ledger.ApplyPoolReward(ctx, req)
		if err != nil {
			return err
		}
		w.logger.Debug().Int64("event_id", ev.ID).Msg("Pool reward applied from stream")
		return nil

	case EventChat:
		chatID, err := requiredInt64(values, "chat_id")
		if err != nil {
			return err
		}
		_, err = w.identities.RegisterChat(ctx, identitymodels.ChatProfile{
			ExternalID: chatID,
			Title:      field(values, "title"),
			Username:   field(values, "username"),
		})
		return err

	default:
		return apperrors.NewValidationError("type", fmt.Sprintf("unknown event type %q", eventType))
	}
}

// Retryable reports whether err may succeed on redelivery. Everything the
// HTTP layer would answer with a 4xx is final, except Bot API throttling.
func Retryable(err error) bool {
	if errors.Is(err, telegram.ErrRateLimited) {
		return true
	}
	return middleware.MapError(err).IsInternal()
}

func decodeReward(values map[string]interface{}) (ledgermodels.RewardRequest, error) {
	var req ledgermodels.RewardRequest

	from, err := requiredInt64(values, "from_id")
	if err != nil {
		return req, err
	}
	to, err := requiredInt64(values, "to_id")
	if err != nil {
		return req, err
	}
	amount, err := decodeAmount(values)
	if err != nil {
		return req, err
	}

	req = ledgermodels.RewardRequest{
		FromID:             &from,
		ToID:               to,
		TokenID:            field(values, "token_id"),
		Amount:             amount,
		ExternalMessageRef: optional(values, "external_message_ref"),
		Reason:             field(values, "reason"),
		Action:             field(values, "action"),
	}
	return req, validateEvent(req.TokenID, req.Action, req.Reason, req.ExternalMessageRef)
}

func decodePoolReward(values map[string]interface{}) (ledgermodels.PoolRewardRequest, error) {
	var req ledgermodels.PoolRewardRequest

	pool, err := requiredInt64(values, "pool_id")
	if err != nil {
		return req, err
	}
	from, err := requiredInt64(values, "from_id")
	if err != nil {
		return req, err
	}
	to, err := requiredInt64(values, "to_id")
	if err != nil {
		return req, err
	}
	amount, err := decodeAmount(values)
	if err != nil {
		return req, err
	}

	req = ledgermodels.PoolRewardRequest{
		PoolID:             pool,
		FromID:             from,
		ToID:               to,
		TokenID:            field(values, "token_id"),
		Amount:             amount,
		ExternalMessageRef: optional(values, "external_message_ref"),
		Reason:             field(values, "reason"),
		Action:             field(values, "action"),
	}
	return req, validateEvent(req.TokenID, req.Action, req.Reason, req.ExternalMessageRef)
}

// decodeAmount parses a positive amount that fits the ledger's scale.
func decodeAmount(values map[string]interface{}) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(field(values, "amount"))
	if err != nil {
		return decimal.Zero, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "Validation failed for field '%s': must be a decimal", "amount").
			WithDetail("field", "amount")
	}
	return amount, validation.ValidatePositiveAmount(amount, "amount")
}

func validateEvent(tokenID, action, reason string, ref *string) error {
	return validation.First(
		validation.ValidateTokenID(tokenID),
		validation.ValidateAction(action),
		validation.ValidateReason(reason),
		validation.ValidateExternalRef(ref),
	)
}

func field(values map[string]interface{}, key string) string {
	switch v := values[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func optional(values map[string]interface{}, key string) *string {
	v := field(values, key)
	if v == "" {
		return nil
	}
	return &v
}

func requiredInt64(values map[string]interface{}, key string) (int64, error) {
	raw := field(values, key)
	if raw == "" {
		return 0, apperrors.NewValidationError(key, "is required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "Validation failed for field '%s': must be an integer", key).
			WithDetail("field", key)
	}
	return v, nil
}
