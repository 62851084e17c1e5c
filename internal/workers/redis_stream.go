// Package workers consumes participation events that arrive outside the
// Telegram update loop, such as joins from a Mini App backend.
package workers

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/domain/giveaway"
)

const EventParticipate = "participate"

// Joiner is the engine operation the worker drives.
type Joiner interface {
	Join(ctx context.Context, giveawayID, userID string) (giveaway.Giveaway, error)
}

type StreamOptions struct {
	Stream   string
	Group    string
	Consumer string // "" picks a random name
	Block    time.Duration
	Count    int64
}

type RedisStreamWorker struct {
	rdb    goredis.UniversalClient
	joiner Joiner
	opts   StreamOptions
	log    zerolog.Logger
}

func NewRedisStreamWorker(rdb goredis.UniversalClient, joiner Joiner, opts StreamOptions, log zerolog.Logger) *RedisStreamWorker {
	if opts.Consumer == "" {
		opts.Consumer = "giveaway-bot-" + uuid.NewString()[:8]
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	if opts.Count <= 0 {
		opts.Count = 10
	}
	return &RedisStreamWorker{
		rdb:    rdb,
		joiner: joiner,
		opts:   opts,
		log:    log.With().Str("stream", opts.Stream).Str("consumer", opts.Consumer).Logger(),
	}
}

// Start consumes the stream until ctx is done.
func (w *RedisStreamWorker) Start(ctx context.Context) {
	if err := w.ensureGroup(ctx); err != nil {
		w.log.Error().Err(err).Msg("creating consumer group")
	}
	w.log.Info().Msg("stream worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stream worker stopped")
			return
		default:
		}

		n, err := w.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("reading stream")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if n > 0 {
			w.log.Debug().Int("events", n).Msg("events processed")
		}
	}
}

func (w *RedisStreamWorker) ensureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, w.opts.Stream, w.opts.Group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// poll reads one batch, handles and acknowledges every entry. It returns the
// number of entries handled.
func (w *RedisStreamWorker) poll(ctx context.Context) (int, error) {
	streams, err := w.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    w.opts.Group,
		Consumer: w.opts.Consumer,
		Streams:  []string{w.opts.Stream, ">"},
		Count:    w.opts.Count,
		Block:    w.opts.Block,
	}).Result()
	if stderrors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil && strings.Contains(err.Error(), "NOGROUP") {
		// the group was never created or the stream was deleted
		w.log.Warn().Err(err).Msg("consumer group missing, recreating")
		return 0, w.ensureGroup(ctx)
	}
	if err != nil {
		return 0, err
	}

	handled := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if err := w.processMessage(ctx, msg.Values); err != nil {
				w.log.Warn().Err(err).Str("entry_id", msg.ID).Interface("values", msg.Values).Msg("event dropped")
			}
			// entries are acknowledged even when dropped; a malformed event never succeeds on retry
			if err := w.rdb.XAck(ctx, w.opts.Stream, w.opts.Group, msg.ID).Err(); err != nil {
				w.log.Error().Err(err).Str("entry_id", msg.ID).Msg("ack failed")
			}
			handled++
		}
	}
	return handled, nil
}

// processMessage routes one entry. Already-joined and unknown-giveaway
// outcomes are normal and not reported as errors.
func (w *RedisStreamWorker) processMessage(ctx context.Context, values map[string]interface{}) error {
	eventType, _ := values["type"].(string)
	if eventType != EventParticipate {
		return fmt.Errorf("unsupported event type %q", eventType)
	}

	giveawayID, _ := values["giveaway_id"].(string)
	userID, _ := values["user_id"].(string)
	if giveawayID == "" || userID == "" {
		return fmt.Errorf("participate event needs giveaway_id and user_id")
	}

	_, err := w.joiner.Join(ctx, giveawayID, userID)
	switch {
	case err == nil:
		w.log.Info().Str("giveaway_id", giveawayID).Str("user_id", userID).Msg("participation from stream")
		return nil
	case apperrors.HasCode(err, apperrors.ErrCodeAlreadyJoined), apperrors.HasCode(err, apperrors.ErrCodeGiveawayNotFound):
		w.log.Debug().Err(err).Str("giveaway_id", giveawayID).Str("user_id", userID).Msg("participation ignored")
		return nil
	default:
		return err
	}
}
