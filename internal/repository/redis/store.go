// Package redis stores the giveaway state under three Redis keys.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"giveaway-bot/internal/domain/giveaway"
)

const (
	keyRegistry = "giveaway:registry"
	keySettings = "giveaway:settings"
	keyCounter  = "giveaway:counter"
)

type Store struct {
	client redis.UniversalClient
	log    zerolog.Logger
}

var _ giveaway.Store = (*Store)(nil)

func New(client redis.UniversalClient, log zerolog.Logger) *Store {
	return &Store{client: client, log: log}
}

func (s *Store) Load(ctx context.Context) (giveaway.Snapshot, error) {
	var snap giveaway.Snapshot

	pipe := s.client.Pipeline()
	registryCmd := pipe.Get(ctx, keyRegistry)
	settingsCmd := pipe.Get(ctx, keySettings)
	counterCmd := pipe.Get(ctx, keyCounter)
	// redis.Nil for absent keys is reported per command below
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return snap, fmt.Errorf("load giveaway state: %w", err)
	}

	if data, ok := s.value(registryCmd, keyRegistry); ok {
		gs, err := giveaway.UnmarshalEntries(data)
		if err != nil {
			s.log.Warn().Err(err).Str("key", keyRegistry).Msg("giveaways unreadable, starting with none")
		} else {
			snap.Giveaways = gs
		}
	}
	if data, ok := s.value(settingsCmd, keySettings); ok {
		settings, err := giveaway.UnmarshalSettings(data)
		if err != nil {
			s.log.Warn().Err(err).Str("key", keySettings).Msg("settings unreadable, using defaults")
		} else {
			snap.Settings = settings
		}
	}
	if data, ok := s.value(counterCmd, keyCounter); ok {
		n, err := giveaway.UnmarshalCounter(data)
		if err != nil {
			s.log.Warn().Err(err).Str("key", keyCounter).Msg("counter unreadable, resetting to 0")
		} else {
			snap.Counter = n
		}
	}
	return snap, nil
}

func (s *Store) value(cmd *redis.StringCmd, key string) ([]byte, bool) {
	data, err := cmd.Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("key", key).Msg("read failed")
		}
		return nil, false
	}
	return data, true
}

// Save replaces the three keys in a single MULTI/EXEC transaction.
func (s *Store) Save(ctx context.Context, snap giveaway.Snapshot) error {
	entries, err := giveaway.MarshalEntries(snap.Giveaways)
	if err != nil {
		return err
	}
	settings, err := giveaway.MarshalSettings(snap.Settings)
	if err != nil {
		return err
	}
	counter, err := giveaway.MarshalCounter(snap.Counter)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyRegistry, entries, 0)
		pipe.Set(ctx, keySettings, settings, 0)
		pipe.Set(ctx, keyCounter, counter, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save giveaway state: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
