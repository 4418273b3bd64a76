package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cooldownKeyPrefix = "confluence:cooldown:"

// RedisCooldownStore persists confluence cooldown records in Redis so
// restarts do not re-fire recent confluences. Implements
// confluence.CooldownStore. Redis errors degrade to "never fired" since a
// missed cooldown beats a crashed signal pipeline.
type RedisCooldownStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisCooldownStore connects to Redis and verifies the connection.
// ttl bounds how long a cooldown record is retained; it should be at least
// the tracker's cooldown duration.
func NewRedisCooldownStore(addr, password string, db int, ttl time.Duration, logger zerolog.Logger) (*RedisCooldownStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisCooldownStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "RedisCooldownStore").Logger(),
	}, nil
}

// LastFired returns the persisted last firing timestamp for a symbol
func (s *RedisCooldownStore) LastFired(symbol string) (int64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	val, err := s.client.Get(ctx, cooldownKeyPrefix+symbol).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("cooldown read failed")
		return 0, false
	}

	ts, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// MarkFired persists a firing for a symbol
func (s *RedisCooldownStore) MarkFired(symbol string, timestampMs int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := cooldownKeyPrefix + symbol
	if err := s.client.Set(ctx, key, strconv.FormatInt(timestampMs, 10), s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("cooldown write failed")
	}
}

// Close releases the Redis connection
func (s *RedisCooldownStore) Close() error {
	return s.client.Close()
}
