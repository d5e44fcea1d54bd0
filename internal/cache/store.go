package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
	"github.com/malikhaddad/gatewatch-backend/pkg/redis"
)

type redisCommands interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DelPattern(ctx context.Context, pattern string) (int64, error)
}

// Store is a read-through JSON cache over Redis. The cache is never a source
// of truth: every failure degrades to a miss or a logged warning and the
// caller falls back to the database.
type Store struct {
	redis redisCommands
	ttl   time.Duration
	logg  *logger.Logger
}

// NewStore builds a cache store with the given list TTL.
func NewStore(redisClient redisCommands, ttl time.Duration, logg *logger.Logger) *Store {
	return &Store{redis: redisClient, ttl: ttl, logg: logg}
}

// Get unmarshals the cached value at key into dest, reporting whether the
// lookup was a hit. Errors other than a miss are logged and treated as
// misses.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	if s == nil || s.redis == nil {
		return false
	}
	raw, err := s.redis.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.warn(ctx, "cache read failed", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.warn(ctx, "cache payload corrupt", err)
		return false
	}
	return true
}

// Set stores value at key with the configured TTL. Failures are logged,
// never returned.
func (s *Store) Set(ctx context.Context, key string, value any) {
	if s == nil || s.redis == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		s.warn(ctx, "cache payload marshal failed", err)
		return
	}
	if err := s.redis.Set(ctx, key, payload, s.ttl); err != nil {
		s.warn(ctx, "cache write failed", err)
	}
}

func (s *Store) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
