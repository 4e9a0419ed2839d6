// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cancel

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix   = "deep-research:cancel:"
	keyTTL      = 24 * time.Hour
	pollTimeout = 2 * time.Second
)

// Key returns the Redis key that cancels session.
func Key(session string) string {
	return keyPrefix + session
}

// Request marks session as cancelled in Redis. Any process polling a
// Redis token for the same session observes it at its next checkpoint.
func Request(ctx context.Context, rdb redis.UniversalClient, session string) error {
	if err := rdb.Set(ctx, Key(session), time.Now().UTC().Format(time.RFC3339), keyTTL).Err(); err != nil {
		return fmt.Errorf("setting cancel key for %s: %w", session, err)
	}
	return nil
}

// RedisToken polls a per-session Redis key. Lookup errors are logged and
// read as "not cancelled".
type RedisToken struct {
	rdb     redis.UniversalClient
	key     string
	log     *zap.Logger
	latched atomic.Bool
}

// NewRedisToken returns a token for session.
func NewRedisToken(rdb redis.UniversalClient, session string, log *zap.Logger) *RedisToken {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisToken{rdb: rdb, key: Key(session), log: log}
}

// IsCancelled implements Token.
func (t *RedisToken) IsCancelled() bool {
	if t.latched.Load() {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	n, err := t.rdb.Exists(ctx, t.key).Result()
	if err != nil {
		t.log.Warn("polling cancel key failed", zap.String("key", t.key), zap.Error(err))
		return false
	}
	if n > 0 {
		t.latched.Store(true)
		return true
	}
	return false
}

// Clear removes the session's cancel key so the session id can be reused.
func (t *RedisToken) Clear(ctx context.Context) error {
	return t.rdb.Del(ctx, t.key).Err()
}
