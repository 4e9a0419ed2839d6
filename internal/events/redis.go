// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "deep-research:events:"
	publishTimeout = 2 * time.Second
)

// Channel returns the Redis pub/sub channel carrying a session's events.
func Channel(sessionID string) string {
	return channelPrefix + sessionID
}

// NewRedisClient creates and pings a Redis client.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisEmitter publishes events as JSON on the session's channel.
// Publish failures are logged and dropped.
type RedisEmitter struct {
	rdb redis.UniversalClient
	log *zap.Logger
}

// NewRedisEmitter returns an emitter publishing through rdb.
func NewRedisEmitter(rdb redis.UniversalClient, log *zap.Logger) *RedisEmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisEmitter{rdb: rdb, log: log}
}

// Emit implements Emitter.
func (e *RedisEmitter) Emit(name string, payload map[string]any, sessionID string) {
	data, err := json.Marshal(newEvent(name, payload, sessionID))
	if err != nil {
		e.log.Warn("encoding event", zap.String("event", name), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := e.rdb.Publish(ctx, Channel(sessionID), data).Err(); err != nil {
		e.log.Warn("publishing event", zap.String("event", name), zap.String("session", sessionID), zap.Error(err))
	}
}

// Watch subscribes to a session's events and delivers them on the returned
// channel until ctx is done. Malformed messages are skipped.
func Watch(ctx context.Context, rdb redis.UniversalClient, sessionID string) (<-chan Event, error) {
	sub := rdb.Subscribe(ctx, Channel(sessionID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", Channel(sessionID), err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
