// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cancel

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlag(t *testing.T) {
	var f Flag
	assert.False(t, f.IsCancelled())
	f.Cancel()
	f.Cancel()
	for range 5 {
		assert.True(t, f.IsCancelled())
	}
}

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tok := FromContext(ctx)
	assert.False(t, tok.IsCancelled())
	cancel()
	assert.True(t, tok.IsCancelled())
}

// toggle is a deliberately non-monotonic token.
type toggle struct{ calls int }

func (t *toggle) IsCancelled() bool {
	t.calls++
	return t.calls == 2
}

func TestAny_Latches(t *testing.T) {
	inner := &toggle{}
	tok := Any(nil, Never, inner)
	assert.False(t, tok.IsCancelled())
	assert.True(t, tok.IsCancelled())
	assert.True(t, tok.IsCancelled())
	assert.True(t, tok.IsCancelled())
	assert.Equal(t, 2, inner.calls)
}

func TestRedisToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	tok := NewRedisToken(rdb, "session-1", nil)
	assert.False(t, tok.IsCancelled())

	require.NoError(t, Request(ctx, rdb, "session-2"))
	assert.False(t, tok.IsCancelled(), "other sessions do not cancel this one")

	require.NoError(t, Request(ctx, rdb, "session-1"))
	assert.True(t, mr.Exists(Key("session-1")))
	assert.True(t, tok.IsCancelled())

	// Monotonic even after the key disappears.
	require.NoError(t, tok.Clear(ctx))
	assert.False(t, mr.Exists(Key("session-1")))
	assert.True(t, tok.IsCancelled())
}

func TestRedisToken_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	tok := NewRedisToken(rdb, "s", nil)
	assert.False(t, tok.IsCancelled())
}
