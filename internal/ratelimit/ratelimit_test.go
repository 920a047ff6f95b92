package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/hackutd/harp-sub001/internal/logger"
)

// fakeRedis counts hits per key the way the window script does.
type fakeRedis struct {
	counts map[string]int64
	err    error
}

func (f *fakeRedis) run(keys []string) *redis.Cmd {
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	f.counts[keys[0]]++
	return redis.NewCmdResult([]interface{}{f.counts[keys[0]], int64(1500)}, nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return f.run(keys)
}

func (f *fakeRedis) EvalSha(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return f.run(keys)
}

func (f *fakeRedis) EvalRO(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return f.run(keys)
}

func (f *fakeRedis) EvalShaRO(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	return f.run(keys)
}

func (f *fakeRedis) ScriptExists(context.Context, ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}

func (f *fakeRedis) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("sha", nil)
}

func TestAllowBlocksAfterLimit(t *testing.T) {
	fake := &fakeRedis{counts: map[string]int64{}}
	limiter := New(fake, 2, time.Minute, logger.Discard())
	ctx := context.Background()

	first := limiter.Allow(ctx, "user-1")
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)
	assert.True(t, limiter.Allow(ctx, "user-1").Allowed)

	blocked := limiter.Allow(ctx, "user-1")
	assert.False(t, blocked.Allowed)
	assert.Equal(t, 1500*time.Millisecond, blocked.RetryAfter)

	assert.True(t, limiter.Allow(ctx, "user-2").Allowed)
}

func TestAllowFailsOpen(t *testing.T) {
	limiter := New(&fakeRedis{err: errors.New("connection refused")}, 1, time.Minute, logger.Discard())
	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(context.Background(), "user-1").Allowed)
	}
}

func TestNilClientAllows(t *testing.T) {
	limiter := New(nil, 1, time.Minute, logger.Discard())
	assert.True(t, limiter.Allow(context.Background(), "user-1").Allowed)

	var none *Limiter
	assert.True(t, none.Allow(context.Background(), "user-1").Allowed)
}
