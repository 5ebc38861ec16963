package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// INCR and the first-hit PEXPIRE run in one script so a crash between them
// cannot leave a counter without a TTL.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

var pointsBucketScript = redis.NewScript(`
local budget = tonumber(ARGV[1])
local cost = tonumber(ARGV[2])
local duration = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = budget
  ts = now
end

if now > ts then
  tokens = math.min(budget, tokens + (now - ts) * budget / duration)
  ts = now
end

local allowed = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
end

local full_in = math.ceil((budget - tokens) * duration / budget)
redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', tostring(ts))
if full_in < 1 then
  full_in = 1
end
redis.call('PEXPIRE', KEYS[1], full_in)

return {allowed, math.floor(tokens), full_in}
`)

// RedisStore shares counters and buckets across every instance pointed at
// the same Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}

	values, err := fixedWindowScript.Run(ctx, s.client, []string{s.prefix + key}, windowMs).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, values)
	}

	return values[0], time.Duration(values[1]) * time.Millisecond, nil
}

func (s *RedisStore) TakePoints(ctx context.Context, key string, budget, cost int64, duration time.Duration, now time.Time) (BucketState, error) {
	durationMs := duration.Milliseconds()
	if durationMs < 1 {
		durationMs = 1
	}

	values, err := pointsBucketScript.Run(ctx, s.client, []string{s.prefix + key},
		strconv.FormatInt(budget, 10),
		strconv.FormatInt(cost, 10),
		strconv.FormatInt(durationMs, 10),
		strconv.FormatInt(now.UnixMilli(), 10),
	).Int64Slice()
	if err != nil {
		return BucketState{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(values) != 3 {
		return BucketState{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, values)
	}

	return BucketState{
		Allowed:   values[0] == 1,
		Remaining: values[1],
		FullIn:    time.Duration(values[2]) * time.Millisecond,
	}, nil
}
