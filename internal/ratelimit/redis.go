package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the window, then admits the hit if there is room.
// Returns {allowed, remaining, resetAtMillis}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local reset = now + window
  if oldest[2] then reset = tonumber(oldest[2]) + window end
  return {0, 0, reset}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {1, limit - count - 1, tonumber(oldest[2]) + window}
`)

// Redis implements Store with a sorted set per key.
type Redis struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (s *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := s.now()
	member := ulid.Make().String()
	raw, err := slidingWindowScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(), window.Milliseconds(), limit, member).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(raw) != 3 {
		return Result{}, fmt.Errorf("rate limit script: unexpected reply length %d", len(raw))
	}
	allowed := raw[0] == 1
	resetAt := time.UnixMilli(raw[2]).UTC()
	return Result{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  int(raw[1]),
		ResetAt:    resetAt,
		RetryAfter: retryAfter(allowed, resetAt, now),
		Hit:        hitID(allowed, member),
	}, nil
}

func hitID(allowed bool, member string) string {
	if !allowed {
		return ""
	}
	return member
}

func (s *Redis) Release(ctx context.Context, key, hit string) error {
	if hit == "" {
		return nil
	}
	if err := s.client.ZRem(ctx, key, hit).Err(); err != nil {
		return fmt.Errorf("release rate limit hit: %w", err)
	}
	return nil
}

func (s *Redis) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("reset rate limits: %w", err)
	}
	return nil
}
