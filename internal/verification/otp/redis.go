package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"jojo/pkg/platform/sentinel"
)

// incrementIfExists avoids recreating an expired hash without a TTL.
var incrementIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)

// Redis implements Store with one hash per key.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Save(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			"hash", e.Hash,
			"attempts", e.Attempts,
			"expires_at", e.ExpiresAt.UnixMilli(),
		)
		p.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save code: %w", err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, key string) (Entry, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("get code: %w", err)
	}
	if len(fields) == 0 {
		return Entry{}, sentinel.ErrNotFound
	}
	attempts, _ := strconv.Atoi(fields["attempts"])
	expiresMillis, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("decode code expiry: %w", err)
	}
	return Entry{
		Hash:      fields["hash"],
		Attempts:  attempts,
		ExpiresAt: time.UnixMilli(expiresMillis).UTC(),
	}, nil
}

func (s *Redis) IncrementAttempts(ctx context.Context, key string) (int, error) {
	n, err := incrementIfExists.Run(ctx, s.client, []string{key}).Int()
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	if n < 0 {
		return 0, sentinel.ErrNotFound
	}
	return n, nil
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	return nil
}
