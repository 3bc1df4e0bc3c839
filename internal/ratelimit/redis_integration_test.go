//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"jojo/internal/ratelimit"
	"jojo/pkg/testutil/containers"
)

type RedisLimiterSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimit.Redis
}

func TestRedisLimiterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLimiterSuite))
}

func (s *RedisLimiterSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = ratelimit.NewRedis(s.redis.Client)
}

func (s *RedisLimiterSuite) SetupTest() {
	s.Require().NoError(s.redis.Flush(context.Background()))
}

func (s *RedisLimiterSuite) TestLimitAndReset() {
	ctx := context.Background()
	key := ratelimit.SendKey("instructor-1", ratelimit.ChannelPhone)

	for i := 0; i < 3; i++ {
		res, err := s.store.Allow(ctx, key, 3, 15*time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.store.Allow(ctx, key, 3, 15*time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Greater(res.RetryAfter, 14*time.Minute)

	s.Require().NoError(s.store.Reset(ctx, ratelimit.SendKeys("instructor-1")...))
	res, err = s.store.Allow(ctx, key, 3, 15*time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisLimiterSuite) TestReleaseReturnsTheHit() {
	ctx := context.Background()
	key := ratelimit.SendKey("instructor-2", ratelimit.ChannelEmail)

	res, err := s.store.Allow(ctx, key, 1, time.Hour)
	s.Require().NoError(err)
	s.Require().True(res.Allowed)
	s.NotEmpty(res.Hit)

	s.Require().NoError(s.store.Release(ctx, key, res.Hit))
	res, err = s.store.Allow(ctx, key, 1, time.Hour)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
