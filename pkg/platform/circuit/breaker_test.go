package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	now     time.Time
	breaker *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.breaker = New("sms",
		WithFailureThreshold(2),
		WithCooldown(time.Minute),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *BreakerSuite) TestOpensAfterThreshold() {
	s.True(s.breaker.Allow())
	s.False(s.breaker.RecordFailure())
	s.True(s.breaker.RecordFailure())

	s.Equal(StateOpen, s.breaker.State())
	s.False(s.breaker.Allow())
}

func (s *BreakerSuite) TestSuccessResetsStreak() {
	s.breaker.RecordFailure()
	s.breaker.RecordSuccess()
	s.False(s.breaker.RecordFailure())
	s.Equal(StateClosed, s.breaker.State())
}

func (s *BreakerSuite) TestHalfOpenAdmitsSingleProbe() {
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()

	s.now = s.now.Add(time.Minute)
	s.Equal(StateHalfOpen, s.breaker.State())
	s.True(s.breaker.Allow())
	s.False(s.breaker.Allow(), "second caller must wait for the probe")

	s.breaker.RecordSuccess()
	s.Equal(StateClosed, s.breaker.State())
	s.True(s.breaker.Allow())
}

func (s *BreakerSuite) TestFailedProbeReopens() {
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()
	s.now = s.now.Add(time.Minute)
	s.True(s.breaker.Allow())

	s.True(s.breaker.RecordFailure())
	s.Equal(StateOpen, s.breaker.State())
	s.Equal("open", s.breaker.State().String())
}
