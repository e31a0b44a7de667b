package services

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AgentEnder/slack-linear-rundown/internal/config"
	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

func testService(cfg config.Config) (*Service, *[]time.Duration) {
	var slept []time.Duration
	s := &Service{
		cfg:   cfg,
		log:   zerolog.Nop(),
		sleep: func(d time.Duration) { slept = append(slept, d) },
	}
	return s, &slept
}

func TestWithBackoffStopsOnSuccess(t *testing.T) {
	s, slept := testService(config.Config{RetryMaxAttempts: 3, RetryBaseDelay: time.Second})
	calls := 0
	err := s.withBackoff(func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{time.Second}, *slept)
}

func TestWithBackoffExhaustsAttempts(t *testing.T) {
	s, slept := testService(config.Config{RetryMaxAttempts: 3, RetryBaseDelay: time.Second})
	cause := errors.New("slack down")
	calls := 0
	err := s.withBackoff(func() error {
		calls++
		return cause
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// Delays between attempts only: 1s then 2s, none after the last.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryableRequiresFailedAttempt(t *testing.T) {
	require.Error(t, retryable(nil), "nothing on record means nothing to retry")

	err := retryable(&domain.DeliveryRecord{AttemptID: "a-1", Status: domain.DeliverySuccess})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not failed")

	err = retryable(&domain.DeliveryRecord{AttemptID: "a-2", Status: domain.DeliverySkipped})
	require.Error(t, err)

	assert.NoError(t, retryable(&domain.DeliveryRecord{AttemptID: "a-3", Status: domain.DeliveryFailed}))
}

func TestWithBackoffDefaults(t *testing.T) {
	s, slept := testService(config.Config{})
	calls := 0
	_ = s.withBackoff(func() error {
		calls++
		return errors.New("nope")
	})
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}
