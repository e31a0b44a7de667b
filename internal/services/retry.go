package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AgentEnder/slack-linear-rundown/internal/domain"
)

// RetryDelivery re-attempts a previously failed delivery with bounded
// exponential backoff. It refuses when the user's most recent attempt did
// not fail, so a successful send is never duplicated. The terminal error
// wraps the final attempt's cause.
func (s *Service) RetryDelivery(ctx context.Context, userID int64) error {
	last, err := s.repo.LastDelivery(ctx, userID)
	if err != nil {
		return err
	}
	if err := retryable(last); err != nil {
		return fmt.Errorf("retry for user %d: %w", userID, err)
	}
	if err := s.withBackoff(func() error { return s.DeliverToUser(ctx, userID) }); err != nil {
		return fmt.Errorf("delivery for user %d: %w", userID, err)
	}
	return nil
}

// retryable reports whether the most recent delivery attempt is one the
// retry operation should re-run: it must exist and have failed.
func retryable(last *domain.DeliveryRecord) error {
	if last == nil {
		return errors.New("no delivery attempt on record")
	}
	if last.Status != domain.DeliveryFailed {
		return fmt.Errorf("last attempt %s is %s, not failed", last.AttemptID, last.Status)
	}
	return nil
}

// withBackoff retries fn up to the configured attempt count. The base delay
// doubles after each failed attempt and no delay follows the last one.
func (s *Service) withBackoff(fn func() error) error {
	attempts := s.cfg.RetryMaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := s.cfg.RetryBaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		s.log.Warn().Err(lastErr).Int("attempt", i).Msg("attempt failed")
		if i < attempts {
			s.sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
