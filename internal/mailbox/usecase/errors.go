package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/eliOcs/crm-backend/pkg/graph"
)

var (
	// ErrNotConnected means the user has no stored mailbox credential.
	ErrNotConnected = errors.New("mailbox not connected")
	// ErrRunActive means the user already has a non-terminal import run.
	ErrRunActive = errors.New("an import is already running")
	// ErrNoActiveRun means there is nothing to cancel.
	ErrNoActiveRun = errors.New("no active import run")
	// ErrInvalidRange means the requested time range is not supported.
	ErrInvalidRange = errors.New("invalid import range")
)

const (
	apiRetryAttempts          = 5
	subscriptionRetryAttempts = 3
)

// withRetry runs op with exponential backoff: 1s, 2s, 4s, ... capped at
// 30s. Token expiry is not retried here; the token layer handles it.
func withRetry(ctx context.Context, attempts int, baseDelay time.Duration, op func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if errors.Is(err, graph.ErrTokenExpired) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		backoff := baseDelay * (1 << uint(attempt))
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
