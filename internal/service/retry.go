package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/logger"
)

// withRetry reruns fn while it fails with ErrTransient. Each attempt is a
// fresh transaction, so a failed attempt left nothing behind.
func withRetry(ctx context.Context, opts Options, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= opts.RetryAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrTransient) {
			return err
		}

		logger.Warn("Transient store failure", "operation", op, "attempt", attempt, "error", err)
		if attempt == opts.RetryAttempts {
			break
		}

		timer := time.NewTimer(opts.RetryBackoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrTransient, ctx.Err()))
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, opts.RetryAttempts, err)
}
