package payload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zero-day-ai/redcell/types"
)

// Drafter is the boundary to an external text-generation backend used to
// draft novel payload templates for a technique. Implementations are
// typically rate-limited remote calls; drafting failures are never fatal,
// the engine simply falls back to its template bank.
type Drafter interface {
	// Draft produces one payload template for the technique. The returned
	// string may contain the literal command to issue or a template with
	// no substitution slots.
	Draft(ctx context.Context, tech types.TechniqueProfile) (string, error)
}

// RetryingDrafter decorates a Drafter with bounded retries and exponential
// backoff, absorbing the transient failures expected from a rate-limited
// backend.
type RetryingDrafter struct {
	inner      Drafter
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// NewRetryingDrafter wraps the drafter with maxRetries retries starting at
// the given backoff, doubling per attempt.
func NewRetryingDrafter(inner Drafter, maxRetries int, backoff time.Duration, logger *slog.Logger) *RetryingDrafter {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &RetryingDrafter{inner: inner, maxRetries: maxRetries, backoff: backoff, logger: logger}
}

// Draft calls the wrapped drafter, retrying on error until the retry budget
// or the context is exhausted.
func (r *RetryingDrafter) Draft(ctx context.Context, tech types.TechniqueProfile) (string, error) {
	var lastErr error
	delay := r.backoff

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Debug("retrying draft",
				"technique_id", tech.ID,
				"attempt", attempt,
				"delay", delay)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		content, err := r.inner.Draft(ctx, tech)
		if err == nil {
			return content, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("draft failed after %d retries: %w", r.maxRetries, lastErr)
}
