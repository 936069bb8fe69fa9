// Package retry implements the retry coordinator: it wraps a single-attempt
// operation and re-invokes it with backoff when the failure is retryable.
package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/engagekit/client-go/internal/apierrors"
)

// Defaults for Policy fields left zero.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxJitter  = 250 * time.Millisecond
)

// Policy controls retry behavior. A Policy is stateless across calls and
// safe to share between goroutines.
type Policy struct {
	MaxRetries int           // retries after the initial attempt; MaxRetries+1 total tries
	BaseDelay  time.Duration // exponential backoff base
	MaxJitter  time.Duration // uniform random jitter added to every delay
	Logger     *slog.Logger  // optional; waits are logged at debug level
}

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxJitter:  DefaultMaxJitter,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxJitter < 0 {
		p.MaxJitter = 0
	}
	return p
}

// Func is a single attempt of an operation. Callers capture results in the
// closure.
type Func func(ctx context.Context) error

// Do runs fn until it succeeds, fails terminally, or the attempt budget is
// spent. The last failure is returned untouched, with its status code and
// retry-after metadata intact.
func Do(ctx context.Context, p Policy, fn Func) error {
	p = p.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !apierrors.Retryable(lastErr) || attempt == p.MaxRetries {
			return lastErr
		}

		delay := p.NextDelay(attempt, lastErr)
		if p.Logger != nil {
			p.Logger.DebugContext(ctx, "retrying after failure",
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)
		}
		if err := sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// NextDelay computes the backoff before the attempt following a failed
// attempt (0-based). A server-directed retry-after on the failure overrides
// the exponential base; jitter is added either way.
func (p Policy) NextDelay(attempt int, err error) time.Duration {
	p = p.withDefaults()

	base := apierrors.RetryAfterHint(err)
	if base <= 0 {
		base = p.BaseDelay << uint(attempt)
	}
	if p.MaxJitter > 0 {
		base += time.Duration(rand.Int64N(int64(p.MaxJitter) + 1))
	}
	return base
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
