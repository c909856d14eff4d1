package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes exponential waits with jitter for retryable failures.
// The orchestrator and verification gate own their retry loops; this type
// only supplies the timing policy.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff matches the pipeline defaults: 240ms base, ×1.75, 2s cap.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:       240 * time.Millisecond,
		Max:        2 * time.Second,
		Multiplier: 1.75,
	}
}

// Wait returns the sleep duration for the given zero-based attempt.
// Rate-limit errors carrying a Retry-After hint override the schedule.
func (b Backoff) Wait(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(b.Base) * math.Pow(b.Multiplier, float64(attempt))
	if wait > float64(b.Max) {
		wait = float64(b.Max)
	}

	// ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

// Sleep blocks for d or until the context is done.
func Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
