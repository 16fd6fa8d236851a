// Package backoff implements exponential backoff with jitter for the
// adapter retry path.
package backoff

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrExhausted is returned when every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy parameterizes the exponential delay curve.
type Policy struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64 // randomization factor in [0,1]
}

// DefaultPolicy starts at 500ms and doubles up to 15s with 10% jitter,
// matching what a chat-completion retry can tolerate.
func DefaultPolicy() Policy {
	return Policy{Initial: 500 * time.Millisecond, Max: 15 * time.Second, Factor: 2, Jitter: 0.1}
}

// Delay computes the sleep before attempt n (1-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	return p.delayWithRand(attempt, rand.Float64()) // #nosec G404 -- jitter needs no crypto randomness
}

func (p Policy) delayWithRand(attempt int, r float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := float64(p.Initial) * math.Pow(p.Factor, exp)
	total := base + base*p.Jitter*r
	if max := float64(p.Max); total > max {
		total = max
	}
	return time.Duration(total)
}

// Retry runs fn up to attempts times, sleeping per the policy between
// failures. Context cancellation aborts both the sleep and further
// attempts. The last error is wrapped under ErrExhausted.
func Retry[T any](ctx context.Context, p Policy, attempts int, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn(attempt)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, errors.Join(ErrExhausted, lastErr)
}
