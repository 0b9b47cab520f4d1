// Package retry provides an explicit, injectable retry policy for calls to
// rate-limited backends.
package retry

import (
	"context"
	"time"
)

// Policy describes how a call is retried. The zero value retries nothing;
// use Default or construct one explicitly. Tests inject zero-wait sleepers.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Retryable reports whether the error class warrants another attempt.
	// Nil means every error is retryable.
	Retryable func(error) bool

	// Cooldown returns an extra wait imposed by the error itself (e.g. a
	// rate-limit response), added before the backoff sleep. Nil means none.
	Cooldown func(error) time.Duration

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default mirrors the translation backend contract: 3 attempts, exponential
// backoff starting at 4s, capped at a minute.
func Default() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 4 * time.Second,
		MaxBackoff:     60 * time.Second,
	}
}

// Do invokes fn until it succeeds, the error is classified non-retryable,
// attempts are exhausted, or the context is cancelled. The last error is
// returned.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	backoff := p.InitialBackoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			return err
		}
		if p.Cooldown != nil {
			if d := p.Cooldown(err); d > 0 {
				if serr := sleep(ctx, d); serr != nil {
					return serr
				}
			}
		}
		if backoff > 0 {
			if serr := sleep(ctx, backoff); serr != nil {
				return serr
			}
		}
		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
	return err
}

func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
