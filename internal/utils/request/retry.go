package request

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// Policy 重试策略
type Policy struct {
	Attempts int           // total attempts, at least 1
	Delay    time.Duration // fixed wait between attempts
}

func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Retry runs fn sequentially until it succeeds or p.Attempts calls have
// failed, sleeping p.Delay between calls. The last error is returned, joined
// with ctx.Err() when the context ends during a delay.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.normalized()

	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 && p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(lastErr, ctx.Err())
			case <-timer.C:
			}
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
