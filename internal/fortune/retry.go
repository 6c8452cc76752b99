package fortune

import (
	"context"
	"log"
	"time"
)

// RetryPolicy bounds how many times a processing attempt may run and how long
// to wait between attempts. The backoff grows linearly with the attempt index
// (base, 2*base, ...).
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration

	// sleep is overridable in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryPolicy(maxAttempts int, backoffBase time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		BackoffBase: backoffBase,
		sleep:       sleepCtx,
	}
}

// Run invokes fn until it returns nil or the attempt budget is spent. Only
// errors fn actually returns consume budget: business failures are absorbed
// inside the processor and come back as nil.
func (p *RetryPolicy) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		delay := time.Duration(attempt) * p.BackoffBase
		log.Printf("retry attempt=%d/%d backoff=%s err=%v", attempt, p.MaxAttempts, delay, last)
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return last
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
