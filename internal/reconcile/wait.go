package reconcile

import (
	"context"
	"time"

	"github.com/desertthunder/gmx/internal/shared"
)

// Options controls the settle-then-poll wait.
type Options struct {
	Settle       time.Duration // used when the mutation carries no settle interval
	MaxWait      time.Duration // total budget measured from the start of Verify
	PollInterval time.Duration
	Backoff      float64 // interval multiplier between polls; values below 1 keep it fixed
	MaxInterval  time.Duration
}

// DefaultOptions mirrors the 3 second settle the service needs in practice.
func DefaultOptions() Options {
	return Options{
		Settle:       3 * time.Second,
		MaxWait:      30 * time.Second,
		PollInterval: time.Second,
		Backoff:      2,
		MaxInterval:  8 * time.Second,
	}
}

// OptionsFromConfig reads the [reconcile] config section, keeping defaults for unset values.
func OptionsFromConfig(c shared.ReconcileConfig) Options {
	o := DefaultOptions()
	if c.Settle > 0 {
		o.Settle = c.Settle
	}
	if c.MaxWait > 0 {
		o.MaxWait = c.MaxWait
	}
	if c.PollInterval > 0 {
		o.PollInterval = c.PollInterval
	}
	if c.Backoff > 0 {
		o.Backoff = c.Backoff
	}
	if c.MaxInterval > 0 {
		o.MaxInterval = c.MaxInterval
	}
	return o
}

// next returns the interval to wait after current.
func (o Options) next(current time.Duration) time.Duration {
	if o.Backoff <= 1 {
		return current
	}
	n := time.Duration(float64(current) * o.Backoff)
	if o.MaxInterval > 0 && n > o.MaxInterval {
		return o.MaxInterval
	}
	return n
}

// sleep waits for d or until ctx is done. It reports whether the full duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
