package framework

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a task which runs until the context is done
// or it fails.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Sleep suspends the caller for dur on clk, or until ctx is done.
// It returns ctx.Err() if the sleep was cut short.
func Sleep(ctx context.Context, clk clock.Clock, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	timer := clk.Timer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
