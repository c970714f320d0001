package runner

import (
	"context"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/event"
	"github.com/Iron-Ham/agentbridge/internal/logging"
	"github.com/Iron-Ham/agentbridge/internal/retry"
)

const (
	// DefaultTimeout bounds one prompt attempt.
	DefaultTimeout = 300 * time.Second

	// DefaultPromptDelay is the pause between consecutive prompts.
	DefaultPromptDelay = 2 * time.Second
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-attempt budget. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithPolicy sets the retry policy for timed-out prompts.
func WithPolicy(p retry.Policy) Option {
	return func(r *Runner) {
		if p.MaxAttempts < 1 {
			p.MaxAttempts = 1
		}
		r.policy = p
	}
}

// WithPromptDelay sets the pause between prompts. Negative values are ignored.
func WithPromptDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.promptDelay = d
		}
	}
}

// WithAgentName labels the transcript with the agent that produced it.
func WithAgentName(name string) Option {
	return func(r *Runner) {
		r.agentName = name
	}
}

// WithEventBus publishes attempt progress on bus.
func WithEventBus(bus *event.Bus) Option {
	return func(r *Runner) {
		r.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSleep replaces the function used for retry and inter-prompt pauses.
func WithSleep(sleep SleepFunc) Option {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
