package do

import (
	"context"
	"log/slog"

	"github.com/mhuusko5/do/backoff"
	"github.com/mhuusko5/do/lane"
)

// RetryConfig controls Retry behaviour.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the
	// first. Values below 1 are treated as 1.
	MaxAttempts int

	// Backoff computes the delay before each retry. Defaults to
	// backoff.Default().
	Backoff backoff.Strategy

	// OnExhausted, if set, is called on the work's lane after the
	// final attempt fails, with the last error.
	OnExhausted func(ctx context.Context, err error)
}

// Retry dispatches fn on the given lane, fire and forget, retrying on
// error with backoff-scheduled re-dispatch until it succeeds or
// MaxAttempts is reached. The returned error covers the initial
// dispatch only; attempt outcomes are reported through logging and
// cfg.OnExhausted.
func (s *Scheduler) Retry(l lane.Lane, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff == nil {
		cfg.Backoff = backoff.Default()
	}

	var attempt func(n int) func(ctx context.Context)
	attempt = func(n int) func(ctx context.Context) {
		return func(ctx context.Context) {
			err := fn(ctx)
			if err == nil {
				return
			}

			if n >= cfg.MaxAttempts {
				s.logger.Warn("retries exhausted",
					slog.String("lane_name", l.Name()),
					slog.Int("attempts", n),
					slog.String("error", err.Error()),
				)
				if cfg.OnExhausted != nil {
					cfg.OnExhausted(ctx, err)
				}
				return
			}

			delay := cfg.Backoff.Delay(n)
			s.logger.Info("work scheduled for retry",
				slog.String("lane_name", l.Name()),
				slog.Int("attempt", n),
				slog.Int("max_attempts", cfg.MaxAttempts),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()),
			)
			s.After(delay, l, attempt(n+1))
		}
	}

	return s.exec.Dispatch(l, attempt(1))
}
