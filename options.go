package do

import (
	"log/slog"

	"github.com/mhuusko5/do/hook"
	"github.com/mhuusko5/do/lane"
)

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithConfig replaces the scheduler's configuration.
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) error {
		s.cfg = cfg
		return nil
	}
}

// WithLogger sets the scheduler's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		s.logger = logger
		return nil
	}
}

// WithExecutor supplies the executor the scheduler dispatches through.
// When omitted the scheduler builds and owns a lane.Runtime, shutting
// it down on Shutdown; a supplied executor's lifecycle stays with the
// caller.
func WithExecutor(ex lane.Executor) Option {
	return func(s *Scheduler) error {
		if ex == nil {
			return ErrNoExecutor
		}
		s.exec = ex
		return nil
	}
}

// WithHooks replaces the scheduler's hook registry.
func WithHooks(reg *hook.Registry) Option {
	return func(s *Scheduler) error {
		s.hooks = reg
		return nil
	}
}

// WithHook registers a lifecycle hook. May be given multiple times;
// hooks are notified in registration order.
func WithHook(h hook.Hook) Option {
	return func(s *Scheduler) error {
		s.pendingHooks = append(s.pendingHooks, h)
		return nil
	}
}
