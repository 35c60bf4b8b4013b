package do

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mhuusko5/do/hook"
	"github.com/mhuusko5/do/lane"
)

// laneProvider is implemented by executors that carry predeclared
// priority lanes (lane.Runtime does).
type laneProvider interface {
	High() lane.Lane
	Default() lane.Lane
	Low() lane.Lane
	Background() lane.Lane
	Exclusive() lane.Lane
}

// shutdowner is implemented by executors with a lifecycle the
// scheduler may own (lane.Runtime does).
type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Scheduler is the user surface of the library: convenience dispatch
// (Async, Sync, Barrier, Apply, After, Retry) plus the token-gated
// Concurrent coordinator. Create one with New and functional options.
//
// A Scheduler is safe for concurrent use.
type Scheduler struct {
	cfg    Config
	logger *slog.Logger
	exec   lane.Executor
	hooks  *hook.Registry

	pendingHooks []hook.Hook

	// ownsExec is set when New built the executor, making Shutdown
	// responsible for it.
	ownsExec bool

	mu      sync.Mutex
	stopped bool
}

// New creates a Scheduler. Without WithExecutor it builds its own
// lane.Runtime using the configured priority widths.
func New(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.hooks == nil {
		s.hooks = hook.NewRegistry(s.logger)
	}
	for _, h := range s.pendingHooks {
		s.hooks.Register(h)
	}
	s.pendingHooks = nil

	if s.exec == nil {
		s.exec = lane.NewRuntime(
			lane.WithLogger(s.logger),
			lane.WithWidths(s.cfg.Widths),
		)
		s.ownsExec = true
	}

	return s, nil
}

// Executor returns the executor the scheduler dispatches through.
func (s *Scheduler) Executor() lane.Executor { return s.exec }

// Hooks returns the scheduler's hook registry.
func (s *Scheduler) Hooks() *hook.Registry { return s.hooks }

// Logger returns the scheduler's logger.
func (s *Scheduler) Logger() *slog.Logger { return s.logger }

// ──────────────────────────────────────────────────
// Predeclared lanes
// ──────────────────────────────────────────────────

// High returns the executor's high-priority lane, or the zero Lane if
// the executor has no predeclared lanes.
func (s *Scheduler) High() lane.Lane {
	if p, ok := s.exec.(laneProvider); ok {
		return p.High()
	}
	return lane.Lane{}
}

// Default returns the executor's default-priority lane.
func (s *Scheduler) Default() lane.Lane {
	if p, ok := s.exec.(laneProvider); ok {
		return p.Default()
	}
	return lane.Lane{}
}

// Low returns the executor's low-priority lane.
func (s *Scheduler) Low() lane.Lane {
	if p, ok := s.exec.(laneProvider); ok {
		return p.Low()
	}
	return lane.Lane{}
}

// Background returns the executor's background-priority lane.
func (s *Scheduler) Background() lane.Lane {
	if p, ok := s.exec.(laneProvider); ok {
		return p.Background()
	}
	return lane.Lane{}
}

// Exclusive returns the executor's predeclared serial lane.
func (s *Scheduler) Exclusive() lane.Lane {
	if p, ok := s.exec.(laneProvider); ok {
		return p.Exclusive()
	}
	return lane.Lane{}
}

// ──────────────────────────────────────────────────
// Convenience dispatch
// ──────────────────────────────────────────────────

// Async dispatches fn on the given lane, fire and forget.
func (s *Scheduler) Async(l lane.Lane, fn func(ctx context.Context)) error {
	return s.exec.Dispatch(l, fn)
}

// Sync dispatches fn on the given lane and blocks until it returns.
// When the caller is already executing on l, fn runs inline instead of
// being re-dispatched: the hop would be pointless on a wide lane and a
// deadlock on a serial one.
//
// If ctx is cancelled while waiting, Sync returns ctx.Err(); fn still
// runs on its lane.
func (s *Scheduler) Sync(ctx context.Context, l lane.Lane, fn func(ctx context.Context)) error {
	if s.exec.IsCurrent(ctx, l) {
		fn(ctx)
		return nil
	}

	done := make(chan struct{})
	if err := s.exec.Dispatch(l, func(c context.Context) {
		defer close(done)
		fn(c)
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Barrier dispatches fn as a mutual-exclusion submission: on a wide
// lane it waits for all previously dispatched in-flight work, runs
// alone, then releases. On a serial lane it is an ordinary dispatch,
// which is already exclusive.
func (s *Scheduler) Barrier(l lane.Lane, fn func(ctx context.Context)) error {
	if be, ok := s.exec.(lane.BarrierExecutor); ok {
		return be.DispatchBarrier(l, fn)
	}
	if l.Serial() {
		return s.exec.Dispatch(l, fn)
	}
	return ErrNoBarrier
}

// Apply dispatches fn n times on the given lane, with indexes 0..n-1,
// and blocks until every invocation returns. When the caller is
// already executing on l the invocations run inline, sequentially.
//
// If ctx is cancelled while waiting, Apply returns ctx.Err(); already
// dispatched invocations still run.
func (s *Scheduler) Apply(ctx context.Context, n int, l lane.Lane, fn func(ctx context.Context, i int)) error {
	if n <= 0 {
		return nil
	}

	if s.exec.IsCurrent(ctx, l) {
		for i := range n {
			fn(ctx, i)
		}
		return nil
	}

	var wg sync.WaitGroup
	var dispatchErr error
	for i := range n {
		wg.Add(1)
		err := s.exec.Dispatch(l, func(c context.Context) {
			defer wg.Done()
			fn(c, i)
		})
		if err != nil {
			wg.Done()
			dispatchErr = err
			break
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return dispatchErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Shutdown notifies shutdown hooks and, when the scheduler owns its
// executor, drains and stops it. When ctx has no deadline the
// configured ShutdownTimeout is applied.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	s.hooks.EmitShutdown(ctx)

	if s.ownsExec {
		if sd, ok := s.exec.(shutdowner); ok {
			return sd.Shutdown(ctx)
		}
	}
	return nil
}
