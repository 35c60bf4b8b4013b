package lane

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/mhuusko5/do/id"
)

var (
	// ErrShutdown is returned by Dispatch after the runtime has been shut down.
	ErrShutdown = errors.New("lane: runtime shut down")

	// ErrUnknownLane is returned when dispatching to a lane that was not
	// created by this runtime.
	ErrUnknownLane = errors.New("lane: lane not registered with this runtime")
)

// Widths configures the concurrency width of the runtime's predeclared
// priority lanes. Non-positive values mean unbounded.
type Widths struct {
	High       int
	Default    int
	Low        int
	Background int
}

// DefaultWidths returns the default priority lane widths.
func DefaultWidths() Widths {
	return Widths{
		High:       16,
		Default:    8,
		Low:        4,
		Background: 2,
	}
}

// Runtime is a goroutine-backed Executor. Each lane gets a dispatcher
// goroutine that pops queued work in FIFO order and runs it inline
// (serial lanes) or on spawned goroutines bounded by the lane's width
// (wide lanes).
//
// A Runtime starts with five predeclared lanes: the four priority
// classes (High, Default, Low, Background) and one Exclusive serial
// lane. Additional lanes are created with NewSerialLane and NewWideLane.
type Runtime struct {
	logger *slog.Logger
	widths Widths

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	runners map[string]*runner
	closed  bool
	wg      sync.WaitGroup

	high       Lane
	def        Lane
	low        Lane
	background Lane
	exclusive  Lane
}

// Compile-time interface checks.
var (
	_ Executor        = (*Runtime)(nil)
	_ BarrierExecutor = (*Runtime)(nil)
)

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithLogger sets the runtime's logger.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(rt *Runtime) { rt.logger = logger }
}

// WithWidths sets the widths of the predeclared priority lanes.
func WithWidths(w Widths) RuntimeOption {
	return func(rt *Runtime) { rt.widths = w }
}

// NewRuntime creates a Runtime with its predeclared lanes running.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		logger:  slog.Default(),
		widths:  DefaultWidths(),
		baseCtx: ctx,
		cancel:  cancel,
		runners: make(map[string]*runner),
	}
	for _, opt := range opts {
		opt(rt)
	}

	rt.high = rt.newLane("high", rt.widths.High)
	rt.def = rt.newLane("default", rt.widths.Default)
	rt.low = rt.newLane("low", rt.widths.Low)
	rt.background = rt.newLane("background", rt.widths.Background)
	rt.exclusive = rt.newLane("exclusive", 1)

	return rt
}

// High returns the high-priority wide lane.
func (rt *Runtime) High() Lane { return rt.high }

// Default returns the default-priority wide lane.
func (rt *Runtime) Default() Lane { return rt.def }

// Low returns the low-priority wide lane.
func (rt *Runtime) Low() Lane { return rt.low }

// Background returns the background-priority wide lane.
func (rt *Runtime) Background() Lane { return rt.background }

// Exclusive returns the runtime's predeclared serial lane. It behaves
// like any other lane but runs one unit at a time, so it doubles as a
// mutual-exclusion region.
func (rt *Runtime) Exclusive() Lane { return rt.exclusive }

// NewSerialLane creates a lane that runs one unit at a time in FIFO order.
func (rt *Runtime) NewSerialLane(name string) (Lane, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return Lane{}, ErrShutdown
	}
	return rt.newLaneLocked(name, 1), nil
}

// NewWideLane creates a lane that runs up to width units concurrently.
// Non-positive width means unbounded.
func (rt *Runtime) NewWideLane(name string, width int) (Lane, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return Lane{}, ErrShutdown
	}
	if width < 0 {
		width = 0
	}
	return rt.newLaneLocked(name, width), nil
}

func (rt *Runtime) newLane(name string, width int) Lane {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if width < 0 {
		width = 0
	}
	return rt.newLaneLocked(name, width)
}

func (rt *Runtime) newLaneLocked(name string, width int) Lane {
	l := Lane{id: id.NewLaneID(), name: name, width: width}
	r := &runner{
		lane: l,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	if width > 1 {
		r.slots = make(chan struct{}, width)
	}
	rt.runners[l.id.String()] = r

	rt.wg.Add(1)
	go rt.runLoop(r)

	rt.logger.Debug("lane created",
		slog.String("lane_id", l.id.String()),
		slog.String("lane_name", name),
		slog.Int("width", width),
	)

	return l
}

// Dispatch implements Executor. It appends fn to the lane's queue and
// returns immediately; the queue is unbounded so Dispatch never blocks
// on capacity.
func (rt *Runtime) Dispatch(l Lane, fn func(ctx context.Context)) error {
	return rt.enqueue(l, item{fn: fn})
}

// DispatchBarrier implements BarrierExecutor. On a wide lane the barrier
// waits for all previously dispatched in-flight work, runs alone, then
// releases. On a serial lane it behaves like Dispatch.
func (rt *Runtime) DispatchBarrier(l Lane, fn func(ctx context.Context)) error {
	return rt.enqueue(l, item{fn: fn, barrier: true})
}

// IsCurrent implements Executor by checking the lane identity carried
// on the context against l.
func (rt *Runtime) IsCurrent(ctx context.Context, l Lane) bool {
	lid, ok := FromContext(ctx)
	return ok && !l.IsZero() && lid.String() == l.id.String()
}

// Shutdown stops intake, drains queued and in-flight work, and waits
// for all lane goroutines to finish. If ctx expires first, in-flight
// work contexts are cancelled and Shutdown waits for them to return.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return nil
	}
	rt.closed = true
	runners := make([]*runner, 0, len(rt.runners))
	for _, r := range rt.runners {
		runners = append(runners, r)
	}
	rt.mu.Unlock()

	rt.logger.Info("lane runtime stopping", slog.Int("lanes", len(runners)))

	for _, r := range runners {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.stop)
	}

	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		rt.logger.Info("lane runtime stopped gracefully")
		return nil
	case <-ctx.Done():
		rt.logger.Warn("lane runtime shutdown timed out, cancelling in-flight work")
		rt.cancel()
		<-done
		return ctx.Err()
	}
}

func (rt *Runtime) enqueue(l Lane, it item) error {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return ErrShutdown
	}
	r := rt.runners[l.id.String()]
	rt.mu.Unlock()

	if r == nil {
		return ErrUnknownLane
	}

	// The accept decision and the append happen under the same lock the
	// dispatcher drains under, so an item accepted here is always seen
	// by the post-stop drain in next.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrShutdown
	}
	r.queue = append(r.queue, it)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

// item is one queued dispatch on a lane.
type item struct {
	fn      func(ctx context.Context)
	barrier bool
}

// runner owns the queue and execution state of a single lane.
type runner struct {
	lane Lane

	mu     sync.Mutex
	queue  []item
	closed bool

	wake chan struct{}
	stop chan struct{}

	// slots bounds wide-lane concurrency; nil means unbounded.
	slots chan struct{}

	// flight lets barriers drain in-flight wide-lane work: units hold
	// the read side for their duration, a barrier takes the write side.
	flight sync.RWMutex

	workWG sync.WaitGroup
}

// next pops the front of the queue, blocking until work arrives. After
// stop is closed it keeps draining whatever is already queued and then
// reports false.
func (r *runner) next() (item, bool) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			it := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return it, true
		}
		r.mu.Unlock()

		select {
		case <-r.wake:
		case <-r.stop:
			r.mu.Lock()
			empty := len(r.queue) == 0
			r.mu.Unlock()
			if empty {
				return item{}, false
			}
		}
	}
}

// runLoop is the dispatcher goroutine for one lane. It starts queued
// items strictly in FIFO order; on wide lanes it blocks on a width slot
// before spawning the unit's goroutine so start order is preserved.
func (rt *Runtime) runLoop(r *runner) {
	defer rt.wg.Done()

	for {
		it, ok := r.next()
		if !ok {
			break
		}

		ctx := NewContext(rt.baseCtx, r.lane)

		// Serial lanes run inline on the dispatcher goroutine, which
		// is what makes them exclusive.
		if r.lane.Serial() {
			rt.run(r.lane, ctx, it.fn)
			continue
		}

		if it.barrier {
			r.flight.Lock()
			rt.run(r.lane, ctx, it.fn)
			r.flight.Unlock()
			continue
		}

		if r.slots != nil {
			r.slots <- struct{}{}
		}
		r.flight.RLock()
		r.workWG.Add(1)
		go func(fn func(ctx context.Context)) {
			defer r.workWG.Done()
			defer r.flight.RUnlock()
			if r.slots != nil {
				defer func() { <-r.slots }()
			}
			rt.run(r.lane, ctx, fn)
		}(it.fn)
	}

	r.workWG.Wait()
}

// run executes one unit, converting panics into error logs so a
// panicking unit cannot take down the runtime.
func (rt *Runtime) run(l Lane, ctx context.Context, fn func(ctx context.Context)) {
	defer func() {
		if rec := recover(); rec != nil {
			rt.logger.Error("dispatched work panicked",
				slog.String("lane_id", l.id.String()),
				slog.String("lane_name", l.name),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn(ctx)
}
