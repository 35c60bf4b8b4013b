// Package lane provides the execution substrate for the do library:
// named lanes with serial or width-bounded concurrent execution, and a
// goroutine-backed Runtime that dispatches work onto them.
//
// A Lane is a lightweight descriptor; the Runtime owns the queues and
// worker goroutines behind it. Work dispatched to a serial lane runs
// one unit at a time in FIFO order, making serial lanes usable as
// mutual-exclusion regions. Wide lanes run up to their width
// concurrently, with barrier submissions that drain in-flight work and
// run alone.
package lane

import (
	"context"

	"github.com/mhuusko5/do/id"
)

// Lane identifies an execution lane. Lanes are compared by identity
// (their TypeID), never by name: two lanes with the same name are
// distinct lanes.
//
// The zero Lane is invalid; obtain lanes from a Runtime.
type Lane struct {
	id    id.LaneID
	name  string
	width int
}

// ID returns the lane's unique identifier.
func (l Lane) ID() id.LaneID { return l.id }

// Name returns the lane's human-readable name. Names are labels for
// logging and metrics only; they carry no identity.
func (l Lane) Name() string { return l.name }

// Width returns the lane's concurrency width. Serial lanes have width 1;
// zero means unbounded.
func (l Lane) Width() int { return l.width }

// Serial reports whether the lane executes one unit at a time.
func (l Lane) Serial() bool { return l.width == 1 }

// IsZero reports whether the lane is the invalid zero value.
func (l Lane) IsZero() bool { return l.id.IsNil() }

// Executor is the minimal dispatch capability consumed by the
// coordination layer. Dispatch returns immediately after accepting the
// work; it never blocks on the work itself or on queue capacity.
type Executor interface {
	// Dispatch asynchronously runs fn on the given lane. The context
	// passed to fn carries the lane's identity and is cancelled when
	// the executor shuts down.
	Dispatch(l Lane, fn func(ctx context.Context)) error

	// IsCurrent reports whether the calling context is already
	// executing on the given lane.
	IsCurrent(ctx context.Context, l Lane) bool
}

// BarrierExecutor is implemented by executors that support barrier
// submissions on wide lanes: the barrier waits for all previously
// dispatched in-flight work on the lane, runs alone, then releases.
type BarrierExecutor interface {
	DispatchBarrier(l Lane, fn func(ctx context.Context)) error
}

// laneCtxKey is the context key under which a lane's identity rides
// into dispatched work.
type laneCtxKey struct{}

// NewContext returns a context tagged with the given lane's identity.
// The Runtime tags every context it passes to dispatched work; callers
// normally never need this directly.
func NewContext(ctx context.Context, l Lane) context.Context {
	return context.WithValue(ctx, laneCtxKey{}, l.id)
}

// FromContext returns the lane ID the context is executing on, if any.
func FromContext(ctx context.Context) (id.LaneID, bool) {
	lid, ok := ctx.Value(laneCtxKey{}).(id.LaneID)
	return lid, ok
}
