// Package hook defines the lifecycle hook system for the do library.
// Hooks are notified of coordination events (unit submitted, admitted,
// enqueued, completed) and can react to them — logging, metrics,
// tracing, etc.
//
// Each lifecycle event is a separate interface so hooks opt in only to
// the events they care about.
package hook

import (
	"context"
	"time"

	"github.com/mhuusko5/do/id"
	"github.com/mhuusko5/do/lane"
)

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// Unit describes one submitted unit of work as seen by hooks.
type Unit struct {
	// ID uniquely identifies the submission.
	ID id.UnitID

	// Token identifies the concurrency token the unit was submitted
	// against. Nil for unguarded dispatch.
	Token id.TokenID

	// Lane is the lane the unit runs (or will run) on.
	Lane lane.Lane
}

// ──────────────────────────────────────────────────
// Unit lifecycle hooks
// ──────────────────────────────────────────────────

// UnitSubmitted is called when a unit enters the coordinator, before
// the admission decision.
type UnitSubmitted interface {
	OnUnitSubmitted(ctx context.Context, u Unit) error
}

// UnitAdmitted is called when a unit is admitted and dispatched to its
// lane. queued is how long the unit waited in the backlog; zero for
// immediate admission.
type UnitAdmitted interface {
	OnUnitAdmitted(ctx context.Context, u Unit, queued time.Duration) error
}

// UnitEnqueued is called when a unit is deferred to the token's backlog
// because the token was at capacity. depth is the backlog depth after
// the append.
type UnitEnqueued interface {
	OnUnitEnqueued(ctx context.Context, u Unit, depth int) error
}

// UnitCompleted is called when an admitted unit signals completion.
// elapsed is the time between admission and the completion signal.
type UnitCompleted interface {
	OnUnitCompleted(ctx context.Context, u Unit, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called when the scheduler shuts down.
type Shutdown interface {
	OnShutdown(ctx context.Context)
}
