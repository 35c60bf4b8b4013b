package hook

import (
	"context"
	"log/slog"
	"time"
)

// Named entry types pair a hook implementation with the hook name
// captured at registration time. This avoids type-asserting back to
// Hook inside the emit methods.
type unitSubmittedEntry struct {
	name string
	hook UnitSubmitted
}

type unitAdmittedEntry struct {
	name string
	hook UnitAdmitted
}

type unitEnqueuedEntry struct {
	name string
	hook UnitEnqueued
}

type unitCompletedEntry struct {
	name string
	hook UnitCompleted
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered hooks and dispatches lifecycle events to
// them. It type-caches hooks at registration time so emit calls iterate
// only over hooks that implement the relevant event.
//
// Register all hooks before handing the Registry to a scheduler;
// registration is not synchronized against emission.
type Registry struct {
	hooks  []Hook
	logger *slog.Logger

	// Type-cached slices for each lifecycle event.
	unitSubmitted []unitSubmittedEntry
	unitAdmitted  []unitAdmittedEntry
	unitEnqueued  []unitEnqueuedEntry
	unitCompleted []unitCompletedEntry
	shutdown      []shutdownEntry
}

// NewRegistry creates a hook registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a hook and type-asserts it into all applicable event
// caches. Hooks are notified in registration order.
func (r *Registry) Register(h Hook) {
	r.hooks = append(r.hooks, h)
	name := h.Name()

	if e, ok := h.(UnitSubmitted); ok {
		r.unitSubmitted = append(r.unitSubmitted, unitSubmittedEntry{name, e})
	}
	if e, ok := h.(UnitAdmitted); ok {
		r.unitAdmitted = append(r.unitAdmitted, unitAdmittedEntry{name, e})
	}
	if e, ok := h.(UnitEnqueued); ok {
		r.unitEnqueued = append(r.unitEnqueued, unitEnqueuedEntry{name, e})
	}
	if e, ok := h.(UnitCompleted); ok {
		r.unitCompleted = append(r.unitCompleted, unitCompletedEntry{name, e})
	}
	if e, ok := h.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, e})
	}
}

// Hooks returns all registered hooks.
func (r *Registry) Hooks() []Hook { return r.hooks }

// ──────────────────────────────────────────────────
// Event emitters
// ──────────────────────────────────────────────────

// EmitUnitSubmitted notifies all hooks that implement UnitSubmitted.
func (r *Registry) EmitUnitSubmitted(ctx context.Context, u Unit) {
	for _, e := range r.unitSubmitted {
		if err := e.hook.OnUnitSubmitted(ctx, u); err != nil {
			r.logHookError("OnUnitSubmitted", e.name, err)
		}
	}
}

// EmitUnitAdmitted notifies all hooks that implement UnitAdmitted.
func (r *Registry) EmitUnitAdmitted(ctx context.Context, u Unit, queued time.Duration) {
	for _, e := range r.unitAdmitted {
		if err := e.hook.OnUnitAdmitted(ctx, u, queued); err != nil {
			r.logHookError("OnUnitAdmitted", e.name, err)
		}
	}
}

// EmitUnitEnqueued notifies all hooks that implement UnitEnqueued.
func (r *Registry) EmitUnitEnqueued(ctx context.Context, u Unit, depth int) {
	for _, e := range r.unitEnqueued {
		if err := e.hook.OnUnitEnqueued(ctx, u, depth); err != nil {
			r.logHookError("OnUnitEnqueued", e.name, err)
		}
	}
}

// EmitUnitCompleted notifies all hooks that implement UnitCompleted.
func (r *Registry) EmitUnitCompleted(ctx context.Context, u Unit, elapsed time.Duration) {
	for _, e := range r.unitCompleted {
		if err := e.hook.OnUnitCompleted(ctx, u, elapsed); err != nil {
			r.logHookError("OnUnitCompleted", e.name, err)
		}
	}
}

// EmitShutdown notifies all hooks that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		e.hook.OnShutdown(ctx)
	}
}

func (r *Registry) logHookError(event, name string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Warn("hook returned error",
		slog.String("event", event),
		slog.String("hook", name),
		slog.String("error", err.Error()),
	)
}
