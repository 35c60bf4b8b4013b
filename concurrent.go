package do

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mhuusko5/do/hook"
	"github.com/mhuusko5/do/id"
	"github.com/mhuusko5/do/lane"
)

// Work is a unit of work submitted through Concurrent. It runs
// asynchronously on its lane and receives a completion signal it must
// invoke exactly once, eventually — the unit's token slot is held until
// done is called, so a unit that never signals leaks its slot and
// everything queued behind it never drains. Calling done more than once
// is a no-op.
//
// Work may itself submit more work, against the same token or others,
// before or after signalling completion.
type Work func(ctx context.Context, done func())

// Concurrent submits work on the given lane, gated by the token: the
// unit is dispatched immediately while fewer than the token's limit of
// units are in flight, and otherwise appended to the token's backlog to
// be dispatched, in submission order, as running units signal
// completion.
//
// Concurrent never blocks on the work itself; it returns after either
// dispatching or enqueueing. A non-nil error means the unit was neither
// dispatched nor enqueued (nil token, or the executor rejected it).
func (s *Scheduler) Concurrent(t *Token, l lane.Lane, work Work) error {
	if t == nil {
		return ErrNilToken
	}

	u := hook.Unit{ID: id.NewUnitID(), Token: t.id, Lane: l}
	s.hooks.EmitUnitSubmitted(context.Background(), u)

	t.mu.Lock()
	if t.executing < t.limit {
		t.executing++
		t.mu.Unlock()

		if err := s.admit(t, u, work, 0); err != nil {
			s.surrender(t)
			return err
		}
		return nil
	}

	t.backlog = append(t.backlog, queuedUnit{
		unit:     u.ID,
		lane:     l,
		work:     work,
		enqueued: time.Now(),
	})
	depth := len(t.backlog)
	t.mu.Unlock()

	s.hooks.EmitUnitEnqueued(context.Background(), u, depth)
	s.logger.Debug("unit deferred to backlog",
		slog.String("unit_id", u.ID.String()),
		slog.String("token_id", t.id.String()),
		slog.String("lane_name", l.Name()),
		slog.Int("depth", depth),
	)
	return nil
}

// admit dispatches a unit whose slot has already been reserved. waited
// is how long the unit sat in the backlog (zero for immediate
// admission). On error the caller owns giving the slot back.
//
// The admitted event is emitted inside the dispatched closure, before
// the work runs, so a unit's admission always precedes its completion.
func (s *Scheduler) admit(t *Token, u hook.Unit, work Work, waited time.Duration) error {
	return s.exec.Dispatch(u.Lane, func(ctx context.Context) {
		s.hooks.EmitUnitAdmitted(ctx, u, waited)
		start := time.Now()
		var once sync.Once
		done := func() {
			once.Do(func() {
				s.hooks.EmitUnitCompleted(context.Background(), u, time.Since(start))
				s.surrender(t)
			})
		}
		work(ctx, done)
	})
}

// surrender gives one slot back to the token and drains the backlog:
// while capacity and backlog remain, the front-most unit is popped and
// dispatched to its own recorded lane. The drain is a flat loop — a
// deep backlog never grows the stack — and each pop re-reserves a slot
// under the token's mutex, so the limit invariant holds throughout.
func (s *Scheduler) surrender(t *Token) {
	for {
		t.mu.Lock()
		t.executing--
		if t.executing >= t.limit || len(t.backlog) == 0 {
			t.mu.Unlock()
			return
		}

		q := t.backlog[0]
		t.backlog = t.backlog[1:]
		t.executing++
		t.mu.Unlock()

		u := hook.Unit{ID: q.unit, Token: t.id, Lane: q.lane}
		if err := s.admit(t, u, q.work, time.Since(q.enqueued)); err == nil {
			return
		}

		// The executor rejected the unit (shut down, or its lane is
		// gone). Drop it and keep draining so the backlog behind it
		// is not stranded.
		s.logger.Warn("dropping backlogged unit: dispatch failed",
			slog.String("unit_id", q.unit.String()),
			slog.String("token_id", t.id.String()),
			slog.String("lane_name", q.lane.Name()),
		)
	}
}
