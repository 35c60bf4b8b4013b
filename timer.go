package do

import (
	"context"
	"log/slog"
	"time"

	"github.com/mhuusko5/do/lane"
)

// Timer is a handle to a delayed one-shot dispatch created by After.
type Timer struct {
	t *time.Timer
}

// Cancel stops the pending dispatch. It reports whether the dispatch
// was cancelled before firing; false means the work already fired (or
// was already cancelled).
func (tm *Timer) Cancel() bool {
	return tm.t.Stop()
}

// After dispatches fn on the given lane once d has elapsed. The
// returned Timer cancels the dispatch while it is still pending; after
// the delay fires the unit is in the lane's queue like any other
// dispatch and can no longer be withdrawn.
func (s *Scheduler) After(d time.Duration, l lane.Lane, fn func(ctx context.Context)) *Timer {
	return &Timer{
		t: time.AfterFunc(d, func() {
			if err := s.exec.Dispatch(l, fn); err != nil {
				s.logger.Warn("delayed dispatch dropped",
					slog.String("lane_name", l.Name()),
					slog.String("error", err.Error()),
				)
			}
		}),
	}
}
