package lane

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// gauge tracks a current/high-water pair of counters.
type gauge struct {
	cur int64
	max int64
}

func (g *gauge) enter() {
	cur := atomic.AddInt64(&g.cur, 1)
	for {
		max := atomic.LoadInt64(&g.max)
		if cur <= max || atomic.CompareAndSwapInt64(&g.max, max, cur) {
			return
		}
	}
}

func (g *gauge) exit() { atomic.AddInt64(&g.cur, -1) }

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt := NewRuntime()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Shutdown(ctx)
	})
	return rt
}

// ---------------------------------------------------------------------------
// Serial lanes
// ---------------------------------------------------------------------------

func TestSerialLane_FIFO(t *testing.T) {
	rt := newTestRuntime(t)
	l, err := rt.NewSerialLane("serial")
	if err != nil {
		t.Fatalf("NewSerialLane: %v", err)
	}

	const n = 50
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(n)

	for i := range n {
		if err := rt.Dispatch(l, func(_ context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}); err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
	}
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("serial lane ran out of order: position %d got %d", i, got)
		}
	}
}

func TestSerialLane_Exclusive(t *testing.T) {
	rt := newTestRuntime(t)
	l, err := rt.NewSerialLane("serial")
	if err != nil {
		t.Fatalf("NewSerialLane: %v", err)
	}

	var g gauge
	var wg sync.WaitGroup
	wg.Add(20)

	for range 20 {
		_ = rt.Dispatch(l, func(_ context.Context) {
			g.enter()
			time.Sleep(time.Millisecond)
			g.exit()
			wg.Done()
		})
	}
	wg.Wait()

	if max := atomic.LoadInt64(&g.max); max != 1 {
		t.Fatalf("serial lane ran %d units concurrently", max)
	}
}

// ---------------------------------------------------------------------------
// Wide lanes
// ---------------------------------------------------------------------------

func TestWideLane_WidthEnforced(t *testing.T) {
	rt := newTestRuntime(t)
	l, err := rt.NewWideLane("wide", 3)
	if err != nil {
		t.Fatalf("NewWideLane: %v", err)
	}

	var g gauge
	var wg sync.WaitGroup
	wg.Add(12)

	for range 12 {
		_ = rt.Dispatch(l, func(_ context.Context) {
			g.enter()
			time.Sleep(10 * time.Millisecond)
			g.exit()
			wg.Done()
		})
	}
	wg.Wait()

	if max := atomic.LoadInt64(&g.max); max > 3 {
		t.Fatalf("wide lane exceeded width: %d concurrent", max)
	}
}

func TestWideLane_Unbounded(t *testing.T) {
	rt := newTestRuntime(t)
	l, err := rt.NewWideLane("unbounded", 0)
	if err != nil {
		t.Fatalf("NewWideLane: %v", err)
	}

	const n = 30
	var done int64
	var wg sync.WaitGroup
	wg.Add(n)

	for range n {
		_ = rt.Dispatch(l, func(_ context.Context) {
			atomic.AddInt64(&done, 1)
			wg.Done()
		})
	}
	wg.Wait()

	if got := atomic.LoadInt64(&done); got != n {
		t.Fatalf("expected %d executions, got %d", n, got)
	}
}

func TestWideLane_Barrier(t *testing.T) {
	rt := newTestRuntime(t)
	l, err := rt.NewWideLane("wide", 4)
	if err != nil {
		t.Fatalf("NewWideLane: %v", err)
	}

	var before int64
	var after int64
	var wg sync.WaitGroup
	wg.Add(9)

	for range 4 {
		_ = rt.Dispatch(l, func(_ context.Context) {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&before, 1)
			wg.Done()
		})
	}

	var seenAtBarrier int64
	_ = rt.DispatchBarrier(l, func(_ context.Context) {
		seenAtBarrier = atomic.LoadInt64(&before)
		wg.Done()
	})

	for range 4 {
		_ = rt.Dispatch(l, func(_ context.Context) {
			atomic.AddInt64(&after, 1)
			wg.Done()
		})
	}
	wg.Wait()

	if seenAtBarrier != 4 {
		t.Fatalf("barrier ran before all prior units completed: saw %d of 4", seenAtBarrier)
	}
}

// ---------------------------------------------------------------------------
// Lane identity
// ---------------------------------------------------------------------------

func TestIsCurrent(t *testing.T) {
	rt := newTestRuntime(t)
	a, _ := rt.NewSerialLane("a")
	b, _ := rt.NewSerialLane("b")

	result := make(chan bool, 2)
	_ = rt.Dispatch(a, func(ctx context.Context) {
		result <- rt.IsCurrent(ctx, a)
		result <- rt.IsCurrent(ctx, b)
	})

	if !<-result {
		t.Error("expected IsCurrent(ctx, a) to be true inside work on a")
	}
	if <-result {
		t.Error("expected IsCurrent(ctx, b) to be false inside work on a")
	}

	if rt.IsCurrent(context.Background(), a) {
		t.Error("expected IsCurrent to be false outside any lane")
	}
}

func TestLaneIdentity_NotName(t *testing.T) {
	rt := newTestRuntime(t)
	a, _ := rt.NewSerialLane("same")
	b, _ := rt.NewSerialLane("same")

	result := make(chan bool, 1)
	_ = rt.Dispatch(a, func(ctx context.Context) {
		result <- rt.IsCurrent(ctx, b)
	})
	if <-result {
		t.Error("two lanes sharing a name must not compare as current")
	}
}

// ---------------------------------------------------------------------------
// Priority lanes
// ---------------------------------------------------------------------------

func TestPriorityLanes(t *testing.T) {
	rt := newTestRuntime(t)

	lanes := []Lane{rt.High(), rt.Default(), rt.Low(), rt.Background(), rt.Exclusive()}
	var wg sync.WaitGroup
	wg.Add(len(lanes))

	for _, l := range lanes {
		if l.IsZero() {
			t.Fatal("predeclared lane is zero")
		}
		if err := rt.Dispatch(l, func(_ context.Context) { wg.Done() }); err != nil {
			t.Fatalf("Dispatch on %s: %v", l.Name(), err)
		}
	}
	wg.Wait()

	if !rt.Exclusive().Serial() {
		t.Error("exclusive lane should be serial")
	}
}

// ---------------------------------------------------------------------------
// Shutdown
// ---------------------------------------------------------------------------

func TestShutdown_DrainsQueued(t *testing.T) {
	rt := NewRuntime()
	l, _ := rt.NewSerialLane("serial")

	const n = 10
	var done int64
	for range n {
		_ = rt.Dispatch(l, func(_ context.Context) {
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&done, 1)
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if got := atomic.LoadInt64(&done); got != n {
		t.Fatalf("expected queued work to drain before shutdown: %d of %d ran", got, n)
	}
}

func TestShutdown_RejectsNewWork(t *testing.T) {
	rt := NewRuntime()
	l, _ := rt.NewSerialLane("serial")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = rt.Shutdown(ctx)

	if err := rt.Dispatch(l, func(_ context.Context) {}); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
	if _, err := rt.NewSerialLane("late"); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown from NewSerialLane, got %v", err)
	}
}

func TestShutdown_DeadlineCancelsWork(t *testing.T) {
	rt := NewRuntime()
	l, _ := rt.NewSerialLane("serial")

	cancelled := make(chan struct{})
	started := make(chan struct{})
	_ = rt.Dispatch(l, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := rt.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("work context was not cancelled on shutdown timeout")
	}
}

// Every Dispatch that returns nil must run, even when shutdown races
// the submission: the accept decision and the post-stop queue drain are
// serialized on the runner's lock, so an accepted item can never land
// in a queue the dispatcher has already abandoned.
func TestShutdown_AcceptedWorkAlwaysRuns(t *testing.T) {
	for range 20 {
		rt := NewRuntime()
		l, _ := rt.NewWideLane("wide", 4)

		var accepted, ran int64
		var wg sync.WaitGroup
		start := make(chan struct{})
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for {
					err := rt.Dispatch(l, func(_ context.Context) {
						atomic.AddInt64(&ran, 1)
					})
					if err != nil {
						return
					}
					atomic.AddInt64(&accepted, 1)
				}
			}()
		}

		close(start)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rt.Shutdown(ctx); err != nil {
			cancel()
			t.Fatalf("Shutdown: %v", err)
		}
		cancel()
		wg.Wait()

		if a, r := atomic.LoadInt64(&accepted), atomic.LoadInt64(&ran); a != r {
			t.Fatalf("%d dispatches accepted but only %d ran", a, r)
		}
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	rt := NewRuntime()
	ctx := context.Background()
	if err := rt.Shutdown(ctx); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := rt.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Misc
// ---------------------------------------------------------------------------

func TestDispatch_UnknownLane(t *testing.T) {
	rt := newTestRuntime(t)
	if err := rt.Dispatch(Lane{}, func(_ context.Context) {}); !errors.Is(err, ErrUnknownLane) {
		t.Fatalf("expected ErrUnknownLane, got %v", err)
	}

	other := newTestRuntime(t)
	l, _ := other.NewSerialLane("foreign")
	if err := rt.Dispatch(l, func(_ context.Context) {}); !errors.Is(err, ErrUnknownLane) {
		t.Fatalf("expected ErrUnknownLane for foreign lane, got %v", err)
	}
}

func TestPanicDoesNotKillLane(t *testing.T) {
	rt := newTestRuntime(t)
	l, _ := rt.NewSerialLane("serial")

	ran := make(chan struct{})
	_ = rt.Dispatch(l, func(_ context.Context) { panic("boom") })
	_ = rt.Dispatch(l, func(_ context.Context) { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("lane stopped processing after a panic")
	}
}
