// Package do provides convenience dispatch over goroutine-backed
// execution lanes, built around a token-gated concurrency coordinator.
//
// The heart of the library is Concurrent: callers submit an unbounded
// stream of asynchronous units of work tagged with a shared Token, and
// no more than the token's limit execute simultaneously, across every
// lane and call site the token is shared with. Work beyond the limit
// queues and is released in submission order as running work completes.
//
// # Quick start
//
//	s, err := do.New()
//	if err != nil { ... }
//	defer s.Shutdown(context.Background())
//
//	token := do.NewToken(3)
//	for _, item := range items {
//	    s.Concurrent(token, s.Default(), func(ctx context.Context, done func()) {
//	        defer done()
//	        process(ctx, item)
//	    })
//	}
//
// Around the coordinator sits the usual convenience surface: Async and
// Sync dispatch, Barrier submissions, Apply for parallel loops, After
// for delayed one-shots, and Retry with pluggable backoff.
//
// # Architecture
//
// Lanes (package lane) are the execution substrate: serial lanes run
// one unit at a time in FIFO order, wide lanes run up to their width
// concurrently. A Scheduler dispatches through the lane.Executor
// interface and by default owns a lane.Runtime with predeclared
// priority lanes.
//
// Lifecycle hooks (package hook) observe unit submission, admission,
// deferral, and completion; package observe ships an OpenTelemetry
// metrics hook. Package registry provides caller-keyed once/throttle
// helpers, and package backoff the retry delay strategies.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package do
