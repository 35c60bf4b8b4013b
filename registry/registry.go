// Package registry provides caller-keyed memoized state: per-key
// run-once execution, per-key leading-edge throttling, and typed lazy
// singleton cells.
//
// There is no implicit global registry and no call-site magic: callers
// create a Registry, own it, and choose their own keys. Two call sites
// that share a key share the state; two registries never do.
package registry

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Registry holds per-key once and throttle state. It is safe for
// concurrent use. The zero value is not usable; create one with New.
type Registry struct {
	mu        sync.Mutex
	onces     map[string]*sync.Once
	throttles map[string]*rate.Sometimes
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		onces:     make(map[string]*sync.Once),
		throttles: make(map[string]*rate.Sometimes),
	}
}

// Once runs fn the first time the key is seen and never again for that
// key. Concurrent callers with the same key block until the first
// invocation returns, matching sync.Once semantics.
func (r *Registry) Once(key string, fn func()) {
	r.mu.Lock()
	o := r.onces[key]
	if o == nil {
		o = &sync.Once{}
		r.onces[key] = o
	}
	r.mu.Unlock()

	o.Do(fn)
}

// Throttle runs fn at most once per interval for the given key,
// leading-edge: the first call in a window runs, the rest are dropped.
// It reports whether fn ran.
//
// The interval is fixed by the key's first Throttle call; later calls
// with a different interval reuse the existing window.
func (r *Registry) Throttle(key string, interval time.Duration, fn func()) bool {
	r.mu.Lock()
	s := r.throttles[key]
	if s == nil {
		s = &rate.Sometimes{Interval: interval}
		r.throttles[key] = s
	}
	r.mu.Unlock()

	ran := false
	s.Do(func() {
		ran = true
		fn()
	})
	return ran
}

// Forget drops all state for the key: a later Once runs again and a
// later Throttle starts a fresh window.
func (r *Registry) Forget(key string) {
	r.mu.Lock()
	delete(r.onces, key)
	delete(r.throttles, key)
	r.mu.Unlock()
}
