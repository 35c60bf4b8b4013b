package registry

import "sync"

// Cell is a typed, lazily initialized singleton slot. Declare one per
// value you want memoized; the type parameter replaces the type-erased
// any-casting a stringly keyed store would need.
//
// The zero Cell is ready to use and safe for concurrent use.
type Cell[T any] struct {
	once sync.Once
	v    T
}

// Get returns the cell's value, running init exactly once on first
// access to produce it. Concurrent first callers block until init
// returns.
func (c *Cell[T]) Get(init func() T) T {
	c.once.Do(func() { c.v = init() })
	return c.v
}
