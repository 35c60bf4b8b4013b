package do

import (
	"sync"
	"time"

	"github.com/mhuusko5/do/id"
	"github.com/mhuusko5/do/lane"
)

// Token is the shared admission-control state for token-gated
// submissions. Every submission made with the same Token counts against
// the same concurrency limit, regardless of which lane or caller it
// came from; independent Tokens impose independent limits.
//
// A Token is created once by the caller and shared by reference across
// call sites. The coordinator never destroys it. All mutable state
// lives behind the token's mutex, which is the exclusive-access region
// for every admission and release decision against this token.
type Token struct {
	id    id.TokenID
	limit int

	mu        sync.Mutex
	executing int
	backlog   []queuedUnit
}

// queuedUnit is one deferred submission sitting in a token's backlog,
// waiting for a slot. It remembers the lane the unit must eventually
// run on; backlogs may span heterogeneous lanes.
type queuedUnit struct {
	unit     id.UnitID
	lane     lane.Lane
	work     Work
	enqueued time.Time
}

// NewToken creates a Token allowing up to limit simultaneous in-flight
// units. A non-positive limit is clamped to 1, which fully serializes
// submissions.
func NewToken(limit int) *Token {
	if limit < 1 {
		limit = 1
	}
	return &Token{id: id.NewTokenID(), limit: limit}
}

// ID returns the token's unique identifier.
func (t *Token) ID() id.TokenID { return t.id }

// Limit returns the token's concurrency limit. Immutable.
func (t *Token) Limit() int { return t.limit }

// Executing returns the number of units currently admitted and not yet
// signalled complete.
func (t *Token) Executing() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.executing
}

// QueueDepth returns the number of units waiting in the token's backlog.
func (t *Token) QueueDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.backlog)
}
