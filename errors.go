package do

import "errors"

var (
	// ErrNoExecutor is returned by options that require an executor
	// when given nil.
	ErrNoExecutor = errors.New("do: no executor configured")

	// ErrNilToken is returned by Concurrent when given a nil token.
	ErrNilToken = errors.New("do: nil token")

	// ErrNoBarrier is returned by Barrier when the executor does not
	// support barrier submissions on wide lanes.
	ErrNoBarrier = errors.New("do: executor does not support barriers")
)
