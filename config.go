package do

import (
	"time"

	"github.com/mhuusko5/do/lane"
)

// Config holds configuration for the Scheduler.
type Config struct {
	// Widths sets the concurrency widths of the predeclared priority
	// lanes when the scheduler builds its own lane runtime. Ignored
	// when an executor is supplied via WithExecutor.
	Widths lane.Widths

	// ShutdownTimeout is the maximum time Shutdown waits for lanes to
	// drain when the caller's context carries no deadline of its own.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Widths:          lane.DefaultWidths(),
		ShutdownTimeout: 30 * time.Second,
	}
}
