package mcp

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Runner hosts a Connector's blocking Run loop on its own goroutine. The
// goroutine never blocks process exit; liveness reflects only whether the
// loop is still running, not whether it is making progress.
type Runner struct {
	connector *Connector
	logger    *slog.Logger

	startOnce sync.Once
	alive     atomic.Bool
	done      chan struct{}
}

func NewRunner(connector *Connector, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		connector: connector,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start spawns the connector loop. Subsequent calls are no-ops.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		r.alive.Store(true)
		go func() {
			defer close(r.done)
			defer r.alive.Store(false)
			if err := r.connector.Run(); err != nil {
				r.logger.Error("mcp connector exited", "error", err)
			}
		}()
	})
}

func (r *Runner) Alive() bool { return r.alive.Load() }

// AwaitReady blocks until the connector's listener is bound, the connector
// loop exits, or ctx expires. Returns true only on readiness.
func (r *Runner) AwaitReady(ctx context.Context) bool {
	select {
	case <-r.connector.Ready():
		return true
	case <-r.done:
		return false
	case <-ctx.Done():
		return false
	}
}
