package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Runner executes workflow runs in the background and tracks which sessions
// are in flight. Cancellation is cooperative: a cancel request sets a flag
// the engine checks between stages.
type Runner struct {
	engine *Engine
	logger *slog.Logger
	ctx    context.Context

	mu     sync.Mutex
	active map[uuid.UUID]*runHandle
}

type runHandle struct {
	cancelled atomic.Bool
}

// NewRunner creates a Runner whose background runs are bound to the given
// lifetime context, typically the lifecycle coordinator's.
func NewRunner(ctx context.Context, engine *Engine, logger *slog.Logger) *Runner {
	return &Runner{
		engine: engine,
		logger: logger.With("system", "runner"),
		ctx:    ctx,
		active: make(map[uuid.UUID]*runHandle),
	}
}

// Start launches a background run for the session. Returns ErrSessionRunning
// if a run for this session is already in flight.
func (r *Runner) Start(id uuid.UUID) error {
	r.mu.Lock()
	if _, ok := r.active[id]; ok {
		r.mu.Unlock()
		return ErrSessionRunning
	}
	handle := &runHandle{}
	r.active[id] = handle
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.active, id)
			r.mu.Unlock()
		}()

		if _, err := r.engine.Run(r.ctx, id, handle.cancelled.Load); err != nil {
			r.logger.Warn("run ended with error", "session_id", id, "error", err)
		}
	}()

	return nil
}

// Cancel requests cooperative cancellation of an in-flight run. The current
// stage completes before the run stops. Returns ErrNotRunning when no run is
// in flight for the session.
func (r *Runner) Cancel(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.active[id]
	if !ok {
		return ErrNotRunning
	}

	handle.cancelled.Store(true)
	return nil
}

// Running reports whether a run for the session is in flight.
func (r *Runner) Running(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	return ok
}
