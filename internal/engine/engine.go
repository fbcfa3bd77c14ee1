package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/homeworq/internal/store"
	"github.com/nextlevelbuilder/homeworq/internal/task"
)

// Engine is the top-level lifecycle object: it owns the Task Registry,
// Store, and Dispatcher, and exposes Start/Stop/IsRunning the way
// cron.Service does, generalized from a single JSON-file-backed service
// to one backed by SQLite with a reconciliation pass on startup.
type Engine struct {
	Registry *task.Registry
	Store    *store.Store

	dispatcher *Dispatcher
	defaults   []DefaultJob

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New constructs an Engine. defaults are upserted into the Store every
// time Start runs (and on config reload, see internal/config). Jobs that
// are dropped from the declared list, or whose params change, leave their
// old rows in the Store.
func New(registry *task.Registry, st *store.Store, defaults []DefaultJob) *Engine {
	return &Engine{
		Registry:   registry,
		Store:      st,
		dispatcher: NewDispatcher(st, registry),
		defaults:   defaults,
	}
}

// Start reconciles default jobs, sweeps any RUNNING logs stranded by a
// prior crash, and begins the dispatcher beat. Calling Start while
// already running is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	if n, err := e.Store.ReconcileCrashedRuns(); err != nil {
		slog.Warn("engine: crash-recovery sweep failed", "error", err)
	} else if n > 0 {
		slog.Info("engine: recovered stale running logs", "count", n)
	}

	if err := NewReconciler(e.Store).Reconcile(e.defaults); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.dispatcher.Start(runCtx)
	e.running = true

	slog.Info("engine started")
	return nil
}

// Stop halts the dispatcher beat, waits for the beat loop to exit, then
// cancels in-flight invocation contexts. It does not wait for
// in-flight task executions to return; those finalize their own Log rows
// asynchronously once their context is cancelled.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.dispatcher.Stop()
	if e.cancel != nil {
		e.cancel()
	}
	e.running = false
	slog.Info("engine stopped")
}

// IsRunning reports whether the dispatcher beat is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
