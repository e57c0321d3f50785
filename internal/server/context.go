package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/taskdeck/internal/digest"
	"github.com/teemow/taskdeck/internal/instrumentation"
	"github.com/teemow/taskdeck/internal/notify"
	"github.com/teemow/taskdeck/internal/store"
	"github.com/teemow/taskdeck/internal/tasksync"
)

// ServerContext holds the shared dependencies of the command handlers and
// MCP tools.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	store     store.Store
	sync      *tasksync.Synchronizer
	scheduler *digest.Scheduler
	gate      *notify.Gate
	metrics   *instrumentation.Metrics
	logger    *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// Deps bundles the dependencies for NewServerContext.
type Deps struct {
	Store        store.Store
	Synchronizer *tasksync.Synchronizer
	Scheduler    *digest.Scheduler
	Gate         *notify.Gate
	Metrics      *instrumentation.Metrics
	Logger       *slog.Logger
}

// NewServerContext creates a new server context. Metrics may be nil; a nil
// logger uses slog.Default().
func NewServerContext(ctx context.Context, deps Deps) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = &instrumentation.Metrics{}
	}

	return &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		store:     deps.Store,
		sync:      deps.Synchronizer,
		scheduler: deps.Scheduler,
		gate:      deps.Gate,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Store returns the task store.
func (sc *ServerContext) Store() store.Store {
	return sc.store
}

// Synchronizer returns the task-event synchronizer.
func (sc *ServerContext) Synchronizer() *tasksync.Synchronizer {
	return sc.sync
}

// Scheduler returns the digest scheduler, or nil when digests are disabled.
func (sc *ServerContext) Scheduler() *digest.Scheduler {
	return sc.scheduler
}

// Gate returns the notification preference gate.
func (sc *ServerContext) Gate() *notify.Gate {
	return sc.gate
}

// Metrics returns the metrics recorder. Never nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context and stops the digest scheduler.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	if sc.scheduler != nil {
		sc.scheduler.Stop()
	}
	sc.cancel()
	return nil
}
