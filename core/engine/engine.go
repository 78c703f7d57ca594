// Package engine assembles C1 through C7 into the one object a driver
// program talks to: Engine owns the memory manager, the thread pool, and
// the transaction manager, and starts logging and telemetry before any of
// them so that EngineMemory's dependent-module check always sees a live
// debugging subsystem.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emberdb/ember/core/config"
	"github.com/emberdb/ember/core/memory"
	"github.com/emberdb/ember/core/thread"
	"github.com/emberdb/ember/core/xct"
	internaltelemetry "github.com/emberdb/ember/internal/telemetry"
	"github.com/emberdb/ember/pkg/logger"
	"github.com/emberdb/ember/pkg/telemetry"
	"go.uber.org/zap"
)

// Config bundles every startup knob the engine needs: the domain options
// spec.md names, plus the ambient logging and telemetry configuration the
// teacher's own services are always started with.
type Config struct {
	Options   config.Options
	Logger    logger.Config
	Telemetry telemetry.Config
}

// DefaultConfig returns a single-node, console-logged, telemetry-disabled
// configuration suitable for the CLI and for tests.
func DefaultConfig() Config {
	return Config{
		Options: config.DefaultOptions(),
		Logger:  logger.Config{Level: "info", Format: "console", OutputFile: "stdout"},
	}
}

// Engine is the assembled whole: C2's EngineMemory, C4's Pool, and C6's
// Manager, wired to a shared logger and meter.
type Engine struct {
	cfg Config
	log *zap.Logger

	debug       *Debug
	telShutdown telemetry.ShutdownFunc
	mem         *memory.EngineMemory
	xctManager  *xct.Manager
	pool        *thread.Pool
	poolMetrics *internaltelemetry.WorkerPoolMetrics
}

// New constructs an Engine in its uninitialized state.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, debug: &Debug{}}
}

// Initialize runs the engine's startup sequence: logging and telemetry
// first (the debugging subsystem memory.EngineMemory depends on), then
// engine memory, then the transaction manager and thread pool.
func (e *Engine) Initialize() error {
	log, err := logger.New(e.cfg.Logger)
	if err != nil {
		return fmt.Errorf("engine: logger: %w", err)
	}
	e.log = log

	tel, shutdown, err := telemetry.New(e.cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("engine: telemetry: %w", err)
	}
	e.telShutdown = shutdown

	metrics, err := internaltelemetry.NewWorkerPoolMetrics(tel.Meter)
	if err != nil {
		return fmt.Errorf("engine: worker pool metrics: %w", err)
	}
	e.poolMetrics = metrics

	e.debug.markInitialized()

	if err := e.cfg.Options.Validate(); err != nil {
		return err
	}
	e.mem = memory.NewEngineMemory(e.debug, e.cfg.Options, e.log)
	if err := e.mem.Initialize(); err != nil {
		return fmt.Errorf("engine: memory: %w", err)
	}

	e.xctManager = xct.NewManager(xct.NewEpochManager())

	pool, err := thread.NewPool(e.cfg.Options, e.mem, e.xctManager, e.log)
	if err != nil {
		return fmt.Errorf("engine: thread pool: %w", err)
	}
	e.pool = pool

	e.log.Info("engine initialized",
		zap.Int("group_count", e.cfg.Options.GroupCount),
		zap.Int("thread_count_per_group", e.cfg.Options.ThreadCountPerGroup))
	return nil
}

// Uninitialize tears down the pool, engine memory, and the debugging
// subsystem, in the reverse of startup order.
func (e *Engine) Uninitialize() error {
	if e.pool != nil {
		if err := e.pool.Shutdown(); err != nil {
			return fmt.Errorf("engine: thread pool shutdown: %w", err)
		}
	}
	if e.mem != nil {
		if err := e.mem.Uninitialize(); err != nil {
			return fmt.Errorf("engine: memory uninitialize: %w", err)
		}
	}
	e.debug.markUninitialized()
	if e.telShutdown != nil {
		if err := e.telShutdown(context.Background()); err != nil {
			return fmt.Errorf("engine: telemetry shutdown: %w", err)
		}
	}
	if e.log != nil {
		_ = e.log.Sync()
	}
	return nil
}

// Pool returns the engine's thread pool, the sole entry point for running
// tasks (thread.ImpersonateTask) against the engine.
func (e *Engine) Pool() *thread.Pool { return e.pool }

// TransactionManager returns the engine's shared transaction manager.
func (e *Engine) TransactionManager() *xct.Manager { return e.xctManager }

// Memory returns the engine's memory manager.
func (e *Engine) Memory() *memory.EngineMemory { return e.mem }

// Logger returns the engine's logger, valid once Initialize has returned
// without error.
func (e *Engine) Logger() *zap.Logger { return e.log }

// Run impersonates task on the pool and blocks for its result, recording
// pool metrics around the call. It's the convenience path most callers
// (including the CLI) use instead of driving Pool/Session directly.
func (e *Engine) Run(ctx context.Context, task thread.ImpersonateTask) error {
	session := e.pool.Impersonate(task)
	if !session.Valid() {
		e.poolMetrics.ImpersonateFailCounter.Add(ctx, 1)
		return fmt.Errorf("engine: impersonate failed: %w", session.Err())
	}
	e.poolMetrics.TasksStartedCounter.Add(ctx, 1)
	e.poolMetrics.ActiveWorkersUpDown.Add(ctx, 1)
	start := time.Now()
	err := session.GetResult()
	e.poolMetrics.TaskLatencyHistogram.Record(ctx, time.Since(start).Milliseconds())
	e.poolMetrics.ActiveWorkersUpDown.Add(ctx, -1)
	e.poolMetrics.TasksHandledCounter.Add(ctx, 1)
	if err != nil {
		if errors.Is(err, xct.ErrRaceAbort) {
			e.poolMetrics.RaceAbortsCounter.Add(ctx, 1)
		}
		return err
	}
	e.poolMetrics.CommitsCounter.Add(ctx, 1)
	return nil
}
