package thread

import (
	"fmt"
	"sync/atomic"

	"github.com/emberdb/ember/core/config"
	"github.com/emberdb/ember/core/memory"
	"github.com/emberdb/ember/core/threadid"
	"github.com/emberdb/ember/core/xct"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pool is C4: the flat set of every worker the engine spawned, one per
// (node, core) pair named by opts. Impersonate is its only entry point for
// driving work onto a worker; it never blocks the caller, and it never
// hands out a worker that Shutdown has already claimed.
type Pool struct {
	log     *zap.Logger
	workers []*Worker
	byID    map[threadid.ID]*Worker

	shuttingDown atomic.Bool
}

// NewPool builds one Worker per (node, core) pair and starts its run loop.
// em must already be initialized: Pool looks up each worker's CoreMemory
// and uses em itself as the NUMAPinner each worker pins through.
func NewPool(opts config.Options, em *memory.EngineMemory, mgr *xct.Manager, log *zap.Logger) (*Pool, error) {
	p := &Pool{
		log:  log,
		byID: make(map[threadid.ID]*Worker),
	}
	for node := 0; node < opts.GroupCount; node++ {
		for core := 0; core < opts.ThreadCountPerGroup; core++ {
			id := threadid.Compose(threadid.NodeID(node), threadid.CoreID(core))
			cm, err := em.GetCoreMemory(id)
			if err != nil {
				return nil, fmt.Errorf("thread: pool build: %w", err)
			}
			w := newWorker(id, em, mgr, cm, log)
			p.workers = append(p.workers, w)
			p.byID[id] = w
		}
	}
	for _, w := range p.workers {
		w.start()
	}
	p.log.Info("thread pool started", zap.Int("workers", len(p.workers)))
	return p, nil
}

// Impersonate implements spec.md's pool.impersonate(task): scan for an idle
// worker, atomically claim the first one found, hand it task, and return a
// Session the caller can block on for the result. If every worker is busy,
// or the pool is shutting down, it returns an invalid Session without
// blocking.
func (p *Pool) Impersonate(task ImpersonateTask) Session {
	if p.shuttingDown.Load() {
		return Session{cause: ErrPoolShuttingDown}
	}
	for _, w := range p.workers {
		if !w.tryClaim() {
			continue
		}
		outbox := make(chan error, 1)
		w.inbox <- taskEnvelope{task: task, requestID: uuid.New(), outbox: outbox}
		return Session{worker: w, outbox: outbox, valid: true}
	}
	return Session{cause: ErrNoIdleWorker}
}

// ImpersonateOn behaves like Impersonate but requires the task run on the
// specific worker named by id, failing instead of scanning if that worker
// is busy. Useful for tests and for scenarios that need to pin a task to a
// particular node deliberately.
func (p *Pool) ImpersonateOn(id threadid.ID, task ImpersonateTask) (Session, error) {
	if p.shuttingDown.Load() {
		return Session{cause: ErrPoolShuttingDown}, nil
	}
	w, ok := p.byID[id]
	if !ok {
		return Session{}, fmt.Errorf("thread: no worker %s", id)
	}
	if !w.tryClaim() {
		return Session{cause: ErrNoIdleWorker}, nil
	}
	outbox := make(chan error, 1)
	w.inbox <- taskEnvelope{task: task, requestID: uuid.New(), outbox: outbox}
	return Session{worker: w, outbox: outbox, valid: true}, nil
}

// Size returns the number of workers the pool manages.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown stops accepting new impersonations, waits for every worker to
// finish whatever it's running, then signals each to exit and waits for its
// goroutine to return. Setting shuttingDown before claiming workers is what
// stops a late Impersonate call from racing a worker out from under
// Shutdown: once the flag is visible, Impersonate always backs off instead
// of scanning.
func (p *Pool) Shutdown() error {
	p.shuttingDown.Store(true)
	for _, w := range p.workers {
		w.claimForShutdown()
		outbox := make(chan error, 1)
		w.inbox <- taskEnvelope{task: nil, outbox: outbox}
		<-outbox
		close(w.inbox)
		<-w.exited
	}
	p.log.Info("thread pool shut down", zap.Int("workers", len(p.workers)))
	return nil
}
