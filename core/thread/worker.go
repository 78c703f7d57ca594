package thread

import (
	"runtime"
	"sync/atomic"

	"github.com/emberdb/ember/core/memory"
	"github.com/emberdb/ember/core/threadid"
	"github.com/emberdb/ember/core/xct"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NUMAPinner steers the calling OS thread onto a node's CPUs. Satisfied by
// *memory.EngineMemory; kept as an interface here so core/thread never has
// to import core/engine to get at it.
type NUMAPinner interface {
	PinCurrentThread(node threadid.NodeID) error
}

// taskEnvelope is what a Pool hands a Worker through its inbox. A nil task
// is the shutdown signal. outbox is a fresh, single-use channel created for
// this round only: the Session holds the same reference directly, so a
// caller reading its result is never at risk of observing a later round's
// outbox installed after the worker was reimpersonated.
type taskEnvelope struct {
	task      ImpersonateTask
	requestID uuid.UUID
	outbox    chan error
}

// Worker is C3: one NUMA-pinned OS thread, parked on its inbox until a Pool
// impersonates it with a task. At most one task is ever in flight on a
// Worker at a time; impersonated is the CAS-guarded flag a Pool uses to
// claim it.
type Worker struct {
	id  threadid.ID
	log *zap.Logger
	pin NUMAPinner
	mgr *xct.Manager
	cm  *memory.CoreMemory

	impersonated atomic.Bool
	inbox        chan taskEnvelope
	exited       chan struct{}

	record *xct.Record
}

func newWorker(id threadid.ID, pin NUMAPinner, mgr *xct.Manager, cm *memory.CoreMemory, log *zap.Logger) *Worker {
	return &Worker{
		id:     id,
		log:    log.With(zap.String("worker", id.String())),
		pin:    pin,
		mgr:    mgr,
		cm:     cm,
		inbox:  make(chan taskEnvelope, 1),
		exited: make(chan struct{}),
	}
}

// start launches the worker's run loop on its own goroutine and returns
// immediately; the loop pins affinity on that goroutine before it first
// reads the inbox, so start does not wait for pinning to happen.
func (w *Worker) start() {
	go w.loop()
}

func (w *Worker) loop() {
	defer close(w.exited)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := w.pin.PinCurrentThread(w.id.Node()); err != nil {
		w.log.Warn("failed to pin worker to its numa node; continuing best-effort", zap.Error(err))
	}

	for env := range w.inbox {
		if env.task == nil {
			env.outbox <- nil
			return
		}
		w.record = &xct.Record{}
		w.log.Debug("running impersonated task", zap.String("request_id", env.requestID.String()))
		err := env.task.Run(w)
		w.record = nil
		env.outbox <- err
		w.impersonated.Store(false)
	}
}

// tryClaim atomically transitions the worker from idle to busy. It never
// blocks.
func (w *Worker) tryClaim() bool {
	return w.impersonated.CompareAndSwap(false, true)
}

// claimForShutdown spins until it can claim an idle worker, even one that's
// momentarily mid-task. Used only by Pool.Shutdown, which already holds the
// pool-wide shuttingDown flag so no new impersonation can race it for the
// worker once it becomes idle.
func (w *Worker) claimForShutdown() {
	for !w.tryClaim() {
		runtime.Gosched()
	}
}

// ID is the worker's composite NUMA thread id.
func (w *Worker) ID() threadid.ID { return w.id }

// Context methods: Worker itself satisfies Context for the task it is
// currently running.

func (w *Worker) ThreadID() threadid.ID            { return w.id }
func (w *Worker) CoreMemory() *memory.CoreMemory   { return w.cm }
func (w *Worker) XctRecord() *xct.Record           { return w.record }
func (w *Worker) TransactionManager() *xct.Manager { return w.mgr }
func (w *Worker) Logger() *zap.Logger              { return w.log }
