package thread

import (
	"github.com/emberdb/ember/core/memory"
	"github.com/emberdb/ember/core/threadid"
	"github.com/emberdb/ember/core/xct"
	"go.uber.org/zap"
)

// Context is everything an ImpersonateTask.Run is handed once it's running
// on its impersonated worker: the worker's own thread id, its private core
// memory, the transaction record it must drive through the transaction
// manager, and a logger already tagged with the worker's identity.
//
// A task reaches the storages it needs to touch some other way (typically
// captured directly in its own fields at construction) rather than through
// Context; Context only carries what is specific to the worker a task ends
// up running on, not what the task decided to operate on.
type Context interface {
	ThreadID() threadid.ID
	CoreMemory() *memory.CoreMemory
	XctRecord() *xct.Record
	TransactionManager() *xct.Manager
	Logger() *zap.Logger
}

// ImpersonateTask is the unit of work a Session carries to a worker. Run
// executes entirely on the impersonated worker's own goroutine; a task is
// free to begin, retry, and precommit any number of transactions on ctx
// before returning.
type ImpersonateTask interface {
	Run(ctx Context) error
}

// TaskFunc adapts a plain function to ImpersonateTask.
type TaskFunc func(ctx Context) error

// Run implements ImpersonateTask.
func (f TaskFunc) Run(ctx Context) error { return f(ctx) }
