package thread

import (
	"errors"

	"github.com/emberdb/ember/core/threadid"
)

// ErrNoIdleWorker is the invalid cause when every worker was busy at the
// moment of impersonation.
var ErrNoIdleWorker = errors.New("thread: no idle worker to impersonate")

// ErrPoolShuttingDown is the invalid cause when the pool had already begun
// shutting down at the moment of impersonation.
var ErrPoolShuttingDown = errors.New("thread: pool is shutting down")

// Session is C5: the handle a caller gets back from an impersonation
// attempt. A zero-value Session is invalid; Impersonate also returns an
// invalid Session, with its cause set, when it couldn't find an idle worker
// or the pool is shutting down. Callers must check Valid
// before calling GetResult. An invalid Session's cause is available through
// Err, matching spec.md's session.invalid_cause.
type Session struct {
	worker *Worker
	outbox chan error
	valid  bool
	cause  error
}

// Valid reports whether this Session actually impersonated a worker.
func (s Session) Valid() bool { return s.valid }

// Err returns why an invalid Session failed to impersonate a worker, or nil
// for a valid Session. Calling it is always safe, valid or not.
func (s Session) Err() error { return s.cause }

// WorkerID returns the id of the worker this session impersonated. Calling
// it on an invalid Session panics; check Valid first.
func (s Session) WorkerID() threadid.ID {
	return s.worker.ID()
}

// GetResult blocks until the impersonated task finishes and returns
// whatever error it returned from Run. Calling it on an invalid Session
// panics; check Valid first. GetResult reads from the exact outbox channel
// this Session captured at impersonation time, so it is unaffected by the
// worker being reimpersonated for a later round before this call happens.
func (s Session) GetResult() error {
	if !s.valid {
		panic("thread: GetResult called on an invalid Session")
	}
	return <-s.outbox
}
