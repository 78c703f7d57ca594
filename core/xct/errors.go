package xct

import "errors"

// ErrRaceAbort is the single retriable condition: precommit validation
// found that some record in the read-set changed version since it was
// read. Nothing else is a race-abort.
var ErrRaceAbort = errors.New("xct: race-abort")

// ErrAlreadyActive is returned by BeginXct when the calling worker already
// has a transaction in flight. Nesting is forbidden.
var ErrAlreadyActive = errors.New("xct: transaction already active")

// ErrNotActive is returned by PrecommitXct, AbortXct, GetRecord, and the
// write operations when there is no in-flight transaction to operate on.
var ErrNotActive = errors.New("xct: no active transaction")
