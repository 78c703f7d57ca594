package engine

import "sync/atomic"

// Debug is the "debugging subsystem" spec.md's startup algorithm names as
// the module EngineMemory must check before it's allowed to initialize: in
// this engine, that's logging and telemetry. It satisfies
// memory.DebugModule.
type Debug struct {
	initialized atomic.Bool
}

// IsInitialized implements memory.DebugModule.
func (d *Debug) IsInitialized() bool { return d.initialized.Load() }

func (d *Debug) markInitialized()   { d.initialized.Store(true) }
func (d *Debug) markUninitialized() { d.initialized.Store(false) }
