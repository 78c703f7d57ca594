package engine

import (
	"github.com/emberdb/ember/core/memory"
	"github.com/emberdb/ember/core/xct"
)

// These re-export the sentinels every layer below engine already defines,
// so a caller driving the engine only ever needs one error package to
// errors.Is against.
var (
	ErrDependentModuleUnavailableInit   = memory.ErrDependentModuleUnavailableInit
	ErrDependentModuleUnavailableUninit = memory.ErrDependentModuleUnavailableUninit
	ErrNUMAUnavailable                  = memory.ErrNUMAUnavailable
	ErrPagePoolTooSmall                 = memory.ErrPagePoolTooSmall
	ErrOutOfMemory                      = memory.ErrNoFreePages
	ErrRaceAbort                        = xct.ErrRaceAbort
)
