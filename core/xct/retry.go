package xct

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// RunWithRetry is C7, the canonical task body idiom: run body (which is
// expected to begin, operate on storages, and precommit a transaction on
// rec using manager) in a loop, retrying only on ErrRaceAbort and
// surfacing any other error immediately. There is no retry bound, by
// design: the caller relies on the commit validator eventually succeeding
// under bounded contention (spec.md's ExtremeConflict scenario depends on
// this remaining unbounded).
//
// limiter is optional backoff between retries; pass nil to retry as fast
// as possible, matching the original engine's unthrottled retry loop.
func RunWithRetry(ctx context.Context, rec *Record, manager *Manager, limiter *rate.Limiter, body func() error) error {
	for {
		err := body()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRaceAbort) {
			return err
		}
		if manager.IsRunningXct(rec) {
			if abortErr := manager.AbortXct(rec); abortErr != nil {
				return abortErr
			}
		}
		if limiter != nil {
			if waitErr := limiter.Wait(ctx); waitErr != nil {
				return waitErr
			}
		}
	}
}
