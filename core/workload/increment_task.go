package workload

import (
	"context"

	"github.com/emberdb/ember/core/storage"
	"github.com/emberdb/ember/core/thread"
	"github.com/emberdb/ember/core/xct"
)

// IncrementTask is the point (d) workload: it reads one primary record,
// adds Amount to it, writes the new value back, and files the record's key
// under a secondary index bucket derived from the new value — all inside
// one transaction, so the primary write and the index write commit or
// abort together. It retries for as long as precommit keeps returning a
// race abort, per core/xct's retry idiom.
type IncrementTask struct {
	Primary   *storage.Array
	Secondary *storage.Index
	Buckets   uint64

	Offset uint64
	Amount uint64

	// StartGate, if non-nil, is read once before the task does anything.
	// Closing it releases every task waiting on it at once, the same
	// coordinated-start shape the original fixture got from a shared
	// std::future over a single std::promise.
	StartGate <-chan struct{}
}

// Run implements thread.ImpersonateTask.
func (t *IncrementTask) Run(ctx thread.Context) error {
	if t.StartGate != nil {
		<-t.StartGate
	}

	mgr := ctx.TransactionManager()
	rec := ctx.XctRecord()

	return xct.RunWithRetry(context.Background(), rec, mgr, nil, func() error {
		return t.tryOnce(mgr, rec)
	})
}

func (t *IncrementTask) tryOnce(mgr *xct.Manager, rec *xct.Record) error {
	if err := mgr.BeginXct(rec, xct.Serializable); err != nil {
		return err
	}

	raw, err := t.Primary.GetRecord(rec, t.Offset)
	if err != nil {
		return err
	}
	value := decodeValue(raw) + t.Amount
	if err := t.Primary.OverwriteRecord(rec, t.Offset, encodeValue(value)); err != nil {
		return err
	}

	if t.Secondary != nil && t.Buckets > 0 {
		bucket := value % t.Buckets
		if err := t.Secondary.AddID(rec, bucket, t.Offset); err != nil {
			return err
		}
	}

	_, err = mgr.PrecommitXct(rec)
	return err
}
