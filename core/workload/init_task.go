package workload

import (
	"github.com/emberdb/ember/core/storage"
	"github.com/emberdb/ember/core/thread"
	"github.com/emberdb/ember/core/xct"
)

// InitTask zeroes every record of a primary table inside a single
// transaction, mirroring the original commit-conflict fixture's InitTask.
type InitTask struct {
	Primary *storage.Array
}

// Run implements thread.ImpersonateTask.
func (t *InitTask) Run(ctx thread.Context) error {
	mgr := ctx.TransactionManager()
	rec := ctx.XctRecord()

	if err := mgr.BeginXct(rec, xct.Serializable); err != nil {
		return err
	}
	for key := 0; key < t.Primary.Count(); key++ {
		if err := t.Primary.OverwriteRecord(rec, uint64(key), encodeValue(0)); err != nil {
			return err
		}
	}
	_, err := mgr.PrecommitXct(rec)
	return err
}
