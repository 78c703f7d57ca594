package workload

import (
	"github.com/emberdb/ember/core/storage"
	"github.com/emberdb/ember/core/thread"
	"github.com/emberdb/ember/core/xct"
)

// ReadAllTask reads every record of a primary table inside a single
// transaction and copies the decoded values into Output, which must
// already be sized to at least Primary.Count(). Grounded on the original
// commit-conflict fixture's GetAllRecordsTask: a read-only snapshot pass
// used to check what every writer actually committed.
type ReadAllTask struct {
	Primary *storage.Array
	Output  []uint64
}

// Run implements thread.ImpersonateTask.
func (t *ReadAllTask) Run(ctx thread.Context) error {
	mgr := ctx.TransactionManager()
	rec := ctx.XctRecord()

	if err := mgr.BeginXct(rec, xct.Serializable); err != nil {
		return err
	}
	for key := 0; key < t.Primary.Count() && key < len(t.Output); key++ {
		raw, err := t.Primary.GetRecord(rec, uint64(key))
		if err != nil {
			return err
		}
		t.Output[key] = decodeValue(raw)
	}
	_, err := mgr.PrecommitXct(rec)
	return err
}
