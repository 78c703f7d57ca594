package storage

import (
	"fmt"

	"github.com/emberdb/ember/core/xct"
)

// Array is a fixed-size primary table, analogous to the original engine's
// array storage: created with a record size and a record count, and
// addressed by a dense integer key in [0, count).
type Array struct {
	name  string
	slots []slot
}

// NewArray creates an array storage with count records of recordSize
// bytes, all zeroed.
func NewArray(name string, recordSize, count int) *Array {
	slots := make([]slot, count)
	for i := range slots {
		slots[i].value = make([]byte, recordSize)
	}
	return &Array{name: name, slots: slots}
}

// Name returns the storage's name.
func (a *Array) Name() string { return a.name }

// Count returns the number of records the array was created with.
func (a *Array) Count() int { return len(a.slots) }

func (a *Array) slotAt(key uint64) (*slot, error) {
	if key >= uint64(len(a.slots)) {
		return nil, fmt.Errorf("storage: key %d out of range for array %q (size %d)", key, a.name, len(a.slots))
	}
	return &a.slots[key], nil
}

// GetRecord records a read-set entry for key and returns its current
// logical value: the transaction's own pending write if it has one,
// otherwise the last committed value.
func (a *Array) GetRecord(rec *xct.Record, key uint64) ([]byte, error) {
	if !rec.IsActive() {
		return nil, xct.ErrNotActive
	}
	if v, ok := rec.PendingWrite(a, key); ok {
		return v, nil
	}
	s, err := a.slotAt(key)
	if err != nil {
		return nil, err
	}
	value, _, version := s.read()
	rec.AddRead(a, key, version)
	return value, nil
}

// OverwriteRecord buffers a write to an existing record; the new value
// becomes visible to everyone else only if precommit succeeds.
func (a *Array) OverwriteRecord(rec *xct.Record, key uint64, value []byte) error {
	if !rec.IsActive() {
		return xct.ErrNotActive
	}
	if _, err := a.slotAt(key); err != nil {
		return err
	}
	rec.AddWrite(a, key, append([]byte(nil), value...), false)
	return nil
}

// InsertRecord buffers a write to a record as an insertion. Array storages
// are pre-sized, so this differs from OverwriteRecord only in intent.
func (a *Array) InsertRecord(rec *xct.Record, key uint64, value []byte) error {
	if !rec.IsActive() {
		return xct.ErrNotActive
	}
	if _, err := a.slotAt(key); err != nil {
		return err
	}
	rec.AddWrite(a, key, append([]byte(nil), value...), true)
	return nil
}

// ValidateVersion implements xct.StorageHandle.
func (a *Array) ValidateVersion(key uint64, version uint64) bool {
	s, err := a.slotAt(key)
	if err != nil {
		return false
	}
	return s.validate(version)
}

// ApplyWrite implements xct.StorageHandle.
func (a *Array) ApplyWrite(key uint64, value []byte, insert bool) (uint64, error) {
	s, err := a.slotAt(key)
	if err != nil {
		return 0, err
	}
	return s.apply(value), nil
}
