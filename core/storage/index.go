package storage

import (
	"encoding/binary"
	"sync"

	"github.com/emberdb/ember/core/xct"
)

// Index is a secondary index: an unbounded map from a derived key (e.g. a
// bucket of a primary record's value) to the set of primary keys currently
// filed under it. It runs under the exact same read-set/write-set
// discipline as Array, so a task writing to both inside one transaction
// commits them atomically.
type Index struct {
	name string
	mu   sync.RWMutex
	rows map[uint64]*slot
}

// NewIndex creates an empty secondary index.
func NewIndex(name string) *Index {
	return &Index{name: name, rows: make(map[uint64]*slot)}
}

// Name returns the storage's name.
func (x *Index) Name() string { return x.name }

func (x *Index) rowFor(key uint64) *slot {
	x.mu.RLock()
	s, ok := x.rows[key]
	x.mu.RUnlock()
	if ok {
		return s
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if s, ok = x.rows[key]; ok {
		return s
	}
	s = &slot{}
	x.rows[key] = s
	return s
}

// Lookup records a read-set entry for key and returns the ids currently
// filed under it, if any.
func (x *Index) Lookup(rec *xct.Record, key uint64) ([]uint64, error) {
	if !rec.IsActive() {
		return nil, xct.ErrNotActive
	}
	if v, ok := rec.PendingWrite(x, key); ok {
		return decodeIDs(v), nil
	}
	s := x.rowFor(key)
	value, exists, version := s.read()
	rec.AddRead(x, key, version)
	if !exists {
		return nil, nil
	}
	return decodeIDs(value), nil
}

// Upsert buffers a write that replaces the id set filed under key.
func (x *Index) Upsert(rec *xct.Record, key uint64, ids []uint64) error {
	if !rec.IsActive() {
		return xct.ErrNotActive
	}
	rec.AddWrite(x, key, encodeIDs(ids), true)
	return nil
}

// AddID is a convenience wrapper around Lookup+Upsert: file id under key
// unless it's already there.
func (x *Index) AddID(rec *xct.Record, key uint64, id uint64) error {
	ids, err := x.Lookup(rec, key)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return x.Upsert(rec, key, append(ids, id))
}

// ValidateVersion implements xct.StorageHandle.
func (x *Index) ValidateVersion(key uint64, version uint64) bool {
	return x.rowFor(key).validate(version)
}

// ApplyWrite implements xct.StorageHandle.
func (x *Index) ApplyWrite(key uint64, value []byte, insert bool) (uint64, error) {
	return x.rowFor(key).apply(value), nil
}

func encodeIDs(ids []uint64) []byte {
	buf := make([]byte, len(ids)*8)
	for i, id := range ids {
		binary.LittleEndian.PutUint64(buf[i*8:], id)
	}
	return buf
}

func decodeIDs(buf []byte) []uint64 {
	if len(buf) == 0 {
		return nil
	}
	ids := make([]uint64, len(buf)/8)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}
	return ids
}
