package memory

import (
	"fmt"

	"github.com/emberdb/ember/core/threadid"
)

// PageSize is the fixed size, in bytes, of every page the pool hands out.
const PageSize = 4096

// PageOffset addresses a page within a node's page pool, in units of
// PageSize. Offset 0 is reserved (never handed out by grab) so that a zero
// value unambiguously means "no page".
type PageOffset uint32

// Base is the per-node arena that page offsets index into. Two nodes never
// share a Base; resolving (node, offset) means picking the right Base and
// then slicing into it.
type Base []byte

// page returns the byte slice backing offset within base.
func page(base Base, offset PageOffset) []byte {
	start := int(offset) * PageSize
	return base[start : start+PageSize]
}

// LocalPageResolver is the per-node (base, begin, end) triple from spec: it
// knows its own arena and the offset range that arena covers. Every node's
// [begin, end) must be identical; only base differs, and that invariant is
// checked once, by EngineMemory, at startup.
type LocalPageResolver struct {
	Base  Base
	Begin PageOffset
	End   PageOffset
}

// Resolve returns the page at offset, or an error if offset falls outside
// [Begin, End).
func (r LocalPageResolver) Resolve(offset PageOffset) ([]byte, error) {
	if offset < r.Begin || offset >= r.End {
		return nil, fmt.Errorf("page offset %d out of range [%d, %d)", offset, r.Begin, r.End)
	}
	return page(r.Base, offset), nil
}

// GlobalPageResolver is the one instance per engine that can resolve any
// (node, offset) pair produced anywhere in the engine. It is built once
// during EngineMemory.Initialize and never mutated afterward.
type GlobalPageResolver struct {
	bases []Base
	begin PageOffset
	end   PageOffset
}

// NewGlobalPageResolver assembles the global resolver from one base per
// node plus the shared [begin, end) every node agreed on.
func NewGlobalPageResolver(bases []Base, begin, end PageOffset) GlobalPageResolver {
	cp := make([]Base, len(bases))
	copy(cp, bases)
	return GlobalPageResolver{bases: cp, begin: begin, end: end}
}

// Resolve returns the page for (node, offset), failing if node is out of
// range or offset falls outside the shared [begin, end).
func (g GlobalPageResolver) Resolve(node threadid.NodeID, offset PageOffset) ([]byte, error) {
	if int(node) >= len(g.bases) {
		return nil, fmt.Errorf("numa node %d out of range (have %d nodes)", node, len(g.bases))
	}
	if offset < g.begin || offset >= g.end {
		return nil, fmt.Errorf("page offset %d out of range [%d, %d)", offset, g.begin, g.end)
	}
	return page(g.bases[node], offset), nil
}

// Begin and End expose the shared bounds, mostly for tests.
func (g GlobalPageResolver) Begin() PageOffset { return g.begin }
func (g GlobalPageResolver) End() PageOffset   { return g.end }
