// Package threadid defines the composite worker identifier shared by the
// memory manager and the thread pool. It exists as its own package so that
// both sides can depend on the id type without depending on each other.
package threadid

import "fmt"

// NodeID names a NUMA node. Nodes are numbered [0, group_count).
type NodeID uint16

// CoreID names a core within a node. Cores are numbered
// [0, thread_count_per_group) within their node.
type CoreID uint16

// MaxGroups is the largest number of NUMA nodes the engine will bind, per
// the configuration contract ("group_count ... ≤ 256").
const MaxGroups = 256

// coreBits is the number of low bits of a ThreadID given to the core
// component; the remaining high bits name the node.
const coreBits = 16

// ID is the composite thread identifier: a node id and a core id packed into
// a single comparable value. The packing is pure and total in both
// directions.
type ID uint32

// Compose builds a thread ID from its node and core components.
func Compose(node NodeID, core CoreID) ID {
	return ID(uint32(node)<<coreBits | uint32(core))
}

// Decompose splits a thread ID back into its node and core components.
func Decompose(id ID) (NodeID, CoreID) {
	return NodeID(uint32(id) >> coreBits), CoreID(uint32(id) & (1<<coreBits - 1))
}

// Node returns the node component of id.
func (id ID) Node() NodeID { return NodeID(uint32(id) >> coreBits) }

// Core returns the core component of id.
func (id ID) Core() CoreID { return CoreID(uint32(id) & (1<<coreBits - 1)) }

func (id ID) String() string {
	node, core := Decompose(id)
	return fmt.Sprintf("%d-%d", node, core)
}
