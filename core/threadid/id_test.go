package threadid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComposeDecomposeRoundTrips(t *testing.T) {
	id := Compose(NodeID(3), CoreID(42))
	node, core := Decompose(id)
	require.Equal(t, NodeID(3), node)
	require.Equal(t, CoreID(42), core)
	require.Equal(t, NodeID(3), id.Node())
	require.Equal(t, CoreID(42), id.Core())
}

func TestIDString(t *testing.T) {
	id := Compose(NodeID(1), CoreID(2))
	require.Equal(t, "1-2", id.String())
}

func TestComposeIsDistinctAcrossCores(t *testing.T) {
	a := Compose(0, 0)
	b := Compose(0, 1)
	require.NotEqual(t, a, b)
}
