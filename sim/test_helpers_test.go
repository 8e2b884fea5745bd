package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// switchedTopology builds n single-CPU processing nodes of the given frequencies
// around one switch, with links of bandwidth bw in both directions and every route
// through the switch. The switch gets id len(freqs).
func switchedTopology(t *testing.T, bw float64, freqs ...float64) *Topology {
	t.Helper()
	topo := NewTopology()
	ids := make([]NodeID, len(freqs))
	for i, f := range freqs {
		id, err := topo.AddProcessingNode("", 1, f)
		require.NoError(t, err)
		ids[i] = id
	}
	sw := topo.AddSwitch("switch")
	for _, id := range ids {
		require.NoError(t, topo.AddBidirectionalLink(id, sw, bw, 0))
	}
	topo.AddSelfRoutes()
	for _, src := range ids {
		for dst := 0; dst < topo.NumNodes(); dst++ {
			if src != NodeID(dst) {
				require.NoError(t, topo.AddRoute(src, NodeID(dst), sw))
			}
		}
	}
	for _, id := range ids {
		require.NoError(t, topo.AddRoute(sw, id, id))
	}
	return topo
}

// twoNodeTopology is two processing nodes joined by a direct bidirectional link.
func twoNodeTopology(t *testing.T, cap0, cap1, bw float64) *Topology {
	t.Helper()
	topo := NewTopology()
	a, err := topo.AddProcessingNode("a", 1, cap0)
	require.NoError(t, err)
	b, err := topo.AddProcessingNode("b", 1, cap1)
	require.NoError(t, err)
	require.NoError(t, topo.AddBidirectionalLink(a, b, bw, 0))
	topo.AddSelfRoutes()
	require.NoError(t, topo.AddRoute(a, b, b))
	require.NoError(t, topo.AddRoute(b, a, a))
	return topo
}

// pairProtocol is two entities with one message of size bytes from the first to
// the second and optional processing costs.
func pairProtocol(t *testing.T, bytes, cycles0, cycles1 float64) *Protocol {
	t.Helper()
	p := NewProtocol()
	e0 := p.AddEntity("e0", "")
	e1 := p.AddEntity("e1", "")
	require.NoError(t, p.AddCommunication(e0, e1, bytes))
	if cycles0 > 0 {
		require.NoError(t, p.AddProcessing(e0, cycles0))
	}
	if cycles1 > 0 {
		require.NoError(t, p.AddProcessing(e1, cycles1))
	}
	return p
}
