package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThroughput_NoLoad_Unbounded(t *testing.T) {
	topo := switchedTopology(t, 100, 1e9, 2e9)

	assert.True(t, math.IsInf(topo.BottleneckThroughput(), 1))
	b := topo.Bottleneck()
	assert.True(t, b.Unbounded())
	assert.Empty(t, b.Resources)
	assert.Equal(t, "no limiting resource", b.String())
}

func TestThroughput_TwoNodes_MinOfCPUAndLink(t *testing.T) {
	tests := []struct {
		name     string
		cycles   float64
		bytes    float64
		want     float64
		wantKind ResourceKind
	}{
		// node 0: 1e6 cycles/s; link: 1e5 bytes/s
		{"link bound", 1000, 500, 200, LinkResource},
		{"cpu bound", 20000, 500, 50, NodeResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN two nodes with a CPU load on node 0 and a message 0 -> 1
			topo := twoNodeTopology(t, 1e6, 1e6, 1e5)
			topo.AddNodeLoad(0, tt.cycles)
			topo.AddLinkLoad(0, 1, tt.bytes)

			// THEN the throughput is the lower of capacity/cycles and bandwidth/bytes
			assert.Equal(t, tt.want, topo.BottleneckThroughput())
			b := topo.Bottleneck()
			assert.Equal(t, tt.want, b.Throughput)
			require.Len(t, b.Resources, 1)
			assert.Equal(t, tt.wantKind, b.Resources[0].Kind)
		})
	}
}

func TestThroughput_Bottleneck_TiesInFirstSeenOrder(t *testing.T) {
	// GIVEN a CPU and two links all sustaining 10 req/s
	topo := switchedTopology(t, 100, 1000, 1e9)
	topo.AddNodeLoad(0, 100)   // 1000 / 100
	topo.AddLinkLoad(0, 1, 10) // 0 -> 2 and 2 -> 1 at 100 / 10

	b := topo.Bottleneck()

	assert.Equal(t, 10.0, b.Throughput)
	require.Len(t, b.Resources, 3)
	assert.Equal(t, NodeResource, b.Resources[0].Kind)
	assert.Equal(t, LinkKey{Src: 0, Dst: 2}, b.Resources[1].Link)
	assert.Equal(t, LinkKey{Src: 2, Dst: 1}, b.Resources[2].Link)
	assert.Equal(t, "limiting resource: node [id 0] with 10.00 req/s\n"+
		"limiting resource: link 0 -> 2 with 10.00 req/s\n"+
		"limiting resource: link 2 -> 1 with 10.00 req/s", b.String())
}

func TestResource_String_NamedNode(t *testing.T) {
	r := Resource{Kind: NodeResource, Node: 4, Name: "Machine 1", Rate: 1234.567}
	assert.Equal(t, "limiting resource: node [id 4, Machine 1] with 1234.57 req/s", r.String())
}

func TestResource_String_MatchesNodeString(t *testing.T) {
	topo := twoNodeTopology(t, 1e9, 1e9, 100)
	n := topo.Node(1)

	r := Resource{Kind: NodeResource, Node: n.ID, Name: n.Name, Rate: 2}

	assert.Equal(t, "limiting resource: node "+n.String()+" with 2.00 req/s", r.String())
	assert.Equal(t, "[id 7]", nodeLabel(7, ""))
}
