package sim

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExampleTopologies_Build verifies that the example topology files load, build
// a complete routing table and route traffic as documented in their headers.
func TestExampleTopologies_Build(t *testing.T) {
	tests := []struct {
		file       string
		nodes      int
		processing int
		links      int
	}{
		{"cluster-star.yaml", 5, 4, 8},
		{"two-sites.yaml", 5, 3, 8},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			// GIVEN the example file
			spec, err := LoadTopologySpec(filepath.Join("..", "examples", tt.file))
			require.NoError(t, err)

			// WHEN it is built
			topo, err := spec.Build()
			require.NoError(t, err)

			// THEN the topology is complete
			assert.Equal(t, tt.nodes, topo.NumNodes())
			assert.Len(t, topo.ProcessingNodes(), tt.processing)
			assert.Len(t, topo.Links(), tt.links)
			assert.True(t, topo.IsRoutingComplete())
		})
	}
}

func TestExampleTopologies_TwoSitesCrossesWAN(t *testing.T) {
	spec, err := LoadTopologySpec(filepath.Join("..", "examples", "two-sites.yaml"))
	require.NoError(t, err)
	topo, err := spec.Build()
	require.NoError(t, err)

	a0, _ := topo.NodeByName("a0")
	b0, _ := topo.NodeByName("b0")
	gwA, _ := topo.NodeByName("gw-a")
	gwB, _ := topo.NodeByName("gw-b")

	assert.Equal(t, []LinkKey{
		{Src: a0.ID, Dst: gwA.ID},
		{Src: gwA.ID, Dst: gwB.ID},
		{Src: gwB.ID, Dst: b0.ID},
	}, topo.Path(a0.ID, b0.ID))
	assert.Equal(t, 0.02, topo.Link(gwA.ID, gwB.ID).Latency)
}
