package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/placement-sim/sim"
)

func TestPresets_RoutingCompleteAndConsistent(t *testing.T) {
	tests := []struct {
		name       string
		nodes      int
		processing int
	}{
		{"example", 6, 3},
		{"seven", 8, 7},
		{"sci", 8, 7},
		{"rennes", 13, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			build, ok := Presets[tt.name]
			require.True(t, ok)
			topo := build()

			assert.Equal(t, tt.nodes, topo.NumNodes())
			assert.Len(t, topo.ProcessingNodes(), tt.processing)
			assert.True(t, topo.IsRoutingComplete(), "missing: %v", topo.MissingRoutes())
			assert.Equal(t, tt.nodes*tt.nodes, topo.NumRoutes())
			assert.NoError(t, topo.CheckRoutes())
		})
	}
}

func TestPresetNames_Sorted(t *testing.T) {
	assert.Equal(t, []string{"example", "rennes", "sci", "seven"}, PresetNames())
}

func TestPresets_FreshTopologyPerCall(t *testing.T) {
	a := SCI()
	b := SCI()
	a.AddNodeLoad(0, 1000)
	assert.Equal(t, 0.0, b.NodeLoad(0))
}

func TestStar_RoutesGoThroughSwitch(t *testing.T) {
	// GIVEN a three-machine star
	topo := Star(100,
		Machine{Name: "a", CPUs: 1, CPUFreq: 1e9},
		Machine{Name: "b", CPUs: 2, CPUFreq: 1e9},
		Machine{Name: "c", CPUs: 1, CPUFreq: 2e9},
	)

	// THEN the switch is the last node and every machine-to-machine path has two hops
	sw := sim.NodeID(3)
	assert.Equal(t, sim.SwitchNode, topo.Node(sw).Kind)
	assert.Equal(t, []sim.LinkKey{{Src: 0, Dst: sw}, {Src: sw, Dst: 2}}, topo.Path(0, 2))
	assert.Empty(t, topo.Path(1, 1))
	assert.Equal(t, 2e9, topo.Node(1).Capacity())
}

func TestExample_SlowAccessLinkPath(t *testing.T) {
	topo := Example()
	m0, _ := topo.NodeByName("Machine 0")
	m2, _ := topo.NodeByName("Machine 2")
	s1, _ := topo.NodeByName("Switch 1")
	s3, _ := topo.NodeByName("Switch 3")

	path := topo.Path(m0.ID, m2.ID)

	assert.Equal(t, []sim.LinkKey{
		{Src: m0.ID, Dst: s1.ID},
		{Src: s1.ID, Dst: s3.ID},
		{Src: s3.ID, Dst: m2.ID},
	}, path)
	assert.Equal(t, []sim.NodeID{0, 4, 5}, topo.ProcessingNodes())
}

func TestStar_InvalidMachine_Panics(t *testing.T) {
	assert.Panics(t, func() {
		Star(100, Machine{Name: "broken", CPUs: 0, CPUFreq: 1e9})
	})
}
