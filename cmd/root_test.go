package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/placement-sim/sim"
	"github.com/inference-sim/placement-sim/sim/trace"
	"github.com/inference-sim/placement-sim/sim/workload"
)

const pipelineWorkloadYAML = `
version: "1"
entities:
  - name: front
  - name: middle
  - name: back
communications:
  - {from: front, to: middle, bytes: 2000}
  - {from: middle, to: back, bytes: 1000}
  - {from: back, to: front, bytes: 500}
processings:
  - {entity: front, cycles: 300000}
  - {entity: middle, cycles: 100000}
  - {entity: back, cycles: 200000}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCmd_FlagsRegistered(t *testing.T) {
	for _, name := range []string{"topology", "preset", "workload", "upright", "workers",
		"progress-interval", "trace", "trace-max-leaves", "results", "log"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "1", runCmd.Flags().Lookup("workers").DefValue)
	assert.Equal(t, "none", runCmd.Flags().Lookup("trace").DefValue)
	assert.NotNil(t, validateCmd.Flags().Lookup("routes"))
	assert.NotNil(t, validateCmd.Flags().Lookup("preset"))
}

func TestParseUpRight(t *testing.T) {
	tests := []struct {
		in      string
		want    *workload.UpRightSpec
		wantErr string
	}{
		{"1,0,1", &workload.UpRightSpec{U: 1, R: 0, Clients: 1}, ""},
		{" 2, 1 ,3", &workload.UpRightSpec{U: 2, R: 1, Clients: 3}, ""},
		{"1,0", nil, "expects u,r,clients"},
		{"1,x,1", nil, "field 1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseUpRight(tt.in)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadWorkload_UpRight(t *testing.T) {
	// GIVEN u=1, r=0 and two clients
	p, err := loadWorkload("", "1,0,2")
	require.NoError(t, err)

	// THEN the protocol holds every replica and client
	f, o, e := workload.UpRightSize(1, 0)
	assert.Equal(t, f+o+e+2, p.NumEntities())
}

func TestLoadWorkload_File(t *testing.T) {
	p, err := loadWorkload(writeFile(t, "workload.yaml", pipelineWorkloadYAML), "")
	require.NoError(t, err)

	assert.Equal(t, 3, p.NumEntities())
	id, ok := p.EntityByName("back")
	assert.True(t, ok)
	assert.Equal(t, sim.EntityID(2), id)
}

func TestLoadWorkload_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		upright string
		wantErr string
	}{
		{"neither", "", "", "one of --workload or --upright"},
		{"both", "w.yaml", "1,0,1", "mutually exclusive"},
		{"missing file", "/nonexistent/workload.yaml", "", "reading workload spec"},
		{"invalid upright", "", "1,0,0", "upright.clients"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadWorkload(tt.path, tt.upright)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadTopology_PresetAndFile(t *testing.T) {
	topo, err := loadTopology("", "seven")
	require.NoError(t, err)
	assert.Len(t, topo.ProcessingNodes(), 7)
	assert.True(t, topo.IsRoutingComplete())

	topo, err = loadTopology("../examples/cluster-star.yaml", "")
	require.NoError(t, err)
	assert.Equal(t, 5, topo.NumNodes())
	assert.True(t, topo.IsRoutingComplete())
}

func TestLoadTopology_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		preset  string
		wantErr string
	}{
		{"neither", "", "", "one of --topology or --preset"},
		{"both", "t.yaml", "seven", "mutually exclusive"},
		{"unknown preset", "", "mars", `unknown preset "mars"`},
		{"missing file", "/nonexistent/topology.yaml", "", "reading topology spec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadTopology(tt.path, tt.preset)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRunSearch_ParallelMatchesSequential(t *testing.T) {
	// GIVEN the same inputs explored with one and with three workers
	wlPath := writeFile(t, "workload.yaml", pipelineWorkloadYAML)
	load := func() (*sim.Topology, *sim.Protocol) {
		topo, err := loadTopology("../examples/cluster-star.yaml", "")
		require.NoError(t, err)
		p, err := loadWorkload(wlPath, "")
		require.NoError(t, err)
		return topo, p
	}
	topo, p := load()
	tr := trace.NewSearchTrace(trace.TraceConfig{Level: trace.TraceLevelLeaves})
	seq, err := runSearch(context.Background(), topo, p, 1, -1, tr)
	require.NoError(t, err)
	topo, p = load()
	par, err := runSearch(context.Background(), topo, p, 3, -1, nil)
	require.NoError(t, err)

	// THEN both explore 4^3 assignments and agree on the extremes
	assert.Equal(t, int64(64), seq.Configurations)
	assert.Len(t, tr.Leaves, 64)
	assert.Equal(t, seq.Configurations, par.Configurations)
	assert.Equal(t, seq.Min.Throughput, par.Min.Throughput)
	assert.Equal(t, seq.Min.Assignment, par.Min.Assignment)
	assert.Equal(t, seq.Max.Throughput, par.Max.Throughput)
	assert.Equal(t, seq.Max.Assignment, par.Max.Assignment)
	assert.LessOrEqual(t, seq.Min.Throughput, seq.Max.Throughput)
}

func TestRunSearch_InvalidInputs_ReturnError(t *testing.T) {
	// GIVEN two machines without any route between them
	topo := sim.NewTopology()
	_, err := topo.AddProcessingNode("a", 1, 1e9)
	require.NoError(t, err)
	_, err = topo.AddProcessingNode("b", 1, 1e9)
	require.NoError(t, err)
	topo.AddSelfRoutes()

	p := sim.NewProtocol()
	p.AddEntity("e", "")
	_, err = runSearch(context.Background(), topo, p, 1, -1, nil)
	assert.ErrorContains(t, err, "routing table incomplete: 2 pairs missing, first a -> b")

	single := sim.NewTopology()
	_, err = single.AddProcessingNode("solo", 1, 1e9)
	require.NoError(t, err)
	single.AddSelfRoutes()
	_, err = runSearch(context.Background(), single, sim.NewProtocol(), 4, -1, nil)
	assert.ErrorContains(t, err, "no entity")
}

func TestPrintTopologySummary(t *testing.T) {
	// GIVEN two linked machines where only a -> b is routed
	topo := sim.NewTopology()
	a, err := topo.AddProcessingNode("a", 1, 1e9)
	require.NoError(t, err)
	b, err := topo.AddProcessingNode("b", 2, 1e9)
	require.NoError(t, err)
	require.NoError(t, topo.AddBidirectionalLink(a, b, 10, 0))
	topo.AddSelfRoutes()
	require.NoError(t, topo.AddRoute(a, b, b))

	// WHEN the summary is printed with routes
	var buf bytes.Buffer
	ready := printTopologySummary(&buf, topo, true)

	// THEN counts, the missing route and the named route are listed
	want := "Nodes: 2 (2 processing)\n" +
		"Links: 2\n" +
		"Routes: 3\n" +
		"missing route: b -> a\n" +
		"a -> b via b\n"
	assert.Equal(t, want, buf.String())
	assert.False(t, ready)
}

const islandTopologyYAML = `
version: "1"
routing: shortest-path
nodes:
  - {name: a, cpus: 1, cpu_freq: 1.0e9}
  - {name: b, cpus: 1, cpu_freq: 1.0e9}
  - {name: island, cpus: 1, cpu_freq: 1.0e9}
links:
  - {from: a, to: b, bandwidth: 1000, bidirectional: true}
`

func TestValidate_UnroutedFile_ListsEveryMissingPair(t *testing.T) {
	// GIVEN a file where one node has no link at all
	path := writeFile(t, "topology.yaml", islandTopologyYAML)

	// WHEN it is read the way validate reads it
	topo, source, err := readTopology(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, source)
	var buf bytes.Buffer
	ready := printTopologySummary(&buf, topo, false)

	// THEN every unreachable pair is reported
	want := "Nodes: 3 (3 processing)\n" +
		"Links: 2\n" +
		"Routes: 5\n" +
		"missing route: a -> island\n" +
		"missing route: b -> island\n" +
		"missing route: island -> a\n" +
		"missing route: island -> b\n"
	assert.Equal(t, want, buf.String())
	assert.False(t, ready)

	// AND run refuses the same file
	_, err = loadTopology(path, "")
	assert.ErrorContains(t, err, "routing table incomplete: 4 pairs missing, first a -> island")
}

func TestValidate_CompletePreset_IsReady(t *testing.T) {
	topo, source, err := readTopology("", "example")
	require.NoError(t, err)
	assert.Equal(t, `preset "example"`, source)

	var buf bytes.Buffer
	assert.True(t, printTopologySummary(&buf, topo, true))
	assert.NotContains(t, buf.String(), "missing route")
	assert.Contains(t, buf.String(), " via ")
}
