// Package fixtures provides ready-made topologies: the reference clusters the
// placement model was calibrated on, and a Star builder for single-switch clusters.
package fixtures

import (
	"fmt"
	"sort"

	"github.com/inference-sim/placement-sim/sim"
)

// GigabitBandwidth is the per-direction bandwidth of a gigabit Ethernet link, in bytes/s
// as the reference clusters were described.
const GigabitBandwidth = 1e9

// Machine describes a processing node of a Star topology.
type Machine struct {
	Name    string
	CPUs    int
	CPUFreq float64 // cycles per second per CPU
}

// Star connects every machine to one switch with bidirectional links of the given
// bandwidth and zero latency. Machines get ids 0..len(machines)-1 in order and the
// switch comes last. Every route goes through the switch. Panics on invalid machines.
func Star(bandwidth float64, machines ...Machine) *sim.Topology {
	t := sim.NewTopology()
	ids := make([]sim.NodeID, len(machines))
	for i, m := range machines {
		ids[i] = must(t.AddProcessingNode(m.Name, m.CPUs, m.CPUFreq))
	}
	sw := t.AddSwitch("Switch")
	for _, id := range ids {
		check(t.AddBidirectionalLink(id, sw, bandwidth, 0))
	}
	t.AddSelfRoutes()
	for _, src := range ids {
		for dst := 0; dst < t.NumNodes(); dst++ {
			if src != sim.NodeID(dst) {
				check(t.AddRoute(src, sim.NodeID(dst), sw))
			}
		}
	}
	for _, id := range ids {
		check(t.AddRoute(sw, id, id))
	}
	return t
}

// Example is a six-node topology with three single-CPU machines behind a mesh of
// three switches. Machine 0 sits behind a slow access link.
func Example() *sim.Topology {
	t := sim.NewTopology()
	m0 := must(t.AddProcessingNode("Machine 0", 1, 3000001000))
	s1 := t.AddSwitch("Switch 1")
	s2 := t.AddSwitch("Switch 2")
	s3 := t.AddSwitch("Switch 3")
	m1 := must(t.AddProcessingNode("Machine 1", 1, 2000002000))
	m2 := must(t.AddProcessingNode("Machine 2", 1, 3000003000))

	check(t.AddBidirectionalLink(m0, s1, 10100, 0))
	check(t.AddBidirectionalLink(s1, s2, 100000020, 0))
	check(t.AddBidirectionalLink(s1, s3, 700000300, 0))
	check(t.AddBidirectionalLink(s2, s3, 300000400, 0))
	check(t.AddBidirectionalLink(s2, m1, 600000500, 0))
	check(t.AddBidirectionalLink(s3, m2, 500000060, 0))

	t.AddSelfRoutes()
	for dst := 0; dst < t.NumNodes(); dst++ {
		d := sim.NodeID(dst)
		if d != m0 {
			check(t.AddRoute(m0, d, s1))
		}
		if d != m1 {
			check(t.AddRoute(m1, d, s2))
		}
		if d != m2 {
			check(t.AddRoute(m2, d, s3))
		}
	}
	check(t.AddRoute(s1, m1, s2))
	check(t.AddRoute(s1, m2, s3))
	check(t.AddRoute(s2, m0, s1))
	check(t.AddRoute(s2, m2, s3))
	check(t.AddRoute(s3, m0, s1))
	check(t.AddRoute(s3, m1, s2))
	// Switches reach their direct neighbors over the connecting link.
	t.AddNeighborRoutes()
	return t
}

// SevenCPUOneSwitch is a heterogeneous seven-machine cluster on a gigabit switch.
func SevenCPUOneSwitch() *sim.Topology {
	return Star(GigabitBandwidth,
		Machine{Name: "Machine 0", CPUs: 1, CPUFreq: 3.0e9},
		Machine{Name: "Machine 1", CPUs: 4, CPUFreq: 1.0e9},
		Machine{Name: "Machine 2", CPUs: 1, CPUFreq: 3.0e9},
		Machine{Name: "Machine 3", CPUs: 1, CPUFreq: 2.8e9},
		Machine{Name: "Machine 4", CPUs: 2, CPUFreq: 1.2e9},
		Machine{Name: "Machine 5", CPUs: 1, CPUFreq: 2.5e9},
		Machine{Name: "Machine 6", CPUs: 1, CPUFreq: 3.0e9},
	)
}

// SCI is the seven-machine sci cluster: four fast and three slow eight-core nodes.
func SCI() *sim.Topology {
	machines := make([]Machine, 0, 7)
	for i := 71; i <= 77; i++ {
		freq := 2.394e9
		if i >= 75 {
			freq = 1.5e9
		}
		machines = append(machines, Machine{Name: fmt.Sprintf("sci%d", i), CPUs: 8, CPUFreq: freq})
	}
	return Star(GigabitBandwidth, machines...)
}

// Rennes is a twelve-machine cluster made of four hardware families of three nodes.
func Rennes() *sim.Topology {
	families := []Machine{
		{Name: "Paradent", CPUs: 8, CPUFreq: 2.5e9},
		{Name: "Paranoia", CPUs: 20, CPUFreq: 2.2e9},
		{Name: "Parapide", CPUs: 8, CPUFreq: 2.93e9},
		{Name: "Parapluie", CPUs: 24, CPUFreq: 1.7e9},
	}
	machines := make([]Machine, 0, 12)
	for _, f := range families {
		for i := 0; i < 3; i++ {
			machines = append(machines, Machine{Name: fmt.Sprintf("%s %d", f.Name, i), CPUs: f.CPUs, CPUFreq: f.CPUFreq})
		}
	}
	return Star(GigabitBandwidth, machines...)
}

// Presets maps preset names to topology constructors. Each call returns a fresh topology.
var Presets = map[string]func() *sim.Topology{
	"example": Example,
	"seven":   SevenCPUOneSwitch,
	"sci":     SCI,
	"rennes":  Rennes,
}

// PresetNames returns the sorted preset names.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func must(id sim.NodeID, err error) sim.NodeID {
	check(err)
	return id
}

func check(err error) {
	if err != nil {
		panic(fmt.Sprintf("fixtures: %v", err))
	}
}
