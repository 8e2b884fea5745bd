package sim

import (
	"fmt"
	"math"
)

// LoadEpsilon absorbs floating-point drift in load accounting. A removal may exceed
// the tracked load by at most this much; the result is then clamped to zero.
const LoadEpsilon = 1.0

// residueTolerance is the relative size below which a remainder left by a removal
// is float drift and snaps to zero, so an emptied resource reads as unloaded.
const residueTolerance = 1e-9

// AddNodeLoad adds cycles per request to a processing node.
func (t *Topology) AddNodeLoad(node NodeID, cycles float64) {
	n := t.processingNode("AddNodeLoad", node)
	checkAmount("Topology.AddNodeLoad", cycles)
	n.cpuLoad += cycles
}

// RemoveNodeLoad removes cycles previously added with AddNodeLoad.
func (t *Topology) RemoveNodeLoad(node NodeID, cycles float64) {
	n := t.processingNode("RemoveNodeLoad", node)
	checkAmount("Topology.RemoveNodeLoad", cycles)
	rest, ok := subtractLoad(n.cpuLoad, cycles)
	if !ok {
		panic(fmt.Sprintf("Topology.RemoveNodeLoad: removing %f from node %d exceeds its load %f", cycles, node, n.cpuLoad))
	}
	n.cpuLoad = rest
}

// NodeLoad returns the CPU load currently placed on a processing node.
func (t *Topology) NodeLoad(node NodeID) float64 {
	return t.processingNode("NodeLoad", node).cpuLoad
}

// AddLinkLoad charges bytes on every link of the route from src to dst.
// A message from a node to itself charges nothing.
func (t *Topology) AddLinkLoad(src, dst NodeID, bytes float64) {
	checkAmount("Topology.AddLinkLoad", bytes)
	t.walk(src, dst, func(l *Link) {
		l.loadBytes += bytes
	})
}

// RemoveLinkLoad undoes AddLinkLoad along the same route.
func (t *Topology) RemoveLinkLoad(src, dst NodeID, bytes float64) {
	checkAmount("Topology.RemoveLinkLoad", bytes)
	t.walk(src, dst, func(l *Link) {
		rest, ok := subtractLoad(l.loadBytes, bytes)
		if !ok {
			panic(fmt.Sprintf("Topology.RemoveLinkLoad: removing %f from link %d -> %d exceeds its load %f",
				bytes, l.Src, l.Dst, l.loadBytes))
		}
		l.loadBytes = rest
	})
}

// LinkLoad returns the bytes per request currently charged on the link src -> dst.
func (t *Topology) LinkLoad(src, dst NodeID) float64 {
	l := t.Link(src, dst)
	if l == nil {
		panic(fmt.Sprintf("Topology.LinkLoad: no link %d -> %d", src, dst))
	}
	return l.loadBytes
}

// ResetLinkLoads zeroes the load of every link.
func (t *Topology) ResetLinkLoads() {
	for _, l := range t.links {
		l.loadBytes = 0
	}
}

// ResetNodeLoads zeroes the CPU load of every processing node.
func (t *Topology) ResetNodeLoads() {
	for _, id := range t.processing {
		t.nodes[id].cpuLoad = 0
	}
}

// LoadGuard undoes one load mutation exactly once.
type LoadGuard struct {
	undo     func()
	released bool
}

// Release applies the inverse of the mutation that produced the guard.
// Releasing a guard twice panics.
func (g *LoadGuard) Release() {
	if g.released {
		panic("LoadGuard.Release: already released")
	}
	g.released = true
	g.undo()
}

// ApplyNodeLoad adds cycles to a node and returns the guard removing them.
func (t *Topology) ApplyNodeLoad(node NodeID, cycles float64) *LoadGuard {
	t.AddNodeLoad(node, cycles)
	return &LoadGuard{undo: func() { t.RemoveNodeLoad(node, cycles) }}
}

// ApplyLinkLoad charges bytes along the route src -> dst and returns the guard
// removing them from the same links.
func (t *Topology) ApplyLinkLoad(src, dst NodeID, bytes float64) *LoadGuard {
	t.AddLinkLoad(src, dst, bytes)
	return &LoadGuard{undo: func() { t.RemoveLinkLoad(src, dst, bytes) }}
}

func (t *Topology) processingNode(op string, id NodeID) *Node {
	if !t.HasNode(id) {
		panic(fmt.Sprintf("Topology.%s: unknown node %d", op, id))
	}
	n := t.nodes[id]
	if n.Kind != ProcessingNode {
		panic(fmt.Sprintf("Topology.%s: node %d is not a processing node", op, id))
	}
	return n
}

func checkAmount(op string, amount float64) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		panic(fmt.Sprintf("%s: load amount must be finite and non-negative, got %f", op, amount))
	}
}

// subtractLoad removes amount from current. Round-off on either side of zero is
// snapped to zero; removing more than current + LoadEpsilon means apply and undo
// were not paired, reported as ok == false.
func subtractLoad(current, amount float64) (rest float64, ok bool) {
	if amount > current+LoadEpsilon {
		return current, false
	}
	rest = current - amount
	if rest < residueTolerance*math.Max(current, amount) {
		rest = 0
	}
	return rest, true
}
