package sim

import (
	"fmt"
	"math"
	"sort"
)

// NodeID identifies a node of a Topology. IDs are dense and assigned in insertion order.
type NodeID int

// NodeKind distinguishes routing-only switches from processing nodes.
type NodeKind int

const (
	// SwitchNode only forwards traffic.
	SwitchNode NodeKind = iota
	// ProcessingNode hosts entities and carries CPU capacity.
	ProcessingNode
)

// String returns a short label for the kind.
func (k NodeKind) String() string {
	switch k {
	case SwitchNode:
		return "switch"
	case ProcessingNode:
		return "processing"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is a topology vertex. CPUCount and CPUFreq are zero for switches.
type Node struct {
	ID       NodeID
	Name     string
	Kind     NodeKind
	CPUCount int
	CPUFreq  float64 // cycles per second per CPU

	cpuLoad float64 // cycles per request currently placed on this node
}

// Capacity returns the aggregated CPU capacity of a processing node in cycles per second.
func (n *Node) Capacity() float64 {
	return float64(n.CPUCount) * n.CPUFreq
}

// String renders the node the way reports reference it.
func (n *Node) String() string {
	return nodeLabel(n.ID, n.Name)
}

func nodeLabel(id NodeID, name string) string {
	if name == "" {
		return fmt.Sprintf("[id %d]", id)
	}
	return fmt.Sprintf("[id %d, %s]", id, name)
}

// LinkKey is the ordered (source, destination) pair identifying a directed link,
// and also the key of the routing table.
type LinkKey struct {
	Src NodeID
	Dst NodeID
}

// Link is a directed connection between two nodes.
type Link struct {
	Src       NodeID
	Dst       NodeID
	Bandwidth float64 // bytes per second
	Latency   float64 // seconds; carried for reporting, not used by the throughput model

	loadBytes float64 // bytes per request currently crossing this link
}

// Key returns the (Src, Dst) pair of the link.
func (l *Link) Key() LinkKey {
	return LinkKey{Src: l.Src, Dst: l.Dst}
}

// Topology is a network of switches and processing nodes connected by directed links,
// together with its static routing table and the load ledger of every resource.
//
// The structure (nodes, links, routes) is built once; afterwards only loads change,
// and only through the ledger methods.
type Topology struct {
	nodes      []*Node
	processing []NodeID // ascending
	links      map[LinkKey]*Link
	linkOrder  []LinkKey // insertion order, used for deterministic reporting
	routes     map[LinkKey]NodeID
}

// NewTopology creates an empty topology.
func NewTopology() *Topology {
	return &Topology{
		links:  make(map[LinkKey]*Link),
		routes: make(map[LinkKey]NodeID),
	}
}

// AddSwitch adds a routing-only node and returns its ID.
func (t *Topology) AddSwitch(name string) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{ID: id, Name: name, Kind: SwitchNode})
	return id
}

// AddProcessingNode adds a node able to host entities.
// cpuCount must be >= 1 and cpuFreq a finite positive number of cycles per second.
func (t *Topology) AddProcessingNode(name string, cpuCount int, cpuFreq float64) (NodeID, error) {
	if cpuCount < 1 {
		return 0, fmt.Errorf("processing node %q: cpu count must be >= 1, got %d", name, cpuCount)
	}
	if cpuFreq <= 0 || math.IsNaN(cpuFreq) || math.IsInf(cpuFreq, 0) {
		return 0, fmt.Errorf("processing node %q: cpu frequency must be finite and positive, got %f", name, cpuFreq)
	}
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{ID: id, Name: name, Kind: ProcessingNode, CPUCount: cpuCount, CPUFreq: cpuFreq})
	t.processing = append(t.processing, id) // ids grow monotonically, so the slice stays sorted
	return id, nil
}

// AddLink adds a directed link from src to dst.
func (t *Topology) AddLink(src, dst NodeID, bandwidth, latency float64) error {
	if !t.HasNode(src) || !t.HasNode(dst) {
		return fmt.Errorf("link %d -> %d: unknown node", src, dst)
	}
	if src == dst {
		return fmt.Errorf("link %d -> %d: a node cannot link to itself", src, dst)
	}
	key := LinkKey{Src: src, Dst: dst}
	if _, exists := t.links[key]; exists {
		return fmt.Errorf("link %d -> %d: already defined", src, dst)
	}
	if bandwidth <= 0 || math.IsNaN(bandwidth) || math.IsInf(bandwidth, 0) {
		return fmt.Errorf("link %d -> %d: bandwidth must be finite and positive, got %f", src, dst, bandwidth)
	}
	if latency < 0 || math.IsNaN(latency) {
		return fmt.Errorf("link %d -> %d: latency must be non-negative, got %f", src, dst, latency)
	}
	t.links[key] = &Link{Src: src, Dst: dst, Bandwidth: bandwidth, Latency: latency}
	t.linkOrder = append(t.linkOrder, key)
	return nil
}

// AddBidirectionalLink adds the two directed links a -> b and b -> a with the same attributes.
func (t *Topology) AddBidirectionalLink(a, b NodeID, bandwidth, latency float64) error {
	if err := t.AddLink(a, b, bandwidth, latency); err != nil {
		return err
	}
	return t.AddLink(b, a, bandwidth, latency)
}

// HasNode reports whether id refers to a node of the topology.
func (t *Topology) HasNode(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Node returns the node with the given id. Panics on unknown ids.
func (t *Topology) Node(id NodeID) *Node {
	if !t.HasNode(id) {
		panic(fmt.Sprintf("Topology.Node: unknown node %d", id))
	}
	return t.nodes[id]
}

// NodeByName returns the first node with the given name.
func (t *Topology) NodeByName(name string) (*Node, bool) {
	for _, n := range t.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// NumNodes returns the number of nodes, switches included.
func (t *Topology) NumNodes() int {
	return len(t.nodes)
}

// Nodes returns all nodes in id order.
func (t *Topology) Nodes() []*Node {
	out := make([]*Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// ProcessingNodes returns the ids of all processing nodes in ascending order.
func (t *Topology) ProcessingNodes() []NodeID {
	out := make([]NodeID, len(t.processing))
	copy(out, t.processing)
	return out
}

// Link returns the directed link src -> dst, or nil if there is none.
func (t *Topology) Link(src, dst NodeID) *Link {
	return t.links[LinkKey{Src: src, Dst: dst}]
}

// Links returns all links in insertion order.
func (t *Topology) Links() []*Link {
	out := make([]*Link, 0, len(t.linkOrder))
	for _, key := range t.linkOrder {
		out = append(out, t.links[key])
	}
	return out
}

// NodeName returns the name of a node, falling back to its id for unnamed nodes.
func (t *Topology) NodeName(id NodeID) string {
	n := t.Node(id)
	if n.Name == "" {
		return fmt.Sprintf("%d", id)
	}
	return n.Name
}

// Clone returns a deep copy of the topology, loads included.
// Clones share nothing, so they can be mutated from different goroutines.
func (t *Topology) Clone() *Topology {
	c := &Topology{
		nodes:      make([]*Node, len(t.nodes)),
		processing: make([]NodeID, len(t.processing)),
		links:      make(map[LinkKey]*Link, len(t.links)),
		linkOrder:  make([]LinkKey, len(t.linkOrder)),
		routes:     make(map[LinkKey]NodeID, len(t.routes)),
	}
	for i, n := range t.nodes {
		cp := *n
		c.nodes[i] = &cp
	}
	copy(c.processing, t.processing)
	copy(c.linkOrder, t.linkOrder)
	for k, l := range t.links {
		cp := *l
		c.links[k] = &cp
	}
	for k, v := range t.routes {
		c.routes[k] = v
	}
	return c
}

// sortLinkKeys orders keys by source then destination.
func sortLinkKeys(keys []LinkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Src != keys[j].Src {
			return keys[i].Src < keys[j].Src
		}
		return keys[i].Dst < keys[j].Dst
	})
}
