package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/placement-sim/sim/trace"
)

// DefaultProgressInterval is the number of complete assignments between two
// progress snapshots.
const DefaultProgressInterval int64 = 100000

// SearchConfig tunes a placement search. The zero value is usable.
type SearchConfig struct {
	// ProgressInterval is the number of complete assignments between progress log
	// lines. 0 means DefaultProgressInterval; negative disables progress logging.
	ProgressInterval int64
	// FirstNodes restricts the candidates of the first entity. Empty means every
	// processing node. Used to split the search into disjoint subtrees.
	FirstNodes []NodeID
	// Trace, when non-nil, receives one record per complete assignment.
	Trace *trace.SearchTrace
}

// Search enumerates every feasible assignment of a workload's entities onto the
// processing nodes of a topology, depth first, and tracks the best and worst
// bottleneck throughput.
//
// The topology loads and the workload assignment form one mutable state owned by
// the recursion: every mutation applied before descending is released on return,
// in reverse order, so sibling branches never observe each other.
type Search struct {
	topo     *Topology
	workload Workload
	config   SearchConfig

	entities   []EntityID
	candidates []NodeID
	firstNodes []NodeID

	tracker        *ResultTracker
	configurations int64
	hasRun         bool
	usedScratch    map[NodeID]struct{}
}

// NewSearch prepares a search. Panics if the routing table is incomplete, if the
// topology has no processing node or if the workload has no entity.
func NewSearch(topo *Topology, wl Workload, config SearchConfig) *Search {
	if topo == nil || wl == nil {
		panic("NewSearch: topology and workload must not be nil")
	}
	if !topo.IsRoutingComplete() {
		missing := topo.MissingRoutes()
		panic(fmt.Sprintf("NewSearch: routing table incomplete, %d pairs missing (first: %d -> %d)",
			len(missing), missing[0].Src, missing[0].Dst))
	}
	candidates := topo.ProcessingNodes()
	if len(candidates) == 0 {
		panic("NewSearch: topology has no processing node")
	}
	entities := wl.Entities()
	if len(entities) == 0 {
		panic("NewSearch: workload has no entity")
	}
	firstNodes := candidates
	if len(config.FirstNodes) > 0 {
		for _, n := range config.FirstNodes {
			if !topo.HasNode(n) || topo.Node(n).Kind != ProcessingNode {
				panic(fmt.Sprintf("NewSearch: first node %d is not a processing node", n))
			}
		}
		firstNodes = config.FirstNodes
	}
	if config.ProgressInterval == 0 {
		config.ProgressInterval = DefaultProgressInterval
	}
	logrus.Debugf("NewSearch: %d entities over %d processing nodes, multiplier %d",
		len(entities), len(candidates), wl.ClientMultiplier())
	return &Search{
		topo:        topo,
		workload:    wl,
		config:      config,
		entities:    entities,
		candidates:  candidates,
		firstNodes:  firstNodes,
		tracker:     NewResultTracker(),
		usedScratch: make(map[NodeID]struct{}, len(candidates)),
	}
}

// Run explores every feasible assignment and returns the extremes found.
// Panics if called more than once.
func (s *Search) Run() *Results {
	if s.hasRun {
		panic("Search.Run() called more than once")
	}
	s.hasRun = true
	start := time.Now()
	s.enumerate(0)
	return &Results{
		RunID:          newRunID(),
		Configurations: s.configurations,
		SearchSpace:    s.SearchSpace(),
		Min:            s.tracker.Min(),
		Max:            s.tracker.Max(),
		Elapsed:        time.Since(start),
	}
}

// Tracker exposes the result tracker, e.g. to merge subtree searches.
func (s *Search) Tracker() *ResultTracker {
	return s.tracker
}

// Configurations returns the number of complete assignments evaluated so far.
func (s *Search) Configurations() int64 {
	return s.configurations
}

// SearchSpace returns the size of the unpruned search space, nodes^entities.
func (s *Search) SearchSpace() float64 {
	return searchSpace(len(s.candidates), len(s.entities))
}

func searchSpace(nodes, entities int) float64 {
	return math.Pow(float64(nodes), float64(entities))
}

func (s *Search) enumerate(depth int) {
	if depth == len(s.entities) {
		s.evaluate()
		return
	}
	entity := s.entities[depth]
	candidates := s.candidates
	if depth == 0 {
		candidates = s.firstNodes
	}
	for _, node := range candidates {
		if !s.workload.Feasible(entity, node) {
			continue
		}
		s.descend(depth, entity, node)
	}
}

// descend places entity on node, explores the subtree and undoes the placement.
func (s *Search) descend(depth int, entity EntityID, node NodeID) {
	s.workload.Assign(entity, node)
	defer s.workload.Unassign(entity)

	procs := s.workload.Processings(entity)
	guards := make([]*LoadGuard, 0, len(procs))
	defer func() {
		for i := len(guards) - 1; i >= 0; i-- {
			guards[i].Release()
		}
	}()
	for _, p := range procs {
		guards = append(guards, s.topo.ApplyNodeLoad(node, p.Cycles))
	}

	s.enumerate(depth + 1)
}

// evaluate handles a complete assignment: charge every communication on its route,
// read the bottleneck, record it and clear the link loads.
func (s *Search) evaluate() {
	if s.config.ProgressInterval > 0 && s.configurations%s.config.ProgressInterval == 0 && s.configurations > 0 {
		s.logProgress()
	}

	for _, e := range s.entities {
		for _, c := range s.workload.Communications(e) {
			s.topo.AddLinkLoad(s.nodeOf(c.Src), s.nodeOf(c.Dst), c.SizeBytes)
		}
	}

	throughput := s.topo.BottleneckThroughput() * float64(s.workload.ClientMultiplier())
	nodesUsed := s.distinctNodes()
	s.tracker.Observe(Sample{
		Throughput: throughput,
		NodesUsed:  nodesUsed,
		Snapshot:   s.snapshot,
	})
	if s.config.Trace != nil {
		s.config.Trace.RecordLeaf(trace.LeafRecord{
			Index:      s.configurations,
			Throughput: throughput,
			NodesUsed:  nodesUsed,
		})
	}

	// Resetting is equivalent to removing each communication at a leaf, and cheaper.
	s.topo.ResetLinkLoads()
	s.configurations++
}

func (s *Search) nodeOf(e EntityID) NodeID {
	node, ok := s.workload.AssignedNode(e)
	if !ok {
		panic(fmt.Sprintf("Search.evaluate: entity %d is not assigned at a complete leaf", e))
	}
	return node
}

func (s *Search) distinctNodes() int {
	clear(s.usedScratch)
	for _, e := range s.entities {
		s.usedScratch[s.nodeOf(e)] = struct{}{}
	}
	return len(s.usedScratch)
}

func (s *Search) snapshot() *Outcome {
	assignment := make([]Placement, len(s.entities))
	for i, e := range s.entities {
		node := s.nodeOf(e)
		assignment[i] = Placement{
			Entity:     e,
			EntityName: s.workload.Entity(e).Name,
			Node:       node,
			NodeName:   s.topo.NodeName(node),
		}
	}
	return &Outcome{Assignment: assignment, Bottleneck: s.topo.Bottleneck()}
}

func (s *Search) logProgress() {
	line := fmt.Sprintf("studied %d out of %.0f assignments", s.configurations, s.SearchSpace())
	if mn, mx := s.tracker.Min(), s.tracker.Max(); mn != nil && mx != nil {
		line += fmt.Sprintf("; min %.1f req/s on %d machines, max %.1f req/s on %d machines",
			mn.Throughput, mn.NodesUsed, mx.Throughput, mx.NodesUsed)
	}
	logrus.Info(line)
}
