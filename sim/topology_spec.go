package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Routing modes of a TopologySpec.
const (
	RoutingExplicit     = "explicit"
	RoutingShortestPath = "shortest-path"
)

var validRoutingModes = map[string]bool{"": true, RoutingExplicit: true, RoutingShortestPath: true}

// TopologySpec is the YAML description of a topology.
// Loaded via LoadTopologySpec(path); nodes get ids in declaration order.
type TopologySpec struct {
	Version string      `yaml:"version"`
	Nodes   []NodeSpec  `yaml:"nodes"`
	Links   []LinkSpec  `yaml:"links"`
	Routing string      `yaml:"routing,omitempty"` // "explicit" (default) or "shortest-path"
	Routes  []RouteSpec `yaml:"routes,omitempty"`
}

// NodeSpec declares a processing node, or a switch when Switch is set.
type NodeSpec struct {
	Name    string  `yaml:"name"`
	Switch  bool    `yaml:"switch,omitempty"`
	CPUs    int     `yaml:"cpus,omitempty"`
	CPUFreq float64 `yaml:"cpu_freq,omitempty"`
}

// LinkSpec declares a link between two named nodes.
type LinkSpec struct {
	From          string  `yaml:"from"`
	To            string  `yaml:"to"`
	Bandwidth     float64 `yaml:"bandwidth"`
	Latency       float64 `yaml:"latency,omitempty"`
	Bidirectional bool    `yaml:"bidirectional,omitempty"`
}

// RouteSpec routes traffic at From heading for To through Via.
type RouteSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Via  string `yaml:"via"`
}

// LoadTopologySpec reads and parses a YAML topology file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadTopologySpec(path string) (*TopologySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology spec: %w", err)
	}
	var spec TopologySpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing topology spec: %w", err)
	}
	return &spec, nil
}

// Validate checks names, references and numeric fields. Route completeness is
// checked by Build, once routes are derived.
func (s *TopologySpec) Validate() error {
	if s.Version != "" && s.Version != "1" {
		return fmt.Errorf("unsupported version %q; valid: 1", s.Version)
	}
	if !validRoutingModes[s.Routing] {
		return fmt.Errorf("unknown routing %q; valid: explicit, shortest-path", s.Routing)
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("at least one node required")
	}
	names := make(map[string]bool, len(s.Nodes))
	processing := 0
	for i, n := range s.Nodes {
		prefix := fmt.Sprintf("nodes[%d]", i)
		if n.Name == "" {
			return fmt.Errorf("%s: name required", prefix)
		}
		if names[n.Name] {
			return fmt.Errorf("%s: duplicate name %q", prefix, n.Name)
		}
		names[n.Name] = true
		if n.Switch {
			if n.CPUs != 0 || n.CPUFreq != 0 {
				return fmt.Errorf("%s: switch %q cannot have cpus or cpu_freq", prefix, n.Name)
			}
			continue
		}
		processing++
		if n.CPUs < 1 {
			return fmt.Errorf("%s: cpus must be >= 1, got %d", prefix, n.CPUs)
		}
		if math.IsNaN(n.CPUFreq) || math.IsInf(n.CPUFreq, 0) || n.CPUFreq <= 0 {
			return fmt.Errorf("%s: cpu_freq must be a finite positive number, got %f", prefix, n.CPUFreq)
		}
	}
	if processing == 0 {
		return fmt.Errorf("at least one processing node required")
	}
	for i, l := range s.Links {
		prefix := fmt.Sprintf("links[%d]", i)
		if !names[l.From] || !names[l.To] {
			return fmt.Errorf("%s: unknown node in %q -> %q", prefix, l.From, l.To)
		}
		if l.From == l.To {
			return fmt.Errorf("%s: %q cannot link to itself", prefix, l.From)
		}
		if math.IsNaN(l.Bandwidth) || math.IsInf(l.Bandwidth, 0) || l.Bandwidth <= 0 {
			return fmt.Errorf("%s: bandwidth must be a finite positive number, got %f", prefix, l.Bandwidth)
		}
		if math.IsNaN(l.Latency) || l.Latency < 0 {
			return fmt.Errorf("%s: latency must be non-negative, got %f", prefix, l.Latency)
		}
	}
	for i, r := range s.Routes {
		if !names[r.From] || !names[r.To] || !names[r.Via] {
			return fmt.Errorf("routes[%d]: unknown node in %q -> %q via %q", i, r.From, r.To, r.Via)
		}
	}
	return nil
}

// Build is BuildPartial followed by the routing checks a search needs. Returns an
// error if the routing table is incomplete or a route does not reach its destination.
func (s *TopologySpec) Build() (*Topology, error) {
	t, err := s.BuildPartial()
	if err != nil {
		return nil, err
	}
	if missing := t.MissingRoutes(); len(missing) > 0 {
		return nil, fmt.Errorf("routing table incomplete: %d pairs missing, first %s -> %s",
			len(missing), t.NodeName(missing[0].Src), t.NodeName(missing[0].Dst))
	}
	if err := t.CheckRoutes(); err != nil {
		return nil, fmt.Errorf("invalid routing table: %w", err)
	}
	return t, nil
}

// BuildPartial validates the spec and constructs the topology without checking the
// routing table. Self routes are always added; with shortest-path routing the
// remaining pairs are derived, explicit routes taking precedence. Pairs that stay
// unrouted are left for the caller to report.
func (s *TopologySpec) BuildPartial() (*Topology, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	t := NewTopology()
	ids := make(map[string]NodeID, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.Switch {
			ids[n.Name] = t.AddSwitch(n.Name)
			continue
		}
		id, err := t.AddProcessingNode(n.Name, n.CPUs, n.CPUFreq)
		if err != nil {
			return nil, err
		}
		ids[n.Name] = id
	}
	for i, l := range s.Links {
		var err error
		if l.Bidirectional {
			err = t.AddBidirectionalLink(ids[l.From], ids[l.To], l.Bandwidth, l.Latency)
		} else {
			err = t.AddLink(ids[l.From], ids[l.To], l.Bandwidth, l.Latency)
		}
		if err != nil {
			return nil, fmt.Errorf("links[%d] %s -> %s: %w", i, l.From, l.To, err)
		}
	}
	for i, r := range s.Routes {
		if err := t.AddRoute(ids[r.From], ids[r.To], ids[r.Via]); err != nil {
			return nil, fmt.Errorf("routes[%d] %s -> %s: %w", i, r.From, r.To, err)
		}
	}
	t.AddSelfRoutes()
	if s.Routing == RoutingShortestPath {
		added := t.DeriveShortestPathRoutes()
		logrus.Debugf("Derived %d shortest-path routes", added)
	}
	return t, nil
}
