package sim

import (
	"fmt"
	"math"
	"strings"
)

// ResourceKind tells whether a limiting resource is a CPU or a link.
type ResourceKind int

const (
	NodeResource ResourceKind = iota
	LinkResource
)

// Resource is one resource of the topology together with the request rate it can
// sustain under the current load.
type Resource struct {
	Kind ResourceKind
	Node NodeID  // set for NodeResource
	Link LinkKey // set for LinkResource
	Name string  // node name, empty for links
	Rate float64 // requests per second
}

// String renders the resource as a report line.
func (r Resource) String() string {
	switch r.Kind {
	case NodeResource:
		return fmt.Sprintf("limiting resource: node %s with %.2f req/s", nodeLabel(r.Node, r.Name), r.Rate)
	default:
		return fmt.Sprintf("limiting resource: link %d -> %d with %.2f req/s", r.Link.Src, r.Link.Dst, r.Rate)
	}
}

// Bottleneck is the lowest rate over all resources and every resource reaching it,
// in first-seen order: processing nodes by ascending id, then links in insertion order.
type Bottleneck struct {
	Throughput float64
	Resources  []Resource
}

// Unbounded reports whether no resource carries load.
func (b Bottleneck) Unbounded() bool {
	return math.IsInf(b.Throughput, 1)
}

// String describes the limiting resources, one per line.
func (b Bottleneck) String() string {
	if len(b.Resources) == 0 {
		return "no limiting resource"
	}
	lines := make([]string, len(b.Resources))
	for i, r := range b.Resources {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// nodeRate is the request rate a processing node sustains; +Inf when unloaded.
func nodeRate(n *Node) float64 {
	if n.cpuLoad <= 0 {
		return math.Inf(1)
	}
	return n.Capacity() / n.cpuLoad
}

// linkRate is the request rate a link sustains; +Inf when unloaded.
func linkRate(l *Link) float64 {
	if l.loadBytes <= 0 {
		return math.Inf(1)
	}
	return l.Bandwidth / l.loadBytes
}

// BottleneckThroughput returns the lowest request rate over every processing node
// and every link, or +Inf when nothing is loaded.
func (t *Topology) BottleneckThroughput() float64 {
	best := math.Inf(1)
	for _, id := range t.processing {
		if r := nodeRate(t.nodes[id]); r < best {
			best = r
		}
	}
	for _, l := range t.links {
		if r := linkRate(l); r < best {
			best = r
		}
	}
	return best
}

// Bottleneck returns the lowest rate together with every resource at that rate.
func (t *Topology) Bottleneck() Bottleneck {
	b := Bottleneck{Throughput: math.Inf(1)}
	consider := func(r Resource) {
		if math.IsInf(r.Rate, 1) {
			return
		}
		switch {
		case r.Rate < b.Throughput:
			b.Throughput = r.Rate
			b.Resources = append(b.Resources[:0], r)
		case r.Rate == b.Throughput:
			b.Resources = append(b.Resources, r)
		}
	}
	for _, id := range t.processing {
		n := t.nodes[id]
		consider(Resource{Kind: NodeResource, Node: id, Name: n.Name, Rate: nodeRate(n)})
	}
	for _, key := range t.linkOrder {
		consider(Resource{Kind: LinkResource, Link: key, Rate: linkRate(t.links[key])})
	}
	return b
}
