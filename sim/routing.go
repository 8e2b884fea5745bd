package sim

import (
	"fmt"
	"sort"
)

// Routing is static: each (source, destination) pair maps to the next hop, set once
// while the topology is built. A search requires the table to be complete.

// AddRoute records that traffic at src heading for dst is forwarded to nextHop.
// Routes are write-once: a second route for the same pair is rejected.
func (t *Topology) AddRoute(src, dst, nextHop NodeID) error {
	if !t.HasNode(src) || !t.HasNode(dst) || !t.HasNode(nextHop) {
		return fmt.Errorf("route %d -> %d via %d: unknown node", src, dst, nextHop)
	}
	key := LinkKey{Src: src, Dst: dst}
	if existing, exists := t.routes[key]; exists {
		return fmt.Errorf("route %d -> %d: already routed via %d", src, dst, existing)
	}
	t.routes[key] = nextHop
	return nil
}

// AddSelfRoutes adds the route (n, n) -> n for every node that lacks one.
func (t *Topology) AddSelfRoutes() {
	for _, n := range t.nodes {
		key := LinkKey{Src: n.ID, Dst: n.ID}
		if _, exists := t.routes[key]; !exists {
			t.routes[key] = n.ID
		}
	}
}

// NextHop returns the next hop for traffic at src heading for dst.
func (t *Topology) NextHop(src, dst NodeID) (NodeID, bool) {
	hop, ok := t.routes[LinkKey{Src: src, Dst: dst}]
	return hop, ok
}

// NumRoutes returns the number of routing entries.
func (t *Topology) NumRoutes() int {
	return len(t.routes)
}

// IsRoutingComplete reports whether every ordered pair of nodes, including the
// self pairs, has a routing entry.
func (t *Topology) IsRoutingComplete() bool {
	n := len(t.nodes)
	if len(t.routes) < n*n {
		return false
	}
	for src := 0; src < n; src++ {
		for dst := 0; dst < n; dst++ {
			if _, ok := t.routes[LinkKey{Src: NodeID(src), Dst: NodeID(dst)}]; !ok {
				return false
			}
		}
	}
	return true
}

// MissingRoutes lists every ordered pair without a routing entry, sorted by source
// then destination.
func (t *Topology) MissingRoutes() []LinkKey {
	var missing []LinkKey
	for src := range t.nodes {
		for dst := range t.nodes {
			key := LinkKey{Src: NodeID(src), Dst: NodeID(dst)}
			if _, ok := t.routes[key]; !ok {
				missing = append(missing, key)
			}
		}
	}
	sortLinkKeys(missing)
	return missing
}

// NextHopLink returns the link traffic at src takes toward dst.
// Panics if the pair has no route or the route names a hop without a link;
// both are configuration errors that would otherwise silently drop load.
func (t *Topology) NextHopLink(src, dst NodeID) *Link {
	hop, ok := t.routes[LinkKey{Src: src, Dst: dst}]
	if !ok {
		panic(fmt.Sprintf("Topology.NextHopLink: no route from %d to %d", src, dst))
	}
	link := t.links[LinkKey{Src: src, Dst: hop}]
	if link == nil {
		panic(fmt.Sprintf("Topology.NextHopLink: route %d -> %d goes via %d but there is no link %d -> %d",
			src, dst, hop, src, hop))
	}
	return link
}

// Path returns the links walked by traffic from src to dst, in order.
// A message from a node to itself walks no link.
func (t *Topology) Path(src, dst NodeID) []LinkKey {
	var path []LinkKey
	t.walk(src, dst, func(l *Link) {
		path = append(path, l.Key())
	})
	return path
}

// walk follows the routing table from src to dst and calls visit on each traversed
// link. A walk longer than the number of nodes can only be a routing loop.
func (t *Topology) walk(src, dst NodeID, visit func(*Link)) {
	if !t.HasNode(src) || !t.HasNode(dst) {
		panic(fmt.Sprintf("Topology.walk: unknown node in %d -> %d", src, dst))
	}
	cur := src
	for hops := 0; cur != dst; hops++ {
		if hops >= len(t.nodes) {
			panic(fmt.Sprintf("Topology.walk: route from %d to %d does not reach its destination (loop at %d)", src, dst, cur))
		}
		link := t.NextHopLink(cur, dst)
		visit(link)
		cur = link.Dst
	}
}

// AddNeighborRoutes adds, for every link src -> dst whose pair has no route yet,
// the direct route via dst.
func (t *Topology) AddNeighborRoutes() {
	for _, key := range t.linkOrder {
		if _, exists := t.routes[key]; !exists {
			t.routes[key] = key.Dst
		}
	}
}

// DeriveShortestPathRoutes fills every missing route with a minimum-hop next hop,
// found by a breadth-first search toward each destination. Among equally short
// next hops the lowest node id wins. Existing routes are kept, and pairs with no
// path stay missing. Returns the number of routes added.
func (t *Topology) DeriveShortestPathRoutes() int {
	n := len(t.nodes)
	out := make([][]NodeID, n) // outgoing neighbors, ascending
	in := make([][]NodeID, n)  // incoming neighbors
	for _, key := range t.linkOrder {
		out[key.Src] = append(out[key.Src], key.Dst)
		in[key.Dst] = append(in[key.Dst], key.Src)
	}
	for i := range out {
		sort.Slice(out[i], func(a, b int) bool { return out[i][a] < out[i][b] })
	}

	added := 0
	dist := make([]int, n)
	queue := make([]NodeID, 0, n)
	for dst := 0; dst < n; dst++ {
		for i := range dist {
			dist[i] = -1
		}
		dist[dst] = 0
		queue = append(queue[:0], NodeID(dst))
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, prev := range in[cur] {
				if dist[prev] < 0 {
					dist[prev] = dist[cur] + 1
					queue = append(queue, prev)
				}
			}
		}
		for src := 0; src < n; src++ {
			key := LinkKey{Src: NodeID(src), Dst: NodeID(dst)}
			if _, exists := t.routes[key]; exists {
				continue
			}
			if src == dst {
				t.routes[key] = key.Src
				added++
				continue
			}
			if dist[src] < 0 {
				continue
			}
			for _, next := range out[src] {
				if dist[next] == dist[src]-1 {
					t.routes[key] = next
					added++
					break
				}
			}
		}
	}
	return added
}

// CheckRoutes verifies that every routed pair reaches its destination over existing
// links without looping. Missing routes are not reported; see MissingRoutes.
func (t *Topology) CheckRoutes() error {
	for _, key := range sortedRouteKeys(t.routes) {
		cur := key.Src
		for hops := 0; cur != key.Dst; hops++ {
			if hops >= len(t.nodes) {
				return fmt.Errorf("route %d -> %d loops at node %d", key.Src, key.Dst, cur)
			}
			hop, ok := t.routes[LinkKey{Src: cur, Dst: key.Dst}]
			if !ok {
				return fmt.Errorf("route %d -> %d stops at node %d, which has no route to %d", key.Src, key.Dst, cur, key.Dst)
			}
			if t.links[LinkKey{Src: cur, Dst: hop}] == nil {
				return fmt.Errorf("route %d -> %d goes from %d via %d but there is no such link", key.Src, key.Dst, cur, hop)
			}
			cur = hop
		}
	}
	return nil
}

// Routes returns every routing entry as (pair, next hop), sorted by pair.
func (t *Topology) Routes() []Route {
	keys := sortedRouteKeys(t.routes)
	routes := make([]Route, len(keys))
	for i, k := range keys {
		routes[i] = Route{Src: k.Src, Dst: k.Dst, NextHop: t.routes[k]}
	}
	return routes
}

// Route is one routing table entry.
type Route struct {
	Src     NodeID
	Dst     NodeID
	NextHop NodeID
}

func sortedRouteKeys(routes map[LinkKey]NodeID) []LinkKey {
	keys := make([]LinkKey, 0, len(routes))
	for k := range routes {
		keys = append(keys, k)
	}
	sortLinkKeys(keys)
	return keys
}
