// Package workload provides protocol workloads for the placement search: role-based
// placement rules, the UpRight replicated state machine model, and a YAML loader for
// user-defined protocols.
package workload

import (
	"fmt"

	"github.com/inference-sim/placement-sim/sim"
)

// RoleGroup is a set of interchangeable entities, typically the replicas of one
// protocol role.
type RoleGroup struct {
	Name    string
	Members []sim.EntityID
	// Leader marks Members[0] as special: it only needs a node distinct from its
	// peers and does not take part in the ordering of the others.
	Leader bool
	// DistinctOnly drops the increasing-node-id ordering and keeps distinctness.
	// Every permutation of the group is then enumerated.
	DistinctOnly bool
}

type placedMember struct {
	entity sim.EntityID
	node   sim.NodeID
	leader bool
}

// RoleRule is a sim.PlacementRule for role groups. Members of a group land on
// mutually distinct nodes, and non-leader members are placed on strictly increasing
// node ids in placement order, so that permutations of the same replica set are
// explored once. Entities outside every group are unconstrained.
type RoleRule struct {
	groups  []RoleGroup
	groupOf map[sim.EntityID]int
	placed  [][]placedMember // per group, in placement order
}

// NewRoleRule builds a rule from groups. An entity may belong to one group at most.
func NewRoleRule(groups ...RoleGroup) (*RoleRule, error) {
	r := &RoleRule{
		groups:  groups,
		groupOf: make(map[sim.EntityID]int),
		placed:  make([][]placedMember, len(groups)),
	}
	for gi, g := range groups {
		if len(g.Members) == 0 {
			return nil, fmt.Errorf("role group %q has no member", g.Name)
		}
		for _, e := range g.Members {
			if prev, dup := r.groupOf[e]; dup {
				return nil, fmt.Errorf("entity %d belongs to role groups %q and %q", e, groups[prev].Name, g.Name)
			}
			r.groupOf[e] = gi
		}
	}
	return r, nil
}

// Groups returns the configured groups.
func (r *RoleRule) Groups() []RoleGroup {
	return r.groups
}

func (r *RoleRule) isLeader(gi int, e sim.EntityID) bool {
	g := r.groups[gi]
	return g.Leader && g.Members[0] == e
}

// Allows implements sim.PlacementRule.
func (r *RoleRule) Allows(entity sim.EntityID, node sim.NodeID) bool {
	gi, ok := r.groupOf[entity]
	if !ok {
		return true
	}
	placed := r.placed[gi]
	for _, pm := range placed {
		if pm.node == node {
			return false
		}
	}
	if r.groups[gi].DistinctOnly || r.isLeader(gi, entity) {
		return true
	}
	for i := len(placed) - 1; i >= 0; i-- {
		if !placed[i].leader {
			return placed[i].node < node
		}
	}
	return true
}

// Placed implements sim.PlacementRule.
func (r *RoleRule) Placed(entity sim.EntityID, node sim.NodeID) {
	gi, ok := r.groupOf[entity]
	if !ok {
		return
	}
	r.placed[gi] = append(r.placed[gi], placedMember{entity: entity, node: node, leader: r.isLeader(gi, entity)})
}

// Removed implements sim.PlacementRule. Removals normally arrive in reverse
// placement order; any order is accepted.
func (r *RoleRule) Removed(entity sim.EntityID, node sim.NodeID) {
	gi, ok := r.groupOf[entity]
	if !ok {
		return
	}
	placed := r.placed[gi]
	for i := len(placed) - 1; i >= 0; i-- {
		if placed[i].entity == entity {
			if placed[i].node != node {
				panic(fmt.Sprintf("RoleRule.Removed: entity %d was placed on node %d, not %d", entity, placed[i].node, node))
			}
			r.placed[gi] = append(placed[:i], placed[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("RoleRule.Removed: entity %d is not placed", entity))
}

// Clone implements sim.PlacementRule. Groups are shared; placement state is copied.
func (r *RoleRule) Clone() sim.PlacementRule {
	c := &RoleRule{
		groups:  r.groups,
		groupOf: r.groupOf,
		placed:  make([][]placedMember, len(r.placed)),
	}
	for i, p := range r.placed {
		c.placed[i] = append([]placedMember(nil), p...)
	}
	return c
}
