package sim

import (
	"fmt"
	"math"
)

// EntityID identifies an entity of a workload.
type EntityID int

// Entity is a placement-assignable unit of a distributed protocol, such as one
// replica of a protocol role.
type Entity struct {
	ID   EntityID
	Name string
	Role string // optional; only placement rules interpret it
}

// Communication is a directed message sent per request from one entity to another.
type Communication struct {
	Src       EntityID
	Dst       EntityID
	SizeBytes float64
}

// Processing is the CPU work an entity performs per request.
type Processing struct {
	Entity EntityID
	Cycles float64
}

// Workload is what the placement search needs from a protocol model.
//
// Entities returns the fixed enumeration order. Assign and Unassign are called
// only by the search, in stack order. Feasible is the single extension point
// through which protocol-specific placement constraints prune the search.
type Workload interface {
	Entities() []EntityID
	Entity(id EntityID) Entity
	Communications(id EntityID) []Communication
	Processings(id EntityID) []Processing
	ClientMultiplier() int
	Assign(id EntityID, node NodeID)
	Unassign(id EntityID)
	AssignedNode(id EntityID) (NodeID, bool)
	Feasible(id EntityID, node NodeID) bool
}

// CloneableWorkload is a Workload that can be copied for independent searches.
type CloneableWorkload interface {
	Workload
	CloneWorkload() CloneableWorkload
}

// PlacementRule decides whether an entity may be placed on a node.
// Placed and Removed mirror Assign and Unassign so stateful rules can track the
// placements made so far on the current search branch.
type PlacementRule interface {
	Allows(entity EntityID, node NodeID) bool
	Placed(entity EntityID, node NodeID)
	Removed(entity EntityID, node NodeID)
	Clone() PlacementRule
}

// AnyPlacement allows every placement.
type AnyPlacement struct{}

func (AnyPlacement) Allows(EntityID, NodeID) bool { return true }
func (AnyPlacement) Placed(EntityID, NodeID)      {}
func (AnyPlacement) Removed(EntityID, NodeID)     {}
func (AnyPlacement) Clone() PlacementRule         { return AnyPlacement{} }

// RuleFunc adapts a stateless predicate to PlacementRule.
type RuleFunc func(entity EntityID, node NodeID) bool

func (f RuleFunc) Allows(entity EntityID, node NodeID) bool { return f(entity, node) }
func (f RuleFunc) Placed(EntityID, NodeID)                  {}
func (f RuleFunc) Removed(EntityID, NodeID)                 {}
func (f RuleFunc) Clone() PlacementRule                     { return f }

// Protocol is the generic Workload: a set of entities with their communications,
// processings and a client multiplier, constrained by an injected PlacementRule.
type Protocol struct {
	entities   []Entity
	comms      [][]Communication // indexed by source entity
	procs      [][]Processing    // indexed by entity
	assigned   []NodeID
	isAssigned []bool
	clients    int
	rule       PlacementRule
}

// NewProtocol creates an empty protocol with a client multiplier of 1 and no
// placement constraint.
func NewProtocol() *Protocol {
	return &Protocol{clients: 1, rule: AnyPlacement{}}
}

// AddEntity adds an entity and returns its id. Ids are dense and follow insertion order.
func (p *Protocol) AddEntity(name, role string) EntityID {
	id := EntityID(len(p.entities))
	p.entities = append(p.entities, Entity{ID: id, Name: name, Role: role})
	p.comms = append(p.comms, nil)
	p.procs = append(p.procs, nil)
	p.assigned = append(p.assigned, 0)
	p.isAssigned = append(p.isAssigned, false)
	return id
}

// AddCommunication records a message of sizeBytes from src to dst per request.
func (p *Protocol) AddCommunication(src, dst EntityID, sizeBytes float64) error {
	if !p.hasEntity(src) || !p.hasEntity(dst) {
		return fmt.Errorf("communication %d -> %d: unknown entity", src, dst)
	}
	if sizeBytes <= 0 || math.IsNaN(sizeBytes) || math.IsInf(sizeBytes, 0) {
		return fmt.Errorf("communication %d -> %d: size must be finite and positive, got %f", src, dst, sizeBytes)
	}
	p.comms[src] = append(p.comms[src], Communication{Src: src, Dst: dst, SizeBytes: sizeBytes})
	return nil
}

// AddProcessing records cycles of CPU work per request for an entity.
func (p *Protocol) AddProcessing(entity EntityID, cycles float64) error {
	if !p.hasEntity(entity) {
		return fmt.Errorf("processing for entity %d: unknown entity", entity)
	}
	if cycles <= 0 || math.IsNaN(cycles) || math.IsInf(cycles, 0) {
		return fmt.Errorf("processing for entity %d: cycles must be finite and positive, got %f", entity, cycles)
	}
	p.procs[entity] = append(p.procs[entity], Processing{Entity: entity, Cycles: cycles})
	return nil
}

// SetClientMultiplier sets the factor scaling per-assignment throughput into an
// aggregate request rate.
func (p *Protocol) SetClientMultiplier(clients int) error {
	if clients < 1 {
		return fmt.Errorf("client multiplier must be >= 1, got %d", clients)
	}
	p.clients = clients
	return nil
}

// SetRule installs the placement rule. A nil rule allows everything.
func (p *Protocol) SetRule(rule PlacementRule) {
	if rule == nil {
		rule = AnyPlacement{}
	}
	p.rule = rule
}

// Rule returns the installed placement rule.
func (p *Protocol) Rule() PlacementRule {
	return p.rule
}

// EntityByName returns the id of the first entity with the given name.
func (p *Protocol) EntityByName(name string) (EntityID, bool) {
	for _, e := range p.entities {
		if e.Name == name {
			return e.ID, true
		}
	}
	return 0, false
}

// NumEntities returns the number of entities.
func (p *Protocol) NumEntities() int {
	return len(p.entities)
}

// Entities implements Workload. The order is ascending id.
func (p *Protocol) Entities() []EntityID {
	ids := make([]EntityID, len(p.entities))
	for i := range p.entities {
		ids[i] = EntityID(i)
	}
	return ids
}

// Entity implements Workload.
func (p *Protocol) Entity(id EntityID) Entity {
	p.mustHave("Entity", id)
	return p.entities[id]
}

// Communications implements Workload.
func (p *Protocol) Communications(id EntityID) []Communication {
	p.mustHave("Communications", id)
	return p.comms[id]
}

// Processings implements Workload.
func (p *Protocol) Processings(id EntityID) []Processing {
	p.mustHave("Processings", id)
	return p.procs[id]
}

// ClientMultiplier implements Workload.
func (p *Protocol) ClientMultiplier() int {
	return p.clients
}

// Assign implements Workload. An entity is never assigned to two nodes at once.
func (p *Protocol) Assign(id EntityID, node NodeID) {
	p.mustHave("Assign", id)
	if p.isAssigned[id] {
		panic(fmt.Sprintf("Protocol.Assign: entity %d already assigned to node %d", id, p.assigned[id]))
	}
	p.assigned[id] = node
	p.isAssigned[id] = true
	p.rule.Placed(id, node)
}

// Unassign implements Workload.
func (p *Protocol) Unassign(id EntityID) {
	p.mustHave("Unassign", id)
	if !p.isAssigned[id] {
		panic(fmt.Sprintf("Protocol.Unassign: entity %d is not assigned", id))
	}
	node := p.assigned[id]
	p.isAssigned[id] = false
	p.rule.Removed(id, node)
}

// AssignedNode implements Workload.
func (p *Protocol) AssignedNode(id EntityID) (NodeID, bool) {
	p.mustHave("AssignedNode", id)
	return p.assigned[id], p.isAssigned[id]
}

// Feasible implements Workload by delegating to the placement rule.
func (p *Protocol) Feasible(id EntityID, node NodeID) bool {
	return p.rule.Allows(id, node)
}

// Reset unassigns every entity.
func (p *Protocol) Reset() {
	for i := range p.entities {
		if p.isAssigned[i] {
			p.Unassign(EntityID(i))
		}
	}
}

// Clone returns an independent copy. Communications and processings are shared
// read-only; assignment state and the rule are copied.
func (p *Protocol) Clone() *Protocol {
	c := &Protocol{
		entities:   p.entities,
		comms:      p.comms,
		procs:      p.procs,
		assigned:   append([]NodeID(nil), p.assigned...),
		isAssigned: append([]bool(nil), p.isAssigned...),
		clients:    p.clients,
		rule:       p.rule.Clone(),
	}
	return c
}

// CloneWorkload implements CloneableWorkload.
func (p *Protocol) CloneWorkload() CloneableWorkload {
	return p.Clone()
}

func (p *Protocol) hasEntity(id EntityID) bool {
	return id >= 0 && int(id) < len(p.entities)
}

func (p *Protocol) mustHave(op string, id EntityID) {
	if !p.hasEntity(id) {
		panic(fmt.Sprintf("Protocol.%s: unknown entity %d", op, id))
	}
}
