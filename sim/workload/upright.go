package workload

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/placement-sim/sim"
)

// Role names used by the UpRight model.
const (
	RoleFilter = "filter"
	RoleOrder  = "order"
	RoleExec   = "exec"
	RoleClient = "client"
)

// Message sizes in bytes.
const (
	upRightRequestBytes      = 273.0
	upRightReplyBytes        = 80.0
	upRightBatchSize         = 30.0
	upRightPrePrepareBytes   = 88 + upRightBatchSize*upRightRequestBytes
	upRightPrepareBytes      = 88.0
	upRightCommitBytes       = 72.0
	upRightOrderedBatchBytes = 88 + upRightRequestBytes*upRightBatchSize
)

// Processing costs in CPU cycles.
const (
	upRightMACCycles     = 644.0
	upRightExecuteCycles = 3000.0
)

func sendCycles(bytes float64) float64    { return 19*bytes + 643 }
func receiveCycles(bytes float64) float64 { return 20*bytes + 679 }

// UpRightSize returns the replica counts of an UpRight deployment tolerating u
// failures of which r may be commission failures.
func UpRightSize(u, r int) (filters, orders, execs int) {
	filters = 2*u + r + 1
	orders = 2*u + r + 1
	execs = u + max(u, r) + 1
	return filters, orders, execs
}

type upRightBuilder struct {
	p       *sim.Protocol
	filters []sim.EntityID
	orders  []sim.EntityID // orders[0] is the primary
	execs   []sim.EntityID
	clients []sim.EntityID
}

// NewUpRight models the UpRight agreement protocol: clients send requests to the
// filter replicas, which forward them to the order replicas; the first order
// replica is the primary and batches requests through pre-prepare, prepare and
// commit rounds before sending ordered batches to the exec replicas, which reply to
// the clients. Per-request costs are the batch costs divided by the batch size.
//
// Filters, orders and execs get a RoleRule each, the primary being the order group's
// leader. Clients are unconstrained. Panics if u or r is negative or clients < 1.
func NewUpRight(u, r, clients int) *sim.Protocol {
	if u < 0 || r < 0 || clients < 1 {
		panic(fmt.Sprintf("NewUpRight: invalid parameters u=%d r=%d clients=%d", u, r, clients))
	}
	nFilters, nOrders, nExecs := UpRightSize(u, r)
	logrus.Debugf("UpRight u=%d r=%d: %d filters, %d orders, %d execs, %d clients", u, r, nFilters, nOrders, nExecs, clients)

	b := &upRightBuilder{p: sim.NewProtocol()}
	b.filters = b.addEntities("Filter", RoleFilter, nFilters)
	b.orders = b.addEntities("Order", RoleOrder, nOrders)
	b.execs = b.addEntities("Exec", RoleExec, nExecs)
	b.clients = b.addEntities("Client", RoleClient, clients)

	for _, c := range b.clients {
		b.addCommunications(c)
		b.addProcessings()
	}

	rule, err := NewRoleRule(
		RoleGroup{Name: RoleFilter, Members: b.filters},
		RoleGroup{Name: RoleOrder, Members: b.orders, Leader: true},
		RoleGroup{Name: RoleExec, Members: b.execs},
	)
	if err != nil {
		panic(fmt.Sprintf("NewUpRight: %v", err))
	}
	b.p.SetRule(rule)
	return b.p
}

func (b *upRightBuilder) addEntities(prefix, role string, n int) []sim.EntityID {
	ids := make([]sim.EntityID, n)
	for i := range ids {
		ids[i] = b.p.AddEntity(fmt.Sprintf("%s %d", prefix, i), role)
	}
	return ids
}

func (b *upRightBuilder) send(src, dst sim.EntityID, bytes float64) {
	if err := b.p.AddCommunication(src, dst, bytes); err != nil {
		panic(fmt.Sprintf("NewUpRight: %v", err))
	}
}

func (b *upRightBuilder) broadcast(src sim.EntityID, dsts []sim.EntityID, bytes float64) {
	for _, d := range dsts {
		b.send(src, d, bytes)
	}
}

func (b *upRightBuilder) process(ids []sim.EntityID, cycles float64) {
	for _, e := range ids {
		if err := b.p.AddProcessing(e, cycles); err != nil {
			panic(fmt.Sprintf("NewUpRight: %v", err))
		}
	}
}

// addCommunications adds the messages exchanged for one request of client c.
func (b *upRightBuilder) addCommunications(c sim.EntityID) {
	b.broadcast(c, b.filters, upRightRequestBytes)
	for _, f := range b.filters {
		b.broadcast(f, b.orders, upRightRequestBytes)
	}
	primary := b.orders[0]
	b.broadcast(primary, b.orders, upRightPrePrepareBytes/upRightBatchSize)
	for _, o := range b.orders {
		b.broadcast(o, b.orders, upRightPrepareBytes/upRightBatchSize)
	}
	for _, o := range b.orders {
		b.broadcast(o, b.orders, upRightCommitBytes/upRightBatchSize)
	}
	for _, o := range b.orders {
		b.broadcast(o, b.execs, upRightOrderedBatchBytes/upRightBatchSize)
	}
	for _, e := range b.execs {
		b.send(e, c, upRightReplyBytes)
	}
}

// addProcessings adds the CPU work of one request. Client-side work is not modelled.
func (b *upRightBuilder) addProcessings() {
	nFilters := float64(len(b.filters))
	nOrders := float64(len(b.orders))
	nExecs := float64(len(b.execs))
	mac := upRightMACCycles

	b.process(b.filters, receiveCycles(upRightRequestBytes)+mac+sendCycles(upRightRequestBytes))
	b.process(b.orders, receiveCycles(upRightRequestBytes)+(nOrders+1)*mac+nOrders*sendCycles(upRightRequestBytes))
	b.process(b.orders, nFilters*(receiveCycles(upRightRequestBytes)+mac))
	b.process(b.orders[:1], nOrders*(mac+sendCycles(upRightPrePrepareBytes)))
	b.process(b.orders, nOrders*(receiveCycles(upRightPrePrepareBytes)+2*mac+sendCycles(upRightPrepareBytes)))
	b.process(b.orders, nOrders*(receiveCycles(upRightPrepareBytes)+2*mac+sendCycles(upRightCommitBytes)))
	b.process(b.orders, nOrders*(receiveCycles(upRightCommitBytes)+mac)+nExecs*(mac+sendCycles(upRightOrderedBatchBytes)))
	b.process(b.execs, receiveCycles(upRightOrderedBatchBytes)+nOrders*mac+upRightExecuteCycles+sendCycles(upRightReplyBytes))
}
