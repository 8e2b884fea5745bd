// Package sim provides the placement search engine: a network topology with static
// routing, the load ledger of its resources, the bottleneck throughput model, and
// the exhaustive search over entity-to-node assignments.
//
// # Reading Guide
//
// Start with these files to understand the search kernel:
//   - topology.go, routing.go: nodes, directed links and the next-hop routing table
//   - ledger.go: per-request CPU and link loads, applied and released by the search
//   - throughput.go: the slowest resource determines the sustainable request rate
//   - search.go: the depth-first enumeration with stack-disciplined undo
//
// # Architecture
//
// The sim package defines the core types and the Workload interface; supporting
// packages build on it:
//   - sim/workload/: role placement rules, the UpRight model and the YAML loader
//   - sim/fixtures/: reference topologies and the Star builder
//   - sim/trace/: per-assignment search traces and their summary statistics
//
// # Key Interfaces
//
//   - Workload: entities, their communications and processings, assignment state
//     and the Feasible predicate consulted before every placement
//   - PlacementRule: the strategy behind Protocol.Feasible
//
// Topologies are described in YAML (TopologySpec) or built in code; RunParallel
// splits a search into independent subtrees.
package sim
