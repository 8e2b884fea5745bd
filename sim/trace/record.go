// Package trace provides per-assignment recording for placement search analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// LeafRecord captures one complete assignment evaluated by the search.
type LeafRecord struct {
	Index      int64   // position in the enumeration order of its search
	Throughput float64 // aggregate requests per second; +Inf when no resource is loaded
	NodesUsed  int     // distinct processing nodes hosting entities
}
