package trace

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TraceSummary aggregates statistics from a SearchTrace.
// Statistics cover bounded throughputs only; unbounded leaves are counted apart.
type TraceSummary struct {
	Leaves    int
	Unbounded int
	Mean      float64
	StdDev    float64
	Min       float64
	Max       float64
	P50       float64
	P90       float64
	NodesUsed map[int]int // distinct node count -> number of leaves
}

// Summarize computes aggregate statistics from a SearchTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SearchTrace) *TraceSummary {
	summary := &TraceSummary{
		NodesUsed: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.Leaves = len(st.Leaves)
	bounded := make([]float64, 0, len(st.Leaves))
	for _, r := range st.Leaves {
		summary.NodesUsed[r.NodesUsed]++
		if math.IsInf(r.Throughput, 1) {
			summary.Unbounded++
			continue
		}
		bounded = append(bounded, r.Throughput)
	}
	if len(bounded) == 0 {
		return summary
	}

	sort.Float64s(bounded)
	summary.Mean, summary.StdDev = stat.MeanStdDev(bounded, nil)
	if len(bounded) == 1 {
		summary.StdDev = 0
	}
	summary.Min = bounded[0]
	summary.Max = bounded[len(bounded)-1]
	summary.P50 = stat.Quantile(0.5, stat.Empirical, bounded, nil)
	summary.P90 = stat.Quantile(0.9, stat.Empirical, bounded, nil)
	return summary
}
