package sim

// Placement is one entity -> node pair of an assignment snapshot.
type Placement struct {
	Entity     EntityID `json:"entity"`
	EntityName string   `json:"entity_name"`
	Node       NodeID   `json:"node"`
	NodeName   string   `json:"node_name"`
}

// Outcome is a snapshot of one complete assignment and its throughput.
type Outcome struct {
	Throughput float64     // aggregate requests per second, +Inf when unconstrained
	NodesUsed  int         // number of distinct processing nodes hosting entities
	Assignment []Placement // in the search's entity order
	Bottleneck Bottleneck
}

// ResultTracker keeps the minimum- and maximum-throughput assignments seen so far.
// On equal throughput both extremes prefer the assignment using fewer distinct
// nodes; remaining ties keep the first one seen.
type ResultTracker struct {
	min *Outcome
	max *Outcome
}

// NewResultTracker creates a tracker with no result yet.
func NewResultTracker() *ResultTracker {
	return &ResultTracker{}
}

// Sample is a candidate for the tracker. The snapshot function is only called when
// the sample becomes a new extreme, so callers can defer building the assignment
// and bottleneck description.
type Sample struct {
	Throughput float64
	NodesUsed  int
	Snapshot   func() *Outcome
}

// Observe records a sample and reports whether it became the new minimum and/or maximum.
func (rt *ResultTracker) Observe(s Sample) (newMin, newMax bool) {
	newMin = rt.min == nil || s.Throughput < rt.min.Throughput ||
		(s.Throughput == rt.min.Throughput && s.NodesUsed < rt.min.NodesUsed)
	newMax = rt.max == nil || s.Throughput > rt.max.Throughput ||
		(s.Throughput == rt.max.Throughput && s.NodesUsed < rt.max.NodesUsed)
	if !newMin && !newMax {
		return false, false
	}
	snap := s.Snapshot()
	snap.Throughput = s.Throughput
	snap.NodesUsed = s.NodesUsed
	if newMin {
		rt.min = snap
	}
	if newMax {
		rt.max = snap
	}
	return newMin, newMax
}

// Merge folds the extremes of other into rt with the same update rule, as if
// other's samples had been observed after rt's.
func (rt *ResultTracker) Merge(other *ResultTracker) {
	if other == nil {
		return
	}
	for _, o := range []*Outcome{other.min, other.max} {
		if o == nil {
			continue
		}
		o := o
		rt.Observe(Sample{Throughput: o.Throughput, NodesUsed: o.NodesUsed, Snapshot: func() *Outcome {
			cp := *o
			return &cp
		}})
	}
}

// HasResult reports whether at least one sample was observed.
func (rt *ResultTracker) HasResult() bool {
	return rt.min != nil
}

// Min returns the minimum-throughput outcome, or nil before the first sample.
func (rt *ResultTracker) Min() *Outcome {
	return rt.min
}

// Max returns the maximum-throughput outcome, or nil before the first sample.
func (rt *ResultTracker) Max() *Outcome {
	return rt.max
}
