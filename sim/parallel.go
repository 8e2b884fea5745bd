package sim

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/placement-sim/sim/trace"
)

// ParallelConfig tunes RunParallel.
type ParallelConfig struct {
	Workers          int   // maximum concurrent subtrees; <= 0 means GOMAXPROCS
	ProgressInterval int64 // per subtree, see SearchConfig
	// Trace, when non-nil, receives the leaf records of every subtree after the run,
	// in subtree order.
	Trace *trace.SearchTrace
}

// RunParallel explores the same assignments as a sequential Search, split into one
// subtree per feasible node of the first entity. Each subtree runs on its own clone
// of the topology and workload; trackers are merged in subtree order, so the
// extremes equal those of the sequential search.
func RunParallel(ctx context.Context, topo *Topology, wl CloneableWorkload, config ParallelConfig) (*Results, error) {
	if !topo.IsRoutingComplete() {
		return nil, fmt.Errorf("routing table incomplete: %d pairs missing", len(topo.MissingRoutes()))
	}
	if len(topo.ProcessingNodes()) == 0 {
		return nil, fmt.Errorf("topology has no processing node")
	}
	entities := wl.Entities()
	if len(entities) == 0 {
		return nil, fmt.Errorf("workload has no entity")
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	first := entities[0]
	var roots []NodeID
	for _, n := range topo.ProcessingNodes() {
		if wl.Feasible(first, n) {
			roots = append(roots, n)
		}
	}
	logrus.Infof("Searching %d subtrees with %d workers", len(roots), workers)

	start := time.Now()
	searches := make([]*Search, len(roots))
	traces := make([]*trace.SearchTrace, len(roots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cfg := SearchConfig{ProgressInterval: config.ProgressInterval, FirstNodes: []NodeID{root}}
			if config.Trace != nil {
				traces[i] = trace.NewSearchTrace(config.Trace.Config)
				cfg.Trace = traces[i]
			}
			s := NewSearch(topo.Clone(), wl.CloneWorkload(), cfg)
			s.Run()
			searches[i] = s
			logrus.Debugf("Subtree %d (first entity on node %d) done: %d assignments", i, root, s.Configurations())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := NewResultTracker()
	var configurations int64
	for i, s := range searches {
		merged.Merge(s.Tracker())
		configurations += s.Configurations()
		if config.Trace != nil {
			config.Trace.Append(traces[i])
		}
	}
	return &Results{
		RunID:          newRunID(),
		Configurations: configurations,
		SearchSpace:    searchSpace(len(topo.ProcessingNodes()), len(entities)),
		Min:            merged.Min(),
		Max:            merged.Max(),
		Elapsed:        time.Since(start),
	}, nil
}
