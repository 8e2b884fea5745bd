package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/placement-sim/sim"
	"github.com/inference-sim/placement-sim/sim/trace"
)

var (
	// Inputs
	topologyPath string // Path to a topology YAML file
	presetName   string // Name of a built-in topology
	workloadPath string // Path to a workload YAML file
	upRightArgs  string // Built-in UpRight workload as "u,r,clients"

	// Search configs
	workers          int    // Concurrent subtrees; <= 1 runs the sequential search
	progressInterval int64  // Complete assignments between progress log lines
	traceLevel       string // Trace verbosity level
	maxTraceLeaves   int    // Cap on stored trace records

	// Output configs
	resultsPath string // File to write the results JSON to
	logLevel    string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "placement-sim",
	Short: "Placement throughput simulator for distributed protocols",
}

// runCmd explores every placement of a workload onto a topology
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search the placements of a workload for the min and max bottleneck throughput",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s (expected none or leaves)", traceLevel)
		}

		topo, err := loadTopology(topologyPath, presetName)
		if err != nil {
			logrus.Fatalf("Topology: %v", err)
		}
		wl, err := loadWorkload(workloadPath, upRightArgs)
		if err != nil {
			logrus.Fatalf("Workload: %v", err)
		}
		logrus.Infof("Topology: %d nodes (%d processing), %d links; workload: %d entities",
			topo.NumNodes(), len(topo.ProcessingNodes()), len(topo.Links()), wl.NumEntities())

		var tr *trace.SearchTrace
		if trace.TraceLevel(traceLevel) == trace.TraceLevelLeaves {
			tr = trace.NewSearchTrace(trace.TraceConfig{Level: trace.TraceLevelLeaves, MaxLeaves: maxTraceLeaves})
		}

		results, err := runSearch(cmd.Context(), topo, wl, workers, progressInterval, tr)
		if err != nil {
			logrus.Fatalf("Search failed: %v", err)
		}

		results.Print(os.Stdout)
		if resultsPath != "" {
			if err := results.SaveResults(resultsPath); err != nil {
				logrus.Fatalf("Saving results: %v", err)
			}
			logrus.Infof("Results written to %s", resultsPath)
		}
		if tr != nil {
			logTraceSummary(tr)
		}

		logrus.Info("Search complete.")
	},
}

// runSearch runs the sequential search when workers <= 1 and the parallel runner
// otherwise. Both leave topo and wl unloaded.
func runSearch(ctx context.Context, topo *sim.Topology, wl *sim.Protocol, workers int, progress int64, tr *trace.SearchTrace) (*sim.Results, error) {
	if missing := topo.MissingRoutes(); len(missing) > 0 {
		return nil, fmt.Errorf("routing table incomplete: %d pairs missing, first %s -> %s",
			len(missing), topo.NodeName(missing[0].Src), topo.NodeName(missing[0].Dst))
	}
	if wl.NumEntities() == 0 {
		return nil, fmt.Errorf("workload has no entity")
	}
	if workers <= 1 {
		return sim.NewSearch(topo, wl, sim.SearchConfig{ProgressInterval: progress, Trace: tr}).Run(), nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return sim.RunParallel(ctx, topo, wl, sim.ParallelConfig{
		Workers:          workers,
		ProgressInterval: progress,
		Trace:            tr,
	})
}

func logTraceSummary(tr *trace.SearchTrace) {
	s := trace.Summarize(tr)
	logrus.Infof("Trace: %d leaves stored (%d dropped), %d unbounded", s.Leaves, tr.Dropped, s.Unbounded)
	if s.Leaves > s.Unbounded {
		logrus.Infof("Trace throughput: mean %.4g, stddev %.4g, min %.4g, p50 %.4g, p90 %.4g, max %.4g",
			s.Mean, s.StdDev, s.Min, s.P50, s.P90, s.Max)
	}
	counts := make([]int, 0, len(s.NodesUsed))
	for n := range s.NodesUsed {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	for _, n := range counts {
		logrus.Debugf("Trace: %d leaves use %d nodes", s.NodesUsed[n], n)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	registerInputFlags(runCmd)
	runCmd.Flags().StringVar(&workloadPath, "workload", "", "Path to a workload YAML file")
	runCmd.Flags().StringVar(&upRightArgs, "upright", "", "Built-in UpRight workload as u,r,clients (e.g. 1,0,1)")
	runCmd.MarkFlagsMutuallyExclusive("workload", "upright")
	runCmd.MarkFlagsOneRequired("workload", "upright")

	runCmd.Flags().IntVar(&workers, "workers", 1, "Concurrent subtrees (<= 1 runs the sequential search)")
	runCmd.Flags().Int64Var(&progressInterval, "progress-interval", sim.DefaultProgressInterval, "Complete assignments between progress log lines (negative disables)")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Trace level (none, leaves)")
	runCmd.Flags().IntVar(&maxTraceLeaves, "trace-max-leaves", 0, "Maximum stored trace records (0 = unlimited)")
	runCmd.Flags().StringVar(&resultsPath, "results", "", "File to save the results JSON to")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
