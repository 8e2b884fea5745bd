package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/placement-sim/sim"
)

var printRoutes bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a topology and print a summary of its routing table",
	Run: func(cmd *cobra.Command, args []string) {
		topo, _, err := readTopology(topologyPath, presetName)
		if err != nil {
			logrus.Fatalf("Topology: %v", err)
		}
		if !printTopologySummary(os.Stdout, topo, printRoutes) {
			os.Exit(1)
		}
	},
}

// printTopologySummary writes node, link and route counts, the missing routes and
// the first broken route if any, and with routes set every non-self routing entry
// by node name. Reports whether the topology is ready for a search.
func printTopologySummary(w io.Writer, topo *sim.Topology, routes bool) bool {
	_, _ = fmt.Fprintf(w, "Nodes: %d (%d processing)\n", topo.NumNodes(), len(topo.ProcessingNodes()))
	_, _ = fmt.Fprintf(w, "Links: %d\n", len(topo.Links()))
	_, _ = fmt.Fprintf(w, "Routes: %d\n", topo.NumRoutes())
	missing := topo.MissingRoutes()
	for _, m := range missing {
		_, _ = fmt.Fprintf(w, "missing route: %s -> %s\n", topo.NodeName(m.Src), topo.NodeName(m.Dst))
	}
	checkErr := topo.CheckRoutes()
	if checkErr != nil {
		_, _ = fmt.Fprintf(w, "invalid routing: %v\n", checkErr)
	}
	if routes {
		printRouteTable(w, topo)
	}
	return len(missing) == 0 && checkErr == nil
}

func printRouteTable(w io.Writer, topo *sim.Topology) {
	for _, r := range topo.Routes() {
		if r.Src == r.Dst {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s -> %s via %s\n", topo.NodeName(r.Src), topo.NodeName(r.Dst), topo.NodeName(r.NextHop))
	}
}

func init() {
	registerInputFlags(validateCmd)
	validateCmd.Flags().BoolVar(&printRoutes, "routes", false, "Print every route by node name")

	rootCmd.AddCommand(validateCmd)
}
