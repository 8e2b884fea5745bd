package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inference-sim/placement-sim/sim/fixtures"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in topologies",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range fixtures.PresetNames() {
			topo := fixtures.Presets[name]()
			fmt.Printf("%-8s %d nodes, %d processing\n", name, topo.NumNodes(), len(topo.ProcessingNodes()))
		}
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
