package cmd

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/placement-sim/sim"
	"github.com/inference-sim/placement-sim/sim/fixtures"
)

// registerInputFlags adds the topology selection flags shared by run and validate.
func registerInputFlags(c *cobra.Command) {
	c.Flags().StringVar(&topologyPath, "topology", "", "Path to a topology YAML file")
	c.Flags().StringVar(&presetName, "preset", "", "Built-in topology ("+strings.Join(fixtures.PresetNames(), ", ")+")")
	c.MarkFlagsMutuallyExclusive("topology", "preset")
	c.MarkFlagsOneRequired("topology", "preset")
}

// loadTopology builds the topology selected by exactly one of path and preset.
// The returned topology has a complete and consistent routing table.
func loadTopology(path, preset string) (*sim.Topology, error) {
	topo, source, err := readTopology(path, preset)
	if err != nil {
		return nil, err
	}
	if missing := topo.MissingRoutes(); len(missing) > 0 {
		return nil, fmt.Errorf("%s: routing table incomplete: %d pairs missing, first %s -> %s",
			source, len(missing), topo.NodeName(missing[0].Src), topo.NodeName(missing[0].Dst))
	}
	if err := topo.CheckRoutes(); err != nil {
		return nil, fmt.Errorf("%s: invalid routing table: %w", source, err)
	}
	return topo, nil
}

// readTopology builds the selected topology without checking its routing table,
// so that validate can report what is missing. source names the input for errors.
func readTopology(path, preset string) (topo *sim.Topology, source string, err error) {
	switch {
	case path != "" && preset != "":
		return nil, "", fmt.Errorf("--topology and --preset are mutually exclusive")
	case path != "":
		spec, err := sim.LoadTopologySpec(path)
		if err != nil {
			return nil, "", err
		}
		if topo, err = spec.BuildPartial(); err != nil {
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		logrus.Infof("Loaded topology from %s", path)
		return topo, path, nil
	case preset != "":
		build, ok := fixtures.Presets[preset]
		if !ok {
			return nil, "", fmt.Errorf("unknown preset %q (available: %s)", preset, strings.Join(fixtures.PresetNames(), ", "))
		}
		logrus.Infof("Using preset topology %s", preset)
		return build(), fmt.Sprintf("preset %q", preset), nil
	default:
		return nil, "", fmt.Errorf("one of --topology or --preset is required")
	}
}
