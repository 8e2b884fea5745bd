package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/placement-sim/sim"
	"github.com/inference-sim/placement-sim/sim/workload"
)

// parseUpRight parses "u,r,clients" into an UpRight spec.
// Value ranges are checked when the spec is built.
func parseUpRight(s string) (*workload.UpRightSpec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("--upright expects u,r,clients, got %q", s)
	}
	vals := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("--upright: field %d: %w", i, err)
		}
		vals[i] = v
	}
	return &workload.UpRightSpec{U: vals[0], R: vals[1], Clients: vals[2]}, nil
}

// loadWorkload builds the workload selected by exactly one of path and upright.
func loadWorkload(path, upright string) (*sim.Protocol, error) {
	var spec *workload.WorkloadSpec
	switch {
	case path != "" && upright != "":
		return nil, fmt.Errorf("--workload and --upright are mutually exclusive")
	case path != "":
		var err error
		if spec, err = workload.LoadWorkloadSpec(path); err != nil {
			return nil, err
		}
		logrus.Infof("Loaded workload from %s", path)
	case upright != "":
		u, err := parseUpRight(upright)
		if err != nil {
			return nil, err
		}
		spec = &workload.WorkloadSpec{UpRight: u}
		logrus.Infof("Using UpRight workload u=%d r=%d clients=%d", u.U, u.R, u.Clients)
	default:
		return nil, fmt.Errorf("one of --workload or --upright is required")
	}
	return spec.Build()
}
