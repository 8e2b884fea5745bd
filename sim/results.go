package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// Results summarizes a placement search.
type Results struct {
	RunID          string
	Configurations int64   // complete assignments evaluated
	SearchSpace    float64 // nodes^entities, the unpruned count
	Min            *Outcome
	Max            *Outcome
	Elapsed        time.Duration
}

func newRunID() string {
	return xid.New().String()
}

// Print writes the human-readable report: how many assignments were studied, then
// for the worst and the best assignment the throughput, the machines used, the
// entity placement and the limiting resources.
func (r *Results) Print(w io.Writer) {
	fmt.Fprintf(w, "=== Placement Search %s ===\n", r.RunID)
	fmt.Fprintf(w, "Studied %d out of %.0f repartitions in %.2fs\n", r.Configurations, r.SearchSpace, r.Elapsed.Seconds())
	printOutcome(w, "Min", r.Min)
	printOutcome(w, "Max", r.Max)
}

func printOutcome(w io.Writer, label string, o *Outcome) {
	if o == nil {
		fmt.Fprintf(w, "%s throughput: no feasible assignment\n", label)
		return
	}
	fmt.Fprintf(w, "%s throughput found : %s using %d machines\n", label, formatThroughput(o.Throughput), o.NodesUsed)
	pairs := make([]string, len(o.Assignment))
	for i, p := range o.Assignment {
		pairs[i] = fmt.Sprintf("(%s, %s)", p.EntityName, p.NodeName)
	}
	fmt.Fprintln(w, strings.Join(pairs, " "))
	for _, line := range strings.Split(o.Bottleneck.String(), "\n") {
		fmt.Fprintf(w, "\t%s\n", line)
	}
}

func formatThroughput(v float64) string {
	if math.IsInf(v, 1) {
		return "unbounded"
	}
	return fmt.Sprintf("%.1f req/s", v)
}

// jsonRate encodes +Inf, which encoding/json rejects, as the string "unbounded".
type jsonRate float64

func (v jsonRate) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(v), 1) {
		return []byte(`"unbounded"`), nil
	}
	return json.Marshal(float64(v))
}

type jsonResource struct {
	Kind string   `json:"kind"`
	Node *NodeID  `json:"node,omitempty"`
	Name string   `json:"name,omitempty"`
	Src  *NodeID  `json:"src,omitempty"`
	Dst  *NodeID  `json:"dst,omitempty"`
	Rate jsonRate `json:"rate"`
}

type jsonOutcome struct {
	Throughput jsonRate       `json:"throughput"`
	NodesUsed  int            `json:"nodes_used"`
	Assignment []Placement    `json:"assignment"`
	Limiting   []jsonResource `json:"limiting_resources"`
}

type jsonResults struct {
	RunID          string       `json:"run_id"`
	Configurations int64        `json:"configurations"`
	SearchSpace    jsonRate     `json:"search_space"`
	ElapsedSeconds float64      `json:"elapsed_s"`
	Min            *jsonOutcome `json:"min,omitempty"`
	Max            *jsonOutcome `json:"max,omitempty"`
}

func toJSONOutcome(o *Outcome) *jsonOutcome {
	if o == nil {
		return nil
	}
	out := &jsonOutcome{
		Throughput: jsonRate(o.Throughput),
		NodesUsed:  o.NodesUsed,
		Assignment: o.Assignment,
		Limiting:   make([]jsonResource, 0, len(o.Bottleneck.Resources)),
	}
	for _, res := range o.Bottleneck.Resources {
		res := res
		jr := jsonResource{Rate: jsonRate(res.Rate)}
		if res.Kind == NodeResource {
			jr.Kind = "node"
			jr.Node = &res.Node
			jr.Name = res.Name
		} else {
			jr.Kind = "link"
			jr.Src = &res.Link.Src
			jr.Dst = &res.Link.Dst
		}
		out.Limiting = append(out.Limiting, jr)
	}
	return out
}

// MarshalJSON encodes the results with unbounded throughputs as "unbounded".
func (r *Results) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonResults{
		RunID:          r.RunID,
		Configurations: r.Configurations,
		SearchSpace:    jsonRate(r.SearchSpace),
		ElapsedSeconds: r.Elapsed.Seconds(),
		Min:            toJSONOutcome(r.Min),
		Max:            toJSONOutcome(r.Max),
	})
}

// SaveResults writes the results as indented JSON to path.
func (r *Results) SaveResults(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing results to %s: %w", path, err)
	}
	logrus.Debugf("Results written to %s", path)
	return nil
}
