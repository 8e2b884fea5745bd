package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/placement-sim/sim"
)

// WorkloadSpec is the top-level workload configuration.
// Loaded from YAML via LoadWorkloadSpec(path). Either UpRight or Entities is set.
type WorkloadSpec struct {
	Version          string              `yaml:"version"`
	ClientMultiplier int                 `yaml:"client_multiplier,omitempty"` // 0 = default (1)
	Entities         []EntitySpec        `yaml:"entities,omitempty"`
	Communications   []CommunicationSpec `yaml:"communications,omitempty"`
	Processings      []ProcessingSpec    `yaml:"processings,omitempty"`
	Roles            []RoleSpec          `yaml:"roles,omitempty"`
	UpRight          *UpRightSpec        `yaml:"upright,omitempty"`
}

// EntitySpec declares one entity. Entities get ids in declaration order.
type EntitySpec struct {
	Name string `yaml:"name"`
	Role string `yaml:"role,omitempty"`
}

// CommunicationSpec is a per-request message between two named entities.
type CommunicationSpec struct {
	From  string  `yaml:"from"`
	To    string  `yaml:"to"`
	Bytes float64 `yaml:"bytes"`
}

// ProcessingSpec is the per-request CPU work of a named entity.
type ProcessingSpec struct {
	Entity string  `yaml:"entity"`
	Cycles float64 `yaml:"cycles"`
}

// RoleSpec turns every entity carrying role Name into one placement group.
type RoleSpec struct {
	Name         string `yaml:"name"`
	Leader       bool   `yaml:"leader,omitempty"`
	DistinctOnly bool   `yaml:"distinct_only,omitempty"`
}

// UpRightSpec selects the built-in UpRight model.
type UpRightSpec struct {
	U       int `yaml:"u"`
	R       int `yaml:"r"`
	Clients int `yaml:"clients"`
}

var validVersions = map[string]bool{"": true, "1": true}

// LoadWorkloadSpec reads and parses a YAML workload specification file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadWorkloadSpec(path string) (*WorkloadSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload spec: %w", err)
	}
	var spec WorkloadSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing workload spec: %w", err)
	}
	return &spec, nil
}

// Validate checks that all fields in the spec are valid.
func (s *WorkloadSpec) Validate() error {
	if !validVersions[s.Version] {
		return fmt.Errorf("unsupported version %q; valid: 1", s.Version)
	}
	if s.ClientMultiplier < 0 {
		return fmt.Errorf("client_multiplier must be >= 1 when set, got %d", s.ClientMultiplier)
	}
	if s.UpRight != nil {
		if len(s.Entities) > 0 || len(s.Communications) > 0 || len(s.Processings) > 0 || len(s.Roles) > 0 {
			return fmt.Errorf("upright cannot be combined with entities, communications, processings or roles")
		}
		return s.UpRight.validate()
	}
	if len(s.Entities) == 0 {
		return fmt.Errorf("at least one entity or an upright section required")
	}

	names := make(map[string]bool, len(s.Entities))
	roles := make(map[string]bool)
	for i, e := range s.Entities {
		if e.Name == "" {
			return fmt.Errorf("entities[%d]: name required", i)
		}
		if names[e.Name] {
			return fmt.Errorf("entities[%d]: duplicate name %q", i, e.Name)
		}
		names[e.Name] = true
		if e.Role != "" {
			roles[e.Role] = true
		}
	}
	for i, c := range s.Communications {
		prefix := fmt.Sprintf("communications[%d]", i)
		if !names[c.From] {
			return fmt.Errorf("%s: unknown entity %q", prefix, c.From)
		}
		if !names[c.To] {
			return fmt.Errorf("%s: unknown entity %q", prefix, c.To)
		}
		if err := validateFinitePositive(prefix+".bytes", c.Bytes); err != nil {
			return err
		}
	}
	for i, p := range s.Processings {
		prefix := fmt.Sprintf("processings[%d]", i)
		if !names[p.Entity] {
			return fmt.Errorf("%s: unknown entity %q", prefix, p.Entity)
		}
		if err := validateFinitePositive(prefix+".cycles", p.Cycles); err != nil {
			return err
		}
	}
	seenRoles := make(map[string]bool, len(s.Roles))
	for i, r := range s.Roles {
		if !roles[r.Name] {
			return fmt.Errorf("roles[%d]: no entity has role %q", i, r.Name)
		}
		if seenRoles[r.Name] {
			return fmt.Errorf("roles[%d]: duplicate role %q", i, r.Name)
		}
		seenRoles[r.Name] = true
	}
	return nil
}

func (u *UpRightSpec) validate() error {
	if u.U < 0 {
		return fmt.Errorf("upright.u must be non-negative, got %d", u.U)
	}
	if u.R < 0 {
		return fmt.Errorf("upright.r must be non-negative, got %d", u.R)
	}
	if u.Clients < 1 {
		return fmt.Errorf("upright.clients must be >= 1, got %d", u.Clients)
	}
	return nil
}

func validateFinitePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%s must be a finite positive number, got %f", name, v)
	}
	return nil
}

// Build validates the spec and constructs the protocol it describes.
func (s *WorkloadSpec) Build() (*sim.Protocol, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var p *sim.Protocol
	if s.UpRight != nil {
		p = NewUpRight(s.UpRight.U, s.UpRight.R, s.UpRight.Clients)
	} else {
		var err error
		if p, err = s.buildCustom(); err != nil {
			return nil, err
		}
	}
	if s.ClientMultiplier > 0 {
		if err := p.SetClientMultiplier(s.ClientMultiplier); err != nil {
			return nil, err
		}
	}
	logrus.Debugf("Workload built: %d entities, client multiplier %d", p.NumEntities(), p.ClientMultiplier())
	return p, nil
}

func (s *WorkloadSpec) buildCustom() (*sim.Protocol, error) {
	p := sim.NewProtocol()
	ids := make(map[string]sim.EntityID, len(s.Entities))
	for _, e := range s.Entities {
		ids[e.Name] = p.AddEntity(e.Name, e.Role)
	}
	for i, c := range s.Communications {
		if err := p.AddCommunication(ids[c.From], ids[c.To], c.Bytes); err != nil {
			return nil, fmt.Errorf("communications[%d]: %w", i, err)
		}
	}
	for i, pr := range s.Processings {
		if err := p.AddProcessing(ids[pr.Entity], pr.Cycles); err != nil {
			return nil, fmt.Errorf("processings[%d]: %w", i, err)
		}
	}
	for _, e := range s.Entities {
		if len(p.Processings(ids[e.Name])) == 0 && len(p.Communications(ids[e.Name])) == 0 {
			logrus.Warnf("Entity %q has neither processing nor outgoing communication; its placement only affects others' traffic", e.Name)
		}
	}
	if len(s.Roles) == 0 {
		return p, nil
	}
	groups := make([]RoleGroup, 0, len(s.Roles))
	for _, r := range s.Roles {
		g := RoleGroup{Name: r.Name, Leader: r.Leader, DistinctOnly: r.DistinctOnly}
		for _, e := range s.Entities {
			if e.Role == r.Name {
				g.Members = append(g.Members, ids[e.Name])
			}
		}
		groups = append(groups, g)
	}
	rule, err := NewRoleRule(groups...)
	if err != nil {
		return nil, fmt.Errorf("building role rule: %w", err)
	}
	p.SetRule(rule)
	return p, nil
}
