package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/placement-sim/sim"
	"github.com/inference-sim/placement-sim/sim/internal/testutil"
)

const customWorkloadYAML = `
version: "1"
client_multiplier: 4
entities:
  - name: leader
    role: replica
  - name: follower-a
    role: replica
  - name: follower-b
    role: replica
  - name: client
communications:
  - from: client
    to: leader
    bytes: 512
  - from: leader
    to: follower-a
    bytes: 128
  - from: leader
    to: follower-b
    bytes: 128
processings:
  - entity: leader
    cycles: 20000
  - entity: follower-a
    cycles: 5000
roles:
  - name: replica
    leader: true
`

func TestLoadWorkloadSpec_ValidYAML_LoadsCorrectly(t *testing.T) {
	path := testutil.WriteTempFile(t, "workload.yaml", customWorkloadYAML)

	spec, err := LoadWorkloadSpec(path)
	require.NoError(t, err)

	assert.Equal(t, "1", spec.Version)
	assert.Equal(t, 4, spec.ClientMultiplier)
	require.Len(t, spec.Entities, 4)
	assert.Equal(t, EntitySpec{Name: "leader", Role: "replica"}, spec.Entities[0])
	assert.Equal(t, "", spec.Entities[3].Role)
	assert.Equal(t, CommunicationSpec{From: "client", To: "leader", Bytes: 512}, spec.Communications[0])
	assert.Equal(t, 20000.0, spec.Processings[0].Cycles)
	assert.Equal(t, []RoleSpec{{Name: "replica", Leader: true}}, spec.Roles)
	assert.NoError(t, spec.Validate())
}

func TestLoadWorkloadSpec_UnknownKey_ReturnsError(t *testing.T) {
	path := testutil.WriteTempFile(t, "workload.yaml", "version: \"1\"\nentites:\n  - name: a\n")

	_, err := LoadWorkloadSpec(path)

	assert.ErrorContains(t, err, "parsing workload spec")
}

func TestLoadWorkloadSpec_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadWorkloadSpec("/nonexistent/workload.yaml")
	assert.ErrorContains(t, err, "reading workload spec")
}

func TestWorkloadSpec_Build_Custom(t *testing.T) {
	path := testutil.WriteTempFile(t, "workload.yaml", customWorkloadYAML)
	spec, err := LoadWorkloadSpec(path)
	require.NoError(t, err)

	p, err := spec.Build()
	require.NoError(t, err)

	assert.Equal(t, 4, p.NumEntities())
	assert.Equal(t, 4, p.ClientMultiplier())
	client, ok := p.EntityByName("client")
	require.True(t, ok)
	assert.Equal(t, []sim.Communication{{Src: client, Dst: 0, SizeBytes: 512}}, p.Communications(client))
	assert.Len(t, p.Communications(0), 2)

	rule, ok := p.Rule().(*RoleRule)
	require.True(t, ok)
	require.Len(t, rule.Groups(), 1)
	assert.Equal(t, []sim.EntityID{0, 1, 2}, rule.Groups()[0].Members)
	assert.True(t, rule.Groups()[0].Leader)
}

func TestWorkloadSpec_Build_UpRight(t *testing.T) {
	path := testutil.WriteTempFile(t, "workload.yaml", "upright:\n  u: 1\n  r: 1\n  clients: 1\n")
	spec, err := LoadWorkloadSpec(path)
	require.NoError(t, err)

	p, err := spec.Build()
	require.NoError(t, err)

	assert.Equal(t, 4+4+3+1, p.NumEntities())
	assert.Equal(t, 1, p.ClientMultiplier())
}

func TestWorkloadSpec_Build_UpRightWithMultiplier(t *testing.T) {
	spec := &WorkloadSpec{ClientMultiplier: 10, UpRight: &UpRightSpec{U: 0, R: 0, Clients: 1}}

	p, err := spec.Build()

	require.NoError(t, err)
	assert.Equal(t, 10, p.ClientMultiplier())
}

func TestWorkloadSpec_Validate_Errors(t *testing.T) {
	twoEntities := []EntitySpec{{Name: "a"}, {Name: "b", Role: "r"}}
	tests := []struct {
		name    string
		spec    WorkloadSpec
		wantErr string
	}{
		{"bad version", WorkloadSpec{Version: "2", Entities: twoEntities}, "unsupported version"},
		{"negative multiplier", WorkloadSpec{ClientMultiplier: -1, Entities: twoEntities}, "client_multiplier"},
		{"empty", WorkloadSpec{}, "at least one entity"},
		{"unnamed entity", WorkloadSpec{Entities: []EntitySpec{{Role: "r"}}}, "name required"},
		{"duplicate entity", WorkloadSpec{Entities: []EntitySpec{{Name: "a"}, {Name: "a"}}}, "duplicate name"},
		{"unknown source", WorkloadSpec{Entities: twoEntities,
			Communications: []CommunicationSpec{{From: "x", To: "a", Bytes: 1}}}, "unknown entity \"x\""},
		{"zero bytes", WorkloadSpec{Entities: twoEntities,
			Communications: []CommunicationSpec{{From: "a", To: "b"}}}, "communications[0].bytes"},
		{"unknown processing entity", WorkloadSpec{Entities: twoEntities,
			Processings: []ProcessingSpec{{Entity: "z", Cycles: 1}}}, "processings[0]"},
		{"negative cycles", WorkloadSpec{Entities: twoEntities,
			Processings: []ProcessingSpec{{Entity: "a", Cycles: -3}}}, "processings[0].cycles"},
		{"unused role", WorkloadSpec{Entities: twoEntities, Roles: []RoleSpec{{Name: "other"}}}, "no entity has role"},
		{"duplicate role", WorkloadSpec{Entities: twoEntities, Roles: []RoleSpec{{Name: "r"}, {Name: "r"}}}, "duplicate role"},
		{"upright with entities", WorkloadSpec{Entities: twoEntities, UpRight: &UpRightSpec{Clients: 1}}, "cannot be combined"},
		{"upright no clients", WorkloadSpec{UpRight: &UpRightSpec{U: 1}}, "upright.clients"},
		{"upright negative u", WorkloadSpec{UpRight: &UpRightSpec{U: -1, Clients: 1}}, "upright.u"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
