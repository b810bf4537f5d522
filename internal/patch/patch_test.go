package patch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"manifold/internal/manifold"
)

func baseSpec() *manifold.Spec {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &manifold.Spec{
		SpecID:          "quiet-harbor-ledger",
		Project:         "payments",
		Boundary:        manifold.BoundaryWork,
		Name:            "Refund flow",
		Stage:           manifold.StageRequirements,
		StagesCompleted: []manifold.Stage{},
		Requirements: []manifold.Requirement{
			{ID: "r1", Capability: "refund", Title: "Issue refund", Shall: "SHALL issue a refund", Priority: manifold.PriorityMust},
		},
		Tasks:     []manifold.Task{},
		Decisions: []manifold.Decision{},
		History:   manifold.History{CreatedAt: now, UpdatedAt: now, Patches: []manifold.Patch{}},
	}
}

func TestDiffApply_RoundTrip_ScalarChange(t *testing.T) {
	old := baseSpec()
	next := old.Clone()
	next.Name = "Refund flow v2"
	next.Stage = manifold.StageDesign

	ops, err := Diff(old, next)
	require.NoError(t, err)
	require.NotEmpty(t, ops)

	got, err := Apply(old, ops)
	require.NoError(t, err)
	require.Equal(t, next.Name, got.Name)
	require.Equal(t, next.Stage, got.Stage)
}

func TestDiffApply_RoundTrip_AddRequirement(t *testing.T) {
	old := baseSpec()
	next := old.Clone()
	next.Requirements = append(next.Requirements, manifold.Requirement{
		ID: "r2", Capability: "void", Title: "Void a refund", Shall: "SHALL void", Priority: manifold.PriorityShould,
	})

	ops, err := Diff(old, next)
	require.NoError(t, err)

	got, err := Apply(old, ops)
	require.NoError(t, err)
	require.Len(t, got.Requirements, 2)
	require.Equal(t, "r2", got.Requirements[1].ID)
}

func TestDiffApply_RoundTrip_RemoveRequirement(t *testing.T) {
	old := baseSpec()
	old.Requirements = append(old.Requirements, manifold.Requirement{ID: "r2", Capability: "void", Title: "Void", Shall: "SHALL void", Priority: manifold.PriorityShould})
	next := old.Clone()
	next.Requirements = next.Requirements[:1]

	ops, err := Diff(old, next)
	require.NoError(t, err)

	got, err := Apply(old, ops)
	require.NoError(t, err)
	require.Len(t, got.Requirements, 1)
	require.Equal(t, "r1", got.Requirements[0].ID)
}

func TestDiffApply_RoundTrip_ReplaceRequirementField(t *testing.T) {
	old := baseSpec()
	next := old.Clone()
	next.Requirements[0].Title = "Issue refund fast"

	ops, err := Diff(old, next)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, "replace", ops[0].Op)

	got, err := Apply(old, ops)
	require.NoError(t, err)
	require.Equal(t, "Issue refund fast", got.Requirements[0].Title)
}

func TestDiffApply_RoundTrip_Reorder(t *testing.T) {
	old := baseSpec()
	old.Requirements = append(old.Requirements, manifold.Requirement{ID: "r2", Capability: "void", Title: "Void", Shall: "SHALL void", Priority: manifold.PriorityShould})
	next := old.Clone()
	next.Requirements[0], next.Requirements[1] = next.Requirements[1], next.Requirements[0]

	ops, err := Diff(old, next)
	require.NoError(t, err)

	got, err := Apply(old, ops)
	require.NoError(t, err)
	require.Equal(t, "r2", got.Requirements[0].ID)
	require.Equal(t, "r1", got.Requirements[1].ID)
}

func TestDiffApply_ArbitraryStates(t *testing.T) {
	old := baseSpec()
	next := baseSpec()
	next.SpecID = old.SpecID
	next.Name = "Totally different"
	next.Description = "New description"
	next.Stage = manifold.StageTasks
	next.StagesCompleted = []manifold.Stage{manifold.StageRequirements, manifold.StageDesign}
	next.Requirements = []manifold.Requirement{
		{ID: "r3", Capability: "reconcile", Title: "Reconcile ledger", Shall: "SHALL reconcile", Priority: manifold.PriorityMust},
	}
	next.Tasks = []manifold.Task{
		{ID: "t1", Title: "Implement reconciliation", Status: manifold.TaskPending, RequirementIDs: []string{"r3"}},
	}
	next.Decisions = []manifold.Decision{
		{ID: "d1", Title: "Use batch job", Decision: "run nightly batch"},
	}

	ops, err := Diff(old, next)
	require.NoError(t, err)

	got, err := Apply(old, ops)
	require.NoError(t, err)
	require.Equal(t, next.Name, got.Name)
	require.Equal(t, next.Stage, got.Stage)
	require.Len(t, got.Requirements, 1)
	require.Equal(t, "r3", got.Requirements[0].ID)
	require.Len(t, got.Tasks, 1)
	require.Len(t, got.Decisions, 1)
}

func TestRecord_AppendsHistoryAndTimestamp(t *testing.T) {
	spec := baseSpec()
	ops := []manifold.Operation{{Op: "replace", Path: "/name", Value: "New name"}}
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	Record(spec, "alice", ops, at)

	require.Len(t, spec.History.Patches, 1)
	require.Equal(t, "alice", spec.History.Patches[0].Actor)
	require.Equal(t, at, spec.History.UpdatedAt)
}

func TestApply_RejectsCyclicMove(t *testing.T) {
	spec := baseSpec()
	ops := []manifold.Operation{
		{Op: "move", From: "/requirements/0", Path: "/requirements/0/scenarios/0"},
	}
	_, err := Apply(spec, ops)
	require.Error(t, err)
}
