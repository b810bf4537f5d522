package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"manifold/internal/manifold"
)

func newSpec() *manifold.Spec {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &manifold.Spec{
		SpecID:          "quiet-harbor-ledger",
		Project:         "payments",
		Boundary:        manifold.BoundaryWork,
		Name:            "Refund flow",
		Stage:           manifold.StageRequirements,
		StagesCompleted: []manifold.Stage{},
		History:         manifold.History{CreatedAt: now, UpdatedAt: now},
	}
}

func TestAdvance_FailsStageLockedWithNoRequirement(t *testing.T) {
	spec := newSpec()
	_, err := Advance(spec, "u", time.Now())
	require.Error(t, err)
	kind, ok := manifold.KindOf(err)
	require.True(t, ok)
	require.Equal(t, manifold.KindStageLocked, kind)
	require.Equal(t, manifold.StageRequirements, spec.Stage)
}

func TestAdvance_SucceedsWithShallStatement(t *testing.T) {
	spec := newSpec()
	spec.Requirements = []manifold.Requirement{{ID: "r1", Shall: "SHALL do T"}}

	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	event, err := Advance(spec, "u", at)
	require.NoError(t, err)

	require.Equal(t, manifold.StageDesign, spec.Stage)
	require.Equal(t, []manifold.Stage{manifold.StageRequirements}, spec.StagesCompleted)
	require.Equal(t, manifold.StageRequirements, event.FromStage)
	require.Equal(t, manifold.StageDesign, event.ToStage)
	require.Equal(t, at, event.Timestamp)
}

func TestAdvance_DesignToTasksRequiresDecision(t *testing.T) {
	spec := newSpec()
	spec.Stage = manifold.StageDesign

	_, err := Advance(spec, "u", time.Now())
	require.Error(t, err)

	spec.Decisions = []manifold.Decision{{ID: "d1", Title: "Use queue", Decision: "queue it"}}
	_, err = Advance(spec, "u", time.Now())
	require.NoError(t, err)
	require.Equal(t, manifold.StageTasks, spec.Stage)
}

func TestAdvance_TasksToApprovalRequiresLinkedTask(t *testing.T) {
	spec := newSpec()
	spec.Stage = manifold.StageTasks
	spec.Requirements = []manifold.Requirement{{ID: "r1", Shall: "SHALL do T"}}
	spec.Tasks = []manifold.Task{{ID: "t1", Title: "Do it"}}

	_, err := Advance(spec, "u", time.Now())
	require.Error(t, err)

	spec.Tasks[0].RequirementIDs = []string{"r1"}
	_, err = Advance(spec, "u", time.Now())
	require.NoError(t, err)
	require.Equal(t, manifold.StageApproval, spec.Stage)
}

func TestAdvance_ApprovalToImplementedHasNoPrecondition(t *testing.T) {
	spec := newSpec()
	spec.Stage = manifold.StageApproval

	_, err := Advance(spec, "u", time.Now())
	require.NoError(t, err)
	require.Equal(t, manifold.StageImplemented, spec.Stage)
}

func TestAdvance_FromImplementedFailsTerminal(t *testing.T) {
	spec := newSpec()
	spec.Stage = manifold.StageImplemented

	_, err := Advance(spec, "u", time.Now())
	require.Error(t, err)
	kind, ok := manifold.KindOf(err)
	require.True(t, ok)
	require.Equal(t, manifold.KindTerminalStage, kind)
}
