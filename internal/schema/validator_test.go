package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"manifold/internal/manifold"
)

func validSpec() *manifold.Spec {
	now := time.Now().UTC()
	return &manifold.Spec{
		SpecID:          "quiet-harbor-ledger",
		Project:         "payments",
		Boundary:        manifold.BoundaryWork,
		Name:            "Refund flow",
		Stage:           manifold.StageRequirements,
		StagesCompleted: []manifold.Stage{},
		Requirements: []manifold.Requirement{
			{ID: "req-1", Capability: "refund", Title: "Issue refund", Shall: "SHALL issue a refund", Priority: manifold.PriorityMust},
		},
		Tasks:     []manifold.Task{},
		Decisions: []manifold.Decision{},
		History:   manifold.History{CreatedAt: now, UpdatedAt: now, Patches: []manifold.Patch{}},
	}
}

func TestValidate_AcceptsValidSpec(t *testing.T) {
	v, err := New()
	require.NoError(t, err)
	require.NoError(t, v.Validate(validSpec(), false))
}

func TestValidate_RejectsMissingRequiredField(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	spec := validSpec()
	spec.Name = ""

	err = v.Validate(spec, false)
	require.Error(t, err)
	var verrs manifold.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.NotEmpty(t, verrs)
}

func TestValidate_RejectsInvalidBoundaryEnum(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	spec := validSpec()
	spec.Boundary = "invalid"

	require.Error(t, v.Validate(spec, false))
}

func TestValidate_StrictRejectsMissingShallAtDesignStage(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	spec := validSpec()
	spec.Stage = manifold.StageDesign
	spec.Requirements[0].Shall = ""

	require.NoError(t, v.Validate(spec, false), "normal mode ignores semantic rule")

	err = v.Validate(spec, true)
	require.Error(t, err)
	var verrs manifold.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	found := false
	for _, e := range verrs {
		if e.Path == "requirements/0/shall" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidate_StrictRejectsTaskWithoutRequirementIDsAtTasksStage(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	spec := validSpec()
	spec.Stage = manifold.StageTasks
	spec.Tasks = []manifold.Task{{ID: "t1", Title: "Do it", Status: manifold.TaskPending}}

	err = v.Validate(spec, true)
	require.Error(t, err)
}

func TestValidate_StrictAcceptsTaskWithRequirementIDs(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	spec := validSpec()
	spec.Stage = manifold.StageTasks
	spec.Tasks = []manifold.Task{{ID: "t1", Title: "Do it", Status: manifold.TaskPending, RequirementIDs: []string{"req-1"}}}

	require.NoError(t, v.Validate(spec, true))
}
