package manifold

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSpec() *Spec {
	return &Spec{
		SpecID:      "quiet-harbor-ledger",
		Project:     "payments",
		Boundary:    BoundaryWork,
		Name:        "Refund flow",
		Description: "Handles customer refunds",
		Stage:       StageDesign,
		StagesCompleted: []Stage{StageRequirements},
		Requirements: []Requirement{
			{ID: "req-1", Capability: "refund", Title: "Issue refund", Shall: "SHALL issue a refund", Priority: PriorityMust},
		},
		Tasks:     []Task{},
		Decisions: []Decision{{ID: "dec-1", Title: "Use async queue", Decision: "queue refunds"}},
		History: History{
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			Patches:   []Patch{},
		},
	}
}

func TestMarshalCanonical_TopLevelKeyOrder(t *testing.T) {
	out, err := MarshalCanonical(sampleSpec())
	require.NoError(t, err)
	s := string(out)

	order := []string{"$schema", "spec_id", "project", "boundary", "name", "description", "stage", "stages_completed", "requirements", "tasks", "decisions", "history"}
	lastIdx := -1
	for _, key := range order {
		idx := strings.Index(s, "\""+key+"\":")
		require.GreaterOrEqual(t, idx, 0, "missing key %q", key)
		assert.Greater(t, idx, lastIdx, "key %q out of order", key)
		lastIdx = idx
	}
	assert.True(t, strings.HasSuffix(s, "}\n"), "must end with trailing newline")
}

func TestMarshalCanonical_RoundTrip(t *testing.T) {
	original := sampleSpec()
	out, err := MarshalCanonical(original)
	require.NoError(t, err)

	parsed, err := UnmarshalCanonical(out)
	require.NoError(t, err)

	reEncoded, err := MarshalCanonical(parsed)
	require.NoError(t, err)

	assert.Equal(t, out, reEncoded, "re-encoding a parsed spec must be byte-identical")
}

func TestMarshalCanonical_NestedKeysAlphabetized(t *testing.T) {
	out, err := MarshalCanonical(sampleSpec())
	require.NoError(t, err)
	s := string(out)

	capIdx := strings.Index(s, "\"capability\":")
	idIdx := strings.Index(s, "\"id\":")
	require.GreaterOrEqual(t, capIdx, 0)
	require.GreaterOrEqual(t, idIdx, 0)
	assert.Less(t, capIdx, idIdx, "capability should sort before id alphabetically")
}

func TestNewSpecID_Shape(t *testing.T) {
	id := NewSpecID()
	parts := strings.Split(id, "-")
	require.Len(t, parts, 3, "spec_id must be an adjective-noun-noun triple: %q", id)
	assert.NotEqual(t, parts[1], parts[2], "the two nouns should not collide")
}

func TestStage_AtLeast(t *testing.T) {
	assert.True(t, StageDesign.AtLeast(StageRequirements))
	assert.False(t, StageRequirements.AtLeast(StageDesign))
	assert.True(t, StageTasks.AtLeast(StageTasks))
	assert.False(t, Stage("bogus").AtLeast(StageRequirements))
}
