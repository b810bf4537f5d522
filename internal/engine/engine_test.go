package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"manifold/internal/manifold"
	"manifold/internal/review"
	"manifold/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	st, err := store.Open(t.TempDir()+"/db/manifold.db", nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	e, err := New(st, t.TempDir()+"/sync", nil)
	require.NoError(t, err)
	return e
}

func TestCreateGetList(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.Create("acme", "Refunds", manifold.BoundaryWork)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	spec, err := e.Get(id)
	require.NoError(t, err)
	require.Equal(t, "Refunds", spec.Name)
	require.Equal(t, manifold.StageRequirements, spec.Stage)

	summaries, err := e.List(manifold.Filter{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
}

func TestPut_RecordsPatchHistory(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.Create("acme", "Refunds", manifold.BoundaryWork)
	require.NoError(t, err)

	spec, err := e.Get(id)
	require.NoError(t, err)
	spec.Requirements = append(spec.Requirements, manifold.Requirement{
		ID: "r1", Capability: "refunds", Title: "Issue refunds", Shall: "The system shall issue refunds within 24h", Priority: manifold.PriorityMust,
	})

	require.NoError(t, e.Put(spec, "alice"))

	reloaded, err := e.Get(id)
	require.NoError(t, err)
	require.Len(t, reloaded.Requirements, 1)
	require.Len(t, reloaded.History.Patches, 1)
	require.Equal(t, "alice", reloaded.History.Patches[0].Actor)
}

func TestWorkflowAdvance_RecordsHistoryAndBlocksOnPrecondition(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.Create("acme", "Refunds", manifold.BoundaryWork)
	require.NoError(t, err)

	_, err = e.WorkflowAdvance(id, "alice")
	require.Error(t, err) // no requirement with a shall yet

	spec, err := e.Get(id)
	require.NoError(t, err)
	spec.Requirements = append(spec.Requirements, manifold.Requirement{ID: "r1", Capability: "refunds", Title: "Issue refunds", Shall: "The system shall issue refunds", Priority: manifold.PriorityMust})
	require.NoError(t, e.Put(spec, "alice"))

	event, err := e.WorkflowAdvance(id, "alice")
	require.NoError(t, err)
	require.Equal(t, manifold.StageDesign, event.ToStage)

	history, err := e.WorkflowHistory(id)
	require.NoError(t, err)
	require.Len(t, history, 1)

	status, err := e.WorkflowStatus(id)
	require.NoError(t, err)
	require.Equal(t, manifold.StageDesign, status)
}

func TestConflictsResolve_TheirsAppliesRemoteValue(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.Create("acme", "Refunds", manifold.BoundaryWork)
	require.NoError(t, err)

	c := manifold.Conflict{
		ID: manifold.NewConflictID(), SpecID: id, FieldPath: "name",
		LocalValue: "Refunds", RemoteValue: "Refunds Renamed", DetectedAt: time.Now(),
		Status: manifold.ConflictUnresolved,
	}
	require.NoError(t, e.store.PutConflict(c))

	require.NoError(t, e.ConflictsResolve(c.ID, manifold.StrategyTheirs, nil, "alice"))

	spec, err := e.Get(id)
	require.NoError(t, err)
	require.Equal(t, "Refunds Renamed", spec.Name)

	resolved, err := e.store.GetConflict(c.ID)
	require.NoError(t, err)
	require.Equal(t, manifold.ConflictResolvedRemote, resolved.Status)
}

func TestConflictsBulk_RejectsManualStrategy(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.Create("acme", "Refunds", manifold.BoundaryWork)
	require.NoError(t, err)

	resolved, failed, failures := e.ConflictsBulk(id, manifold.StrategyManual, "alice")
	require.Equal(t, 0, resolved)
	require.Equal(t, 0, failed)
	require.Len(t, failures, 1)
}

func TestConflictsBulk_OursResolvesAll(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.Create("acme", "Refunds", manifold.BoundaryWork)
	require.NoError(t, err)

	spec, err := e.Get(id)
	require.NoError(t, err)
	spec.Requirements = []manifold.Requirement{
		{ID: "r1", Capability: "one", Title: "One", Shall: "shall one", Priority: manifold.PriorityMust},
		{ID: "r2", Capability: "two", Title: "Two", Shall: "shall two", Priority: manifold.PriorityMust},
	}
	require.NoError(t, e.Put(spec, "alice"))

	for _, id2 := range []string{"r1", "r2"} {
		c := manifold.Conflict{
			ID: manifold.NewConflictID(), SpecID: id, FieldPath: "requirements/" + id2,
			LocalValue:  map[string]interface{}{"id": id2, "title": "Local " + id2, "shall": "shall " + id2},
			RemoteValue: map[string]interface{}{"id": id2, "title": "Remote " + id2, "shall": "shall " + id2},
			DetectedAt:  time.Now(), Status: manifold.ConflictUnresolved,
		}
		require.NoError(t, e.store.PutConflict(c))
	}

	resolved, failed, failures := e.ConflictsBulk(id, manifold.StrategyOurs, "alice")
	require.Equal(t, 2, resolved)
	require.Equal(t, 0, failed)
	require.Empty(t, failures)

	remaining, err := e.ConflictsList(id)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestReviewLifecycle(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.Create("acme", "Refunds", manifold.BoundaryWork)
	require.NoError(t, err)

	reviewID, err := e.ReviewRequest(id, "alice", "bob")
	require.NoError(t, err)

	err = e.ReviewReject(reviewID, "")
	require.Error(t, err)

	require.NoError(t, e.ReviewApprove(reviewID, "lgtm"))

	reviews, err := e.ReviewList(review.Filter{SpecID: id})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, manifold.ReviewApproved, reviews[0].Status)
}
