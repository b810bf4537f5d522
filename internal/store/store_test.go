package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"manifold/internal/manifold"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "manifold.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSpec(id string) *manifold.Spec {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &manifold.Spec{
		SpecID:   id,
		Project:  "payments",
		Boundary: manifold.BoundaryWork,
		Name:     "Refund flow",
		Stage:    manifold.StageRequirements,
		StagesCompleted: []manifold.Stage{},
		Requirements: []manifold.Requirement{
			{ID: "req-1", Capability: "refund", Title: "Issue refund", Shall: "SHALL issue a refund", Priority: manifold.PriorityMust},
		},
		Tasks:     []manifold.Task{},
		Decisions: []manifold.Decision{},
		History: manifold.History{
			CreatedAt: now,
			UpdatedAt: now,
			Patches:   []manifold.Patch{},
		},
	}
}

func TestOpen_CreatesSchemaAndLock(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "manifold.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	require.True(t, tableExists(s.db, "specs"))
	require.True(t, tableExists(s.db, "specs_fts"))
	require.True(t, tableExists(s.db, "sync_metadata"))
	require.True(t, tableExists(s.db, "sync_bases"))
	require.True(t, tableExists(s.db, "conflicts"))
	require.True(t, tableExists(s.db, "reviews"))
	require.True(t, tableExists(s.db, "workflow_events"))

	_, err = os.Stat(filepath.Join(dir, ".lock"))
	require.NoError(t, err)
}

func TestOpen_SecondOpenFailsLocked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifold.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(path, nil)
	require.Error(t, err)
	kind, ok := manifold.KindOf(err)
	require.True(t, ok)
	require.Equal(t, manifold.KindStoreLocked, kind)
}

func TestPutGetSpec_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	spec := sampleSpec("quiet-harbor-ledger")

	require.NoError(t, s.PutSpec(spec))

	got, err := s.GetSpec(spec.SpecID)
	require.NoError(t, err)
	require.Equal(t, spec.SpecID, got.SpecID)
	require.Equal(t, spec.Name, got.Name)
	require.Len(t, got.Requirements, 1)
	require.Equal(t, "req-1", got.Requirements[0].ID)
}

func TestGetSpec_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetSpec("missing")
	require.ErrorIs(t, err, manifold.ErrNotFound)
}

func TestPutSpec_Upsert(t *testing.T) {
	s := openTestStore(t)
	spec := sampleSpec("quiet-harbor-ledger")
	require.NoError(t, s.PutSpec(spec))

	spec.Name = "Refund flow v2"
	require.NoError(t, s.PutSpec(spec))

	got, err := s.GetSpec(spec.SpecID)
	require.NoError(t, err)
	require.Equal(t, "Refund flow v2", got.Name)
}

func TestListSpecs_FiltersAndSearch(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutSpec(sampleSpec("quiet-harbor-ledger")))

	personal := sampleSpec("bold-otter-compass")
	personal.Boundary = manifold.BoundaryPersonal
	personal.Name = "Grocery list"
	personal.Requirements = []manifold.Requirement{
		{ID: "req-1", Capability: "shopping", Title: "Buy milk", Shall: "SHALL list groceries", Priority: manifold.PriorityMust},
	}
	require.NoError(t, s.PutSpec(personal))

	all, err := s.ListSpecs(manifold.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	work, err := s.ListSpecs(manifold.Filter{Boundary: manifold.BoundaryWork})
	require.NoError(t, err)
	require.Len(t, work, 1)
	require.Equal(t, "quiet-harbor-ledger", work[0].SpecID)

	found, err := s.ListSpecs(manifold.Filter{Query: "refund"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "quiet-harbor-ledger", found[0].SpecID)
}

func TestDeleteSpec(t *testing.T) {
	s := openTestStore(t)
	spec := sampleSpec("quiet-harbor-ledger")
	require.NoError(t, s.PutSpec(spec))

	require.NoError(t, s.DeleteSpec(spec.SpecID))
	_, err := s.GetSpec(spec.SpecID)
	require.ErrorIs(t, err, manifold.ErrNotFound)

	require.ErrorIs(t, s.DeleteSpec(spec.SpecID), manifold.ErrNotFound)
}

func TestSyncMetadata_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	spec := sampleSpec("quiet-harbor-ledger")
	require.NoError(t, s.PutSpec(spec))

	meta := manifold.SyncMetadata{
		SpecID:            spec.SpecID,
		LastSyncTimestamp: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		LastSyncHash:      "abc123",
		RemoteBranch:      "main",
		SyncStatus:        manifold.SyncClean,
	}
	require.NoError(t, s.PutSyncMetadata(meta))

	got, err := s.GetSyncMetadata(spec.SpecID)
	require.NoError(t, err)
	require.Equal(t, meta.LastSyncHash, got.LastSyncHash)
	require.Equal(t, manifold.SyncClean, got.SyncStatus)
}

func TestSyncBase_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutSyncBase("hash1", []byte(`{"a":1}`)))

	content, err := s.GetSyncBase("hash1")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(content))

	_, err = s.GetSyncBase("missing")
	require.ErrorIs(t, err, manifold.ErrNotFound)
}

func TestConflicts_PutListResolve(t *testing.T) {
	s := openTestStore(t)
	spec := sampleSpec("quiet-harbor-ledger")
	require.NoError(t, s.PutSpec(spec))

	c := manifold.Conflict{
		ID:         manifold.NewConflictID(),
		SpecID:     spec.SpecID,
		FieldPath:  "/requirements/0/title",
		LocalValue: "Issue refund fast",
		RemoteValue: "Issue refund quickly",
		DetectedAt: time.Now().UTC(),
		Status:     manifold.ConflictUnresolved,
	}
	require.NoError(t, s.PutConflict(c))

	unresolved, err := s.ListConflicts(spec.SpecID, true)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)

	require.NoError(t, s.SetConflictStatus(c.ID, manifold.ConflictResolvedMerged))

	unresolved, err = s.ListConflicts(spec.SpecID, true)
	require.NoError(t, err)
	require.Len(t, unresolved, 0)

	all, err := s.ListConflicts(spec.SpecID, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].Status.IsResolved())
}

func TestReviews_PutGetUpdate(t *testing.T) {
	s := openTestStore(t)
	spec := sampleSpec("quiet-harbor-ledger")
	require.NoError(t, s.PutSpec(spec))

	r := manifold.Review{
		ID:          manifold.NewReviewID(),
		SpecID:      spec.SpecID,
		Requester:   "alice",
		Reviewer:    "bob",
		Status:      manifold.ReviewPending,
		RequestedAt: time.Now().UTC(),
	}
	require.NoError(t, s.PutReview(r))

	got, err := s.GetReview(r.ID)
	require.NoError(t, err)
	require.Equal(t, manifold.ReviewPending, got.Status)

	now := time.Now().UTC()
	require.NoError(t, s.UpdateReviewStatus(r.ID, manifold.ReviewApproved, "looks good", now))

	got, err = s.GetReview(r.ID)
	require.NoError(t, err)
	require.Equal(t, manifold.ReviewApproved, got.Status)
	require.Equal(t, "looks good", got.Comment)

	list, err := s.ListReviews(spec.SpecID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestWorkflowEvents_AppendAndList(t *testing.T) {
	s := openTestStore(t)
	spec := sampleSpec("quiet-harbor-ledger")
	require.NoError(t, s.PutSpec(spec))

	e1 := manifold.WorkflowEvent{
		SpecID: spec.SpecID, FromStage: manifold.StageRequirements, ToStage: manifold.StageDesign,
		Actor: "alice", Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	e2 := manifold.WorkflowEvent{
		SpecID: spec.SpecID, FromStage: manifold.StageDesign, ToStage: manifold.StageTasks,
		Actor: "alice", Timestamp: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.AppendWorkflowEvent(e1))
	require.NoError(t, s.AppendWorkflowEvent(e2))

	events, err := s.ListWorkflowEvents(spec.SpecID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, manifold.StageRequirements, events[0].FromStage)
	require.Equal(t, manifold.StageTasks, events[1].ToStage)
}
