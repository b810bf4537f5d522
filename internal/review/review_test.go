package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"manifold/internal/manifold"
)

type fakeStore struct {
	reviews map[string]manifold.Review
}

func newFakeStore() *fakeStore { return &fakeStore{reviews: map[string]manifold.Review{}} }

func (f *fakeStore) PutReview(r manifold.Review) error {
	f.reviews[r.ID] = r
	return nil
}

func (f *fakeStore) GetReview(id string) (manifold.Review, error) {
	r, ok := f.reviews[id]
	if !ok {
		return manifold.Review{}, manifold.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) ListReviews(specID string) ([]manifold.Review, error) {
	var out []manifold.Review
	for _, r := range f.reviews {
		if r.SpecID == specID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateReviewStatus(id string, status manifold.ReviewStatus, comment string, reviewedAt interface{}) error {
	r, ok := f.reviews[id]
	if !ok {
		return manifold.ErrNotFound
	}
	r.Status = status
	r.Comment = comment
	if ts, ok := reviewedAt.(time.Time); ok {
		r.ReviewedAt = &ts
	}
	f.reviews[id] = r
	return nil
}

func TestRequest_CreatesPendingReview(t *testing.T) {
	store := newFakeStore()
	ledger := New(store, nil)

	id, err := ledger.Request("spec-1", "alice", "bob", time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := ledger.Get(id)
	require.NoError(t, err)
	require.Equal(t, manifold.ReviewPending, got.Status)
}

func TestReject_RequiresComment(t *testing.T) {
	store := newFakeStore()
	ledger := New(store, nil)
	id, _ := ledger.Request("spec-1", "alice", "bob", time.Now())

	err := ledger.Reject(id, "", time.Now())
	require.Error(t, err)
	kind, ok := manifold.KindOf(err)
	require.True(t, ok)
	require.Equal(t, manifold.KindManualValueRequired, kind)

	err = ledger.Reject(id, "needs work", time.Now())
	require.NoError(t, err)

	got, err := ledger.Get(id)
	require.NoError(t, err)
	require.Equal(t, manifold.ReviewRejected, got.Status)
	require.NotNil(t, got.ReviewedAt)
}

func TestApprove_TerminalCannotChange(t *testing.T) {
	store := newFakeStore()
	ledger := New(store, nil)
	id, _ := ledger.Request("spec-1", "alice", "bob", time.Now())

	require.NoError(t, ledger.Approve(id, "lgtm", time.Now()))
	err := ledger.Reject(id, "changed my mind", time.Now())
	require.ErrorIs(t, err, ErrTerminal)
}

func TestList_FiltersByStatusAndReviewer(t *testing.T) {
	store := newFakeStore()
	ledger := New(store, nil)
	id1, _ := ledger.Request("spec-1", "alice", "bob", time.Now())
	_, _ = ledger.Request("spec-1", "carol", "dave", time.Now())
	require.NoError(t, ledger.Approve(id1, "", time.Now()))

	approved, err := ledger.List(Filter{SpecID: "spec-1", Status: manifold.ReviewApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, id1, approved[0].ID)

	byReviewer, err := ledger.List(Filter{SpecID: "spec-1", Reviewer: "dave"})
	require.NoError(t, err)
	require.Len(t, byReviewer, 1)
}
