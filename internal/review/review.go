// Package review provides the review ledger's lifecycle rules on
// top of the store's plain CRUD rows: thin business rules wrapped
// around direct *sql-backed reads/writes, with zap logging at the call
// site rather than inside the store layer.
package review

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"manifold/internal/manifold"
)

// ErrTerminal is returned when a mutation is attempted against a review
// already in a terminal status. The error taxonomy names no dedicated
// kind for this case, so it is a plain sentinel rather than a
// manifold.Kind; callers distinguish it with errors.Is.
var ErrTerminal = errors.New("review is in a terminal status and cannot change")

// Store is the subset of *store.Store the ledger needs, kept as an
// interface so the package can be tested without sqlite.
type Store interface {
	PutReview(r manifold.Review) error
	GetReview(id string) (manifold.Review, error)
	ListReviews(specID string) ([]manifold.Review, error)
	UpdateReviewStatus(id string, status manifold.ReviewStatus, comment string, reviewedAt interface{}) error
}

// Ledger wraps Store with the lifecycle rules.
type Ledger struct {
	store  Store
	logger *zap.Logger
}

func New(store Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, logger: logger}
}

// Request opens a new review against specID, returning its id.
func (l *Ledger) Request(specID, requester, reviewer string, now time.Time) (string, error) {
	id := manifold.NewReviewID()
	r := manifold.Review{
		ID:          id,
		SpecID:      specID,
		Requester:   requester,
		Reviewer:    reviewer,
		Status:      manifold.ReviewPending,
		RequestedAt: now,
	}
	if err := l.store.PutReview(r); err != nil {
		return "", err
	}
	l.logger.Info("review requested", zap.String("review_id", id), zap.String("spec_id", specID))
	return id, nil
}

// Approve transitions a review to approved. comment is optional.
func (l *Ledger) Approve(reviewID, comment string, now time.Time) error {
	return l.transition(reviewID, manifold.ReviewApproved, comment, now)
}

// Reject transitions a review to rejected. comment is required.
func (l *Ledger) Reject(reviewID, comment string, now time.Time) error {
	if comment == "" {
		return manifold.Wrap(manifold.KindManualValueRequired, fmt.Errorf("rejecting a review requires a comment"))
	}
	return l.transition(reviewID, manifold.ReviewRejected, comment, now)
}

// Cancel transitions a review to cancelled.
func (l *Ledger) Cancel(reviewID, comment string, now time.Time) error {
	return l.transition(reviewID, manifold.ReviewCancelled, comment, now)
}

func (l *Ledger) transition(reviewID string, status manifold.ReviewStatus, comment string, now time.Time) error {
	existing, err := l.store.GetReview(reviewID)
	if err != nil {
		return err
	}
	if existing.Status.IsTerminal() {
		return ErrTerminal
	}
	if err := l.store.UpdateReviewStatus(reviewID, status, comment, now); err != nil {
		return err
	}
	l.logger.Info("review transitioned", zap.String("review_id", reviewID), zap.String("status", string(status)))
	return nil
}

// Get returns one review by id.
func (l *Ledger) Get(reviewID string) (manifold.Review, error) {
	return l.store.GetReview(reviewID)
}

// Filter narrows List results.
type Filter struct {
	SpecID    string
	Reviewer  string
	Requester string
	Status    manifold.ReviewStatus
}

// List returns reviews for specID matching the remaining filter fields.
// specID is required because the store only indexes reviews by spec;
// reviewer/requester/status narrow the in-memory result further.
func (l *Ledger) List(filter Filter) ([]manifold.Review, error) {
	all, err := l.store.ListReviews(filter.SpecID)
	if err != nil {
		return nil, err
	}

	var out []manifold.Review
	for _, r := range all {
		if filter.Reviewer != "" && r.Reviewer != filter.Reviewer {
			continue
		}
		if filter.Requester != "" && r.Requester != filter.Requester {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
