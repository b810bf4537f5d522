package store

import (
	"database/sql"
	"fmt"

	"manifold/internal/manifold"
)

// PutReview inserts a new review request.
func (s *Store) PutReview(r manifold.Review) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO reviews (id, spec_id, requester, reviewer, status, comment, requested_at, reviewed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.SpecID, r.Requester, r.Reviewer, string(r.Status), r.Comment, r.RequestedAt, r.ReviewedAt)
		if err != nil {
			return manifold.Wrap(manifold.KindIO, fmt.Errorf("insert review: %w", err))
		}
		return nil
	})
}

// GetReview loads one review by id.
func (s *Store) GetReview(id string) (manifold.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanReviewRow(s.db.QueryRow(`
		SELECT id, spec_id, requester, reviewer, status, comment, requested_at, reviewed_at
		FROM reviews WHERE id = ?
	`, id))
}

func scanReviewRow(row *sql.Row) (manifold.Review, error) {
	var r manifold.Review
	var status string
	err := row.Scan(&r.ID, &r.SpecID, &r.Requester, &r.Reviewer, &status, &r.Comment, &r.RequestedAt, &r.ReviewedAt)
	if err == sql.ErrNoRows {
		return manifold.Review{}, manifold.ErrNotFound
	}
	if err != nil {
		return manifold.Review{}, manifold.Wrap(manifold.KindIO, fmt.Errorf("scan review: %w", err))
	}
	r.Status = manifold.ReviewStatus(status)
	return r, nil
}

// ListReviews returns all reviews recorded against specID, newest first.
func (s *Store) ListReviews(specID string) ([]manifold.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, spec_id, requester, reviewer, status, comment, requested_at, reviewed_at
		FROM reviews WHERE spec_id = ? ORDER BY requested_at DESC
	`, specID)
	if err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("list reviews: %w", err))
	}
	defer rows.Close()

	var out []manifold.Review
	for rows.Next() {
		var r manifold.Review
		var status string
		if err := rows.Scan(&r.ID, &r.SpecID, &r.Requester, &r.Reviewer, &status, &r.Comment, &r.RequestedAt, &r.ReviewedAt); err != nil {
			return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("scan review: %w", err))
		}
		r.Status = manifold.ReviewStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateReviewStatus transitions a review to a new status, stamping
// reviewedAt. Callers (internal/review) enforce that terminal reviews are
// immutable; the store layer applies whatever update it is given.
func (s *Store) UpdateReviewStatus(id string, status manifold.ReviewStatus, comment string, reviewedAt interface{}) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE reviews SET status = ?, comment = ?, reviewed_at = ? WHERE id = ?
		`, string(status), comment, reviewedAt, id)
		if err != nil {
			return manifold.Wrap(manifold.KindIO, fmt.Errorf("update review: %w", err))
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return manifold.ErrNotFound
		}
		return nil
	})
}
