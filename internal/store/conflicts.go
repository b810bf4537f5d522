package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"manifold/internal/manifold"
)

// PutConflict inserts a newly detected conflict row.
func (s *Store) PutConflict(c manifold.Conflict) error {
	localJSON, err := json.Marshal(c.LocalValue)
	if err != nil {
		return manifold.Wrap(manifold.KindIO, err)
	}
	remoteJSON, err := json.Marshal(c.RemoteValue)
	if err != nil {
		return manifold.Wrap(manifold.KindIO, err)
	}
	baseJSON, err := json.Marshal(c.BaseValue)
	if err != nil {
		return manifold.Wrap(manifold.KindIO, err)
	}

	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO conflicts (id, spec_id, field_path, local_value, remote_value, base_value, detected_at, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.SpecID, c.FieldPath, string(localJSON), string(remoteJSON), string(baseJSON), c.DetectedAt, string(c.Status))
		if err != nil {
			return manifold.Wrap(manifold.KindIO, fmt.Errorf("insert conflict: %w", err))
		}
		return nil
	})
}

// ListConflicts returns conflicts for specID. If onlyUnresolved is true,
// resolved conflicts (any terminal status) are excluded.
func (s *Store) ListConflicts(specID string, onlyUnresolved bool) ([]manifold.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, spec_id, field_path, local_value, remote_value, base_value, detected_at, status FROM conflicts WHERE spec_id = ?`
	if onlyUnresolved {
		query += ` AND status = 'unresolved'`
	}
	query += ` ORDER BY detected_at ASC`

	rows, err := s.db.Query(query, specID)
	if err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("list conflicts: %w", err))
	}
	defer rows.Close()

	var out []manifold.Conflict
	for rows.Next() {
		var c manifold.Conflict
		var localJSON, remoteJSON, baseJSON, status string
		if err := rows.Scan(&c.ID, &c.SpecID, &c.FieldPath, &localJSON, &remoteJSON, &baseJSON, &c.DetectedAt, &status); err != nil {
			return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("scan conflict: %w", err))
		}
		c.Status = manifold.ConflictStatus(status)
		if err := json.Unmarshal([]byte(localJSON), &c.LocalValue); err != nil {
			return nil, manifold.Wrap(manifold.KindIO, err)
		}
		if err := json.Unmarshal([]byte(remoteJSON), &c.RemoteValue); err != nil {
			return nil, manifold.Wrap(manifold.KindIO, err)
		}
		if err := json.Unmarshal([]byte(baseJSON), &c.BaseValue); err != nil {
			return nil, manifold.Wrap(manifold.KindIO, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConflict loads a single conflict by id.
func (s *Store) GetConflict(id string) (manifold.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c manifold.Conflict
	var localJSON, remoteJSON, baseJSON, status string
	err := s.db.QueryRow(`
		SELECT id, spec_id, field_path, local_value, remote_value, base_value, detected_at, status
		FROM conflicts WHERE id = ?
	`, id).Scan(&c.ID, &c.SpecID, &c.FieldPath, &localJSON, &remoteJSON, &baseJSON, &c.DetectedAt, &status)
	if err == sql.ErrNoRows {
		return manifold.Conflict{}, manifold.ErrNotFound
	}
	if err != nil {
		return manifold.Conflict{}, manifold.Wrap(manifold.KindIO, fmt.Errorf("get conflict: %w", err))
	}
	c.Status = manifold.ConflictStatus(status)
	json.Unmarshal([]byte(localJSON), &c.LocalValue)
	json.Unmarshal([]byte(remoteJSON), &c.RemoteValue)
	json.Unmarshal([]byte(baseJSON), &c.BaseValue)
	return c, nil
}

// SetConflictStatus transitions a conflict to a resolved status.
func (s *Store) SetConflictStatus(id string, status manifold.ConflictStatus) error {
	return s.withTx(func(tx *sql.Tx) error {
		return setConflictStatusTx(tx, id, status)
	})
}

func setConflictStatusTx(tx *sql.Tx, id string, status manifold.ConflictStatus) error {
	res, err := tx.Exec(`UPDATE conflicts SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("update conflict status: %w", err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return manifold.ErrNotFound
	}
	return nil
}

// ResolveConflict persists the resolved spec and marks conflictID with
// its terminal status in one transaction, so a crash between the two
// writes can never leave the spec mutated while the conflict still
// reads unresolved (which would make a retry reapply the resolution).
func (s *Store) ResolveConflict(spec *manifold.Spec, conflictID string, status manifold.ConflictStatus) error {
	stagesCompleted, requirements, tasks, decisions, patches, err := marshalSpecFields(spec)
	if err != nil {
		return err
	}

	return s.withTx(func(tx *sql.Tx) error {
		if err := putSpecTx(tx, spec, stagesCompleted, requirements, tasks, decisions, patches); err != nil {
			return err
		}
		return setConflictStatusTx(tx, conflictID, status)
	})
}
