package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"manifold/internal/manifold"
)

// PutSpec inserts or replaces spec and synchronously refreshes its
// full-text row in the same transaction as the document write.
func (s *Store) PutSpec(spec *manifold.Spec) error {
	if spec.SpecID == "" {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("spec_id is required"))
	}

	stagesCompleted, requirements, tasks, decisions, patches, err := marshalSpecFields(spec)
	if err != nil {
		return err
	}

	return s.withTx(func(tx *sql.Tx) error {
		return putSpecTx(tx, spec, stagesCompleted, requirements, tasks, decisions, patches)
	})
}

// marshalSpecFields JSON-encodes spec's array and patch-history fields
// ahead of an insert, so a caller combining PutSpec with another write
// under one transaction can marshal once before opening it.
func marshalSpecFields(spec *manifold.Spec) (stagesCompleted, requirements, tasks, decisions, patches []byte, err error) {
	if stagesCompleted, err = json.Marshal(spec.StagesCompleted); err != nil {
		return nil, nil, nil, nil, nil, manifold.Wrap(manifold.KindIO, err)
	}
	if requirements, err = json.Marshal(spec.Requirements); err != nil {
		return nil, nil, nil, nil, nil, manifold.Wrap(manifold.KindIO, err)
	}
	if tasks, err = json.Marshal(spec.Tasks); err != nil {
		return nil, nil, nil, nil, nil, manifold.Wrap(manifold.KindIO, err)
	}
	if decisions, err = json.Marshal(spec.Decisions); err != nil {
		return nil, nil, nil, nil, nil, manifold.Wrap(manifold.KindIO, err)
	}
	if patches, err = json.Marshal(spec.History.Patches); err != nil {
		return nil, nil, nil, nil, nil, manifold.Wrap(manifold.KindIO, err)
	}
	return stagesCompleted, requirements, tasks, decisions, patches, nil
}

// putSpecTx performs the spec upsert and fts reindex against an
// already-open transaction, so callers that need to combine it with
// another write (workflow journaling, conflict resolution) can do so
// atomically under one withTx.
func putSpecTx(tx *sql.Tx, spec *manifold.Spec, stagesCompleted, requirements, tasks, decisions, patches []byte) error {
	_, err := tx.Exec(`
		INSERT INTO specs (
			spec_id, project, boundary, name, description, stage,
			stages_completed, requirements, tasks, decisions,
			created_at, updated_at, patches
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(spec_id) DO UPDATE SET
			project = excluded.project,
			boundary = excluded.boundary,
			name = excluded.name,
			description = excluded.description,
			stage = excluded.stage,
			stages_completed = excluded.stages_completed,
			requirements = excluded.requirements,
			tasks = excluded.tasks,
			decisions = excluded.decisions,
			updated_at = excluded.updated_at,
			patches = excluded.patches
	`,
		spec.SpecID, spec.Project, string(spec.Boundary), spec.Name, spec.Description, string(spec.Stage),
		string(stagesCompleted), string(requirements), string(tasks), string(decisions),
		spec.History.CreatedAt, spec.History.UpdatedAt, string(patches),
	)
	if err != nil {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("upsert spec: %w", err))
	}

	if err := reindexFTS(tx, spec); err != nil {
		return err
	}
	return nil
}

// reindexFTS rewrites spec's row in specs_fts, concatenating requirement,
// task and decision text into a single searchable body column.
func reindexFTS(tx *sql.Tx, spec *manifold.Spec) error {
	if _, err := tx.Exec(`DELETE FROM specs_fts WHERE spec_id = ?`, spec.SpecID); err != nil {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("clear fts row: %w", err))
	}

	var body strings.Builder
	for _, r := range spec.Requirements {
		body.WriteString(r.Title)
		body.WriteByte(' ')
		body.WriteString(r.Shall)
		body.WriteByte(' ')
		body.WriteString(r.Rationale)
		body.WriteByte(' ')
	}
	for _, t := range spec.Tasks {
		body.WriteString(t.Title)
		body.WriteByte(' ')
		body.WriteString(t.Description)
		body.WriteByte(' ')
	}
	for _, d := range spec.Decisions {
		body.WriteString(d.Title)
		body.WriteByte(' ')
		body.WriteString(d.Context)
		body.WriteByte(' ')
		body.WriteString(d.Decision)
		body.WriteByte(' ')
		body.WriteString(d.Rationale)
		body.WriteByte(' ')
	}

	_, err := tx.Exec(`
		INSERT INTO specs_fts (spec_id, project, name, description, body)
		VALUES (?, ?, ?, ?, ?)
	`, spec.SpecID, spec.Project, spec.Name, spec.Description, body.String())
	if err != nil {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("index fts row: %w", err))
	}
	return nil
}

// GetSpec loads one spec by id, returning manifold.ErrNotFound if absent.
func (s *Store) GetSpec(specID string) (*manifold.Spec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT spec_id, project, boundary, name, description, stage,
		       stages_completed, requirements, tasks, decisions,
		       created_at, updated_at, patches
		FROM specs WHERE spec_id = ?
	`, specID)

	return scanSpec(row)
}

func scanSpec(row *sql.Row) (*manifold.Spec, error) {
	var spec manifold.Spec
	var boundary, stage string
	var stagesCompleted, requirements, tasks, decisions, patches string

	err := row.Scan(
		&spec.SpecID, &spec.Project, &boundary, &spec.Name, &spec.Description, &stage,
		&stagesCompleted, &requirements, &tasks, &decisions,
		&spec.History.CreatedAt, &spec.History.UpdatedAt, &patches,
	)
	if err == sql.ErrNoRows {
		return nil, manifold.ErrNotFound
	}
	if err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("scan spec: %w", err))
	}

	spec.Boundary = manifold.Boundary(boundary)
	spec.Stage = manifold.Stage(stage)

	if err := json.Unmarshal([]byte(stagesCompleted), &spec.StagesCompleted); err != nil {
		return nil, manifold.Wrap(manifold.KindIO, err)
	}
	if err := json.Unmarshal([]byte(requirements), &spec.Requirements); err != nil {
		return nil, manifold.Wrap(manifold.KindIO, err)
	}
	if err := json.Unmarshal([]byte(tasks), &spec.Tasks); err != nil {
		return nil, manifold.Wrap(manifold.KindIO, err)
	}
	if err := json.Unmarshal([]byte(decisions), &spec.Decisions); err != nil {
		return nil, manifold.Wrap(manifold.KindIO, err)
	}
	if err := json.Unmarshal([]byte(patches), &spec.History.Patches); err != nil {
		return nil, manifold.Wrap(manifold.KindIO, err)
	}

	return &spec, nil
}

// ListSpecs returns lightweight summaries matching filter. An empty
// filter.Query skips full-text search entirely; a non-empty one joins
// against specs_fts.
func (s *Store) ListSpecs(filter manifold.Filter) ([]manifold.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		where []string
		args  []interface{}
	)
	if filter.Boundary != "" {
		where = append(where, "specs.boundary = ?")
		args = append(args, string(filter.Boundary))
	}
	if filter.Stage != "" {
		where = append(where, "specs.stage = ?")
		args = append(args, string(filter.Stage))
	}

	query := `SELECT specs.spec_id, specs.project, specs.boundary, specs.name, specs.stage, specs.updated_at FROM specs`
	if filter.Query != "" {
		query += ` JOIN specs_fts ON specs_fts.spec_id = specs.spec_id AND specs_fts MATCH ?`
		args = append([]interface{}{filter.Query}, args...)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY specs.updated_at DESC, specs.spec_id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("list specs: %w", err))
	}
	defer rows.Close()

	var out []manifold.Summary
	for rows.Next() {
		var sum manifold.Summary
		var boundary, stage string
		if err := rows.Scan(&sum.SpecID, &sum.Project, &boundary, &sum.Name, &stage, &sum.UpdatedAt); err != nil {
			return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("scan summary: %w", err))
		}
		sum.Boundary = manifold.Boundary(boundary)
		sum.Stage = manifold.Stage(stage)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteSpec removes a spec and its fts row. Auxiliary rows (conflicts,
// reviews, workflow events, sync metadata) are left for audit history
// unless the caller explicitly purges them.
func (s *Store) DeleteSpec(specID string) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM specs WHERE spec_id = ?`, specID)
		if err != nil {
			return manifold.Wrap(manifold.KindIO, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return manifold.ErrNotFound
		}
		if _, err := tx.Exec(`DELETE FROM specs_fts WHERE spec_id = ?`, specID); err != nil {
			return manifold.Wrap(manifold.KindIO, err)
		}
		return nil
	})
}
