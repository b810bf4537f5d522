package store

import (
	"database/sql"
	"fmt"

	"manifold/internal/manifold"
)

// AppendWorkflowEvent journals one stage transition. Events are
// append-only; there is no update or delete path.
func (s *Store) AppendWorkflowEvent(e manifold.WorkflowEvent) error {
	return s.withTx(func(tx *sql.Tx) error {
		return appendWorkflowEventTx(tx, e)
	})
}

func appendWorkflowEventTx(tx *sql.Tx, e manifold.WorkflowEvent) error {
	_, err := tx.Exec(`
		INSERT INTO workflow_events (spec_id, from_stage, to_stage, actor, timestamp, details)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.SpecID, string(e.FromStage), string(e.ToStage), e.Actor, e.Timestamp, e.Details)
	if err != nil {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("append workflow event: %w", err))
	}
	return nil
}

// AdvanceWorkflow persists spec's new stage and journals event in a
// single transaction, so a crash between the stage write and the event
// write can never happen: either both land or neither does.
func (s *Store) AdvanceWorkflow(spec *manifold.Spec, event manifold.WorkflowEvent) error {
	stagesCompleted, requirements, tasks, decisions, patches, err := marshalSpecFields(spec)
	if err != nil {
		return err
	}

	return s.withTx(func(tx *sql.Tx) error {
		if err := putSpecTx(tx, spec, stagesCompleted, requirements, tasks, decisions, patches); err != nil {
			return err
		}
		return appendWorkflowEventTx(tx, event)
	})
}

// ListWorkflowEvents returns the transition history for specID, oldest
// first.
func (s *Store) ListWorkflowEvents(specID string) ([]manifold.WorkflowEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT spec_id, from_stage, to_stage, actor, timestamp, details
		FROM workflow_events WHERE spec_id = ? ORDER BY timestamp ASC, id ASC
	`, specID)
	if err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("list workflow events: %w", err))
	}
	defer rows.Close()

	var out []manifold.WorkflowEvent
	for rows.Next() {
		var e manifold.WorkflowEvent
		var from, to string
		if err := rows.Scan(&e.SpecID, &from, &to, &e.Actor, &e.Timestamp, &e.Details); err != nil {
			return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("scan workflow event: %w", err))
		}
		e.FromStage = manifold.Stage(from)
		e.ToStage = manifold.Stage(to)
		out = append(out, e)
	}
	return out, rows.Err()
}
