// Package workflow provides the spec's stage state machine
// (requirements → design → tasks → approval → implemented), backed by
// looplab/fsm. Each call to Advance builds a fresh machine seeded at the
// spec's current stage; preconditions are evaluated against that spec's
// own content through the before-event callback.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"manifold/internal/manifold"
)

const eventAdvance = "advance"

// transitions is the fixed stage graph. fsm accepts multiple
// EventDesc entries sharing a name, one per (src, dst) pair.
var transitions = []fsm.EventDesc{
	{Name: eventAdvance, Src: []string{string(manifold.StageRequirements)}, Dst: string(manifold.StageDesign)},
	{Name: eventAdvance, Src: []string{string(manifold.StageDesign)}, Dst: string(manifold.StageTasks)},
	{Name: eventAdvance, Src: []string{string(manifold.StageTasks)}, Dst: string(manifold.StageApproval)},
	{Name: eventAdvance, Src: []string{string(manifold.StageApproval)}, Dst: string(manifold.StageImplemented)},
}

// Status returns spec's current stage.
func Status(spec *manifold.Spec) manifold.Stage { return spec.Stage }

// Advance attempts to move spec to its next stage. On success it mutates
// spec (new stage, stages_completed appended) and returns the
// WorkflowEvent to journal in the same transaction as the spec write.
//
// Fails with manifold.ErrTerminalStage from the implemented stage, or
// manifold.ErrStageLocked if the destination's precondition does not
// hold.
func Advance(spec *manifold.Spec, actor string, now time.Time) (manifold.WorkflowEvent, error) {
	if spec.Stage == manifold.StageImplemented {
		return manifold.WorkflowEvent{}, manifold.Wrap(manifold.KindTerminalStage, fmt.Errorf("spec %s is already implemented", spec.SpecID))
	}

	var preconditionErr error
	machine := fsm.NewFSM(string(spec.Stage), transitions, fsm.Callbacks{
		"before_" + eventAdvance: func(_ context.Context, e *fsm.Event) {
			dst := manifold.Stage(e.Dst)
			if ok, reason := preconditionHolds(spec, dst); !ok {
				preconditionErr = fmt.Errorf("%s: %s", dst, reason)
				e.Cancel(preconditionErr)
			}
		},
	})

	from := spec.Stage
	if err := machine.Event(context.Background(), eventAdvance); err != nil {
		var canceled fsm.CanceledError
		if errors.As(err, &canceled) {
			return manifold.WorkflowEvent{}, manifold.Wrap(manifold.KindStageLocked, preconditionErr)
		}
		return manifold.WorkflowEvent{}, manifold.Wrap(manifold.KindStageLocked, fmt.Errorf("no transition from %s: %w", from, err))
	}

	to := manifold.Stage(machine.Current())
	spec.StagesCompleted = append(spec.StagesCompleted, from)
	spec.Stage = to
	spec.History.UpdatedAt = now

	event := manifold.WorkflowEvent{
		SpecID:    spec.SpecID,
		FromStage: from,
		ToStage:   to,
		Actor:     actor,
		Timestamp: now,
	}
	return event, nil
}

// preconditionHolds evaluates the precondition table for a
// transition into dst.
func preconditionHolds(spec *manifold.Spec, dst manifold.Stage) (bool, string) {
	switch dst {
	case manifold.StageDesign:
		for _, r := range spec.Requirements {
			if r.Shall != "" {
				return true, ""
			}
		}
		return false, "no requirement has a non-empty shall statement"

	case manifold.StageTasks:
		if len(spec.Decisions) == 0 {
			return false, "no decision is present"
		}
		return true, ""

	case manifold.StageApproval:
		known := make(map[string]bool, len(spec.Requirements))
		for _, r := range spec.Requirements {
			known[r.ID] = true
		}
		for _, t := range spec.Tasks {
			for _, rid := range t.RequirementIDs {
				if known[rid] {
					return true, ""
				}
			}
		}
		return false, "no task references an existing requirement"

	case manifold.StageImplemented:
		return true, "" // manual gate, no automatic check

	default:
		return false, fmt.Sprintf("unknown destination stage %q", dst)
	}
}
