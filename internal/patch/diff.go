// Package patch provides producing a minimal JSON Patch (RFC 6902)
// between two spec states and applying one back.
//
// Arrays of id-bearing objects (requirements, tasks, decisions) are
// diffed id-aware: matched by Identity() rather than position, so a
// reorder produces move-equivalent add/remove pairs instead of a cascade
// of positional replacements. The other top-level fields (name,
// description, project, boundary, stage, stages_completed) go through
// gomodules.xyz/jsonpatch/v2's structural diff; spec_id and history are
// not diffed.
package patch

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
	jsonpatch "gomodules.xyz/jsonpatch/v2"

	"manifold/internal/manifold"
)

type identifiable interface {
	Identity() string
}

// scalarView carries the non-id-array fields of a Spec, diffed
// structurally via jsonpatch/v2 rather than by hand.
type scalarView struct {
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Project         string            `json:"project"`
	Boundary        manifold.Boundary `json:"boundary"`
	Stage           manifold.Stage    `json:"stage"`
	StagesCompleted []manifold.Stage  `json:"stages_completed"`
}

// Diff produces the patch operations that transform old into new. Applying
// the result via Apply(old, ops) yields a spec equal to new in every field
// except spec_id and history.
func Diff(old, new *manifold.Spec) ([]manifold.Operation, error) {
	var ops []manifold.Operation

	scalarOps, err := diffScalars(old, new)
	if err != nil {
		return nil, fmt.Errorf("diff scalar fields: %w", err)
	}
	ops = append(ops, scalarOps...)

	reqOps, err := idDiff("/requirements", old.Requirements, new.Requirements, requirementEqual)
	if err != nil {
		return nil, fmt.Errorf("diff requirements: %w", err)
	}
	ops = append(ops, reqOps...)

	taskOps, err := idDiff("/tasks", old.Tasks, new.Tasks, taskEqual)
	if err != nil {
		return nil, fmt.Errorf("diff tasks: %w", err)
	}
	ops = append(ops, taskOps...)

	decOps, err := idDiff("/decisions", old.Decisions, new.Decisions, decisionEqual)
	if err != nil {
		return nil, fmt.Errorf("diff decisions: %w", err)
	}
	ops = append(ops, decOps...)

	return ops, nil
}

func diffScalars(old, new *manifold.Spec) ([]manifold.Operation, error) {
	oldJSON, err := json.Marshal(scalarView{old.Name, old.Description, old.Project, old.Boundary, old.Stage, old.StagesCompleted})
	if err != nil {
		return nil, err
	}
	newJSON, err := json.Marshal(scalarView{new.Name, new.Description, new.Project, new.Boundary, new.Stage, new.StagesCompleted})
	if err != nil {
		return nil, err
	}

	raw, err := jsonpatch.CreatePatch(oldJSON, newJSON)
	if err != nil {
		return nil, err
	}

	ops := make([]manifold.Operation, len(raw))
	for i, op := range raw {
		ops[i] = manifold.Operation{Op: op.Operation, Path: op.Path, Value: op.Value}
	}
	return ops, nil
}

func requirementEqual(a, b manifold.Requirement) bool { return cmp.Equal(a, b) }
func taskEqual(a, b manifold.Task) bool               { return cmp.Equal(a, b) }
func decisionEqual(a, b manifold.Decision) bool       { return cmp.Equal(a, b) }

// idDiff diffs oldItems against newItems by Identity(), walking target
// position by position and simulating the document as ops are appended so
// every emitted index stays valid for sequential RFC 6902 application.
func idDiff[T identifiable](path string, oldItems, newItems []T, equal func(a, b T) bool) ([]manifold.Operation, error) {
	working := append([]T(nil), oldItems...)
	var ops []manifold.Operation

	newIDs := make(map[string]bool, len(newItems))
	for _, it := range newItems {
		newIDs[it.Identity()] = true
	}

	for i := len(working) - 1; i >= 0; i-- {
		if !newIDs[working[i].Identity()] {
			ops = append(ops, manifold.Operation{Op: "remove", Path: indexPath(path, i)})
			working = append(working[:i], working[i+1:]...)
		}
	}

	for i, target := range newItems {
		id := target.Identity()

		if i < len(working) && working[i].Identity() == id {
			if !equal(working[i], target) {
				ops = append(ops, manifold.Operation{Op: "replace", Path: indexPath(path, i), Value: target})
				working[i] = target
			}
			continue
		}

		foundAt := -1
		for j := i; j < len(working); j++ {
			if working[j].Identity() == id {
				foundAt = j
				break
			}
		}

		if foundAt == -1 {
			ops = append(ops, manifold.Operation{Op: "add", Path: indexPath(path, i), Value: target})
			working = insertAt(working, i, target)
			continue
		}

		item := working[foundAt]
		ops = append(ops, manifold.Operation{Op: "remove", Path: indexPath(path, foundAt)})
		working = append(working[:foundAt], working[foundAt+1:]...)

		if !equal(item, target) {
			item = target
		}
		ops = append(ops, manifold.Operation{Op: "add", Path: indexPath(path, i), Value: item})
		working = insertAt(working, i, item)
	}

	return ops, nil
}

func insertAt[T any](s []T, i int, v T) []T {
	out := make([]T, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	out = append(out, s[i:]...)
	return out
}

func indexPath(base string, i int) string {
	return fmt.Sprintf("%s/%d", base, i)
}
