// Package conflict provides field-level three-way conflict
// detection between a local spec, a remote spec, and their common base.
//
// Equality checks use google/go-cmp instead of reflect.DeepEqual, since
// it handles unexported-field-free value structs cleanly and gives a
// useful diff on failure in tests.
package conflict

import (
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"

	"manifold/internal/manifold"
)

type identifiable interface {
	Identity() string
}

// Detect computes the conflict set between local and remote relative to
// base. base may be nil, meaning no common ancestor is known (first-time
// convergence): in that case any disagreement is reported.
func Detect(local, remote, base *manifold.Spec) []manifold.Conflict {
	hasBase := base != nil

	var out []manifold.Conflict

	if c := compareScalar("name", local.Name, remote.Name, baseScalar(base, hasBase, func(s *manifold.Spec) interface{} { return s.Name }), hasBase); c != nil {
		out = append(out, *c)
	}
	if c := compareScalar("description", local.Description, remote.Description, baseScalar(base, hasBase, func(s *manifold.Spec) interface{} { return s.Description }), hasBase); c != nil {
		out = append(out, *c)
	}
	if c := compareScalar("stage", local.Stage, remote.Stage, baseScalar(base, hasBase, func(s *manifold.Spec) interface{} { return s.Stage }), hasBase); c != nil {
		out = append(out, *c)
	}

	var baseReqs []manifold.Requirement
	if hasBase {
		baseReqs = base.Requirements
	}
	out = append(out, requirementConflicts(local.Requirements, remote.Requirements, baseReqs, hasBase)...)

	var baseTasks []manifold.Task
	if hasBase {
		baseTasks = base.Tasks
	}
	out = append(out, detectArrayConflicts("tasks", local.Tasks, remote.Tasks, baseTasks, hasBase)...)

	var baseDecisions []manifold.Decision
	if hasBase {
		baseDecisions = base.Decisions
	}
	out = append(out, detectArrayConflicts("decisions", local.Decisions, remote.Decisions, baseDecisions, hasBase)...)

	// stages_completed and history.patches are append-only per side and
	// are not compared.
	return out
}

func baseScalar(base *manifold.Spec, hasBase bool, get func(*manifold.Spec) interface{}) interface{} {
	if !hasBase {
		return nil
	}
	return get(base)
}

func compareScalar(path string, local, remote, base interface{}, hasBase bool) *manifold.Conflict {
	if cmp.Equal(local, remote) {
		return nil
	}
	if hasBase {
		if cmp.Equal(base, local) {
			return nil // remote changed, local didn't
		}
		if cmp.Equal(base, remote) {
			return nil // local changed, remote didn't
		}
	}
	c := &manifold.Conflict{FieldPath: path, LocalValue: local, RemoteValue: remote}
	if hasBase {
		c.BaseValue = base
	}
	return c
}

// requirementConflicts compares the requirements array, further refining
// matched pairs by diffing their scenarios sub-array separately so a
// scenario-only disagreement doesn't mask the whole requirement as
// conflicted.
func requirementConflicts(local, remote, base []manifold.Requirement, hasBase bool) []manifold.Conflict {
	localByID := indexByID(local)
	remoteByID := indexByID(remote)
	baseByID := indexByID(base)

	var out []manifold.Conflict
	for _, id := range unionIDs(localByID, remoteByID, baseByID) {
		l, lok := localByID[id]
		r, rok := remoteByID[id]
		b, bok := baseByID[id]
		path := fmt.Sprintf("requirements/%s", id)

		if lok && rok {
			if cmp.Equal(l, r) {
				continue
			}
			if hasBase && bok {
				if cmp.Equal(b, l) {
					continue
				}
				if cmp.Equal(b, r) {
					continue
				}
			}

			lFlat, rFlat := l, r
			lFlat.Scenarios, rFlat.Scenarios = nil, nil
			if cmp.Equal(lFlat, rFlat) {
				var baseScenarios []manifold.Scenario
				scenarioHasBase := hasBase && bok
				if scenarioHasBase {
					baseScenarios = b.Scenarios
				}
				out = append(out, detectArrayConflicts(path+"/scenarios", l.Scenarios, r.Scenarios, baseScenarios, scenarioHasBase)...)
				continue
			}

			conf := manifold.Conflict{FieldPath: path, LocalValue: l, RemoteValue: r}
			if hasBase && bok {
				conf.BaseValue = b
			}
			out = append(out, conf)
			continue
		}

		out = append(out, existenceConflict(path, l, lok, r, rok, b, bok, hasBase)...)
	}
	return out
}

// detectArrayConflicts compares an id-keyed array whole-object per item.
func detectArrayConflicts[T identifiable](arrayPath string, local, remote, base []T, hasBase bool) []manifold.Conflict {
	localByID := indexByID(local)
	remoteByID := indexByID(remote)
	baseByID := indexByID(base)

	var out []manifold.Conflict
	for _, id := range unionIDs(localByID, remoteByID, baseByID) {
		l, lok := localByID[id]
		r, rok := remoteByID[id]
		b, bok := baseByID[id]
		path := fmt.Sprintf("%s/%s", arrayPath, id)

		if lok && rok {
			if cmp.Equal(l, r) {
				continue
			}
			if hasBase && bok {
				if cmp.Equal(b, l) {
					continue
				}
				if cmp.Equal(b, r) {
					continue
				}
			}
			conf := manifold.Conflict{FieldPath: path, LocalValue: l, RemoteValue: r}
			if hasBase && bok {
				conf.BaseValue = b
			}
			out = append(out, conf)
			continue
		}

		out = append(out, existenceConflict(path, l, lok, r, rok, b, bok, hasBase)...)
	}
	return out
}

// existenceConflict handles the case where an id is present on only one
// side: an addition on one side (the id is absent from a known base) is
// not a conflict, nor is a clean deletion (the surviving side matches
// base); a deletion paired with a modification is.
func existenceConflict[T any](path string, l T, lok bool, r T, rok bool, b T, bok bool, hasBase bool) []manifold.Conflict {
	switch {
	case lok && !rok:
		if hasBase && !bok {
			return nil // added locally only: keep local
		}
		if hasBase && bok && cmp.Equal(b, l) {
			return nil // local unchanged, remote deleted: accept deletion
		}
		conf := manifold.Conflict{FieldPath: path, LocalValue: l, RemoteValue: nil}
		if hasBase && bok {
			conf.BaseValue = b
		}
		return []manifold.Conflict{conf}

	case !lok && rok:
		if hasBase && !bok {
			return nil // added remotely only: no local counterpart to clash with
		}
		if hasBase && bok && cmp.Equal(b, r) {
			return nil // remote unchanged, local deleted: accept deletion
		}
		conf := manifold.Conflict{FieldPath: path, LocalValue: nil, RemoteValue: r}
		if hasBase && bok {
			conf.BaseValue = b
		}
		return []manifold.Conflict{conf}

	default:
		return nil
	}
}

func indexByID[T identifiable](items []T) map[string]T {
	out := make(map[string]T, len(items))
	for _, it := range items {
		out[it.Identity()] = it
	}
	return out
}

func unionIDs[T any](maps ...map[string]T) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range maps {
		for id := range m {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}
