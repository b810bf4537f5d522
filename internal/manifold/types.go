// Package manifold defines the canonical data model for a spec: the
// requirements, scenarios, tasks, decisions, and change history that make up
// a living specification document, plus the auxiliary records (sync
// metadata, conflicts, reviews, workflow events) the engine persists
// alongside it.
//
// The types here are JSON-tagged structs. The engine packages (store,
// patch, workflow, conflict, resolution, review) operate on them; this
// package describes their shape plus a few small helpers: enum
// membership checks, stage ordering, Identity keys and a deep Clone.
package manifold

import "time"

// Boundary scopes a spec to an access/filter domain. It carries no
// enforcement semantics in the core — it is advisory grouping only.
type Boundary string

const (
	BoundaryPersonal Boundary = "personal"
	BoundaryWork     Boundary = "work"
	BoundaryCompany  Boundary = "company"
)

// IsValid reports whether b is one of the three declared boundaries.
func (b Boundary) IsValid() bool {
	switch b {
	case BoundaryPersonal, BoundaryWork, BoundaryCompany:
		return true
	default:
		return false
	}
}

// Stage is a position in the workflow state machine. Stages are
// strictly ordered; Stages() returns that order.
type Stage string

const (
	StageRequirements Stage = "requirements"
	StageDesign       Stage = "design"
	StageTasks        Stage = "tasks"
	StageApproval     Stage = "approval"
	StageImplemented  Stage = "implemented"
)

// Stages returns the declared stage sequence, first to last.
func Stages() []Stage {
	return []Stage{StageRequirements, StageDesign, StageTasks, StageApproval, StageImplemented}
}

// Index returns s's position in the declared sequence, or -1 if s is not a
// recognized stage.
func (s Stage) Index() int {
	for i, st := range Stages() {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether s is one of the declared stages.
func (s Stage) IsValid() bool { return s.Index() >= 0 }

// AtLeast reports whether s is at or beyond other in the declared sequence.
// Returns false if either stage is unrecognized.
func (s Stage) AtLeast(other Stage) bool {
	si, oi := s.Index(), other.Index()
	return si >= 0 && oi >= 0 && si >= oi
}

// Priority is a requirement's MoSCoW priority.
type Priority string

const (
	PriorityMust   Priority = "must"
	PriorityShould Priority = "should"
	PriorityCould  Priority = "could"
	PriorityWont   Priority = "wont"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityMust, PriorityShould, PriorityCould, PriorityWont:
		return true
	default:
		return false
	}
}

// TaskStatus is a task's lifecycle position.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
)

func (t TaskStatus) IsValid() bool {
	switch t {
	case TaskPending, TaskInProgress, TaskCompleted, TaskBlocked:
		return true
	default:
		return false
	}
}

// SyncStatus is a tracked spec's synchronization state relative to its
// remote mirror.
type SyncStatus string

const (
	SyncClean      SyncStatus = "clean"
	SyncModified   SyncStatus = "modified"
	SyncConflicted SyncStatus = "conflicted"
)

// ConflictStatus is the resolution state of a Conflict record.
type ConflictStatus string

const (
	ConflictUnresolved      ConflictStatus = "unresolved"
	ConflictResolvedLocal   ConflictStatus = "resolved_local"
	ConflictResolvedRemote  ConflictStatus = "resolved_remote"
	ConflictResolvedMerged  ConflictStatus = "resolved_merged"
	ConflictResolvedManual  ConflictStatus = "resolved_manual"
)

// IsResolved reports whether status is any terminal (non-unresolved) state.
func (c ConflictStatus) IsResolved() bool { return c != ConflictUnresolved }

// ReviewStatus is a review request's lifecycle position.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewApproved  ReviewStatus = "approved"
	ReviewRejected  ReviewStatus = "rejected"
	ReviewCancelled ReviewStatus = "cancelled"
)

// IsTerminal reports whether status can no longer change.
func (r ReviewStatus) IsTerminal() bool {
	switch r {
	case ReviewApproved, ReviewRejected, ReviewCancelled:
		return true
	default:
		return false
	}
}

// Strategy is a conflict-resolution rule.
type Strategy string

const (
	StrategyOurs   Strategy = "ours"
	StrategyTheirs Strategy = "theirs"
	StrategyMerge  Strategy = "merge"
	StrategyManual Strategy = "manual"
)

// Scenario is a GIVEN/WHEN/THEN example attached to a Requirement. Fields
// are plain strings with no parsing semantics.
type Scenario struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Given      []string `json:"given"`
	When       string   `json:"when"`
	Then       []string `json:"then"`
	EdgeCases  []string `json:"edge_cases,omitempty"`
}

// Identity returns the scenario's id, the key an id-keyed diff matches on.
func (s Scenario) Identity() string { return s.ID }

// Requirement is a single normative capability of a spec.
type Requirement struct {
	ID         string     `json:"id"`
	Capability string     `json:"capability"`
	Title      string     `json:"title"`
	Shall      string     `json:"shall"`
	Rationale  string     `json:"rationale,omitempty"`
	Priority   Priority   `json:"priority"`
	Tags       []string   `json:"tags,omitempty"`
	Scenarios  []Scenario `json:"scenarios,omitempty"`
}

func (r Requirement) Identity() string { return r.ID }

// Task is a unit of implementation work, optionally traced back to one or
// more Requirements within the same spec.
type Task struct {
	ID             string     `json:"id"`
	RequirementIDs []string   `json:"requirement_ids,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         TaskStatus `json:"status"`
	Assignee       string     `json:"assignee,omitempty"`
	Acceptance     []string   `json:"acceptance,omitempty"`
}

func (t Task) Identity() string { return t.ID }

// Decision is a recorded design decision with rejected alternatives.
type Decision struct {
	ID                  string   `json:"id"`
	Title                string   `json:"title"`
	Context              string   `json:"context,omitempty"`
	Decision             string   `json:"decision"`
	Rationale            string   `json:"rationale,omitempty"`
	AlternativesRejected []string `json:"alternatives_rejected,omitempty"`
	Date                 string   `json:"date,omitempty"`
}

func (d Decision) Identity() string { return d.ID }

// Operation is a single RFC 6901/6902 JSON Patch operation.
type Operation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	From  string      `json:"from,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// Patch is one recorded change to a spec: who made it, when, and the exact
// JSON Patch operations that transform the prior document into the next.
type Patch struct {
	Timestamp  time.Time   `json:"timestamp"`
	Actor      string      `json:"actor"`
	Operations []Operation `json:"operations"`
}

// History is the append-only change log attached to every spec.
type History struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Patches   []Patch   `json:"patches"`
}

// Spec is the root entity: a living specification document.
type Spec struct {
	SpecID           string        `json:"spec_id"`
	Project          string        `json:"project"`
	Boundary         Boundary      `json:"boundary"`
	Name             string        `json:"name"`
	Description      string        `json:"description,omitempty"`
	Stage            Stage         `json:"stage"`
	StagesCompleted  []Stage       `json:"stages_completed"`
	Requirements     []Requirement `json:"requirements"`
	Tasks            []Task        `json:"tasks"`
	Decisions        []Decision    `json:"decisions"`
	History          History       `json:"history"`
}

// Clone returns a deep copy of s, safe to mutate independently.
func (s *Spec) Clone() *Spec {
	if s == nil {
		return nil
	}
	out := *s
	if s.StagesCompleted != nil {
		out.StagesCompleted = append([]Stage{}, s.StagesCompleted...)
	}
	out.Requirements = make([]Requirement, len(s.Requirements))
	for i, r := range s.Requirements {
		out.Requirements[i] = r
		out.Requirements[i].Tags = append([]string(nil), r.Tags...)
		out.Requirements[i].Scenarios = make([]Scenario, len(r.Scenarios))
		for j, sc := range r.Scenarios {
			out.Requirements[i].Scenarios[j] = sc
			out.Requirements[i].Scenarios[j].Given = append([]string(nil), sc.Given...)
			out.Requirements[i].Scenarios[j].Then = append([]string(nil), sc.Then...)
			out.Requirements[i].Scenarios[j].EdgeCases = append([]string(nil), sc.EdgeCases...)
		}
	}
	out.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		out.Tasks[i] = t
		out.Tasks[i].RequirementIDs = append([]string(nil), t.RequirementIDs...)
		out.Tasks[i].Acceptance = append([]string(nil), t.Acceptance...)
	}
	out.Decisions = make([]Decision, len(s.Decisions))
	for i, d := range s.Decisions {
		out.Decisions[i] = d
		out.Decisions[i].AlternativesRejected = append([]string(nil), d.AlternativesRejected...)
	}
	out.History.Patches = make([]Patch, len(s.History.Patches))
	for i, p := range s.History.Patches {
		out.History.Patches[i] = p
		out.History.Patches[i].Operations = append([]Operation(nil), p.Operations...)
	}
	return &out
}

// SyncMetadata tracks one spec's synchronization state against a remote
// git mirror.
type SyncMetadata struct {
	SpecID            string     `json:"spec_id"`
	LastSyncTimestamp time.Time  `json:"last_sync_timestamp"`
	LastSyncHash      string     `json:"last_sync_hash,omitempty"`
	RemoteBranch      string     `json:"remote_branch,omitempty"`
	SyncStatus        SyncStatus `json:"sync_status"`
}

// Conflict is a persisted record of a three-way disagreement at a named
// field path, produced by the Conflict Detector during a pull.
type Conflict struct {
	ID          string         `json:"id"`
	SpecID      string         `json:"spec_id"`
	FieldPath   string         `json:"field_path"`
	LocalValue  interface{}    `json:"local_value"`
	RemoteValue interface{}    `json:"remote_value"`
	BaseValue   interface{}    `json:"base_value,omitempty"`
	DetectedAt  time.Time      `json:"detected_at"`
	Status      ConflictStatus `json:"status"`
}

// Review tracks one review request against a spec.
type Review struct {
	ID          string       `json:"id"`
	SpecID      string       `json:"spec_id"`
	Requester   string       `json:"requester"`
	Reviewer    string       `json:"reviewer"`
	Status      ReviewStatus `json:"status"`
	Comment     string       `json:"comment,omitempty"`
	RequestedAt time.Time    `json:"requested_at"`
	ReviewedAt  *time.Time   `json:"reviewed_at,omitempty"`
}

// WorkflowEvent journals one stage transition.
type WorkflowEvent struct {
	SpecID    string    `json:"spec_id"`
	FromStage Stage     `json:"from_stage"`
	ToStage   Stage     `json:"to_stage"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// Summary is the lightweight projection list_specs returns instead of full
// documents.
type Summary struct {
	SpecID      string    `json:"spec_id"`
	Project     string    `json:"project"`
	Boundary    Boundary  `json:"boundary"`
	Name        string    `json:"name"`
	Stage       Stage     `json:"stage"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows list_specs results.
type Filter struct {
	Boundary Boundary
	Stage    Stage
	Query    string
}
