// Package engine is the single seam every wrapper (CLI, MCP server, TUI)
// calls through. It wires the store, schema validator, sync manager, and
// review ledger behind one facade, taking no hidden global dependencies:
// every subsystem it needs is constructed once in New and held as an
// explicit field instead of a package-level singleton.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"manifold/internal/conflict"
	"manifold/internal/manifold"
	"manifold/internal/patch"
	"manifold/internal/resolution"
	"manifold/internal/review"
	"manifold/internal/schema"
	"manifold/internal/store"
	"manifold/internal/syncmgr"
	"manifold/internal/workflow"
)

// Engine is the facade every wrapper calls through instead of reaching
// into the store, schema, sync, or review packages directly.
type Engine struct {
	store     *store.Store
	validator *schema.Validator
	sync      *syncmgr.Manager
	reviews   *review.Ledger
	logger    *zap.Logger
}

// New wires the engine against an already-open store and sync working
// tree.
func New(st *store.Store, syncRoot string, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	validator, err := schema.New()
	if err != nil {
		return nil, fmt.Errorf("build schema validator: %w", err)
	}
	return &Engine{
		store:     st,
		validator: validator,
		sync:      syncmgr.New(syncRoot, st, logger),
		reviews:   review.New(st, logger),
		logger:    logger,
	}, nil
}

// --- Spec ---

// Create starts a new spec at the requirements stage, regenerating
// spec_id on collision up to 10 times before surfacing ErrIO (Open
// Question decision 3).
func (e *Engine) Create(project, name string, boundary manifold.Boundary) (string, error) {
	now := time.Now()
	var id string
	collided := true
	for attempt := 0; attempt < 10; attempt++ {
		id = manifold.NewSpecID()
		if _, err := e.store.GetSpec(id); err == nil {
			continue // collision, try again
		}
		collided = false
		break
	}
	if collided {
		return "", manifold.Wrap(manifold.KindIO, fmt.Errorf("could not generate a unique spec_id after 10 attempts"))
	}

	spec := &manifold.Spec{
		SpecID:          id,
		Project:         project,
		Name:            name,
		Boundary:        boundary,
		Stage:           manifold.StageRequirements,
		StagesCompleted: []manifold.Stage{},
		Requirements:    []manifold.Requirement{},
		Tasks:           []manifold.Task{},
		Decisions:       []manifold.Decision{},
		History:         manifold.History{CreatedAt: now, UpdatedAt: now, Patches: []manifold.Patch{}},
	}
	if err := e.store.PutSpec(spec); err != nil {
		return "", manifold.Wrap(manifold.KindIO, fmt.Errorf("create spec: %w", err))
	}
	return id, nil
}

func (e *Engine) Get(specID string) (*manifold.Spec, error) { return e.store.GetSpec(specID) }

func (e *Engine) List(filter manifold.Filter) ([]manifold.Summary, error) {
	return e.store.ListSpecs(filter)
}

// Put validates, diffs against the stored version (if any), records the
// patch, and persists the new state — all under the store's single
// transaction per write.
func (e *Engine) Put(spec *manifold.Spec, actor string) error {
	if err := e.validator.Validate(spec, false); err != nil {
		return err
	}

	now := time.Now()
	previous, err := e.store.GetSpec(spec.SpecID)
	if err != nil && !isKind(err, manifold.KindNotFound) {
		return err
	}
	if previous != nil {
		ops, err := patch.Diff(previous, spec)
		if err != nil {
			return manifold.Wrap(manifold.KindIO, fmt.Errorf("diff spec: %w", err))
		}
		if len(ops) > 0 {
			patch.Record(spec, actor, ops, now)
		}
	} else {
		spec.History.CreatedAt = now
	}
	spec.History.UpdatedAt = now

	return e.store.PutSpec(spec)
}

func (e *Engine) Validate(spec *manifold.Spec, strict bool) error {
	return e.validator.Validate(spec, strict)
}

// --- Workflow ---

func (e *Engine) WorkflowStatus(specID string) (manifold.Stage, error) {
	spec, err := e.store.GetSpec(specID)
	if err != nil {
		return "", err
	}
	return workflow.Status(spec), nil
}

func (e *Engine) WorkflowAdvance(specID, actor string) (manifold.WorkflowEvent, error) {
	spec, err := e.store.GetSpec(specID)
	if err != nil {
		return manifold.WorkflowEvent{}, err
	}

	event, err := workflow.Advance(spec, actor, time.Now())
	if err != nil {
		return manifold.WorkflowEvent{}, err
	}

	// Stage write and event journal go through one transaction: a crash
	// between them must never leave stage advanced with no event.
	if err := e.store.AdvanceWorkflow(spec, event); err != nil {
		return manifold.WorkflowEvent{}, err
	}
	return event, nil
}

func (e *Engine) WorkflowHistory(specID string) ([]manifold.WorkflowEvent, error) {
	return e.store.ListWorkflowEvents(specID)
}

// --- Sync ---

func (e *Engine) SyncInit(ctx context.Context, remote string) error {
	return e.sync.Init(ctx, remote)
}

func (e *Engine) SyncPush(ctx context.Context, specIDs []string, message, remote, branch string) ([]syncmgr.PushResult, error) {
	return e.sync.Push(ctx, specIDs, message, remote, branch)
}

func (e *Engine) SyncPull(ctx context.Context, specIDs []string, remote, branch string) ([]syncmgr.PullResult, error) {
	return e.sync.Pull(ctx, specIDs, remote, branch)
}

func (e *Engine) SyncStatus(ctx context.Context) ([]syncmgr.StatusEntry, error) {
	return e.sync.Status(ctx)
}

// --- Conflicts ---

func (e *Engine) ConflictsList(specID string) ([]manifold.Conflict, error) {
	return e.store.ListConflicts(specID, true)
}

// ConflictsResolve implements `resolve_one`: compute the accepted
// value under strategy, apply it to the spec, record the patch, and mark
// the conflict with its matching resolved status.
func (e *Engine) ConflictsResolve(conflictID string, strategy manifold.Strategy, manualValue interface{}, actor string) error {
	c, err := e.store.GetConflict(conflictID)
	if err != nil {
		return err
	}

	accepted, err := resolution.Resolve(strategy, c.LocalValue, c.RemoteValue, manualValue)
	if err != nil {
		return err
	}

	spec, err := e.store.GetSpec(c.SpecID)
	if err != nil {
		return err
	}
	updated, err := applyFieldPath(spec, c.FieldPath, accepted)
	if err != nil {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("apply resolution: %w", err))
	}

	now := time.Now()
	ops, err := patch.Diff(spec, updated)
	if err != nil {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("diff resolution: %w", err))
	}
	if len(ops) > 0 {
		patch.Record(updated, actor, ops, now)
	}
	updated.History.UpdatedAt = now

	// Spec write and conflict-status update go through one transaction:
	// a crash between them must never leave the spec mutated while the
	// conflict still reads unresolved, or a retry would reapply it.
	return e.store.ResolveConflict(updated, conflictID, resolvedStatusFor(strategy))
}

func resolvedStatusFor(strategy manifold.Strategy) manifold.ConflictStatus {
	switch strategy {
	case manifold.StrategyOurs:
		return manifold.ConflictResolvedLocal
	case manifold.StrategyTheirs:
		return manifold.ConflictResolvedRemote
	case manifold.StrategyMerge:
		return manifold.ConflictResolvedMerged
	default:
		return manifold.ConflictResolvedManual
	}
}

// BulkOutcome is one conflict's outcome from a bulk operation.
type BulkOutcome struct {
	ConflictID string
	Err        error
}

// ConflictsBulk implements `bulk_resolve`: apply strategy to every
// unresolved conflict of specID, each as an independent transaction
//. strategy
// "manual" is rejected outright since there is no single manual value
// to apply across many conflicts.
func (e *Engine) ConflictsBulk(specID string, strategy manifold.Strategy, actor string) (resolved, failed int, failures []BulkOutcome) {
	if strategy == manifold.StrategyManual {
		return 0, 0, []BulkOutcome{{Err: manifold.Wrap(manifold.KindManualValueRequired, fmt.Errorf("bulk_resolve does not support the manual strategy"))}}
	}

	unresolved, err := e.store.ListConflicts(specID, true)
	if err != nil {
		return 0, 0, []BulkOutcome{{Err: err}}
	}

	for _, c := range unresolved {
		if err := e.ConflictsResolve(c.ID, strategy, nil, actor); err != nil {
			failed++
			failures = append(failures, BulkOutcome{ConflictID: c.ID, Err: err})
			continue
		}
		resolved++
	}
	return resolved, failed, failures
}

// AutoMergeResult is the `auto_merge` totals.
type AutoMergeResult struct {
	Merged  int
	Skipped int
	Failed  int
}

// ConflictsAutoMerge attempts `merge` on every unresolved conflict of
// specID. MergeDeclined counts as skipped; any other error counts as
// failed.
func (e *Engine) ConflictsAutoMerge(specID, actor string) (AutoMergeResult, error) {
	unresolved, err := e.store.ListConflicts(specID, true)
	if err != nil {
		return AutoMergeResult{}, err
	}

	var result AutoMergeResult
	for _, c := range unresolved {
		err := e.ConflictsResolve(c.ID, manifold.StrategyMerge, nil, actor)
		switch {
		case err == nil:
			result.Merged++
		case isKind(err, manifold.KindMergeDeclined):
			result.Skipped++
		default:
			result.Failed++
		}
	}
	return result, nil
}

// --- Reviews ---

func (e *Engine) ReviewRequest(specID, requester, reviewer string) (string, error) {
	return e.reviews.Request(specID, requester, reviewer, time.Now())
}

func (e *Engine) ReviewApprove(reviewID, comment string) error {
	return e.reviews.Approve(reviewID, comment, time.Now())
}

func (e *Engine) ReviewReject(reviewID, comment string) error {
	return e.reviews.Reject(reviewID, comment, time.Now())
}

func (e *Engine) ReviewCancel(reviewID, comment string) error {
	return e.reviews.Cancel(reviewID, comment, time.Now())
}

func (e *Engine) ReviewList(filter review.Filter) ([]manifold.Review, error) {
	return e.reviews.List(filter)
}
