package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"manifold/internal/engine"
	"manifold/internal/manifold"
	"manifold/internal/review"
)

type toolFunc func(ctx context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error)

// toolHandlers maps every MCP tool name onto the matching Engine facade
// call, one tool per operation so a caller can exercise
// conflicts/review/sync independently of spec CRUD.
var toolHandlers = map[string]toolFunc{
	"spec.create":          toolSpecCreate,
	"spec.get":              toolSpecGet,
	"spec.list":              toolSpecList,
	"spec.put":               toolSpecPut,
	"spec.validate":          toolSpecValidate,
	"workflow.status":        toolWorkflowStatus,
	"workflow.advance":       toolWorkflowAdvance,
	"workflow.history":       toolWorkflowHistory,
	"sync.init":              toolSyncInit,
	"sync.push":              toolSyncPush,
	"sync.pull":              toolSyncPull,
	"sync.status":            toolSyncStatus,
	"conflicts.list":         toolConflictsList,
	"conflicts.resolve":      toolConflictsResolve,
	"conflicts.bulk":         toolConflictsBulk,
	"conflicts.auto_merge":   toolConflictsAutoMerge,
	"review.request":         toolReviewRequest,
	"review.approve":         toolReviewApprove,
	"review.reject":          toolReviewReject,
	"review.cancel":          toolReviewCancel,
	"review.list":            toolReviewList,
}

func toolSchemas() []toolSchema {
	names := make([]string, 0, len(toolHandlers))
	for name := range toolHandlers {
		names = append(names, name)
	}
	out := make([]toolSchema, 0, len(names))
	for _, name := range names {
		out = append(out, toolSchema{
			Name:        name,
			Description: "Manifold engine operation " + name,
			InputSchema: json.RawMessage(`{"type":"object"}`),
		})
	}
	return out
}

func argString(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func argInterface(args map[string]interface{}, key string) interface{} {
	v, ok := args[key]
	if !ok {
		return nil
	}
	return v
}

// decodeArg round-trips args[key] through JSON into dst, for arguments
// shaped like a Spec or Filter rather than a bare scalar.
func decodeArg(args map[string]interface{}, key string, dst interface{}) error {
	v, ok := args[key]
	if !ok {
		return fmt.Errorf("missing argument %q", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal argument %q: %w", key, err)
	}
	return json.Unmarshal(raw, dst)
}

func toolSpecCreate(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	id, err := e.Create(argString(args, "project"), argString(args, "name"), manifold.Boundary(argString(args, "boundary")))
	if err != nil {
		return nil, err
	}
	return map[string]string{"spec_id": id}, nil
}

func toolSpecGet(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	return e.Get(argString(args, "spec_id"))
}

func toolSpecList(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	var filter manifold.Filter
	if _, ok := args["filter"]; ok {
		if err := decodeArg(args, "filter", &filter); err != nil {
			return nil, err
		}
	}
	return e.List(filter)
}

func toolSpecPut(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	var spec manifold.Spec
	if err := decodeArg(args, "spec", &spec); err != nil {
		return nil, err
	}
	if err := e.Put(&spec, argString(args, "actor")); err != nil {
		return nil, err
	}
	return &spec, nil
}

func toolSpecValidate(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	var spec manifold.Spec
	if err := decodeArg(args, "spec", &spec); err != nil {
		return nil, err
	}
	strict, _ := args["strict"].(bool)
	if err := e.Validate(&spec, strict); err != nil {
		return map[string]interface{}{"valid": false, "error": err.Error()}, nil
	}
	return map[string]interface{}{"valid": true}, nil
}

func toolWorkflowStatus(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	stage, err := e.WorkflowStatus(argString(args, "spec_id"))
	if err != nil {
		return nil, err
	}
	return map[string]string{"stage": string(stage)}, nil
}

func toolWorkflowAdvance(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	return e.WorkflowAdvance(argString(args, "spec_id"), argString(args, "actor"))
}

func toolWorkflowHistory(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	return e.WorkflowHistory(argString(args, "spec_id"))
}

func toolSyncInit(ctx context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	return nil, e.SyncInit(ctx, argString(args, "remote"))
}

func stringSlice(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toolSyncPush(ctx context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	specIDs := stringSlice(argInterface(args, "spec_ids"))
	return e.SyncPush(ctx, specIDs, argString(args, "message"), argString(args, "remote"), argString(args, "branch"))
}

func toolSyncPull(ctx context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	specIDs := stringSlice(argInterface(args, "spec_ids"))
	return e.SyncPull(ctx, specIDs, argString(args, "remote"), argString(args, "branch"))
}

func toolSyncStatus(ctx context.Context, e *engine.Engine, _ map[string]interface{}) (interface{}, error) {
	return e.SyncStatus(ctx)
}

func toolConflictsList(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	return e.ConflictsList(argString(args, "spec_id"))
}

func toolConflictsResolve(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	strategy := manifold.Strategy(argString(args, "strategy"))
	err := e.ConflictsResolve(argString(args, "conflict_id"), strategy, argInterface(args, "manual_value"), argString(args, "actor"))
	if err != nil {
		return nil, err
	}
	return map[string]bool{"resolved": true}, nil
}

func toolConflictsBulk(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	strategy := manifold.Strategy(argString(args, "strategy"))
	resolved, failed, failures := e.ConflictsBulk(argString(args, "spec_id"), strategy, argString(args, "actor"))
	failureMsgs := make([]map[string]string, 0, len(failures))
	for _, f := range failures {
		msg := map[string]string{"conflict_id": f.ConflictID}
		if f.Err != nil {
			msg["error"] = f.Err.Error()
		}
		failureMsgs = append(failureMsgs, msg)
	}
	return map[string]interface{}{"resolved": resolved, "failed": failed, "failures": failureMsgs}, nil
}

func toolConflictsAutoMerge(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	return e.ConflictsAutoMerge(argString(args, "spec_id"), argString(args, "actor"))
}

func toolReviewRequest(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	id, err := e.ReviewRequest(argString(args, "spec_id"), argString(args, "requester"), argString(args, "reviewer"))
	if err != nil {
		return nil, err
	}
	return map[string]string{"review_id": id}, nil
}

func toolReviewApprove(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	return nil, e.ReviewApprove(argString(args, "review_id"), argString(args, "comment"))
}

func toolReviewReject(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	return nil, e.ReviewReject(argString(args, "review_id"), argString(args, "comment"))
}

func toolReviewCancel(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	return nil, e.ReviewCancel(argString(args, "review_id"), argString(args, "comment"))
}

func toolReviewList(_ context.Context, e *engine.Engine, args map[string]interface{}) (interface{}, error) {
	filter := review.Filter{
		SpecID:    argString(args, "spec_id"),
		Reviewer:  argString(args, "reviewer"),
		Requester: argString(args, "requester"),
		Status:    manifold.ReviewStatus(argString(args, "status")),
	}
	return e.ReviewList(filter)
}
