package patch

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"manifold/internal/manifold"
)

// Apply applies ops to spec and returns the resulting spec. Patches that
// would move or copy a node into its own subtree are rejected before
// application, since that would produce a cyclic (non-tree) document.
func Apply(spec *manifold.Spec, ops []manifold.Operation) (*manifold.Spec, error) {
	if err := checkTree(ops); err != nil {
		return nil, err
	}

	docJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("marshal spec: %w", err))
	}

	patchJSON, err := json.Marshal(ops)
	if err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("marshal operations: %w", err))
	}

	decoded, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("decode patch: %w", err))
	}

	out, err := decoded.Apply(docJSON)
	if err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("apply patch: %w", err))
	}

	var result manifold.Spec
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("unmarshal result: %w", err))
	}
	return &result, nil
}

// checkTree rejects any move/copy operation whose destination path lies
// inside its own source path — such an operation would graft a node under
// itself, which cannot be represented once applied.
func checkTree(ops []manifold.Operation) error {
	for _, op := range ops {
		if op.Op != "move" && op.Op != "copy" {
			continue
		}
		from := strings.TrimSuffix(op.From, "/")
		path := strings.TrimSuffix(op.Path, "/")
		if from == "" || path == "" {
			continue
		}
		if path == from || strings.HasPrefix(path, from+"/") {
			return manifold.Wrap(manifold.KindIO, fmt.Errorf("operation %s from %q to %q would create a cyclic document", op.Op, from, path))
		}
	}
	return nil
}
