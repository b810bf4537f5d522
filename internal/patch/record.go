package patch

import (
	"time"

	"manifold/internal/manifold"
)

// Record appends a Patch entry describing ops to spec.history.patches and
// stamps history.updated_at, mutating spec in place. The caller persists
// spec via the store in the same transaction as the write this patch
// describes.
func Record(spec *manifold.Spec, actor string, ops []manifold.Operation, at time.Time) {
	spec.History.Patches = append(spec.History.Patches, manifold.Patch{
		Timestamp:  at,
		Actor:      actor,
		Operations: ops,
	})
	spec.History.UpdatedAt = at
}
