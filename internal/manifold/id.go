package manifold

import (
	"fmt"

	"github.com/google/uuid"
)

// adjectives and nouns back the human-pronounceable spec_id: an opaque
// unique identifier, stable across the spec's lifetime. Kept short and
// deliberately plain — the id is a label, not a password.
var (
	idAdjectives = []string{
		"quiet", "amber", "brisk", "calm", "dusty", "eager", "faint", "gentle",
		"honest", "ivory", "jovial", "keen", "lively", "misty", "noble", "olive",
		"plain", "quick", "rustic", "sturdy", "tidy", "umber", "vivid", "warm",
		"bold", "crisp", "deep", "even", "fresh", "grand", "humble", "inner",
	}
	idNouns = []string{
		"harbor", "ledger", "meadow", "canyon", "beacon", "orchard", "summit",
		"thicket", "current", "anchor", "lantern", "quarry", "terrace", "hollow",
		"ridge", "basin", "grove", "ember", "tundra", "delta", "cove", "plateau",
		"channel", "prairie", "bridge", "harvest", "cascade", "foundry", "bastion",
		"outpost", "compass", "ledge",
	}
)

// NewSpecID generates a fresh adjective-noun-noun token triple, e.g.
// "quiet-harbor-ledger". Randomness is sourced from google/uuid rather
// than a separate RNG.
func NewSpecID() string {
	u := uuid.New()
	b := u[:]
	adj := idAdjectives[int(b[0])%len(idAdjectives)]
	n1 := idNouns[int(b[1])%len(idNouns)]
	n2 := idNouns[int(b[2])%len(idNouns)]
	if n2 == n1 {
		n2 = idNouns[(int(b[2])+1)%len(idNouns)]
	}
	return fmt.Sprintf("%s-%s-%s", adj, n1, n2)
}

// NewConflictID and NewReviewID use plain uuids: these ids are never
// surfaced to a human as a memorable label, only echoed back by tooling.
func NewConflictID() string { return "conflict-" + uuid.New().String() }
func NewReviewID() string   { return "review-" + uuid.New().String() }
