package resolution

import (
	"testing"

	"github.com/stretchr/testify/require"

	"manifold/internal/manifold"
)

func TestResolve_Ours(t *testing.T) {
	v, err := Resolve(manifold.StrategyOurs, "local", "remote", nil)
	require.NoError(t, err)
	require.Equal(t, "local", v)
}

func TestResolve_Theirs(t *testing.T) {
	v, err := Resolve(manifold.StrategyTheirs, "local", "remote", nil)
	require.NoError(t, err)
	require.Equal(t, "remote", v)
}

func TestResolve_ManualRequiresValue(t *testing.T) {
	_, err := Resolve(manifold.StrategyManual, "local", "remote", nil)
	require.Error(t, err)
	kind, ok := manifold.KindOf(err)
	require.True(t, ok)
	require.Equal(t, manifold.KindManualValueRequired, kind)

	v, err := Resolve(manifold.StrategyManual, "local", "remote", "chosen")
	require.NoError(t, err)
	require.Equal(t, "chosen", v)
}

func TestMerge_ArraysUnionDistinctIDs(t *testing.T) {
	local := []interface{}{
		map[string]interface{}{"id": "r1", "title": "R1"},
		map[string]interface{}{"id": "r2", "title": "R2"},
	}
	remote := []interface{}{
		map[string]interface{}{"id": "r1", "title": "R1"},
		map[string]interface{}{"id": "r3", "title": "R3"},
	}

	merged, ok := Merge(local, remote)
	require.True(t, ok)
	arr := merged.([]interface{})
	require.Len(t, arr, 3)
	require.Equal(t, "r1", arr[0].(map[string]interface{})["id"])
	require.Equal(t, "r2", arr[1].(map[string]interface{})["id"])
	require.Equal(t, "r3", arr[2].(map[string]interface{})["id"])
}

func TestMerge_ArraysSharedIDDivergentContent_Declines(t *testing.T) {
	local := []interface{}{
		map[string]interface{}{"id": "s1", "text": "user logs in"},
	}
	remote := []interface{}{
		map[string]interface{}{"id": "s1", "text": "user logs in with MFA"},
	}

	_, ok := Merge(local, remote)
	require.False(t, ok)
}

func TestMerge_StringsPrefixAcceptsLonger(t *testing.T) {
	merged, ok := Merge("Issue refund", "Issue refund fast")
	require.True(t, ok)
	require.Equal(t, "Issue refund fast", merged)
}

func TestMerge_StringsDivergent_Declines(t *testing.T) {
	_, ok := Merge("Issue refund", "Cancel order")
	require.False(t, ok)
}

func TestMerge_ObjectsDeepMergeIndependentFields(t *testing.T) {
	local := map[string]interface{}{"title": "R1", "priority": "must"}
	remote := map[string]interface{}{"title": "R1", "rationale": "because"}

	merged, ok := Merge(local, remote)
	require.True(t, ok)
	m := merged.(map[string]interface{})
	require.Equal(t, "must", m["priority"])
	require.Equal(t, "because", m["rationale"])
}

func TestMerge_ObjectsNonMergeableScalar_Declines(t *testing.T) {
	local := map[string]interface{}{"status": "pending"}
	remote := map[string]interface{}{"status": "completed"}

	_, ok := Merge(local, remote)
	require.False(t, ok)
}

func TestResolve_MergeDeclined(t *testing.T) {
	_, err := Resolve(manifold.StrategyMerge, "A", "B", nil)
	require.Error(t, err)
	kind, ok := manifold.KindOf(err)
	require.True(t, ok)
	require.Equal(t, manifold.KindMergeDeclined, kind)
}
