// Package resolution provides computing the accepted value for a
// conflict under a chosen strategy (ours/theirs/merge/manual).
//
// Values arrive as the generic interface{} shape produced by decoding
// JSON (map[string]interface{}, []interface{}, string, float64, bool,
// nil) since that is how conflicts round-trip through the store; Merge
// normalizes through a JSON pass first so it behaves identically whether
// called on a freshly detected conflict or one reloaded from disk.
package resolution

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"manifold/internal/manifold"
)

// Resolve computes the accepted value for one conflict under strategy.
func Resolve(strategy manifold.Strategy, localValue, remoteValue, manualValue interface{}) (interface{}, error) {
	switch strategy {
	case manifold.StrategyOurs:
		return localValue, nil
	case manifold.StrategyTheirs:
		return remoteValue, nil
	case manifold.StrategyManual:
		if manualValue == nil {
			return nil, manifold.Wrap(manifold.KindManualValueRequired, fmt.Errorf("manual strategy requires a value"))
		}
		return manualValue, nil
	case manifold.StrategyMerge:
		merged, ok := Merge(localValue, remoteValue)
		if !ok {
			return nil, manifold.Wrap(manifold.KindMergeDeclined, fmt.Errorf("values at this path cannot be merged automatically"))
		}
		return merged, nil
	default:
		return nil, fmt.Errorf("unknown resolution strategy %q", strategy)
	}
}

// Merge attempts a structural merge of one conflicted value. ok is
// false whenever the values cannot be reconciled and the caller must pick
// a different strategy (MergeDeclined).
func Merge(local, remote interface{}) (merged interface{}, ok bool) {
	local = normalize(local)
	remote = normalize(remote)

	if cmp.Equal(local, remote) {
		return local, true
	}

	switch l := local.(type) {
	case []interface{}:
		r, isArr := remote.([]interface{})
		if !isArr {
			return nil, false
		}
		return mergeArrays(l, r)

	case string:
		r, isStr := remote.(string)
		if !isStr {
			return nil, false
		}
		return mergeStrings(l, r)

	case map[string]interface{}:
		r, isObj := remote.(map[string]interface{})
		if !isObj {
			return nil, false
		}
		return mergeObjects(l, r)

	default:
		return nil, false
	}
}

// normalize round-trips v through JSON so values sourced straight from
// Go structs (float64 vs int, typed string aliases, nil slices) compare
// and merge identically to values reloaded from the store.
func normalize(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// mergeArrays unions two arrays preserving local order, then appending
// remote-only items. Object items are identified by their "id" field
// when present; everything else is identified by its JSON encoding.
//
// A shared id whose content differs between local and remote is not
// silently reconciled: ok is false and the caller must pick a different
// strategy (ours/theirs/manual) for the whole array field.
func mergeArrays(local, remote []interface{}) (merged []interface{}, ok bool) {
	localByID := idIndex(local)
	remoteByID := idIndex(remote)
	for id, lItem := range localByID {
		if rItem, present := remoteByID[id]; present && !cmp.Equal(lItem, rItem) {
			return nil, false
		}
	}

	seen := make(map[string]bool, len(local)+len(remote))
	out := make([]interface{}, 0, len(local)+len(remote))

	for _, item := range local {
		key := itemKey(item)
		if !seen[key] {
			seen[key] = true
			out = append(out, item)
		}
	}
	for _, item := range remote {
		key := itemKey(item)
		if !seen[key] {
			seen[key] = true
			out = append(out, item)
		}
	}
	return out, true
}

// idIndex maps the "id" field of every object item to the item itself,
// for items that carry one.
func idIndex(items []interface{}) map[string]interface{} {
	idx := make(map[string]interface{}, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id, ok := m["id"].(string)
		if !ok {
			continue
		}
		idx[id] = item
	}
	return idx
}

func itemKey(v interface{}) string {
	if m, ok := v.(map[string]interface{}); ok {
		if id, ok := m["id"].(string); ok {
			return "id:" + id
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// mergeStrings accepts the longer string when one is a prefix/extension
// of the other; otherwise merge declines.
func mergeStrings(local, remote string) (string, bool) {
	if strings.HasPrefix(remote, local) {
		return remote, true
	}
	if strings.HasPrefix(local, remote) {
		return local, true
	}
	return "", false
}

// mergeObjects deep-merges non-conflicting sub-fields recursively. If any
// sub-field is a non-mergeable scalar conflict, the whole merge declines
// — the caller must pick ours/theirs/manual instead.
func mergeObjects(local, remote map[string]interface{}) (map[string]interface{}, bool) {
	merged := make(map[string]interface{}, len(local)+len(remote))

	for _, key := range unionKeys(local, remote) {
		lv, lok := local[key]
		rv, rok := remote[key]

		switch {
		case lok && rok:
			if cmp.Equal(lv, rv) {
				merged[key] = lv
				continue
			}
			sub, ok := Merge(lv, rv)
			if !ok {
				return nil, false
			}
			merged[key] = sub
		case lok:
			merged[key] = lv
		case rok:
			merged[key] = rv
		}
	}
	return merged, true
}

func unionKeys(maps ...map[string]interface{}) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
