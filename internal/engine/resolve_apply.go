package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"manifold/internal/manifold"
)

func isKind(err error, kind manifold.Kind) bool {
	k, ok := manifold.KindOf(err)
	return ok && k == kind
}

// applyFieldPath applies an accepted conflict value at the conflict
// detector's field_path shape ("name", "requirements/<id>",
// "requirements/<id>/scenarios/<id>")
// and returns the resulting spec. The conflict machinery exchanges
// values as the generic interface{} shape produced by JSON decoding, so
// the cleanest way to splice one back in is to marshal spec to the same
// generic shape, mutate it there, and unmarshal back into a Spec.
func applyFieldPath(spec *manifold.Spec, fieldPath string, value interface{}) (*manifold.Spec, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal spec: %w", err)
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode spec: %w", err)
	}

	segments := strings.Split(fieldPath, "/")
	if err := setAtFieldPath(generic, segments, value); err != nil {
		return nil, err
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encode spec: %w", err)
	}
	var result manifold.Spec
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("decode resolved spec: %w", err)
	}
	return &result, nil
}

// setAtFieldPath mutates generic according to segments, which is either
// a single scalar key ("name", "description", "stage") or an
// array-field/id pair, optionally followed by a nested array-field/id
// pair ("requirements/<id>/scenarios/<id>").
func setAtFieldPath(generic map[string]interface{}, segments []string, value interface{}) error {
	switch len(segments) {
	case 1:
		if value == nil {
			delete(generic, segments[0])
		} else {
			generic[segments[0]] = value
		}
		return nil

	case 2:
		return setArrayItem(generic, segments[0], segments[1], value)

	case 4:
		arr, ok := generic[segments[0]].([]interface{})
		if !ok {
			return fmt.Errorf("field %q is not an array", segments[0])
		}
		for _, item := range arr {
			obj, ok := item.(map[string]interface{})
			if !ok || obj["id"] != segments[1] {
				continue
			}
			return setArrayItem(obj, segments[2], segments[3], value)
		}
		return fmt.Errorf("item %q not found in %q", segments[1], segments[0])

	default:
		return fmt.Errorf("unsupported field path %q", strings.Join(segments, "/"))
	}
}

// setArrayItem replaces, removes, or appends the element of
// generic[arrayField] whose "id" matches id. value == nil means the
// accepted state is "absent" (a deletion won the resolution).
func setArrayItem(generic map[string]interface{}, arrayField, id string, value interface{}) error {
	arr, _ := generic[arrayField].([]interface{})

	for i, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok || obj["id"] != id {
			continue
		}
		if value == nil {
			generic[arrayField] = append(arr[:i:i], arr[i+1:]...)
			return nil
		}
		arr[i] = value
		generic[arrayField] = arr
		return nil
	}

	if value == nil {
		return nil // already absent; deletion is idempotent
	}
	generic[arrayField] = append(arr, value)
	return nil
}
