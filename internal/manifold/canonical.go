package manifold

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// topLevelOrder is the fixed key order required by the sync file format:
// "$schema, spec_id, project, boundary, name, description, stage,
// stages_completed, requirements, tasks, decisions, history". Every other
// object in the document has its keys alphabetized.
var topLevelOrder = []string{
	"$schema", "spec_id", "project", "boundary", "name", "description",
	"stage", "stages_completed", "requirements", "tasks", "decisions", "history",
}

const schemaURI = "https://manifold.dev/schema/core/v1"

// MarshalCanonical renders spec as the canonical sync file: fixed
// top-level key order, two-space indent, alphabetized nested keys, and a
// trailing newline. This is required for byte-identical round-trips and
// stable `git diff` output.
func MarshalCanonical(spec *Spec) ([]byte, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal spec: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic map[string]interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode spec for canonicalization: %w", err)
	}
	generic["$schema"] = schemaURI

	var buf bytes.Buffer
	if err := encodeOrdered(&buf, generic, topLevelOrder, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// encodeOrdered writes obj as a JSON object with keys in `order` first (in
// that order, skipping any order-entry absent from obj), then any
// remaining keys alphabetized. Used only for the top-level object; nested
// objects always alphabetize via encodeValue.
func encodeOrdered(buf *bytes.Buffer, obj map[string]interface{}, order []string, indent int) error {
	seen := make(map[string]bool, len(order))
	keys := make([]string, 0, len(obj))
	for _, k := range order {
		if v, ok := obj[k]; ok {
			_ = v
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(obj))
	for k := range obj {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)
	return writeObject(buf, obj, keys, indent)
}

func writeObject(buf *bytes.Buffer, obj map[string]interface{}, keys []string, indent int) error {
	buf.WriteByte('{')
	inner := indent + 1
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
		writeIndent(buf, inner)
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteString(": ")
		if err := encodeValue(buf, obj[k], inner); err != nil {
			return err
		}
	}
	if len(keys) > 0 {
		buf.WriteByte('\n')
		writeIndent(buf, indent)
	}
	buf.WriteByte('}')
	return nil
}

func encodeValue(buf *bytes.Buffer, v interface{}, indent int) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return writeObject(buf, val, keys, indent)
	case []interface{}:
		if len(val) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
			writeIndent(buf, indent+1)
			if err := encodeValue(buf, item, indent+1); err != nil {
				return err
			}
		}
		buf.WriteByte('\n')
		writeIndent(buf, indent)
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

func writeIndent(buf *bytes.Buffer, n int) {
	for i := 0; i < n; i++ {
		buf.WriteString("  ")
	}
}

// UnmarshalCanonical parses a sync file back into a Spec. It tolerates the
// injected "$schema" key (ignored) and does not require any particular key
// order on input — only MarshalCanonical's output is order-sensitive.
func UnmarshalCanonical(data []byte) (*Spec, error) {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("unmarshal spec: %w", err)
	}
	return &spec, nil
}
