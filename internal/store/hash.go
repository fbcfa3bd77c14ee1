package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// DefaultJobID returns the hex SHA-256 of the canonical JSON
// {"task": ..., "params": ...} with sorted map keys, used as the stable ID
// for default jobs (spec §3: "equal canonical JSON => equal hash => upsert
// updates in place").
func DefaultJobID(taskName string, params map[string]any) string {
	canon := canonicalize(map[string]any{
		"task":   taskName,
		"params": params,
	})
	b, _ := json.Marshal(canon)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// canonicalize recursively rebuilds maps into a form that encoding/json
// renders with sorted keys (Go's json.Marshal already sorts map[string]any
// keys, so this mainly normalizes nested map types produced by arbitrary
// decoding) and leaves slices/scalars untouched.
func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = canonicalize(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return v
	}
}
