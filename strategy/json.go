package strategy

import "encoding/json"

// canonicalJSON serializes a task result for context assembly. Go's
// encoding/json already emits map keys in sorted order, which is enough
// determinism for the snapshot-equality property this feeds into.
func canonicalJSON(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
