package execctx

import (
	"encoding/json"
	"regexp"
	"strconv"
)

// templateRe matches {{A.b.c}} references, mirroring the teacher engine's
// own interpolation regex (pkg/engine/engine.go's interpolateTemplate).
var templateRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.\[\]-]+)\s*\}\}`)

// InterpolateString resolves every {{A.b.c}} occurrence in s by walking A in
// the flattened nodeOutputs/inputs/variables mapping. Unresolved paths
// become the literal empty string (spec.md §4.1).
func InterpolateString(s string, flat map[string]any) string {
	return templateRe.ReplaceAllStringFunc(s, func(match string) string {
		path := templateRe.FindStringSubmatch(match)[1]
		value, ok := resolvePath(path, flat)
		if !ok {
			return ""
		}
		return stringify(value)
	})
}

// InterpolateValue recursively walks v (maps, slices, and string leaves) and
// substitutes templates in every string leaf, leaving other leaf types
// unchanged. This is the entry point used by the Workflow Builder / Scheduler
// to resolve an entire node's config tree before dispatch.
func InterpolateValue(v any, flat map[string]any) any {
	switch val := v.(type) {
	case string:
		return InterpolateString(val, flat)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = InterpolateValue(inner, flat)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = InterpolateValue(inner, flat)
		}
		return out
	default:
		return v
	}
}

// resolvePath walks dotted segments of path through nested maps/slices
// starting from flat. The first segment is the top-level key (a node id,
// input name, or variable name); subsequent segments descend into the
// resolved value.
func resolvePath(path string, flat map[string]any) (any, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}
	current, ok := flat[segments[0]]
	if !ok {
		return nil, false
	}
	for _, seg := range segments[1:] {
		next, ok := descend(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func descend(v any, segment string) (any, bool) {
	if idx, err := strconv.Atoi(segment); err == nil {
		if arr, ok := v.([]any); ok {
			if idx < 0 || idx >= len(arr) {
				return nil, false
			}
			return arr[idx], true
		}
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	val, ok := m[segment]
	return val, ok
}

func splitPath(path string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segments = append(segments, path[start:i])
			start = i + 1
		}
	}
	segments = append(segments, path[start:])
	return segments
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
