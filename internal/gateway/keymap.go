package gateway

import "strings"

// CamelizeKeys rewrites every object key in a decoded JSON value from
// snake_case to camelCase, recursively. Values are never touched. This is the
// single casing boundary: everything behind the gateway sees camelCase keys
// regardless of the backend's convention.
func CamelizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[snakeToCamel(k)] = CamelizeKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CamelizeKeys(val)
		}
		return out
	default:
		return v
	}
}

func snakeToCamel(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	parts := strings.Split(key, "_")
	var b strings.Builder
	b.Grow(len(key))
	wroteFirst := false
	for _, part := range parts {
		if part == "" {
			continue
		}
		if !wroteFirst {
			b.WriteString(part)
			wroteFirst = true
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	if !wroteFirst {
		return key
	}
	return b.String()
}
