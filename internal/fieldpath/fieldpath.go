// Package fieldpath resolves dotted paths against the heterogeneous
// JSON-like tree built from a virtual response object
// { status: <int>, body: <parsed> }. Resolution is total: it never
// panics, and a missing or unreachable node simply yields absent.
package fieldpath

import "strconv"

// NewTree builds the canonical {status, body} root that assertions and
// extraction resolve paths against.
func NewTree(status int, body any) map[string]any {
	return map[string]any{"status": status, "body": body}
}

// Resolve walks path against root, returning (value, true) when found
// or (nil, false) when absent.
//
// The literal path "status" returns the status integer from a
// {status, body} wrapper, or — if root is itself a bare integer — that
// integer. Otherwise the path is split on '.' and walked segment by
// segment: a map segment selects a child, a slice segment must be
// all-digits and in range, anything else (including a non-container
// encountered before the path is exhausted) yields absent. Once absent
// is produced it propagates — Resolve never panics.
func Resolve(root any, path string) (any, bool) {
	if path == "status" {
		switch v := root.(type) {
		case map[string]any:
			n, ok := v["status"]
			return n, ok
		case int:
			return v, true
		default:
			return nil, false
		}
	}
	return walk(root, splitPath(path))
}

// ResolveHeader resolves a "header:Name"-prefixed path against a
// response header map, the supplemented extraction form the teacher's
// attacker.go introduced. The caller strips the "header:" prefix before
// calling.
func ResolveHeader(headers map[string]string, name string) (string, bool) {
	v, ok := headers[name]
	return v, ok && v != ""
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}

func walk(node any, segments []string) (any, bool) {
	current := node
	for _, seg := range segments {
		switch v := current.(type) {
		case map[string]any:
			child, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = child
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || seg[0] < '0' || seg[0] > '9' || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
