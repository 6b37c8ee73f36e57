package resolver

import (
	"strconv"
	"strings"
)

// lookup walks nested JSON objects decoded into map[string]any.
func lookup(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func lookupMap(m map[string]any, path ...string) map[string]any {
	v, ok := lookup(m, path...)
	if !ok {
		return nil
	}
	obj, _ := v.(map[string]any)
	return obj
}

// lookupString returns a string or number at path as trimmed text, or "".
func lookupString(m map[string]any, path ...string) string {
	v, ok := lookup(m, path...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// lookupNumber returns a number (or numeric string) at path, or 0.
func lookupNumber(m map[string]any, path ...string) float64 {
	v, ok := lookup(m, path...)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// firstString returns the first non-empty string among the given paths.
func firstString(m map[string]any, paths ...[]string) string {
	for _, p := range paths {
		if s := lookupString(m, p...); s != "" {
			return s
		}
	}
	return ""
}
