package webhook

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// extractor pulls one candidate value out of a decoded payload.
type extractor func(body map[string]any) (any, bool)

// at walks a path of object keys.
func at(path ...string) extractor {
	return func(body map[string]any) (any, bool) {
		var cur any = body
		for _, key := range path {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = obj[key]
			if !ok || cur == nil {
				return nil, false
			}
		}
		return cur, true
	}
}

// firstKey returns the key of an object, for fields such as payment_method
// that arrive as {"upi": {...}}. Keys holding an object win over the rest;
// ties go to the lexically smallest key.
func firstKey(ex extractor) extractor {
	return func(body map[string]any) (any, bool) {
		v, ok := ex(body)
		if !ok {
			return nil, false
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		keys := slices.Sorted(maps.Keys(obj))
		for _, k := range keys {
			if _, nested := obj[k].(map[string]any); nested {
				return k, true
			}
		}
		if len(keys) > 0 {
			return keys[0], true
		}
		return nil, false
	}
}

func firstString(body map[string]any, sources []extractor) string {
	for _, src := range sources {
		v, ok := src(body)
		if !ok {
			continue
		}
		if s := stringify(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(body map[string]any, sources []extractor) float64 {
	for _, src := range sources {
		v, ok := src(body)
		if !ok {
			continue
		}
		if n, ok := numberOf(v); ok {
			return n
		}
	}
	return 0
}

func firstObject(body map[string]any, sources []extractor) map[string]any {
	for _, src := range sources {
		v, ok := src(body)
		if !ok {
			continue
		}
		if obj, ok := v.(map[string]any); ok && len(obj) > 0 {
			return obj
		}
	}
	return nil
}

func firstArray(body map[string]any, sources []extractor) []any {
	for _, src := range sources {
		v, ok := src(body)
		if !ok {
			continue
		}
		if arr, ok := v.([]any); ok && len(arr) > 0 {
			return arr
		}
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func numberOf(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
