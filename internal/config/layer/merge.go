package layer

import (
	"reflect"
	"strings"
)

// DeepMerge merges src into dst and returns dst. Nested maps merge
// recursively; any other src value replaces the dst value.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = cloneValue(srcVal)
	}
	return dst
}

// GetByPath returns the value at a dot-separated path.
func GetByPath(data map[string]any, path string) (any, bool) {
	if data == nil {
		return nil, false
	}
	var current any = data
	for part := range strings.SplitSeq(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

// SetByPath stores value at a dot-separated path, creating intermediate
// maps. A non-map value in the way is replaced.
func SetByPath(data map[string]any, path string, value any) {
	if data == nil {
		return
	}
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// DeleteByPath removes the value at a dot-separated path and reports
// whether it existed.
func DeleteByPath(data map[string]any, path string) bool {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return false
		}
		current = next
	}
	key := parts[len(parts)-1]
	if _, ok := current[key]; !ok {
		return false
	}
	delete(current, key)
	return true
}

// AppendByPath adds value to the list at path unless an equal element is
// already there. A missing list is created. It reports whether the list
// changed.
func AppendByPath(data map[string]any, path string, value any) bool {
	existing, _ := GetByPath(data, path)
	list := asList(existing)
	for _, v := range list {
		if ValuesEqual(v, value) {
			return false
		}
	}
	SetByPath(data, path, append(list, cloneValue(value)))
	return true
}

// RemoveByPath removes every element equal to value from the list at path
// and reports whether any was removed.
func RemoveByPath(data map[string]any, path string, value any) bool {
	existing, ok := GetByPath(data, path)
	if !ok {
		return false
	}
	list := asList(existing)
	kept := make([]any, 0, len(list))
	for _, v := range list {
		if !ValuesEqual(v, value) {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(list) {
		return false
	}
	SetByPath(data, path, kept)
	return true
}

// asList normalizes decoded lists. TOML and YAML decoders produce []any,
// callers may hand in typed slices.
func asList(v any) []any {
	switch l := v.(type) {
	case nil:
		return nil
	case []any:
		return append([]any(nil), l...)
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return []any{v}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
}

// FlattenMap flattens nested maps into dot-separated keys.
func FlattenMap(data map[string]any) map[string]any {
	result := make(map[string]any)
	flatten(data, "", result)
	return result
}

func flatten(data map[string]any, prefix string, result map[string]any) {
	for key, val := range data {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok && len(nested) > 0 {
			flatten(nested, full, result)
			continue
		}
		result[full] = val
	}
}

// DiffMaps returns the flattened paths added, modified and removed
// between old and new.
func DiffMaps(old, new map[string]any) (added, modified, removed []string) {
	oldFlat := FlattenMap(old)
	newFlat := FlattenMap(new)
	for path, newVal := range newFlat {
		oldVal, ok := oldFlat[path]
		switch {
		case !ok:
			added = append(added, path)
		case !ValuesEqual(oldVal, newVal):
			modified = append(modified, path)
		}
	}
	for path := range oldFlat {
		if _, ok := newFlat[path]; !ok {
			removed = append(removed, path)
		}
	}
	return added, modified, removed
}

// ValuesEqual compares decoded configuration values. Lists compare
// element-wise regardless of their Go slice type, and integers compare
// by value across int widths and whole floats.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := number(a); ok {
		nb, ok := number(b)
		return ok && na == nb
	}
	switch va := a.(type) {
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for k, v := range va {
			w, ok := vb[k]
			if !ok || !ValuesEqual(v, w) {
				return false
			}
		}
		return true
	case string, bool:
		return a == b
	}

	if !isList(a) || !isList(b) {
		return reflect.DeepEqual(a, b)
	}
	la, lb := asList(a), asList(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if !ValuesEqual(la[i], lb[i]) {
			return false
		}
	}
	return true
}

func isList(v any) bool {
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
