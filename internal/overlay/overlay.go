// Package overlay assembles nested configuration mappings from their three
// sources: inline attribute maps, parameter files, and dotted sweep keys.
// The result feeds params.Class.Resolve.
package overlay

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Merge deep-merges two nested overlays, values from over winning. Nested
// mappings (cty objects and maps) merge recursively; any other value
// replaces wholesale. Neither input is mutated.
func Merge(base, over map[string]cty.Value) map[string]cty.Value {
	if len(base) == 0 {
		return clone(over)
	}
	out := clone(base)
	for key, ov := range over {
		bv, exists := out[key]
		if exists && isMapping(bv) && isMapping(ov) {
			merged := Merge(attributes(bv), attributes(ov))
			out[key] = objectVal(merged)
			continue
		}
		out[key] = ov
	}
	return out
}

// Nest expands dotted keys into nested mappings: {"solver.rtol": x} becomes
// {"solver": {"rtol": x}}. Plain keys pass through. A key that is both a
// leaf and a prefix ("a" and "a.b") is an error.
func Nest(flat map[string]cty.Value) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(flat))

	// Deterministic iteration keeps error reporting stable.
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parts := strings.Split(key, ".")
		for _, p := range parts {
			if p == "" {
				return nil, fmt.Errorf("overlay key %q has an empty path segment", key)
			}
		}
		if err := insert(out, parts, flat[key], key); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func insert(m map[string]cty.Value, parts []string, v cty.Value, fullKey string) error {
	head := parts[0]
	if len(parts) == 1 {
		if existing, ok := m[head]; ok {
			if isMapping(existing) && isMapping(v) {
				m[head] = objectVal(Merge(attributes(existing), attributes(v)))
				return nil
			}
			return fmt.Errorf("overlay key %q conflicts with an earlier value for %q", fullKey, head)
		}
		m[head] = v
		return nil
	}

	var nested map[string]cty.Value
	if existing, ok := m[head]; ok {
		if !isMapping(existing) {
			return fmt.Errorf("overlay key %q conflicts with an earlier value for %q", fullKey, head)
		}
		nested = attributes(existing)
	} else {
		nested = make(map[string]cty.Value)
	}
	if err := insert(nested, parts[1:], v, fullKey); err != nil {
		return err
	}
	m[head] = objectVal(nested)
	return nil
}

func clone(m map[string]cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func isMapping(v cty.Value) bool {
	if v.IsNull() {
		return false
	}
	t := v.Type()
	return t.IsObjectType() || t.IsMapType()
}

func attributes(v cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value)
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		out[k.AsString()] = ev
	}
	return out
}

func objectVal(m map[string]cty.Value) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(m)
}
