package overlay

import (
	"fmt"
	"os"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// FromFile reads a parameter file into a nested overlay. YAML and JSON both
// parse (JSON is a YAML subset); the top level must be a mapping.
func FromFile(path string) (map[string]cty.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing parameter file %s: %w", path, err)
	}

	out := make(map[string]cty.Value, len(raw))
	for key, v := range raw {
		val, err := fromAny(v)
		if err != nil {
			return nil, fmt.Errorf("parameter file %s, key %q: %w", path, key, err)
		}
		out[key] = val
	}
	return out, nil
}

// fromAny converts a decoded YAML value into its cty equivalent.
func fromAny(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case uint64:
		return cty.NumberUIntVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case string:
		return cty.StringVal(x), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(x))
		for i, ev := range x {
			val, err := fromAny(ev)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = val
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(x) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(x))
		for k, ev := range x {
			val, err := fromAny(ev)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = val
		}
		return cty.ObjectVal(attrs), nil
	case map[any]any:
		return cty.NilVal, fmt.Errorf("mapping keys must be strings")
	default:
		return cty.NilVal, fmt.Errorf("unsupported value of type %T", v)
	}
}
