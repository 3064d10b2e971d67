// Package sweep expands a run's matrix block into its variants. Every
// combination of the matrix axes becomes one task instance with its own
// parameter overlay.
package sweep

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/memogrid/internal/overlay"
	"github.com/zclconf/go-cty/cty"
)

// Assignment is one axis value chosen for a variant, in sorted axis order.
// Key keeps the dotted form written in the matrix block.
type Assignment struct {
	Key   string
	Value cty.Value
}

// Variant is one point of the cartesian product.
type Variant struct {
	Index       int
	Assignments []Assignment
	// Overlay is the variant's parameter overlay with dotted keys already
	// expanded, ready to merge over the run's params.
	Overlay map[string]cty.Value
}

// Expand evaluates the matrix axes and returns the cartesian product of
// their values. Axes evaluate statically: they must be literal lists and
// cannot reference other runs. Axes combine in sorted key order with the
// last key varying fastest, so variant indices are stable across processes.
func Expand(matrix map[string]hcl.Expression) ([]Variant, error) {
	if len(matrix) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(matrix))
	for k := range matrix {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	axes := make([][]cty.Value, len(keys))
	total := 1
	for i, key := range keys {
		v, diags := matrix[key].Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("matrix axis %q must be a literal list: %w", key, diags)
		}
		if v.IsNull() || !(v.Type().IsListType() || v.Type().IsTupleType() || v.Type().IsSetType()) {
			got := "null"
			if !v.IsNull() {
				got = v.Type().FriendlyName()
			}
			return nil, fmt.Errorf("matrix axis %q must be a list, got %s", key, got)
		}
		if v.LengthInt() == 0 {
			return nil, fmt.Errorf("matrix axis %q must not be empty", key)
		}

		vals := make([]cty.Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			vals = append(vals, ev)
		}
		axes[i] = vals
		total *= len(vals)
	}

	variants := make([]Variant, 0, total)
	for idx := 0; idx < total; idx++ {
		assignments := make([]Assignment, len(keys))
		flat := make(map[string]cty.Value, len(keys))

		rem := idx
		for i := len(keys) - 1; i >= 0; i-- {
			n := len(axes[i])
			val := axes[i][rem%n]
			rem /= n
			assignments[i] = Assignment{Key: keys[i], Value: val}
			flat[keys[i]] = val
		}

		nested, err := overlay.Nest(flat)
		if err != nil {
			return nil, fmt.Errorf("matrix variant %d: %w", idx, err)
		}
		variants = append(variants, Variant{
			Index:       idx,
			Assignments: assignments,
			Overlay:     nested,
		})
	}
	return variants, nil
}

// Describe renders a variant's assignments for log lines, e.g. "r=2.8 x0=0.2".
func (v Variant) Describe() string {
	out := ""
	for i, a := range v.Assignments {
		if i > 0 {
			out += " "
		}
		out += a.Key + "=" + formatValue(a.Value)
	}
	return out
}

func formatValue(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			return bf.Text('f', 0)
		}
		return bf.Text('g', -1)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}
	return v.Type().FriendlyName()
}
