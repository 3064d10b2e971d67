package params

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Resolve overlays a (possibly nested) configuration mapping onto the
// class's declared defaults and returns the fully resolved tree. All
// validation happens here, before any computation touches the values:
// unknown keys, type mismatches, choice and range violations, and missing
// required parameters are all construction-time errors.
func (c *Class) Resolve(overlay map[string]cty.Value) (*Node, error) {
	return c.resolve(overlay, "", nil)
}

func (c *Class) resolve(overlay map[string]cty.Value, prefix string, parent *Node) (*Node, error) {
	n := &Node{
		class:    c,
		parent:   parent,
		values:   make(map[string]cty.Value, len(c.specs)),
		childIdx: make(map[string]*Node, len(c.children)),
	}

	// Route overlay keys to their declarations first so unknown keys fail
	// before any value work happens.
	childOverlays := make(map[string]map[string]cty.Value, len(c.children))
	provided := make(map[string]cty.Value, len(overlay))
	for key, v := range overlay {
		if _, ok := c.specIndex[key]; ok {
			provided[key] = v
			continue
		}
		if _, ok := c.childIndex[key]; ok {
			nested, err := attributesOf(v)
			if err != nil {
				return nil, fmt.Errorf("parameter group %q: %w", joinPath(prefix, key), err)
			}
			childOverlays[key] = nested
			continue
		}
		return nil, &UnknownParameterError{Path: joinPath(prefix, key), Class: c.Name}
	}

	for _, spec := range c.specs {
		path := joinPath(prefix, spec.Name)
		v, ok := provided[spec.Name]
		if !ok {
			if spec.Required {
				return nil, &MissingParameterError{Path: path}
			}
			if spec.Default != cty.NilVal {
				n.values[spec.Name] = spec.Default
				continue
			}
			if spec.Optional {
				continue
			}
			return nil, &MissingParameterError{Path: path}
		}
		resolved, err := spec.check(path, v)
		if err != nil {
			return nil, err
		}
		n.values[spec.Name] = resolved
	}

	for _, childClass := range c.children {
		childNode, err := childClass.resolve(childOverlays[childClass.Name], joinPath(prefix, childClass.Name), n)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, childNode)
		n.childIdx[childClass.Name] = childNode
	}

	return n, nil
}

// check validates one configured value against the spec and converts it to
// the declared type.
func (s *Spec) check(path string, v cty.Value) (cty.Value, error) {
	if v.IsNull() {
		if s.Optional {
			return cty.NullVal(s.Type), nil
		}
		return cty.NilVal, &TypeMismatchError{Path: path, Want: s.Type, Got: v.Type(), Value: v}
	}

	if !s.accepts(v.Type()) {
		return cty.NilVal, &TypeMismatchError{Path: path, Want: s.Type, Got: v.Type(), Value: v}
	}

	// Compatibility is established; conversion is now mechanical
	// (tuple to list, object to map, and so on).
	target := s.Type
	if !compatible(target, v.Type()) {
		for _, alt := range s.AltTypes {
			if compatible(alt, v.Type()) {
				target = alt
				break
			}
		}
	}
	if target != cty.DynamicPseudoType {
		converted, err := convert.Convert(v, target)
		if err != nil {
			return cty.NilVal, &TypeMismatchError{Path: path, Want: target, Got: v.Type(), Value: v}
		}
		v = converted
	}

	if len(s.Choices) > 0 {
		matched := false
		for _, choice := range s.Choices {
			if v.RawEquals(choice) {
				matched = true
				break
			}
		}
		if !matched {
			return cty.NilVal, &ChoiceError{Path: path, Choices: s.Choices, Value: v}
		}
	}

	if (s.Min != cty.NilVal || s.Max != cty.NilVal) && v.Type() == cty.Number {
		if s.Min != cty.NilVal && v.LessThan(s.Min).True() {
			return cty.NilVal, &RangeError{Path: path, Min: s.Min, Max: s.Max, Value: v}
		}
		if s.Max != cty.NilVal && s.Max.LessThan(v).True() {
			return cty.NilVal, &RangeError{Path: path, Min: s.Min, Max: s.Max, Value: v}
		}
	}

	return v, nil
}

// compatible reports whether a value of type got may populate a parameter
// declared as type want. Primitive kinds never cross: strings are not
// numbers, numbers are not bools. Collections recurse element-wise, which
// makes HCL tuple and object literals assignable to declared list and map
// types without weakening the primitive rule.
func compatible(want, got cty.Type) bool {
	if want == cty.DynamicPseudoType || got == cty.DynamicPseudoType {
		return true
	}
	if want.Equals(got) {
		return true
	}
	switch {
	case want.IsListType() || want.IsSetType():
		elem := want.ElementType()
		if got.IsTupleType() {
			for _, et := range got.TupleElementTypes() {
				if !compatible(elem, et) {
					return false
				}
			}
			return true
		}
		if got.IsListType() || got.IsSetType() {
			return compatible(elem, got.ElementType())
		}
	case want.IsMapType():
		elem := want.ElementType()
		if got.IsObjectType() {
			for _, at := range got.AttributeTypes() {
				if !compatible(elem, at) {
					return false
				}
			}
			return true
		}
		if got.IsMapType() {
			return compatible(elem, got.ElementType())
		}
	case want.IsObjectType():
		if !got.IsObjectType() {
			return false
		}
		wantAttrs := want.AttributeTypes()
		gotAttrs := got.AttributeTypes()
		if len(wantAttrs) != len(gotAttrs) {
			return false
		}
		for name, wt := range wantAttrs {
			gt, ok := gotAttrs[name]
			if !ok || !compatible(wt, gt) {
				return false
			}
		}
		return true
	case want.IsTupleType():
		if !got.IsTupleType() {
			return false
		}
		wantElems := want.TupleElementTypes()
		gotElems := got.TupleElementTypes()
		if len(wantElems) != len(gotElems) {
			return false
		}
		for i, wt := range wantElems {
			if !compatible(wt, gotElems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// attributesOf unpacks an object or map value into a plain overlay map for
// recursion into a nested class.
func attributesOf(v cty.Value) (map[string]cty.Value, error) {
	if v.IsNull() {
		return nil, nil
	}
	t := v.Type()
	if !t.IsObjectType() && !t.IsMapType() {
		return nil, fmt.Errorf("expected a nested mapping, got %s", t.FriendlyName())
	}
	out := make(map[string]cty.Value)
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		out[k.AsString()] = ev
	}
	return out, nil
}
