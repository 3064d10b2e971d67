package params

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Infer builds a Class from a Go struct prototype. Fields tagged `cty` become
// declared parameters: the field type implies the constraint and the field's
// value in the prototype supplies the default. Nested tagged structs become
// nested classes, so a populated struct literal is a complete parametric
// declaration.
//
// Pointer fields declare optional parameters without defaults. Nil slice and
// map fields declare parameters that must be provided (no default), since a
// nil collection is indistinguishable from an intentionally empty one.
func Infer(name string, prototype any) (*Class, error) {
	v := reflect.ValueOf(prototype)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("infer %q: prototype must not be nil", name)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("infer %q: prototype must be a struct, got %s", name, v.Kind())
	}
	return inferStruct(name, v)
}

func inferStruct(name string, v reflect.Value) (*Class, error) {
	class := NewClass(name)
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("cty")
		if tag == "" || tag == "-" || !field.IsExported() {
			continue
		}

		fieldVal := v.Field(i)
		fieldType := field.Type

		// Nested structs declare nested classes.
		if fieldType.Kind() == reflect.Struct && !isCtyValue(fieldType) {
			child, err := inferStruct(tag, fieldVal)
			if err != nil {
				return nil, fmt.Errorf("infer %q: %w", name, err)
			}
			if err := class.AddChild(child); err != nil {
				return nil, err
			}
			continue
		}

		spec, err := inferSpec(tag, fieldVal, fieldType)
		if err != nil {
			return nil, fmt.Errorf("infer %q, field %q: %w", name, field.Name, err)
		}
		if err := class.AddSpec(spec); err != nil {
			return nil, err
		}
	}
	return class, nil
}

func inferSpec(name string, fieldVal reflect.Value, fieldType reflect.Type) (*Spec, error) {
	optional := false
	if fieldType.Kind() == reflect.Pointer {
		if fieldType.Elem().Kind() == reflect.Struct && !isCtyValue(fieldType.Elem()) {
			return nil, fmt.Errorf("pointer-to-struct fields are not supported, declare the group by value")
		}
		optional = true
		fieldType = fieldType.Elem()
		if !fieldVal.IsNil() {
			fieldVal = fieldVal.Elem()
		} else {
			fieldVal = reflect.Value{}
		}
	}

	if isCtyValue(fieldType) {
		// A raw cty.Value field accepts anything.
		return &Spec{Name: name, Type: cty.DynamicPseudoType, Optional: true}, nil
	}

	specType, err := gocty.ImpliedType(reflect.Zero(fieldType).Interface())
	if err != nil {
		return nil, fmt.Errorf("cannot imply a value type: %w", err)
	}

	spec := &Spec{Name: name, Type: specType, Optional: optional}

	if !fieldVal.IsValid() {
		return spec, nil
	}

	// Nil collections carry no default; everything else defaults to the
	// prototype's field value, zero values included.
	switch fieldType.Kind() {
	case reflect.Slice, reflect.Map:
		if fieldVal.IsNil() {
			return spec, nil
		}
	}

	def, err := gocty.ToCtyValue(fieldVal.Interface(), specType)
	if err != nil {
		return nil, fmt.Errorf("cannot encode default: %w", err)
	}
	spec.Default = def
	return spec, nil
}

func isCtyValue(t reflect.Type) bool {
	return t == reflect.TypeOf(cty.Value{})
}
