package params

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DecodeNode populates a Go struct from a resolved tree. Fields tagged `cty`
// receive their parameter's value; nested tagged structs receive their child
// node. Unset optional parameters leave the field at its current value, so
// decoding into a prototype preserves struct-level defaults.
func DecodeNode(n *Node, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("decode: target must be a non-nil pointer, got %T", target)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("decode: target must point to a struct, got %s", v.Kind())
	}
	return decodeStruct(n, v, "")
}

func decodeStruct(n *Node, v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("cty")
		if tag == "" || tag == "-" || !field.IsExported() {
			continue
		}
		path := joinPath(prefix, tag)
		fieldVal := v.Field(i)

		if child, ok := n.Child(tag); ok {
			if field.Type.Kind() != reflect.Struct {
				return fmt.Errorf("decode: field for group %q must be a struct, got %s", path, field.Type.Kind())
			}
			if err := decodeStruct(child, fieldVal, path); err != nil {
				return err
			}
			continue
		}

		val, ok := n.Get(tag)
		if !ok || val.IsNull() {
			continue
		}

		if isCtyValue(field.Type) {
			fieldVal.Set(reflect.ValueOf(val))
			continue
		}

		dst := fieldVal.Addr()
		if field.Type.Kind() == reflect.Pointer {
			elem := reflect.New(field.Type.Elem())
			if err := fromCty(val, elem.Interface(), path); err != nil {
				return err
			}
			fieldVal.Set(elem)
			continue
		}
		if err := fromCty(val, dst.Interface(), path); err != nil {
			return err
		}
	}
	return nil
}

func fromCty(val cty.Value, dst any, path string) error {
	if err := gocty.FromCtyValue(val, dst); err != nil {
		return fmt.Errorf("decode: parameter %q: %w", path, err)
	}
	return nil
}
