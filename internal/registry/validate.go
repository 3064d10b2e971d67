package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/params"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Validate performs a strict parity check between manifests and Go code,
// then derives the parameter class for every app. The class starts from the
// handler's input struct; manifest refinements (descriptions, defaults,
// choices, bounds, hash_contents, required) merge onto it. Every manifest
// input must name a field of the Go struct; declared types must agree with
// the inferred ones.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	names := make([]string, 0, len(r.DefinitionRegistry))
	for name := range r.DefinitionRegistry {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, appName := range names {
		def := r.DefinitionRegistry[appName]
		if def.Lifecycle == nil || def.Lifecycle.OnRun == "" {
			errs = append(errs, fmt.Sprintf("app '%s': manifest declares no on_run handler", appName))
			continue
		}
		handler, ok := r.HandlerRegistry[def.Lifecycle.OnRun]
		if !ok {
			errs = append(errs, fmt.Sprintf("app '%s': handler '%s' is not registered", appName, def.Lifecycle.OnRun))
			continue
		}

		class, err := buildClass(appName, handler, def)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		r.apps[appName] = handler
		r.classes[appName] = class
		logger.Debug("Validated app.", "app", appName, "handler", def.Lifecycle.OnRun)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// buildClass derives an app's parameter class from its handler input struct
// and merges the manifest refinements onto it.
func buildClass(appName string, handler *RegisteredApp, def *config.AppDefinition) (*params.Class, error) {
	if handler.NewInput == nil {
		if len(def.Inputs) > 0 || len(def.Groups) > 0 {
			return nil, fmt.Errorf("app '%s': manifest declares inputs, but Go handler has no input struct", appName)
		}
		return params.NewClass(appName), nil
	}

	class, err := params.Infer(appName, handler.NewInput())
	if err != nil {
		return nil, fmt.Errorf("app '%s': %w", appName, err)
	}
	if def.Description != "" {
		class.Description = def.Description
	}

	if err := mergeInto(class, appName, def.Inputs, def.InputOrder, def.Groups, def.GroupOrder); err != nil {
		return nil, err
	}
	return class, nil
}

// mergeInto applies one manifest namespace (inputs plus nested groups) onto
// the matching class. path carries the dotted location for error messages.
func mergeInto(
	class *params.Class,
	path string,
	inputs map[string]*config.InputDefinition,
	inputOrder []string,
	groups map[string]*config.GroupDefinition,
	groupOrder []string,
) error {
	for _, name := range inputOrder {
		if err := mergeInput(class, path, inputs[name]); err != nil {
			return err
		}
	}
	for _, name := range groupOrder {
		g := groups[name]
		child, ok := class.Child(name)
		if !ok {
			return fmt.Errorf("app '%s': manifest declares group '%s' which is not found in Go struct", path, name)
		}
		if g.Description != "" {
			child.Description = g.Description
		}
		if err := mergeInto(child, path+"."+name, g.Inputs, g.InputOrder, g.Groups, g.GroupOrder); err != nil {
			return err
		}
	}
	return nil
}

// mergeInput applies one manifest input definition onto the matching spec.
func mergeInput(class *params.Class, path string, d *config.InputDefinition) error {
	spec, ok := class.Spec(d.Name)
	if !ok {
		return fmt.Errorf("app '%s': manifest declares input '%s' which is not found in Go struct", path, d.Name)
	}

	// A declared type must agree with the type inferred from the Go field.
	// `type = any` declares nothing and skips the check.
	if d.Type != cty.NilType && !d.Type.Equals(cty.DynamicPseudoType) {
		if !d.Type.Equals(spec.Type) {
			return fmt.Errorf("app '%s', input '%s': type mismatch. Manifest requires '%s' but Go struct field provides '%s'",
				path, d.Name, d.Type.FriendlyName(), spec.Type.FriendlyName())
		}
	}

	if d.Description != "" {
		spec.Description = d.Description
	}
	if d.Default != nil {
		v, err := fitSpecType(spec, *d.Default)
		if err != nil {
			return fmt.Errorf("app '%s', input '%s': default %s", path, d.Name, err)
		}
		spec.Default = v
		spec.Optional = true
	}
	if d.Optional {
		spec.Optional = true
	}
	if d.Required {
		spec.Required = true
	}
	if d.HashContents {
		if spec.Type != cty.String {
			return fmt.Errorf("app '%s', input '%s': hash_contents applies only to string parameters, not %s",
				path, d.Name, spec.Type.FriendlyName())
		}
		spec.HashContents = true
	}
	if len(d.Choices) > 0 {
		choices := make([]cty.Value, 0, len(d.Choices))
		for _, c := range d.Choices {
			v, err := fitSpecType(spec, c)
			if err != nil {
				return fmt.Errorf("app '%s', input '%s': choice %s", path, d.Name, err)
			}
			choices = append(choices, v)
		}
		spec.Choices = choices
	}
	if d.Min != nil || d.Max != nil {
		if spec.Type != cty.Number {
			return fmt.Errorf("app '%s', input '%s': min/max apply only to number parameters, not %s",
				path, d.Name, spec.Type.FriendlyName())
		}
		if d.Min != nil {
			v, err := fitSpecType(spec, *d.Min)
			if err != nil {
				return fmt.Errorf("app '%s', input '%s': min %s", path, d.Name, err)
			}
			spec.Min = v
		}
		if d.Max != nil {
			v, err := fitSpecType(spec, *d.Max)
			if err != nil {
				return fmt.Errorf("app '%s', input '%s': max %s", path, d.Name, err)
			}
			spec.Max = v
		}
	}
	return nil
}

// fitSpecType converts a manifest literal to the spec's declared type.
func fitSpecType(spec *params.Spec, v cty.Value) (cty.Value, error) {
	if spec.Type == cty.DynamicPseudoType {
		return v, nil
	}
	converted, err := convert.Convert(v, spec.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("value %s does not fit type %s", v.GoString(), spec.Type.FriendlyName())
	}
	return converted, nil
}
