// Package params implements the parametric object model: typed parameter
// declarations with defaults, nested ownership forming a parameter tree,
// configuration overlay with strict type checking, and a canonical encoding
// of resolved trees suitable for content addressing.
package params

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Spec is a single declared parameter: its type constraint, an optional
// default, and any refinements attached by a manifest.
type Spec struct {
	Name        string
	Type        cty.Type
	Description string

	// Default is the value used when the overlay does not provide one.
	// cty.NilVal means the parameter has no default.
	Default cty.Value

	// Optional parameters may stay unset without error; Required ones must
	// be provided by the overlay even when a default exists.
	Optional bool
	Required bool

	// HashContents marks a string parameter as a file path whose content,
	// not the path itself, participates in the canonical encoding.
	HashContents bool

	// Choices restricts the value to a fixed set.
	Choices []cty.Value

	// Min and Max bound numeric values inclusively. cty.NilVal disables a bound.
	Min cty.Value
	Max cty.Value

	// AltTypes widens the accepted types beyond Type.
	AltTypes []cty.Type
}

// accepts reports whether the spec's constraint (Type or any AltType)
// admits a value of the given type.
func (s *Spec) accepts(got cty.Type) bool {
	if compatible(s.Type, got) {
		return true
	}
	for _, alt := range s.AltTypes {
		if compatible(alt, got) {
			return true
		}
	}
	return false
}

// Class is the declaration side of a parametric object: an ordered set of
// parameter specs plus nested child classes. A Class owns its children;
// the nesting forms the shape of every tree resolved from it.
type Class struct {
	Name        string
	Description string

	specs     []*Spec
	specIndex map[string]*Spec

	children   []*Class
	childIndex map[string]*Class
}

// NewClass returns an empty class with the given name.
func NewClass(name string) *Class {
	return &Class{
		Name:       name,
		specIndex:  make(map[string]*Spec),
		childIndex: make(map[string]*Class),
	}
}

// AddSpec declares a parameter on the class. Declaration order is preserved.
func (c *Class) AddSpec(s *Spec) error {
	if s.Name == "" {
		return fmt.Errorf("class %q: parameter name must not be empty", c.Name)
	}
	if _, dup := c.specIndex[s.Name]; dup {
		return fmt.Errorf("class %q: parameter %q declared twice", c.Name, s.Name)
	}
	if _, dup := c.childIndex[s.Name]; dup {
		return fmt.Errorf("class %q: %q already declared as a nested group", c.Name, s.Name)
	}
	c.specs = append(c.specs, s)
	c.specIndex[s.Name] = s
	return nil
}

// AddChild declares a nested parametric class under this one.
func (c *Class) AddChild(child *Class) error {
	if child.Name == "" {
		return fmt.Errorf("class %q: nested class name must not be empty", c.Name)
	}
	if _, dup := c.childIndex[child.Name]; dup {
		return fmt.Errorf("class %q: nested class %q declared twice", c.Name, child.Name)
	}
	if _, dup := c.specIndex[child.Name]; dup {
		return fmt.Errorf("class %q: %q already declared as a parameter", c.Name, child.Name)
	}
	c.children = append(c.children, child)
	c.childIndex[child.Name] = child
	return nil
}

// Spec returns the declared parameter with the given name.
func (c *Class) Spec(name string) (*Spec, bool) {
	s, ok := c.specIndex[name]
	return s, ok
}

// Child returns the nested class with the given name.
func (c *Class) Child(name string) (*Class, bool) {
	ch, ok := c.childIndex[name]
	return ch, ok
}

// Specs returns the declared parameters in declaration order.
func (c *Class) Specs() []*Spec {
	return c.specs
}

// Children returns the nested classes in declaration order.
func (c *Class) Children() []*Class {
	return c.children
}
