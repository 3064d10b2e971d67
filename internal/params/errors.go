package params

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// TypeMismatchError reports a configured value whose type is outside the set
// of types the parameter declaration accepts.
type TypeMismatchError struct {
	Path  string
	Want  cty.Type
	Got   cty.Type
	Value cty.Value
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("parameter %q only accepts %s: got value of type %s",
		e.Path, e.Want.FriendlyName(), e.Got.FriendlyName())
}

// UnknownParameterError reports a configuration key that does not correspond
// to any declared parameter or nested group.
type UnknownParameterError struct {
	Path  string
	Class string
}

// Error implements the error interface.
func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q: %q declares no such parameter or group", e.Path, e.Class)
}

// ChoiceError reports a value outside a parameter's declared choice set.
type ChoiceError struct {
	Path    string
	Choices []cty.Value
	Value   cty.Value
}

// Error implements the error interface.
func (e *ChoiceError) Error() string {
	names := make([]string, 0, len(e.Choices))
	for _, c := range e.Choices {
		names = append(names, formatValue(c))
	}
	return fmt.Sprintf("parameter %q only accepts one of [%s]: got %s",
		e.Path, strings.Join(names, ", "), formatValue(e.Value))
}

// RangeError reports a numeric value outside a parameter's declared bounds.
type RangeError struct {
	Path     string
	Min, Max cty.Value
	Value    cty.Value
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	lo, hi := "-inf", "+inf"
	if e.Min != cty.NilVal {
		lo = formatValue(e.Min)
	}
	if e.Max != cty.NilVal {
		hi = formatValue(e.Max)
	}
	return fmt.Sprintf("parameter %q must lie in [%s, %s]: got %s", e.Path, lo, hi, formatValue(e.Value))
}

// MissingParameterError reports a required parameter that the overlay did
// not provide and that has no declared default.
type MissingParameterError struct {
	Path string
}

// Error implements the error interface.
func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Path)
}

// formatValue renders a cty value compactly for error messages.
func formatValue(v cty.Value) string {
	if v == cty.NilVal || v.IsNull() {
		return "null"
	}
	switch v.Type() {
	case cty.String:
		return fmt.Sprintf("%q", v.AsString())
	case cty.Number:
		return formatNumber(v)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	default:
		return v.Type().FriendlyName() + " value"
	}
}

// joinPath appends a key to a dotted parameter path.
func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
