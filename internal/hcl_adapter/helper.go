package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder often populates optional fields with non-nil, zero-width
// expression objects, so a simple nil check is insufficient. This helper
// provides a robust way to check for genuine user-provided attributes.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Expression is nil, considering it undefined.", "attribute", attrName)
		return false
	}

	// The most reliable check is to see if the expression's source range has a
	// physical size. A real attribute occupies bytes in the file, while a
	// placeholder for an omitted optional attribute has a zero-width range
	// where the start and end byte are the same.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"is_defined", isDefined,
	)

	return isDefined
}

// extractBodyAttributes converts a captured block body into a map of
// expressions keyed by attribute name.
func (l *Loader) extractBodyAttributes(block *bodyBlock) map[string]hcl.Expression {
	if block == nil || block.Body == nil {
		return nil
	}
	attrs, _ := block.Body.JustAttributes()
	if attrs == nil {
		return nil
	}
	exprMap := make(map[string]hcl.Expression)
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap
}

// translateInputDefinition is a helper that processes a single HCL input
// block, handling its type, default and constraint attributes. Defaults and
// constraints must be literal values; they evaluate without a context.
func translateInputDefinition(ctx context.Context, in *inputBlock, ownerKind, ownerName string) (*config.InputDefinition, error) {
	def := &config.InputDefinition{
		Name:         in.Name,
		Description:  in.Description,
		Optional:     in.Optional,
		Required:     in.Required,
		HashContents: in.HashContents,
	}

	if isExprDefined(ctx, in.Type, "type") {
		parsedType, err := typeExprToCtyType(ctx, in.Type)
		if err != nil {
			return nil, fmt.Errorf("in %s '%s', input '%s': %w", ownerKind, ownerName, in.Name, err)
		}
		def.Type = parsedType
	}

	if isExprDefined(ctx, in.Default, "default") {
		val, diags := in.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default value for input '%s' in %s '%s': %w", in.Name, ownerKind, ownerName, diags)
		}
		// A null default marks the input optional without providing a value.
		def.Optional = true
		if !val.IsNull() {
			def.Default = &val
		}
	}

	if isExprDefined(ctx, in.Choices, "choices") {
		val, diags := in.Choices.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid choices for input '%s' in %s '%s': %w", in.Name, ownerKind, ownerName, diags)
		}
		if val.IsNull() || !val.CanIterateElements() {
			return nil, fmt.Errorf("choices for input '%s' in %s '%s' must be a list", in.Name, ownerKind, ownerName)
		}
		for it := val.ElementIterator(); it.Next(); {
			_, choice := it.Element()
			def.Choices = append(def.Choices, choice)
		}
	}

	if v, err := literalAttr(ctx, in.Min, "min", in.Name, ownerKind, ownerName); err != nil {
		return nil, err
	} else if v != nil {
		def.Min = v
	}
	if v, err := literalAttr(ctx, in.Max, "max", in.Name, ownerKind, ownerName); err != nil {
		return nil, err
	} else if v != nil {
		def.Max = v
	}

	return def, nil
}

func literalAttr(ctx context.Context, expr hcl.Expression, attrName, inputName, ownerKind, ownerName string) (*cty.Value, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid %s for input '%s' in %s '%s': %w", attrName, inputName, ownerKind, ownerName, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	return &val, nil
}
