package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// EvalArguments evaluates a captured argument body against evalCtx and
// returns the resulting overlay. Expression errors carry the attribute name.
func (c *Converter) EvalArguments(
	ctx context.Context,
	args map[string]hcl.Expression,
	evalCtx *hcl.EvalContext,
) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Evaluating argument body.", "attribute_count", len(args))

	if len(args) == 0 {
		return nil, nil
	}

	values := make(map[string]cty.Value, len(args))
	for name, expr := range args {
		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate argument '%s': %w", name, diags)
		}
		values[name] = val
	}
	return values, nil
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
