package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths, translates it into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for a format-specific expression evaluator. It
// acts as the bridge between raw configuration and the cty values consumed
// by parameter resolution.
type Converter interface {
	// EvalArguments evaluates a captured argument body (e.g. a `params`
	// block) against evalCtx and returns the resulting value overlay.
	EvalArguments(
		ctx context.Context,
		args map[string]hcl.Expression,
		evalCtx *hcl.EvalContext,
	) (map[string]cty.Value, error)

	// ToCtyValue converts a native Go value (like a map[string]any produced
	// by a pure Go module) into its equivalent cty.Value for internal use.
	ToCtyValue(v any) (cty.Value, error)
}
