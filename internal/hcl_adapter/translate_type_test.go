package hcl_adapter

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func parseExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), "parse %q: %s", src, diags.Error())
	return expr
}

func TestTypeExprToCtyType(t *testing.T) {
	ctx := testCtx(t)

	t.Run("primitives", func(t *testing.T) {
		cases := map[string]cty.Type{
			"string": cty.String,
			"number": cty.Number,
			"bool":   cty.Bool,
			"any":    cty.DynamicPseudoType,
		}
		for src, want := range cases {
			got, err := typeExprToCtyType(ctx, parseExpr(t, src))
			require.NoError(t, err, src)
			assert.True(t, got.Equals(want), "for %q got %s", src, got.FriendlyName())
		}
	})

	t.Run("nil expression defaults to any", func(t *testing.T) {
		got, err := typeExprToCtyType(ctx, nil)
		require.NoError(t, err)
		assert.True(t, got.Equals(cty.DynamicPseudoType))
	})

	t.Run("collections", func(t *testing.T) {
		cases := map[string]cty.Type{
			"list(number)":       cty.List(cty.Number),
			"map(string)":        cty.Map(cty.String),
			"set(bool)":          cty.Set(cty.Bool),
			"list(list(string))": cty.List(cty.List(cty.String)),
		}
		for src, want := range cases {
			got, err := typeExprToCtyType(ctx, parseExpr(t, src))
			require.NoError(t, err, src)
			assert.True(t, got.Equals(want), "for %q got %s", src, got.FriendlyName())
		}
	})

	t.Run("objects", func(t *testing.T) {
		got, err := typeExprToCtyType(ctx, parseExpr(t, `object({ a = string, b = number })`))
		require.NoError(t, err)
		want := cty.Object(map[string]cty.Type{"a": cty.String, "b": cty.Number})
		assert.True(t, got.Equals(want), got.FriendlyName())

		t.Run("quoted keys", func(t *testing.T) {
			got, err := typeExprToCtyType(ctx, parseExpr(t, `object({ "first" = bool })`))
			require.NoError(t, err)
			assert.True(t, got.Equals(cty.Object(map[string]cty.Type{"first": cty.Bool})))
		})

		t.Run("nested", func(t *testing.T) {
			got, err := typeExprToCtyType(ctx, parseExpr(t, `object({ inner = object({ x = number }) })`))
			require.NoError(t, err)
			want := cty.Object(map[string]cty.Type{
				"inner": cty.Object(map[string]cty.Type{"x": cty.Number}),
			})
			assert.True(t, got.Equals(want), got.FriendlyName())
		})

		t.Run("empty", func(t *testing.T) {
			got, err := typeExprToCtyType(ctx, parseExpr(t, `object({})`))
			require.NoError(t, err)
			assert.True(t, got.Equals(cty.EmptyObject))
		})
	})

	t.Run("errors", func(t *testing.T) {
		cases := map[string]string{
			"list(any)":            "collection types cannot contain type 'any'",
			"widget":               `unknown primitive type "widget"`,
			"weird(string)":        `unknown type constructor function "weird"`,
			"list(number, string)": "require exactly one argument",
			"object(string)":       "must be an object literal",
			"3":                    "unsupported expression for type definition",
		}
		for src, wantErr := range cases {
			_, err := typeExprToCtyType(ctx, parseExpr(t, src))
			require.Error(t, err, src)
			assert.Contains(t, err.Error(), wantErr, src)
		}
	})
}
