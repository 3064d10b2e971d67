package hcl_adapter

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestEvalArguments(t *testing.T) {
	ctx := testCtx(t)
	c := NewConverter()

	args := map[string]hcl.Expression{
		"r":      parseExpr(t, `run.baseline.results.final * 2`),
		"series": parseExpr(t, `"${run.baseline.store}/series.json"`),
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"run": cty.ObjectVal(map[string]cty.Value{
				"baseline": cty.ObjectVal(map[string]cty.Value{
					"results": cty.ObjectVal(map[string]cty.Value{
						"final": cty.NumberIntVal(21),
					}),
					"store": cty.StringVal("data/memo/ab/cdef"),
				}),
			}),
		},
	}

	values, err := c.EvalArguments(ctx, args, evalCtx)
	require.NoError(t, err)
	assert.True(t, values["r"].RawEquals(cty.NumberIntVal(42)))
	assert.True(t, values["series"].RawEquals(cty.StringVal("data/memo/ab/cdef/series.json")))

	t.Run("empty body", func(t *testing.T) {
		values, err := c.EvalArguments(ctx, nil, evalCtx)
		require.NoError(t, err)
		assert.Nil(t, values)
	})

	t.Run("undefined reference", func(t *testing.T) {
		args := map[string]hcl.Expression{
			"r": parseExpr(t, `run.missing.results.final`),
		}
		_, err := c.EvalArguments(ctx, args, evalCtx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to evaluate argument 'r'")
	})
}

func TestToCtyValue(t *testing.T) {
	c := NewConverter()

	t.Run("nil", func(t *testing.T) {
		v, err := c.ToCtyValue(nil)
		require.NoError(t, err)
		assert.Equal(t, cty.NilVal, v)
	})

	t.Run("map", func(t *testing.T) {
		v, err := c.ToCtyValue(map[string]int{"a": 1})
		require.NoError(t, err)
		assert.True(t, v.Type().IsMapType())
		assert.True(t, v.Index(cty.StringVal("a")).RawEquals(cty.NumberIntVal(1)))
	})

	t.Run("string", func(t *testing.T) {
		v, err := c.ToCtyValue("hello")
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.StringVal("hello")))
	})
}
