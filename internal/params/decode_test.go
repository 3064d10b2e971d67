package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestDecodeNode(t *testing.T) {
	class := simClass(t)
	node, err := class.Resolve(map[string]cty.Value{
		"r":     cty.NumberFloatVal(3.99),
		"seeds": cty.TupleVal([]cty.Value{cty.NumberIntVal(5)}),
		"tags":  cty.MapVal(map[string]cty.Value{"run": cty.StringVal("a")}),
		"solver": cty.ObjectVal(map[string]cty.Value{
			"steps": cty.NumberIntVal(250),
		}),
	})
	require.NoError(t, err)

	var out simProto
	require.NoError(t, DecodeNode(node, &out))

	assert.Equal(t, 3.99, out.R)
	assert.Equal(t, "base", out.Label, "defaults flow through untouched")
	assert.Equal(t, []int{5}, out.Seeds)
	assert.Equal(t, map[string]string{"run": "a"}, out.Tags)
	assert.Equal(t, 250, out.Solver.Steps)
	assert.Equal(t, 1e-6, out.Solver.Rtol)
	assert.Nil(t, out.Note, "unset optional pointer stays nil")
}

func TestDecodeNodeOptionalPointer(t *testing.T) {
	class := simClass(t)
	node, err := class.Resolve(map[string]cty.Value{
		"note": cty.StringVal("pinned"),
	})
	require.NoError(t, err)

	var out simProto
	require.NoError(t, DecodeNode(node, &out))
	require.NotNil(t, out.Note)
	assert.Equal(t, "pinned", *out.Note)
}

func TestDecodeNodeRejectsBadTargets(t *testing.T) {
	node, err := simClass(t).Resolve(nil)
	require.NoError(t, err)

	assert.ErrorContains(t, DecodeNode(node, simProto{}), "must be a non-nil pointer")

	var n *simProto
	assert.ErrorContains(t, DecodeNode(node, n), "must be a non-nil pointer")
}

func TestDecodeNodeFractionalIntoIntFails(t *testing.T) {
	type proto struct {
		N int `cty:"n"`
	}
	class, err := Infer("p", &proto{N: 10})
	require.NoError(t, err)

	node, err := class.Resolve(map[string]cty.Value{"n": cty.NumberFloatVal(2.5)})
	require.NoError(t, err, "2.5 is a number, so the constraint admits it")

	var out proto
	err = DecodeNode(node, &out)
	assert.ErrorContains(t, err, `parameter "n"`)
}
