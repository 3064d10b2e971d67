package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestResults(t *testing.T) {
	r := NewResults()
	assert.Equal(t, 0, r.Len())
	assert.True(t, r.Object().RawEquals(cty.EmptyObjectVal))

	r.Set("final", cty.NumberIntVal(21))
	r.Set("count", cty.NumberIntVal(100))
	r.Set("final", cty.NumberIntVal(42)) // overwrite keeps position

	assert.Equal(t, []string{"final", "count"}, r.Names())
	assert.Equal(t, 2, r.Len())

	v, ok := r.Get("final")
	require.True(t, ok)
	assert.True(t, v.RawEquals(cty.NumberIntVal(42)))

	_, ok = r.Get("absent")
	assert.False(t, ok)

	obj := r.Object()
	assert.True(t, obj.Type().IsObjectType())
	assert.True(t, obj.GetAttr("count").RawEquals(cty.NumberIntVal(100)))
}

func TestResultsReplace(t *testing.T) {
	r := NewResults()
	r.Set("stale", cty.True)

	err := r.Replace(cty.ObjectVal(map[string]cty.Value{
		"mean": cty.NumberIntVal(3),
		"last": cty.StringVal("x"),
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"last", "mean"}, r.Names())
	_, ok := r.Get("stale")
	assert.False(t, ok)

	t.Run("rejects non-object values", func(t *testing.T) {
		assert.Error(t, r.Replace(cty.StringVal("nope")))
		assert.Error(t, r.Replace(cty.NullVal(cty.EmptyObject)))
	})
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		raw       string
		expected  Mode
		expectErr bool
	}{
		{raw: "", expected: ModeAuto},
		{raw: "auto", expected: ModeAuto},
		{raw: "run", expected: ModeRun},
		{raw: "load", expected: ModeLoad},
		{raw: "always", expectErr: true},
	}

	for _, tc := range testCases {
		m, err := ParseMode(tc.raw)
		if tc.expectErr {
			assert.ErrorContains(t, err, "unknown mode")
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.expected, m)
		assert.NotEqual(t, "unknown", m.String())
	}
}
