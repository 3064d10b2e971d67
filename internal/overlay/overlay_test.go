package overlay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestMerge(t *testing.T) {
	base := map[string]cty.Value{
		"r": cty.NumberFloatVal(3.7),
		"solver": cty.ObjectVal(map[string]cty.Value{
			"rtol":  cty.NumberFloatVal(1e-6),
			"steps": cty.NumberIntVal(100),
		}),
	}
	over := map[string]cty.Value{
		"solver": cty.ObjectVal(map[string]cty.Value{
			"steps": cty.NumberIntVal(500),
		}),
		"label": cty.StringVal("sweep"),
	}

	merged := Merge(base, over)

	assert.True(t, merged["r"].RawEquals(cty.NumberFloatVal(3.7)))
	assert.True(t, merged["label"].RawEquals(cty.StringVal("sweep")))

	solver := merged["solver"]
	assert.True(t, solver.GetAttr("steps").RawEquals(cty.NumberIntVal(500)), "overlay wins inside nested mappings")
	assert.True(t, solver.GetAttr("rtol").RawEquals(cty.NumberFloatVal(1e-6)), "untouched nested keys survive")

	t.Run("inputs are not mutated", func(t *testing.T) {
		assert.True(t, base["solver"].GetAttr("steps").RawEquals(cty.NumberIntVal(100)))
	})

	t.Run("non-mapping values replace wholesale", func(t *testing.T) {
		m := Merge(
			map[string]cty.Value{"seeds": cty.TupleVal([]cty.Value{cty.NumberIntVal(1)})},
			map[string]cty.Value{"seeds": cty.TupleVal([]cty.Value{cty.NumberIntVal(2), cty.NumberIntVal(3)})},
		)
		assert.Equal(t, 2, m["seeds"].LengthInt())
	})
}

func TestNest(t *testing.T) {
	t.Run("dotted keys become nested mappings", func(t *testing.T) {
		nested, err := Nest(map[string]cty.Value{
			"solver.rtol": cty.NumberFloatVal(1e-9),
			"solver.mode": cty.StringVal("exact"),
			"r":           cty.NumberFloatVal(3.7),
		})
		require.NoError(t, err)

		assert.True(t, nested["r"].RawEquals(cty.NumberFloatVal(3.7)))
		solver := nested["solver"]
		require.True(t, solver.Type().IsObjectType())
		assert.True(t, solver.GetAttr("rtol").RawEquals(cty.NumberFloatVal(1e-9)))
		assert.True(t, solver.GetAttr("mode").RawEquals(cty.StringVal("exact")))
	})

	t.Run("conflicting leaf and prefix fail", func(t *testing.T) {
		_, err := Nest(map[string]cty.Value{
			"solver":      cty.NumberIntVal(1),
			"solver.rtol": cty.NumberFloatVal(1e-9),
		})
		assert.ErrorContains(t, err, "conflicts")
	})

	t.Run("empty segments fail", func(t *testing.T) {
		_, err := Nest(map[string]cty.Value{"a..b": cty.NumberIntVal(1)})
		assert.ErrorContains(t, err, "empty path segment")
	})
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "params.yaml")
		require.NoError(t, os.WriteFile(path, []byte("r: 3.99\nsolver:\n  steps: 500\n  exact: true\nseeds: [1, 2]\n"), 0o644))

		got, err := FromFile(path)
		require.NoError(t, err)

		assert.True(t, got["r"].RawEquals(cty.NumberFloatVal(3.99)))
		solver := got["solver"]
		assert.True(t, solver.GetAttr("steps").RawEquals(cty.NumberIntVal(500)))
		assert.True(t, solver.GetAttr("exact").RawEquals(cty.True))
		assert.Equal(t, 2, got["seeds"].LengthInt())
	})

	t.Run("json parses through the same path", func(t *testing.T) {
		path := filepath.Join(dir, "params.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"label": "base", "n": 1000}`), 0o644))

		got, err := FromFile(path)
		require.NoError(t, err)
		assert.True(t, got["label"].RawEquals(cty.StringVal("base")))
		assert.True(t, got["n"].RawEquals(cty.NumberIntVal(1000)))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := FromFile(filepath.Join(dir, "absent.yaml"))
		assert.ErrorContains(t, err, "reading parameter file")
	})

	t.Run("top level must be a mapping", func(t *testing.T) {
		path := filepath.Join(dir, "list.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- 1\n- 2\n"), 0o644))
		_, err := FromFile(path)
		assert.Error(t, err)
	})
}
