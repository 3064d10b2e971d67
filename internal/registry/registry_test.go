package registry

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

type testOutputOpts struct {
	Precision int `cty:"precision"`
}

type testInput struct {
	R      float64        `cty:"r"`
	Series string         `cty:"series"`
	Output testOutputOpts `cty:"output"`
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func testHandler() *RegisteredApp {
	return &RegisteredApp{
		NewInput:  func() any { return &testInput{R: 3, Output: testOutputOpts{Precision: 8}} },
		InputType: reflect.TypeOf(testInput{}),
		Fn:        func() {},
	}
}

func modelWith(def *config.AppDefinition) *config.Model {
	return &config.Model{
		Apps:       map[string]*config.AppDefinition{def.Name: def},
		Experiment: &config.Experiment{},
	}
}

func numPtr(n int64) *cty.Value {
	v := cty.NumberIntVal(n)
	return &v
}

func TestRegisterApp(t *testing.T) {
	r := New()
	r.RegisterApp("OnRunTest", testHandler())
	assert.Len(t, r.HandlerRegistry, 1)

	assert.Panics(t, func() {
		r.RegisterApp("OnRunTest", testHandler())
	})
}

func TestValidateMergesManifest(t *testing.T) {
	r := New()
	r.RegisterApp("OnRunTest", testHandler())
	r.PopulateDefinitionsFromModel(modelWith(&config.AppDefinition{
		Name:        "logistic",
		Description: "Iterates the logistic map.",
		Lifecycle:   &config.Lifecycle{OnRun: "OnRunTest"},
		Inputs: map[string]*config.InputDefinition{
			"r": {
				Name:    "r",
				Type:    cty.Number,
				Min:     numPtr(0),
				Max:     numPtr(4),
				Default: numPtr(2),
			},
			"series": {
				Name:         "series",
				HashContents: true,
				Required:     true,
			},
		},
		InputOrder: []string{"r", "series"},
		Groups: map[string]*config.GroupDefinition{
			"output": {
				Name: "output",
				Inputs: map[string]*config.InputDefinition{
					"precision": {Name: "precision", Description: "Digits kept in the series file."},
				},
				InputOrder: []string{"precision"},
			},
		},
		GroupOrder: []string{"output"},
	}))

	require.NoError(t, r.Validate(testCtx(t)))

	handler, ok := r.App("logistic")
	require.True(t, ok)
	assert.NotNil(t, handler.NewInput)

	class, ok := r.Class("logistic")
	require.True(t, ok)
	assert.Equal(t, "Iterates the logistic map.", class.Description)

	rSpec, ok := class.Spec("r")
	require.True(t, ok)
	assert.True(t, rSpec.Min.RawEquals(cty.NumberIntVal(0)))
	assert.True(t, rSpec.Max.RawEquals(cty.NumberIntVal(4)))
	assert.True(t, rSpec.Default.RawEquals(cty.NumberIntVal(2)), "manifest default overrides the struct default")

	seriesSpec, ok := class.Spec("series")
	require.True(t, ok)
	assert.True(t, seriesSpec.HashContents)
	assert.True(t, seriesSpec.Required)

	output, ok := class.Child("output")
	require.True(t, ok)
	precision, ok := output.Spec("precision")
	require.True(t, ok)
	assert.Equal(t, "Digits kept in the series file.", precision.Description)
	assert.True(t, precision.Default.RawEquals(cty.NumberIntVal(8)), "struct default survives when the manifest stays silent")
}

func TestValidateErrors(t *testing.T) {
	newDef := func() *config.AppDefinition {
		return &config.AppDefinition{
			Name:      "logistic",
			Lifecycle: &config.Lifecycle{OnRun: "OnRunTest"},
			Inputs:    map[string]*config.InputDefinition{},
		}
	}

	t.Run("manifest without lifecycle", func(t *testing.T) {
		r := New()
		r.RegisterApp("OnRunTest", testHandler())
		def := newDef()
		def.Lifecycle = nil
		r.PopulateDefinitionsFromModel(modelWith(def))
		err := r.Validate(testCtx(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "declares no on_run handler")
	})

	t.Run("handler not registered", func(t *testing.T) {
		r := New()
		r.PopulateDefinitionsFromModel(modelWith(newDef()))
		err := r.Validate(testCtx(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "handler 'OnRunTest' is not registered")
	})

	t.Run("unknown manifest input", func(t *testing.T) {
		r := New()
		r.RegisterApp("OnRunTest", testHandler())
		def := newDef()
		def.Inputs["radius"] = &config.InputDefinition{Name: "radius"}
		def.InputOrder = []string{"radius"}
		r.PopulateDefinitionsFromModel(modelWith(def))
		err := r.Validate(testCtx(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "manifest declares input 'radius' which is not found in Go struct")
	})

	t.Run("unknown manifest group", func(t *testing.T) {
		r := New()
		r.RegisterApp("OnRunTest", testHandler())
		def := newDef()
		def.Groups = map[string]*config.GroupDefinition{"extras": {Name: "extras"}}
		def.GroupOrder = []string{"extras"}
		r.PopulateDefinitionsFromModel(modelWith(def))
		err := r.Validate(testCtx(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "manifest declares group 'extras' which is not found in Go struct")
	})

	t.Run("type disagreement", func(t *testing.T) {
		r := New()
		r.RegisterApp("OnRunTest", testHandler())
		def := newDef()
		def.Inputs["r"] = &config.InputDefinition{Name: "r", Type: cty.String}
		def.InputOrder = []string{"r"}
		r.PopulateDefinitionsFromModel(modelWith(def))
		err := r.Validate(testCtx(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "type mismatch")
	})

	t.Run("hash_contents on a number", func(t *testing.T) {
		r := New()
		r.RegisterApp("OnRunTest", testHandler())
		def := newDef()
		def.Inputs["r"] = &config.InputDefinition{Name: "r", HashContents: true}
		def.InputOrder = []string{"r"}
		r.PopulateDefinitionsFromModel(modelWith(def))
		err := r.Validate(testCtx(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hash_contents applies only to string parameters")
	})

	t.Run("bounds on a string", func(t *testing.T) {
		r := New()
		r.RegisterApp("OnRunTest", testHandler())
		def := newDef()
		def.Inputs["series"] = &config.InputDefinition{Name: "series", Min: numPtr(0)}
		def.InputOrder = []string{"series"}
		r.PopulateDefinitionsFromModel(modelWith(def))
		err := r.Validate(testCtx(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "min/max apply only to number parameters")
	})

	t.Run("choice that does not fit the type", func(t *testing.T) {
		r := New()
		r.RegisterApp("OnRunTest", testHandler())
		def := newDef()
		def.Inputs["r"] = &config.InputDefinition{Name: "r", Choices: []cty.Value{cty.True}}
		def.InputOrder = []string{"r"}
		r.PopulateDefinitionsFromModel(modelWith(def))
		err := r.Validate(testCtx(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not fit type")
	})
}

func TestValidateHandlerWithoutInput(t *testing.T) {
	newHandler := func() *RegisteredApp {
		return &RegisteredApp{Fn: func() {}}
	}

	t.Run("empty manifest is fine", func(t *testing.T) {
		r := New()
		r.RegisterApp("OnRunBare", newHandler())
		r.PopulateDefinitionsFromModel(modelWith(&config.AppDefinition{
			Name:      "bare",
			Lifecycle: &config.Lifecycle{OnRun: "OnRunBare"},
		}))
		require.NoError(t, r.Validate(testCtx(t)))

		class, ok := r.Class("bare")
		require.True(t, ok)
		assert.Empty(t, class.Specs())
	})

	t.Run("manifest inputs without a struct fail", func(t *testing.T) {
		r := New()
		r.RegisterApp("OnRunBare", newHandler())
		r.PopulateDefinitionsFromModel(modelWith(&config.AppDefinition{
			Name:      "bare",
			Lifecycle: &config.Lifecycle{OnRun: "OnRunBare"},
			Inputs: map[string]*config.InputDefinition{
				"r": {Name: "r"},
			},
			InputOrder: []string{"r"},
		}))
		err := r.Validate(testCtx(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Go handler has no input struct")
	})
}
