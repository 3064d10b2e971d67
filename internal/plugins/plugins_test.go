package plugins

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/task"
	"github.com/vk/memogrid/internal/taskid"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func makeDriver(run func(ctx context.Context, t *task.Task) error) *task.Driver {
	return &task.Driver{
		Plugins: []task.Plugin{
			&DumpParameters{},
			&DumpResults{},
			&RunMeta{Version: "test"},
		},
		Run: run,
	}
}

func makeTask(app string, mode task.Mode, canonical []byte, dir string) *task.Task {
	digest := datastore.Digest(app, canonical)
	return task.New(taskid.New("baseline"), app, mode, nil, canonical, digest, datastore.NewDirectory(dir))
}

func TestRunThenLoad(t *testing.T) {
	dir := t.TempDir()
	canonical := []byte(`{"r":3,"x0":0.25}`)

	driver := makeDriver(func(_ context.Context, tk *task.Task) error {
		tk.Results.Set("final", cty.NumberIntVal(42))
		tk.Results.Set("label", cty.StringVal("ok"))
		return nil
	})

	first := makeTask("logistic", task.ModeRun, canonical, dir)
	require.NoError(t, driver.Execute(testCtx(t), first))
	require.Equal(t, task.PhaseFinished, first.Phase())

	for _, name := range []string{datastore.ParamsFile, datastore.ResultsFile, datastore.MarkerFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	stored, err := os.ReadFile(filepath.Join(dir, datastore.ParamsFile))
	require.NoError(t, err)
	assert.Equal(t, canonical, stored)

	meta, err := datastore.ReadMeta(first.Store)
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusComplete, meta.Status)
	assert.Equal(t, "logistic", meta.App)
	assert.Equal(t, first.RunID.String(), meta.RunID)
	assert.Equal(t, "test", meta.Version)

	loader := makeDriver(func(context.Context, *task.Task) error {
		t.Fatal("a complete store must not recompute")
		return nil
	})
	second := makeTask("logistic", task.ModeAuto, canonical, dir)
	require.NoError(t, loader.Execute(testCtx(t), second))

	assert.True(t, second.WasLoaded())
	assert.Equal(t, task.PhaseFinished, second.Phase())

	final, ok := second.Results.Get("final")
	require.True(t, ok)
	assert.True(t, final.RawEquals(cty.NumberIntVal(42)))
	label, ok := second.Results.Get("label")
	require.True(t, ok)
	assert.Equal(t, "ok", label.AsString())
}

func TestParameterConflict(t *testing.T) {
	dir := t.TempDir()

	driver := makeDriver(func(_ context.Context, tk *task.Task) error {
		tk.Results.Set("final", cty.NumberIntVal(1))
		return nil
	})
	first := makeTask("logistic", task.ModeRun, []byte(`{"r":3}`), dir)
	require.NoError(t, driver.Execute(testCtx(t), first))

	t.Run("loading under different parameters is refused", func(t *testing.T) {
		other := makeTask("logistic", task.ModeAuto, []byte(`{"r":4}`), dir)
		err := driver.Execute(testCtx(t), other)
		require.Error(t, err)
		assert.ErrorIs(t, err, datastore.ErrConflict)
		assert.Equal(t, task.PhaseFailed, other.Phase())
	})

	t.Run("recomputing over a foreign complete store is refused", func(t *testing.T) {
		other := makeTask("logistic", task.ModeRun, []byte(`{"r":4}`), dir)
		err := driver.Execute(testCtx(t), other)
		require.Error(t, err)
		assert.ErrorIs(t, err, datastore.ErrConflict)
	})

	t.Run("identical parameters may recompute in place", func(t *testing.T) {
		same := makeTask("logistic", task.ModeRun, []byte(`{"r":3}`), dir)
		require.NoError(t, driver.Execute(testCtx(t), same))
		assert.False(t, same.WasLoaded())
	})
}

func TestCrashedStoreRecomputes(t *testing.T) {
	dir := t.TempDir()
	// A parameter dump without a marker is what a crashed run leaves behind.
	require.NoError(t, os.WriteFile(filepath.Join(dir, datastore.ParamsFile), []byte(`{"r":9}`), 0o644))

	computed := false
	driver := makeDriver(func(_ context.Context, tk *task.Task) error {
		computed = true
		tk.Results.Set("final", cty.NumberIntVal(7))
		return nil
	})

	tk := makeTask("logistic", task.ModeAuto, []byte(`{"r":3}`), dir)
	require.NoError(t, driver.Execute(testCtx(t), tk))

	assert.True(t, computed)
	assert.False(t, tk.WasLoaded())

	stored, err := os.ReadFile(filepath.Join(dir, datastore.ParamsFile))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"r":3}`), stored, "the stale dump must be replaced")
	assert.True(t, datastore.IsComplete(tk.Store))
}

func TestAppMismatch(t *testing.T) {
	dir := t.TempDir()
	canonical := []byte(`{"r":3}`)

	driver := makeDriver(func(_ context.Context, tk *task.Task) error {
		tk.Results.Set("final", cty.NumberIntVal(1))
		return nil
	})
	first := makeTask("logistic", task.ModeRun, canonical, dir)
	require.NoError(t, driver.Execute(testCtx(t), first))

	other := makeTask("seriesstats", task.ModeLoad, canonical, dir)
	err := driver.Execute(testCtx(t), other)
	require.Error(t, err)
	assert.ErrorIs(t, err, datastore.ErrConflict)
	assert.ErrorContains(t, err, "was written by app 'logistic'")
}
