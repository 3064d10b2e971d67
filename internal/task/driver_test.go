package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/taskid"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

// spyPlugin records every hook invocation into a shared call log.
type spyPlugin struct {
	name   string
	calls  *[]string
	failAt string
}

func (s *spyPlugin) hook(stage string) error {
	*s.calls = append(*s.calls, s.name+"."+stage)
	if s.failAt == stage {
		return errors.New("boom")
	}
	return nil
}

func (s *spyPlugin) Name() string                         { return s.name }
func (s *spyPlugin) Prepare(context.Context, *Task) error { return s.hook("Prepare") }
func (s *spyPlugin) PreRun(context.Context, *Task) error  { return s.hook("PreRun") }
func (s *spyPlugin) PostRun(context.Context, *Task) error { return s.hook("PostRun") }
func (s *spyPlugin) Save(context.Context, *Task) error    { return s.hook("Save") }
func (s *spyPlugin) Load(context.Context, *Task) error    { return s.hook("Load") }
func (s *spyPlugin) Finish(context.Context, *Task) error  { return s.hook("Finish") }

func makeTask(t *testing.T, mode Mode) *Task {
	t.Helper()
	store := datastore.NewDirectory(t.TempDir())
	return New(taskid.New("baseline"), "logistic", mode, nil, []byte(`{}`), "0b1e", store)
}

// completeStore populates the task's store so that IsComplete holds.
func completeStore(t *testing.T, tk *Task) {
	t.Helper()
	path, err := tk.Store.Path(datastore.ParamsFile)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, tk.Canonical, 0o644))
	require.NoError(t, datastore.WriteMeta(tk.Store, &datastore.Meta{
		Status: datastore.StatusComplete,
		App:    tk.App,
		Digest: tk.Digest,
		RunID:  tk.RunID.String(),
	}))
}

func TestDriverComputePath(t *testing.T) {
	var calls []string
	driver := &Driver{
		Plugins: []Plugin{
			&spyPlugin{name: "a", calls: &calls},
			&spyPlugin{name: "b", calls: &calls},
		},
		Run: func(context.Context, *Task) error {
			calls = append(calls, "run")
			return nil
		},
	}

	tk := makeTask(t, ModeRun)
	require.NoError(t, driver.Execute(testCtx(t), tk))

	assert.Equal(t, []string{
		"a.Prepare", "b.Prepare",
		"a.PreRun", "b.PreRun",
		"run",
		"a.PostRun", "b.PostRun",
		"a.Save", "b.Save",
		"a.Finish", "b.Finish",
	}, calls)
	assert.Equal(t, PhaseFinished, tk.Phase())
	assert.False(t, tk.WasLoaded())
	assert.False(t, tk.FinishedAt.IsZero())
	assert.False(t, tk.FinishedAt.Before(tk.StartedAt))
}

func TestDriverLoadPath(t *testing.T) {
	t.Run("auto loads a complete store", func(t *testing.T) {
		var calls []string
		driver := &Driver{
			Plugins: []Plugin{&spyPlugin{name: "a", calls: &calls}},
			Run: func(context.Context, *Task) error {
				calls = append(calls, "run")
				return nil
			},
		}

		tk := makeTask(t, ModeAuto)
		completeStore(t, tk)
		require.NoError(t, driver.Execute(testCtx(t), tk))

		assert.Equal(t, []string{"a.Prepare", "a.Load", "a.Finish"}, calls)
		assert.Equal(t, PhaseFinished, tk.Phase())
		assert.True(t, tk.WasLoaded())
	})

	t.Run("auto computes when the store is incomplete", func(t *testing.T) {
		var calls []string
		driver := &Driver{
			Plugins: []Plugin{&spyPlugin{name: "a", calls: &calls}},
			Run: func(context.Context, *Task) error {
				calls = append(calls, "run")
				return nil
			},
		}

		tk := makeTask(t, ModeAuto)
		require.NoError(t, driver.Execute(testCtx(t), tk))

		assert.Contains(t, calls, "run")
		assert.False(t, tk.WasLoaded())
	})

	t.Run("run mode recomputes over a complete store", func(t *testing.T) {
		var calls []string
		driver := &Driver{
			Plugins: []Plugin{&spyPlugin{name: "a", calls: &calls}},
			Run: func(context.Context, *Task) error {
				calls = append(calls, "run")
				return nil
			},
		}

		tk := makeTask(t, ModeRun)
		completeStore(t, tk)
		require.NoError(t, driver.Execute(testCtx(t), tk))

		assert.Contains(t, calls, "run")
		assert.False(t, tk.WasLoaded())
	})

	t.Run("load mode fails on an incomplete store", func(t *testing.T) {
		var calls []string
		driver := &Driver{
			Plugins: []Plugin{&spyPlugin{name: "a", calls: &calls}},
			Run:     func(context.Context, *Task) error { return nil },
		}

		tk := makeTask(t, ModeLoad)
		err := driver.Execute(testCtx(t), tk)
		require.Error(t, err)
		assert.ErrorIs(t, err, datastore.ErrIncomplete)
		assert.Equal(t, PhaseFailed, tk.Phase())
		assert.Equal(t, []string{"a.Prepare"}, calls)
	})
}

func TestDriverFailures(t *testing.T) {
	t.Run("handler error fails the task", func(t *testing.T) {
		var calls []string
		driver := &Driver{
			Plugins: []Plugin{&spyPlugin{name: "a", calls: &calls}},
			Run: func(context.Context, *Task) error {
				return errors.New("divergence")
			},
		}

		tk := makeTask(t, ModeRun)
		err := driver.Execute(testCtx(t), tk)
		require.Error(t, err)
		assert.ErrorContains(t, err, "handler for 'run.baseline'")
		assert.Equal(t, PhaseFailed, tk.Phase())
		assert.ErrorContains(t, tk.Err(), "divergence")
		assert.NotContains(t, calls, "a.PostRun")
		assert.NotContains(t, calls, "a.Save")
		assert.NotContains(t, calls, "a.Finish")
	})

	t.Run("plugin error names the plugin and stage", func(t *testing.T) {
		var calls []string
		driver := &Driver{
			Plugins: []Plugin{&spyPlugin{name: "meta", calls: &calls, failAt: "Save"}},
			Run:     func(context.Context, *Task) error { return nil },
		}

		tk := makeTask(t, ModeRun)
		err := driver.Execute(testCtx(t), tk)
		require.Error(t, err)
		assert.ErrorContains(t, err, "plugin meta: Save: boom")
		assert.Equal(t, PhaseFailed, tk.Phase())
		assert.NotContains(t, calls, "meta.Finish")
	})

	t.Run("deferred functions run on failure, in reverse order", func(t *testing.T) {
		var cleanup []string
		driver := &Driver{
			Run: func(_ context.Context, tk *Task) error {
				tk.Defer(func() { cleanup = append(cleanup, "first") })
				tk.Defer(func() { cleanup = append(cleanup, "second") })
				return errors.New("divergence")
			},
		}

		tk := makeTask(t, ModeRun)
		require.Error(t, driver.Execute(testCtx(t), tk))
		assert.Equal(t, []string{"second", "first"}, cleanup)
	})
}
