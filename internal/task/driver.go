package task

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/datastore"
)

// Driver walks tasks through their lifecycle. Plugins fire in registration
// order at every stage; Run invokes the app handler for tasks that compute.
type Driver struct {
	Plugins []Plugin
	Run     func(ctx context.Context, t *Task) error
}

// Execute runs one task to completion. It decides between loading and
// computing, fires the plugin stages in order, and records the outcome on
// the task. Deferred functions run before Execute returns, whatever the
// outcome.
func (d *Driver) Execute(ctx context.Context, t *Task) error {
	logger := ctxlog.FromContext(ctx).With("task", t.Addr.String())
	t.StartedAt = time.Now().UTC()
	defer t.runDeferred()

	if err := d.fire(ctx, t, "Prepare", Plugin.Prepare); err != nil {
		return t.fail(err)
	}

	load := false
	switch t.Mode {
	case ModeLoad:
		if !datastore.IsComplete(t.Store) {
			return t.fail(fmt.Errorf("cannot load '%s': %w", t.Addr, datastore.ErrIncomplete))
		}
		load = true
	case ModeAuto:
		load = datastore.IsComplete(t.Store)
	case ModeRun:
		// Always compute, even over a completed store.
	}

	if load {
		t.setPhase(PhaseLoading)
		t.markLoaded()
		logger.Info("📦 Loading memoized results", "store", t.Store.String())
		if err := d.fire(ctx, t, "Load", Plugin.Load); err != nil {
			return t.fail(err)
		}
	} else {
		t.setPhase(PhaseRunning)
		logger.Info("▶️ Computing task", "store", t.Store.String())
		if err := d.fire(ctx, t, "PreRun", Plugin.PreRun); err != nil {
			return t.fail(err)
		}
		if err := d.Run(ctx, t); err != nil {
			return t.fail(fmt.Errorf("handler for '%s': %w", t.Addr, err))
		}
		if err := d.fire(ctx, t, "PostRun", Plugin.PostRun); err != nil {
			return t.fail(err)
		}
		// The finish time lands in the completion marker, so it is fixed
		// before Save rather than after the last hook.
		t.FinishedAt = time.Now().UTC()
		if err := d.fire(ctx, t, "Save", Plugin.Save); err != nil {
			return t.fail(err)
		}
	}

	if t.FinishedAt.IsZero() {
		t.FinishedAt = time.Now().UTC()
	}
	if err := d.fire(ctx, t, "Finish", Plugin.Finish); err != nil {
		return t.fail(err)
	}

	t.setPhase(PhaseFinished)
	logger.Info("✅ Task finished", "loaded", t.WasLoaded())
	return nil
}

// fire invokes one lifecycle stage on every plugin, in registration order.
func (d *Driver) fire(ctx context.Context, t *Task, stage string, hook func(Plugin, context.Context, *Task) error) error {
	logger := ctxlog.FromContext(ctx)
	for _, p := range d.Plugins {
		logger.Debug("Firing plugin hook.", "plugin", p.Name(), "stage", stage, "task", t.Addr.String())
		if err := hook(p, ctx, t); err != nil {
			return fmt.Errorf("plugin %s: %s: %w", p.Name(), stage, err)
		}
	}
	return nil
}
