package plugins

import (
	"context"
	"fmt"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/task"
)

// RunMeta writes the completion marker. Because the marker's valid presence
// is what makes a store loadable, this plugin must run after every other
// plugin's Save hook.
type RunMeta struct {
	task.Hooks

	// Version is stamped into the marker, typically the binary's version.
	Version string
}

// Name implements task.Plugin.
func (*RunMeta) Name() string { return "run_meta" }

// Save implements task.Plugin.
func (p *RunMeta) Save(ctx context.Context, t *task.Task) error {
	meta := &datastore.Meta{
		Status:     datastore.StatusComplete,
		App:        t.App,
		Digest:     t.Digest,
		RunID:      t.RunID.String(),
		Version:    p.Version,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
	}
	ctxlog.FromContext(ctx).Debug("Writing completion marker.", "store", t.Store.String())
	return datastore.WriteMeta(t.Store, meta)
}

// Load cross-checks the marker against the task. The parameter dump pins
// the exact parameters; this pins the producing app, so a fixed directory
// reused across apps cannot hand back a stranger's results.
func (p *RunMeta) Load(ctx context.Context, t *task.Task) error {
	meta, err := datastore.ReadMeta(t.Store)
	if err != nil {
		return err
	}
	if meta.App != t.App {
		return fmt.Errorf("store %s was written by app '%s', not '%s': %w", t.Store, meta.App, t.App, datastore.ErrConflict)
	}
	if meta.Digest != "" && t.Digest != "" && meta.Digest != t.Digest {
		return fmt.Errorf("store %s was written for digest %s, not %s: %w", t.Store, meta.Digest, t.Digest, datastore.ErrConflict)
	}
	ctxlog.FromContext(ctx).Debug("Loaded completion marker.",
		"store", t.Store.String(),
		"run_id", meta.RunID,
		"finished_at", meta.FinishedAt,
	)
	return nil
}
