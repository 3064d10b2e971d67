package plugins

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/task"
)

// DumpParameters persists the canonical parameter encoding into the store
// and guards against parameter conflicts: a store may only ever hold
// results for one parameter set.
type DumpParameters struct {
	task.Hooks
}

// Name implements task.Plugin.
func (*DumpParameters) Name() string { return "dump_parameters" }

// PreRun writes the canonical encoding before the handler computes. A
// completed store holding a different encoding is refused rather than
// overwritten, whatever the task's mode.
func (p *DumpParameters) PreRun(ctx context.Context, t *task.Task) error {
	existing, err := readParams(t)
	if err != nil {
		return err
	}
	if existing != nil && !bytes.Equal(existing, t.Canonical) && datastore.IsComplete(t.Store) {
		return fmt.Errorf("store %s holds results for different parameters: %w", t.Store, datastore.ErrConflict)
	}

	path, err := t.Store.Path(datastore.ParamsFile)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Writing canonical parameters.", "path", path, "bytes", len(t.Canonical))
	return datastore.WriteFileAtomic(path, t.Canonical)
}

// Load verifies that the persisted encoding matches this task's byte for
// byte. Loading under a mismatch would silently hand back results computed
// from other parameters.
func (p *DumpParameters) Load(ctx context.Context, t *task.Task) error {
	existing, err := readParams(t)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("store %s has no parameter dump: %w", t.Store, datastore.ErrIncomplete)
	}
	if !bytes.Equal(existing, t.Canonical) {
		return fmt.Errorf("store %s holds results for different parameters: %w", t.Store, datastore.ErrConflict)
	}
	ctxlog.FromContext(ctx).Debug("Verified canonical parameters.", "store", t.Store.String())
	return nil
}

// readParams returns the persisted canonical encoding, or nil when the
// store holds none.
func readParams(t *task.Task) ([]byte, error) {
	path, err := t.Store.File(datastore.ParamsFile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
