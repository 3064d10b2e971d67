package plugins

import (
	"context"
	"fmt"
	"os"

	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/task"
)

// DumpResults persists the task's result values as plain JSON and restores
// them when a task loads instead of computing.
type DumpResults struct {
	task.Hooks
}

// Name implements task.Plugin.
func (*DumpResults) Name() string { return "dump_results" }

// Save implements task.Plugin.
func (p *DumpResults) Save(ctx context.Context, t *task.Task) error {
	obj := t.Results.Object()
	data, err := ctyjson.Marshal(obj, obj.Type())
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	path, err := t.Store.Path(datastore.ResultsFile)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Writing results.", "path", path, "count", t.Results.Len())
	return datastore.WriteFileAtomic(path, data)
}

// Load implements task.Plugin. The result types are re-implied from the
// JSON itself, so numbers come back as numbers and nested shapes survive.
func (p *DumpResults) Load(ctx context.Context, t *task.Task) error {
	path, err := t.Store.File(datastore.ResultsFile)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("store %s has no results dump: %w", t.Store, datastore.ErrIncomplete)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return fmt.Errorf("decoding results in %s: %w", path, err)
	}
	obj, err := ctyjson.Unmarshal(data, ty)
	if err != nil {
		return fmt.Errorf("decoding results in %s: %w", path, err)
	}
	if err := t.Results.Replace(obj); err != nil {
		return fmt.Errorf("restoring results from %s: %w", path, err)
	}
	ctxlog.FromContext(ctx).Debug("Restored results.", "path", path, "count", t.Results.Len())
	return nil
}
