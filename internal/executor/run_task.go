package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/dag"
	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/memoindex"
	"github.com/vk/memogrid/internal/overlay"
	"github.com/vk/memogrid/internal/params"
	"github.com/vk/memogrid/internal/task"
)

// runNode prepares a node's task and drives it through the lifecycle.
func (e *Executor) runNode(ctx context.Context, n *dag.Node) error {
	t, err := e.prepare(ctx, n)
	if err != nil {
		return err
	}

	// Tasks resolving to the same directory execute one at a time. The
	// losers re-enter and, outside run mode, load what the winner wrote.
	key, err := t.Store.Dir()
	if err != nil {
		return err
	}
	for {
		executed, err, _ := e.flight.Do(key, func() (any, error) {
			return t, e.driver.Execute(ctx, t)
		})
		if err != nil {
			return err
		}
		if executed.(*task.Task) == t {
			break
		}
	}

	n.Loaded = t.WasLoaded()
	output, err := outputValue(t)
	if err != nil {
		return err
	}
	n.Output = output

	e.record(ctx, t)
	return nil
}

// prepare turns a graph node into an executable task: it evaluates the
// argument expressions against the finished upstreams, overlays the matrix
// variant, resolves and canonicalizes the parameters, and locates the store.
func (e *Executor) prepare(ctx context.Context, n *dag.Node) (*task.Task, error) {
	logger := ctxlog.FromContext(ctx)
	run := n.Run
	evalCtx := e.buildEvalContext(ctx, n)

	merged := map[string]cty.Value{}
	if run.ParamsFile != "" {
		fileOverlay, err := overlay.FromFile(run.ParamsFile)
		if err != nil {
			return nil, fmt.Errorf("run '%s': %w", run.Name, err)
		}
		merged = fileOverlay
	}
	args, err := e.converter.EvalArguments(ctx, run.Arguments, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("run '%s': %w", run.Name, err)
	}
	merged = overlay.Merge(merged, args)
	if n.Variant != nil {
		merged = overlay.Merge(merged, n.Variant.Overlay)
	}

	class, ok := e.registry.Class(run.App)
	if !ok {
		return nil, fmt.Errorf("no parameter class for app '%s'", run.App)
	}
	resolved, err := class.Resolve(merged)
	if err != nil {
		return nil, fmt.Errorf("resolving parameters for '%s': %w", n.ID(), err)
	}
	canonical, err := resolved.Canonical()
	if err != nil {
		return nil, fmt.Errorf("encoding parameters for '%s': %w", n.ID(), err)
	}
	digest := datastore.Digest(run.App, canonical)

	store, err := e.resolveStore(n, digest)
	if err != nil {
		return nil, err
	}

	mode := e.mode
	if run.Mode != "" {
		m, err := task.ParseMode(run.Mode)
		if err != nil {
			return nil, fmt.Errorf("run '%s': %w", run.Name, err)
		}
		mode = m
	}

	t := task.New(n.Addr(), run.App, mode, resolved, canonical, digest, store)
	n.Digest = digest
	n.Store = store
	e.tasks.Store(n.ID(), t)

	if n.Variant != nil {
		logger.Debug("Prepared variant task.", "task", n.ID(), "assignments", n.Variant.Describe(), "digest", digest)
	} else {
		logger.Debug("Prepared task.", "task", n.ID(), "digest", digest)
	}
	return t, nil
}

// resolveStore locates the task's store from its run's store block, falling
// back to the experiment-wide defaults.
func (e *Executor) resolveStore(n *dag.Node, digest string) (datastore.Store, error) {
	sc := n.Run.Store
	if sc == nil {
		if e.dirRoot != "" {
			return datastore.NewDirectory(filepath.Join(e.dirRoot, taskDirName(n))), nil
		}
		return datastore.NewHash(e.hashRoot, digest), nil
	}

	switch sc.Kind {
	case config.StoreKindHash:
		root := sc.Root
		if root == "" {
			root = e.hashRoot
		}
		return datastore.NewHash(root, digest), nil
	case config.StoreKindDir:
		return datastore.NewDirectory(sc.Path), nil
	case config.StoreKindSub:
		owners := e.Graph.RunNodes(sc.Of)
		if len(owners) == 0 || owners[0].Store == nil {
			return nil, fmt.Errorf("'%s': sub store owner '%s' has no resolved store", n.ID(), sc.Of)
		}
		name := sc.Name
		if name == "" {
			name = n.Addr().Run
		}
		if n.Variant != nil {
			name = fmt.Sprintf("%s[%d]", name, n.Variant.Index)
		}
		return datastore.NewSub(owners[0].Store, name), nil
	}
	return nil, fmt.Errorf("'%s': unknown store kind %q", n.ID(), sc.Kind)
}

// runHandler invokes the registered app function for a computing task. It is
// the Run callback of the lifecycle driver.
func (e *Executor) runHandler(ctx context.Context, t *task.Task) error {
	logger := ctxlog.FromContext(ctx)
	app, ok := e.registry.App(t.App)
	if !ok {
		return fmt.Errorf("no handler registered for app '%s'", t.App)
	}

	var input any
	if app.NewInput != nil {
		input = app.NewInput()
		if err := params.DecodeNode(t.Params, input); err != nil {
			return err
		}
	}

	logger.Debug("Calling app handler.", "app", t.App)
	handlerFunc := reflect.ValueOf(app.Fn)
	callArgs := []reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(task.NewEnv(t))}
	if input == nil {
		callArgs = append(callArgs, reflect.Zero(handlerFunc.Type().In(2)))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(input))
	}

	results := handlerFunc.Call(callArgs)
	if errResult := results[1].Interface(); errResult != nil {
		return errResult.(error)
	}

	ctyOutput, err := e.converter.ToCtyValue(results[0].Interface())
	if err != nil {
		return fmt.Errorf("converting output of app '%s': %w", t.App, err)
	}
	return spreadResults(t, ctyOutput)
}

// spreadResults copies the attributes of a handler's output object into the
// task's named results.
func spreadResults(t *task.Task, output cty.Value) error {
	if output == cty.NilVal || output.IsNull() {
		return nil
	}
	ty := output.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return fmt.Errorf("app output must be a struct, got %s", ty.FriendlyName())
	}
	for it := output.ElementIterator(); it.Next(); {
		k, v := it.Element()
		t.Results.Set(k.AsString(), v)
	}
	return nil
}

// outputValue is the shape downstream expressions see under run.<name>.
func outputValue(t *task.Task) (cty.Value, error) {
	dir, err := t.Store.Dir()
	if err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{
		"results": t.Results.Object(),
		"store":   cty.StringVal(dir),
		"digest":  cty.StringVal(t.Digest),
	}), nil
}

// record catalogs a settled task in the memo index. The index is advisory,
// so failures log instead of failing the task.
func (e *Executor) record(ctx context.Context, t *task.Task) {
	if e.index == nil {
		return
	}
	dir, err := t.Store.Dir()
	if err != nil {
		return
	}
	entry := memoindex.Entry{
		Digest:     t.Digest,
		App:        t.App,
		RunID:      t.RunID.String(),
		Dir:        dir,
		FinishedAt: t.FinishedAt,
	}
	if err := e.index.Record(entry); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to record memo index entry.", "digest", t.Digest, "error", err)
	}
}

// taskDirName renders a task's directory name under an experiment-wide dir
// store.
func taskDirName(n *dag.Node) string {
	if n.Variant == nil {
		return n.Addr().Run
	}
	return fmt.Sprintf("%s[%d]", n.Addr().Run, n.Variant.Index)
}
