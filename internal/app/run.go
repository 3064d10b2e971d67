package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/dag"
	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/executor"
	"github.com/vk/memogrid/internal/memoindex"
	"github.com/vk/memogrid/internal/monitor"
	"github.com/vk/memogrid/internal/plugins"
	"github.com/vk/memogrid/internal/task"
)

// Run executes the main application logic based on the loaded configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.cfg.ListCache {
		return a.listCache(ctx)
	}

	mode, err := task.ParseMode(a.cfg.Mode)
	if err != nil {
		return err
	}

	a.logger.Debug("Building dependency graph from config model...")
	graph, err := dag.Build(ctx, a.model, a.registry)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "task_count", len(graph.Nodes))

	if len(graph.Nodes) == 0 {
		a.logger.Warn("No runs found in experiment, execution not required.")
		return nil
	}

	// The memo index is advisory: when another process holds its lock the
	// run proceeds without recording.
	var index *memoindex.Index
	if ix, err := memoindex.Open(a.indexPath(), a.logger); err != nil {
		a.logger.Warn("Memo index unavailable, continuing without it.", "error", err)
	} else {
		index = ix
		defer func() {
			if err := index.Close(); err != nil {
				a.logger.Warn("Failed to close memo index.", "error", err)
			}
		}()
	}

	// The parameter dump guards against conflicts before anything runs and
	// the marker lands last, so it seals whatever the other plugins wrote.
	plugs := []task.Plugin{
		&plugins.DumpParameters{},
		&plugins.DumpResults{},
	}
	var reporter executor.Reporter
	if mc := a.model.Experiment.Monitor; mc != nil {
		mon := monitor.New(mc)
		if err := mon.Connect(ctx); err != nil {
			return err
		}
		defer mon.Close()
		plugs = append(plugs, mon)
		reporter = mon
	}
	plugs = append(plugs, &plugins.RunMeta{Version: Version})

	exec := executor.New(graph, a.registry, a.converter, executor.Options{
		Workers:         a.cfg.WorkerCount,
		Mode:            mode,
		StoreRoot:       a.cfg.StoreRoot,
		ExperimentStore: a.model.Experiment.Store,
		Plugins:         plugs,
		Index:           index,
		Reporter:        reporter,
	})

	if a.cfg.StatusPort > 0 {
		stop := a.startStatusServer(a.cfg.StatusPort, exec)
		defer stop()
	}

	a.logger.Info("🚀 Starting concurrent execution...", "tasks", len(graph.Nodes))
	if err := exec.Execute(ctx); err != nil {
		return err
	}
	a.logger.Info("🏁 Execution finished.")
	return nil
}

// listCache prints the memo index instead of executing an experiment.
func (a *App) listCache(ctx context.Context) error {
	ix, err := memoindex.Open(a.indexPath(), a.logger)
	if err != nil {
		return fmt.Errorf("memo index unavailable: %w", err)
	}
	defer ix.Close()

	entries, err := ix.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.outW, "The memo index is empty.")
		return nil
	}

	fmt.Fprintf(a.outW, "%-16s  %-12s  %-20s  %s\n", "DIGEST", "APP", "FINISHED", "DIR")
	for _, e := range entries {
		digest := e.Digest
		if len(digest) > 16 {
			digest = digest[:16]
		}
		fmt.Fprintf(a.outW, "%-16s  %-12s  %-20s  %s\n",
			digest, e.App, e.FinishedAt.Format("2006-01-02 15:04:05"), e.Dir)
	}
	fmt.Fprintf(a.outW, "\n%d memoized computation(s).\n", len(entries))
	return nil
}

// storeRoot resolves the hash-store root: command line first, then the
// experiment-wide store block, then the built-in default.
func (a *App) storeRoot() string {
	if a.cfg.StoreRoot != "" {
		return a.cfg.StoreRoot
	}
	if sc := a.model.Experiment.Store; sc != nil && sc.Kind == config.StoreKindHash && sc.Root != "" {
		return sc.Root
	}
	return datastore.DefaultRoot
}

func (a *App) indexPath() string {
	return filepath.Join(a.storeRoot(), ".index")
}
