// Package executor schedules a built graph and runs its tasks through the
// lifecycle driver. Ready nodes flow through a bounded worker pool; a failed
// node skips its dependents while independent subtrees keep going. Tasks
// whose parameters resolve to the same store are serialized, so a sweep
// containing duplicate points computes once and loads the rest.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/dag"
	"github.com/vk/memogrid/internal/memoindex"
	"github.com/vk/memogrid/internal/registry"
	"github.com/vk/memogrid/internal/task"
)

// Reporter receives out-of-band execution events that no plugin hook covers.
type Reporter interface {
	ReportStart(taskCount int)
	ReportFailure(t *task.Task, err error)
	ReportDone(err error)
}

// Options configures an Executor. Zero values select the defaults.
type Options struct {
	// Workers bounds how many tasks execute concurrently. Zero or negative
	// means one worker per CPU.
	Workers int
	// Mode applies to every run that does not set its own.
	Mode task.Mode
	// StoreRoot overrides the root directory for hash stores.
	StoreRoot string
	// ExperimentStore is the experiment-wide store block, if any.
	ExperimentStore *config.StoreConfig
	// Plugins fire on every task, in order.
	Plugins []task.Plugin
	// Index receives an entry per computed task. Nil disables recording.
	Index *memoindex.Index
	// Reporter receives execution events. Nil disables reporting.
	Reporter Reporter
}

// Executor runs the tasks in a graph concurrently.
type Executor struct {
	Graph *dag.Graph

	wg         sync.WaitGroup
	flight     singleflight.Group
	tasks      sync.Map
	registry   *registry.Registry
	converter  config.Converter
	driver     *task.Driver
	index      *memoindex.Index
	reporter   Reporter
	numWorkers int
	mode       task.Mode
	hashRoot   string
	dirRoot    string
}

// New creates a graph executor.
func New(graph *dag.Graph, reg *registry.Registry, converter config.Converter, opts Options) *Executor {
	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	e := &Executor{
		Graph:      graph,
		registry:   reg,
		converter:  converter,
		index:      opts.Index,
		reporter:   opts.Reporter,
		numWorkers: numWorkers,
		mode:       opts.Mode,
	}
	e.driver = &task.Driver{Plugins: opts.Plugins, Run: e.runHandler}

	// An experiment-wide store block sets the defaults: a hash store moves
	// the sharded root, a dir store gives every run its own directory under
	// the path. The command-line root wins over the experiment file.
	if sc := opts.ExperimentStore; sc != nil {
		switch sc.Kind {
		case config.StoreKindHash:
			e.hashRoot = sc.Root
		case config.StoreKindDir:
			e.dirRoot = sc.Path
		}
	}
	if opts.StoreRoot != "" {
		e.hashRoot = opts.StoreRoot
	}
	return e
}

// Execute runs the entire graph concurrently and returns an error if any
// task fails. It respects the cancellation signal from the provided context.
func (e *Executor) Execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if e.reporter != nil {
		e.reporter.ReportStart(len(e.Graph.Nodes))
	}

	readyChan := make(chan *dag.Node, len(e.Graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Debug("Initializing executor, finding root nodes...")
	rootNodeCount := 0
	for _, node := range e.Graph.Nodes {
		if node.DepCount() == 0 {
			logger.Debug("Found root node.", "task", node.ID())
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.Graph.Nodes))
	go func() {
		e.wg.Wait()
		close(readyChan)
	}()

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	pool := new(errgroup.Group)
	pool.SetLimit(e.numWorkers)
	for node := range readyChan {
		node := node
		pool.Go(func() error {
			e.process(runCtx, node, readyChan, cancel)
			return nil
		})
	}
	_ = pool.Wait()
	logger.Debug("All tasks settled.")

	err := e.collectFailures(ctx)
	if e.reporter != nil {
		e.reporter.ReportDone(err)
	}
	return err
}

// collectFailures walks the settled graph and distills a root-cause error.
// A "skipped" error is a symptom, not a cause.
func (e *Executor) collectFailures(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var failedTasks []string
	var rootCauseError error
	for _, name := range e.Graph.RunNames() {
		for _, n := range e.Graph.RunNodes(name) {
			if n.GetState() != dag.Failed {
				continue
			}
			logger.Error("Task failed execution.", "task", n.ID(), "error", n.Error)
			if n.Error != nil && !strings.HasPrefix(n.Error.Error(), "skipped") && !errors.Is(n.Error, context.Canceled) {
				failedTasks = append(failedTasks, n.ID())
				if rootCauseError == nil {
					rootCauseError = n.Error
				}
			}
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedTasks, ", "), rootCauseError)
	}
	return nil
}

// Task returns the prepared task for a node ID, once the node has reached
// preparation. The status surface reads these concurrently with execution.
func (e *Executor) Task(id string) (*task.Task, bool) {
	v, ok := e.tasks.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*task.Task), true
}
