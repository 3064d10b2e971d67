package executor

import (
	"context"
	"fmt"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/dag"
)

// process settles one ready node: it runs the node's task, then either
// unlocks dependents or fails them. Exactly one wg.Done per node, whichever
// path it takes.
func (e *Executor) process(ctx context.Context, n *dag.Node, readyChan chan *dag.Node, cancel context.CancelFunc) {
	logger := ctxlog.FromContext(ctx).With("task", n.ID())

	if ctx.Err() != nil {
		n.Skip(ctx.Err(), &e.wg)
		return
	}

	logger.Debug("Worker picked up task for execution.")
	n.SetState(dag.Running)

	if err := e.runNode(ctx, n); err != nil {
		logger.Error("Task execution failed.", "error", err)
		n.SetState(dag.Failed)
		n.Error = err
		if e.reporter != nil {
			if t, ok := e.Task(n.ID()); ok {
				e.reporter.ReportFailure(t, err)
			}
		}
		cancel()
		e.skipDependents(ctx, n)
		e.wg.Done()
		return
	}

	logger.Debug("Task execution succeeded.")
	n.SetState(dag.Done)

	for _, dependent := range n.Dependents {
		if dependent.DecrementDepCount() == 0 {
			logger.Debug("Unlocking dependent task.", "dependent", dependent.ID())
			readyChan <- dependent
		}
	}

	e.wg.Done()
}

// skipDependents recursively marks all downstream nodes as failed and
// decrements the WaitGroup.
func (e *Executor) skipDependents(ctx context.Context, n *dag.Node) {
	logger := ctxlog.FromContext(ctx)

	for _, dependent := range n.Dependents {
		err := fmt.Errorf("skipped due to upstream failure of '%s'", n.ID())
		wasSkipped := dependent.Skip(err, &e.wg)
		if wasSkipped {
			logger.Warn("Skipping dependent task due to upstream failure.", "task", dependent.ID(), "dependency", n.ID())
			e.skipDependents(ctx, dependent)
		}
	}
}
