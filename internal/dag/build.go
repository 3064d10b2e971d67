package dag

import (
	"context"
	"fmt"

	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/registry"
	"github.com/vk/memogrid/internal/sweep"
	"github.com/vk/memogrid/internal/taskid"
)

// Build constructs a complete, validated dependency graph from a config model.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction")
	graph := newGraph()

	// First pass: expand matrices and create a node per task.
	if err := createNodes(ctx, model, reg, graph); err != nil {
		return nil, err
	}
	logger.Debug("Build: node creation complete", "node_count", len(graph.Nodes))

	// Second pass: link dependencies.
	if err := linkNodes(ctx, model, graph); err != nil {
		return nil, err
	}
	logger.Debug("Build: node linking complete")

	// Third pass: initialize scheduler counters.
	for _, node := range graph.Nodes {
		node.depCount.Store(int32(len(node.Deps)))
	}

	if err := graph.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: cycle detection passed")

	return graph, nil
}

// createNodes performs the first pass of graph creation. Runs without a
// matrix yield one node; matrix runs yield one node per variant.
func createNodes(ctx context.Context, model *config.Model, reg *registry.Registry, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, run := range model.Experiment.Runs {
		if !taskid.ValidName(run.Name) {
			return fmt.Errorf("invalid run name %q: want a letter followed by letters, digits, '_' or '-'", run.Name)
		}
		if _, ok := reg.DefinitionRegistry[run.App]; !ok {
			return fmt.Errorf("run '%s' uses unknown app '%s'", run.Name, run.App)
		}

		variants, err := sweep.Expand(run.Matrix)
		if err != nil {
			return fmt.Errorf("run '%s': %w", run.Name, err)
		}

		if len(variants) == 0 {
			if err := graph.add(newNode(taskid.New(run.Name), run, nil)); err != nil {
				return err
			}
			continue
		}

		if run.Store != nil && run.Store.Kind == config.StoreKindDir {
			return fmt.Errorf("run '%s': a dir store cannot be shared across matrix variants", run.Name)
		}
		logger.Debug("Expanded matrix run.", "run", run.Name, "variants", len(variants))
		for i := range variants {
			node := newNode(taskid.NewVariant(run.Name, variants[i].Index), run, &variants[i])
			if err := graph.add(node); err != nil {
				return err
			}
		}
	}
	return nil
}

// linkNodes performs the second pass, establishing dependency links. Runs
// are walked in declaration order so that link errors are deterministic.
func linkNodes(ctx context.Context, model *config.Model, graph *Graph) error {
	for _, run := range model.Experiment.Runs {
		for _, node := range graph.RunNodes(run.Name) {
			if err := linkExplicitDeps(ctx, node, graph); err != nil {
				return err
			}
			for _, expr := range argumentExprs(run) {
				if err := linkImplicitDeps(ctx, node, expr, graph); err != nil {
					return err
				}
			}
			if err := linkStoreDep(ctx, node, graph); err != nil {
				return err
			}
		}
	}
	return nil
}
