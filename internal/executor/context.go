package executor

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/dag"
)

// buildEvalContext creates the HCL evaluation context for a node's argument
// expressions. Every finished run in the graph is visible as
// run.<name> = {results, store, digest}; matrix runs expose a tuple of those
// in variant order. Dependency links guarantee that whatever the expressions
// actually reference is finished; anything else appears as a placeholder.
func (e *Executor) buildEvalContext(ctx context.Context, n *dag.Node) *hcl.EvalContext {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building HCL evaluation context.", "task", n.ID())

	runs := make(map[string]cty.Value)
	for _, name := range e.Graph.RunNames() {
		nodes := e.Graph.RunNodes(name)

		if nodes[0].Variant == nil {
			node := nodes[0]
			if node.GetState() == dag.Done && node.Output != cty.NilVal {
				runs[name] = node.Output
			}
			continue
		}

		outputs := make([]cty.Value, len(nodes))
		finished := false
		for i, variant := range nodes {
			if variant.GetState() == dag.Done && variant.Output != cty.NilVal {
				outputs[i] = variant.Output
				finished = true
			} else {
				outputs[i] = cty.DynamicVal
			}
		}
		if finished {
			runs[name] = cty.TupleVal(outputs)
		}
	}

	vars := map[string]cty.Value{"run": cty.ObjectVal(runs)}
	if n.Variant != nil {
		vars["variant"] = cty.ObjectVal(map[string]cty.Value{
			"index": cty.NumberIntVal(int64(n.Variant.Index)),
		})
	}

	logger.Debug("Finished building HCL evaluation context.", "task", n.ID(), "visible_runs", len(runs))
	return &hcl.EvalContext{Variables: vars}
}
