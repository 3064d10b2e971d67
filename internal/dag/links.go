package dag

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
)

// linkExplicitDeps resolves dependencies from a `depends_on` list. A bare
// run name pins every variant of that run; an indexed address pins one.
func linkExplicitDeps(ctx context.Context, node *Node, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, raw := range node.Run.DependsOn {
		addr, err := parseDepAddress(raw)
		if err != nil {
			return fmt.Errorf("'%s': %w", node.ID(), err)
		}

		targets := graph.RunNodes(addr.Name)
		if len(targets) == 0 {
			return fmt.Errorf("'%s' depends on non-existent run '%s'", node.ID(), raw)
		}

		if addr.Index >= 0 {
			if targets[0].Variant == nil {
				return fmt.Errorf("'%s' depends on '%s', but run '%s' has no matrix", node.ID(), raw, addr.Name)
			}
			if addr.Index >= len(targets) {
				return fmt.Errorf("'%s' depends on '%s', but the matrix expands to %d variants", node.ID(), raw, len(targets))
			}
			targets = targets[addr.Index : addr.Index+1]
		}

		for _, dep := range targets {
			logger.Debug("Linking explicit dependency.", "from", node.ID(), "to", dep.ID())
			link(node, dep)
		}
	}
	return nil
}

// linkImplicitDeps parses an expression for variable traversals to create
// dependency links. Only traversals rooted at `run` participate; a
// reference to a matrix run without an index depends on every variant,
// matching the list the expression will see at evaluation time.
func linkImplicitDeps(ctx context.Context, node *Node, expr hcl.Expression, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, traversal := range expr.Variables() {
		ref, ok := parseRunTraversal(traversal)
		if !ok {
			continue
		}

		targets := graph.RunNodes(ref.Name)
		if len(targets) == 0 {
			return fmt.Errorf("'%s' references unknown run '%s'", node.ID(), ref.Name)
		}

		if ref.Index >= 0 {
			if targets[0].Variant == nil {
				return fmt.Errorf("'%s' references '%s[%d]', but run '%s' has no matrix", node.ID(), ref.Name, ref.Index, ref.Name)
			}
			if ref.Index >= len(targets) {
				return fmt.Errorf("'%s' references '%s[%d]', but the matrix expands to %d variants", node.ID(), ref.Name, ref.Index, len(targets))
			}
			targets = targets[ref.Index : ref.Index+1]
		}

		for _, dep := range targets {
			logger.Debug("Linking implicit dependency.", "from", node.ID(), "to", dep.ID(), "traversal", formatTraversal(traversal))
			link(node, dep)
		}
	}
	return nil
}

// linkStoreDep orders a run behind the owner of its sub store. The owner
// must be a singular run: matrix variants each resolve to their own
// directory, so there is no single directory to nest under.
func linkStoreDep(ctx context.Context, node *Node, graph *Graph) error {
	sc := node.Run.Store
	if sc == nil || sc.Kind != config.StoreKindSub {
		return nil
	}

	owners := graph.RunNodes(sc.Of)
	if len(owners) == 0 {
		return fmt.Errorf("'%s': sub store references unknown run '%s'", node.ID(), sc.Of)
	}
	if owners[0].Variant != nil {
		return fmt.Errorf("'%s': sub store cannot nest under matrix run '%s'", node.ID(), sc.Of)
	}

	ctxlog.FromContext(ctx).Debug("Linking sub-store owner.", "from", node.ID(), "to", owners[0].ID())
	link(node, owners[0])
	return nil
}

// runRef is a reference to a run extracted from an HCL traversal. Index is
// -1 when no variant index follows the name.
type runRef struct {
	Name  string
	Index int
}

// parseRunTraversal analyzes an HCL traversal and extracts a run reference
// of the form `run.<name>`, optionally followed by an index.
func parseRunTraversal(traversal hcl.Traversal) (*runRef, bool) {
	if len(traversal) < 2 || traversal.RootName() != "run" {
		return nil, false
	}

	nameAttr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return nil, false
	}

	index := -1
	if len(traversal) > 2 {
		if indexer, ok := traversal[2].(hcl.TraverseIndex); ok {
			if indexer.Key.Type() == cty.Number {
				num := indexer.Key.AsBigFloat()
				if num.IsInt() {
					val, _ := num.Int64()
					index = int(val)
				}
			}
		}
	}

	return &runRef{Name: nameAttr.Name, Index: index}, true
}

// argumentExprs collects a run's argument expressions in attribute-name
// order, so implicit link errors are reported deterministically.
func argumentExprs(run *config.Run) []hcl.Expression {
	exprs := make([]hcl.Expression, 0, len(run.Arguments))
	for _, name := range sortedKeys(run.Arguments) {
		exprs = append(exprs, run.Arguments[name])
	}
	return exprs
}
