package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/registry"
	"github.com/vk/memogrid/internal/task"
)

// Module implements the registry.Module interface for this package. Out is
// where tables are printed; nil means os.Stdout.
type Module struct {
	Out io.Writer
}

// Input defines the parameters of the report app. Values typically pull
// from the results namespace of upstream runs.
type Input struct {
	Title  string            `cty:"title"`
	Values map[string]string `cty:"values"`
}

// Result reports how many rows were printed.
type Result struct {
	Rows int `cty:"rows"`
}

// runReport prints the named values as a sorted two-column table. Because
// a memoized report loads silently, report runs are usually declared with
// mode = "run".
func runReport(ctx context.Context, out io.Writer, input *Input) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Printing report.", "title", input.Title, "rows", len(input.Values))

	if input.Title != "" {
		fmt.Fprintf(out, "%s\n", input.Title)
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(input.Values))
	for k := range input.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	width := 0
	for _, k := range keys {
		if len(k) > width {
			width = len(k)
		}
	}
	for _, k := range keys {
		fmt.Fprintf(out, "  %-*s = %s\n", width, k, input.Values[k])
	}

	return &Result{Rows: len(keys)}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.RegisterApp("OnRunReport", &registry.RegisteredApp{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn: func(ctx context.Context, env *task.Env, input *Input) (*Result, error) {
			return runReport(ctx, out, input)
		},
	})
}
