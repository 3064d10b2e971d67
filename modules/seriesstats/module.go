package seriesstats

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/registry"
	"github.com/vk/memogrid/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the parameters of the seriesstats app. Series is a path to
// a JSON array of numbers; its contents are hashed into the parameter
// digest, so editing the file invalidates the memoized result.
type Input struct {
	Series string `cty:"series"`
}

// Result holds the descriptive statistics of the series.
type Result struct {
	Count    int     `cty:"count"`
	Mean     float64 `cty:"mean"`
	Variance float64 `cty:"variance"`
	Min      float64 `cty:"min"`
	Max      float64 `cty:"max"`
}

// OnRunSeriesStats reads the series file and computes its statistics.
// Variance is the population variance.
func OnRunSeriesStats(ctx context.Context, env *task.Env, input *Input) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Computing series statistics.", "series", input.Series)

	data, err := os.ReadFile(input.Series)
	if err != nil {
		return nil, fmt.Errorf("reading series file: %w", err)
	}

	var series []float64
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("parsing series file %s: %w", input.Series, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("series file %s contains no values", input.Series)
	}

	result := &Result{
		Count: len(series),
		Min:   series[0],
		Max:   series[0],
	}
	sum := 0.0
	for _, v := range series {
		if v < result.Min {
			result.Min = v
		}
		if v > result.Max {
			result.Max = v
		}
		sum += v
	}
	result.Mean = sum / float64(len(series))

	sqSum := 0.0
	for _, v := range series {
		d := v - result.Mean
		sqSum += d * d
	}
	result.Variance = sqSum / float64(len(series))

	return result, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterApp("OnRunSeriesStats", &registry.RegisteredApp{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunSeriesStats,
	})
}
