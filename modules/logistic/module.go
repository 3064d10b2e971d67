package logistic

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/registry"
	"github.com/vk/memogrid/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OutputOpts controls the series artifact written to the task's store.
type OutputOpts struct {
	Precision int  `cty:"precision"`
	Record    bool `cty:"record"`
}

// Input defines the parameters of the logistic app.
type Input struct {
	R      float64    `cty:"r"`
	X0     float64    `cty:"x0"`
	N      int        `cty:"n"`
	BurnIn int        `cty:"burn_in"`
	Output OutputOpts `cty:"output"`
}

// Result summarizes the kept trajectory. Series holds the path of the
// written artifact, or the empty string when recording is off.
type Result struct {
	Final  float64 `cty:"final"`
	Min    float64 `cty:"min"`
	Max    float64 `cty:"max"`
	Mean   float64 `cty:"mean"`
	Series string  `cty:"series"`
}

// OnRunLogistic iterates the logistic map x' = r*x*(1-x), discards the
// burn-in prefix and keeps n values.
func OnRunLogistic(ctx context.Context, env *task.Env, input *Input) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Iterating logistic map.", "r", input.R, "x0", input.X0, "n", input.N, "burn_in", input.BurnIn)

	if input.N < 1 {
		return nil, fmt.Errorf("n must be at least 1, got %d", input.N)
	}

	x := input.X0
	for i := 0; i < input.BurnIn; i++ {
		x = input.R * x * (1 - x)
	}

	series := make([]float64, 0, input.N)
	for i := 0; i < input.N; i++ {
		if i%8192 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		x = input.R * x * (1 - x)
		series = append(series, x)
	}

	result := &Result{Final: series[len(series)-1]}
	result.Min, result.Max, result.Mean = summarize(series)

	if input.Output.Record {
		path, err := env.Store().Path("series.json")
		if err != nil {
			return nil, err
		}
		if err := datastore.WriteFileAtomic(path, encodeSeries(series, input.Output.Precision)); err != nil {
			return nil, fmt.Errorf("writing series artifact: %w", err)
		}
		result.Series = path
	}

	return result, nil
}

func summarize(series []float64) (min, max, mean float64) {
	min, max = series[0], series[0]
	sum := 0.0
	for _, v := range series {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	return min, max, sum / float64(len(series))
}

// encodeSeries renders the trajectory as a JSON array with the requested
// significant-digit precision. Precision -1 means shortest round-trip.
func encodeSeries(series []float64, precision int) []byte {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, v := range series {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', precision, 64))
	}
	b.WriteByte(']')
	return b.Bytes()
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterApp("OnRunLogistic", &registry.RegisteredApp{
		NewInput: func() any {
			return &Input{X0: 0.5, N: 1000, Output: OutputOpts{Precision: 17, Record: true}}
		},
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunLogistic,
	})
}
