package testutil

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/vk/memogrid/internal/registry"
	"github.com/vk/memogrid/internal/task"
)

// SleeperManifest is the minimal manifest pairing the sleeper app with its
// Go handler. Tests drop it into their modules directory verbatim.
const SleeperManifest = `
app "sleeper" {
  lifecycle {
    on_run = "OnRunSleeper"
  }

  input "label" {
    type     = string
    required = true
  }
}
`

// SleeperModule is a shared, self-contained module for concurrency tests.
// Its handler sleeps for a fixed duration and records the execution window
// of every task, keyed by task address. Give each sleeper run a distinct
// label, otherwise identical parameters collapse into one digest and the
// runs deduplicate instead of sleeping concurrently.
type SleeperModule struct {
	Windows map[string]*ExecutionRecord
	mu      sync.Mutex
	sleep   time.Duration
}

// NewSleeperModule creates a new sleeper module for testing.
func NewSleeperModule(sleep time.Duration) *SleeperModule {
	return &SleeperModule{
		Windows: make(map[string]*ExecutionRecord),
		sleep:   sleep,
	}
}

// Window returns the recorded execution window for a task address.
func (m *SleeperModule) Window(addr string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Windows[addr]
	return rec, ok
}

// Register registers the "sleeper" app's Go handler.
func (m *SleeperModule) Register(r *registry.Registry) {
	type sleeperInput struct {
		Label string `cty:"label"`
	}

	r.RegisterApp("OnRunSleeper", &registry.RegisteredApp{
		NewInput:  func() any { return new(sleeperInput) },
		InputType: reflect.TypeOf(sleeperInput{}),
		Fn: func(ctx context.Context, env *task.Env, input *sleeperInput) (*struct{}, error) {
			start := time.Now()
			select {
			case <-time.After(m.sleep):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			m.mu.Lock()
			m.Windows[env.Addr().String()] = &ExecutionRecord{Start: start, End: time.Now()}
			m.mu.Unlock()
			return nil, nil
		},
	})
}
