package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/memogrid/internal/app"
	"github.com/vk/memogrid/internal/hcl_adapter"
	"github.com/vk/memogrid/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	Root      string
}

// Harness prepares a disposable experiment tree and runs the full App over
// it. The same harness can run repeatedly, which is how memoization across
// process restarts is exercised: every Run builds a fresh App over the same
// store root.
type Harness struct {
	t       *testing.T
	Root    string
	Config  *app.Config
	modules []registry.Module
}

// NewHarness writes the given files (paths relative to a fresh temp root)
// and returns a harness configured to run them. Experiment files belong
// under "experiment/", manifests under "modules/". Modules default to the
// compiled-in core set when none are given.
func NewHarness(t *testing.T, files map[string]string, modules ...registry.Module) *Harness {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "experiment"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "modules"), 0o755))

	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return &Harness{
		t:    t,
		Root: root,
		Config: &app.Config{
			ExperimentPath: filepath.Join(root, "experiment"),
			ModulesPath:    filepath.Join(root, "modules"),
			StoreRoot:      filepath.Join(root, "memo"),
			Mode:           "auto",
			LogFormat:      "text",
			LogLevel:       "debug",
			WorkerCount:    4,
		},
		modules: modules,
	}
}

// Run builds a fresh App over the harness tree and executes it. Startup
// panics surface as errors rather than killing the test process.
func (h *Harness) Run(ctx context.Context) *HarnessResult {
	h.t.Helper()

	logBuffer := &SafeBuffer{}
	cfg := *h.Config

	var testApp *app.App
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("application startup panicked: %v", r)
			}
		}()
		testApp = app.NewApp(logBuffer, &cfg, hcl_adapter.NewLoader(), h.modules...)
	}()

	if runErr == nil {
		runErr = testApp.Run(ctx)
	}

	if os.Getenv("MEMOGRID_TEST_LOGS") == "true" {
		h.t.Logf("--- Full Log Output for %s ---\n%s", h.t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Root:      h.Root,
	}
}

// RunExperiment is the one-shot form of the harness for tests that need a
// single execution.
func RunExperiment(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return NewHarness(t, files, modules...).Run(context.Background())
}
