// Package task models one memoizable unit of work: a run variant with its
// resolved parameters, content address and store. The Driver walks a task
// through its lifecycle, either recomputing it or loading a previous result
// from the store, firing plugin hooks at every stage.
package task

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/params"
	"github.com/vk/memogrid/internal/taskid"
)

// Task represents a run variant that is fully prepared for execution: its
// parameters are resolved, its canonical encoding and digest computed, and
// its store located.
type Task struct {
	// Addr is the task's unique address within the experiment.
	Addr taskid.ID
	// App names the registered app that computes this task.
	App string
	// RunID uniquely identifies this process's attempt at the task. It is
	// minted fresh for every execution, loaded or computed.
	RunID uuid.UUID
	// Mode selects between recomputing, loading, or deciding by marker.
	Mode Mode

	// Params is the fully resolved parameter tree.
	Params *params.Node
	// Canonical is the canonical JSON encoding of Params, the byte contract
	// for conflict detection.
	Canonical []byte
	// Digest is the content address derived from App and Canonical.
	Digest string
	// Store is where the task's files live.
	Store datastore.Store

	// Results collects the task's named result values.
	Results *Results

	// StartedAt and FinishedAt bound the task's execution, set by the Driver.
	StartedAt  time.Time
	FinishedAt time.Time

	mu       sync.Mutex
	phase    Phase
	err      error
	loaded   bool
	deferred []func()
}

// New returns a pending task. The run ID is minted here so that every
// execution attempt is distinguishable, even when it only loads.
func New(addr taskid.ID, app string, mode Mode, p *params.Node, canonical []byte, digest string, store datastore.Store) *Task {
	return &Task{
		Addr:      addr,
		App:       app,
		RunID:     uuid.New(),
		Mode:      mode,
		Params:    p,
		Canonical: canonical,
		Digest:    digest,
		Store:     store,
		Results:   NewResults(),
		phase:     PhasePending,
	}
}

// Phase returns the task's current lifecycle phase.
func (t *Task) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Err returns the error that failed the task, or nil.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// WasLoaded reports whether the task's results came from a completed store
// rather than a fresh computation.
func (t *Task) WasLoaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// Defer schedules f to run when the task's lifecycle ends, regardless of
// outcome. Deferred functions run in reverse registration order, matching
// the language's defer semantics.
func (t *Task) Defer(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deferred = append(t.deferred, f)
}

func (t *Task) setPhase(p Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = p
}

func (t *Task) fail(err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = PhaseFailed
	t.err = err
	return err
}

func (t *Task) markLoaded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded = true
}

func (t *Task) runDeferred() {
	t.mu.Lock()
	fns := t.deferred
	t.deferred = nil
	t.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
