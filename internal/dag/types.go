package dag

import (
	"sync"
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/sweep"
	"github.com/vk/memogrid/internal/taskid"
)

// Node is a single vertex in the execution graph, representing one
// executable task: a singular run, or one variant of a matrix run.
type Node struct {
	// id is the unique, machine-readable, structured identifier for the node.
	id taskid.ID

	// Run holds the configuration block this node was expanded from. Matrix
	// variants of the same run share the pointer.
	Run *config.Run
	// Variant holds this node's matrix assignment. It is nil for runs
	// without a matrix block.
	Variant *sweep.Variant

	// Deps holds the set of nodes that this node depends on (predecessors).
	Deps map[string]*Node
	// Dependents holds the set of nodes that depend on this node (successors).
	Dependents map[string]*Node

	// Error stores any error that occurred during the node's execution.
	Error error
	// Output stores the node's results object for use by downstream
	// expressions.
	Output cty.Value
	// Store is the node's resolved data store, set during execution.
	Store datastore.Store
	// Digest is the node's content address, set during execution.
	Digest string
	// Loaded is true when the results were read back from a completed
	// store rather than recomputed.
	Loaded bool

	// depCount is an atomic counter for unmet dependencies, used by the scheduler.
	depCount atomic.Int32
	// state is the node's current execution state, managed atomically.
	state atomic.Int32
	// skipOnce ensures a node is marked as skipped and processed exactly once.
	skipOnce sync.Once
}

func newNode(id taskid.ID, run *config.Run, variant *sweep.Variant) *Node {
	return &Node{
		id:         id,
		Run:        run,
		Variant:    variant,
		Deps:       make(map[string]*Node),
		Dependents: make(map[string]*Node),
	}
}

// ID returns the canonical string representation of the node's address.
func (n *Node) ID() string {
	return n.id.String()
}

// Addr returns the structured address of the node.
func (n *Node) Addr() taskid.ID {
	return n.id
}

// DepCount atomically returns the current number of unmet dependencies.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// DecrementDepCount atomically decrements the dependency counter and returns the new value.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// SetState atomically sets the node's execution state.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// GetState atomically retrieves the node's execution state.
func (n *Node) GetState() State {
	return State(n.state.Load())
}

// Skip marks a node as failed and decrements the WaitGroup counter. It uses a
// sync.Once to guarantee this happens only once, returning true if it was the
// first time this node was skipped.
func (n *Node) Skip(err error, wg *sync.WaitGroup) bool {
	var wasSkipped bool
	n.skipOnce.Do(func() {
		n.SetState(Failed)
		n.Error = err
		wg.Done()
		wasSkipped = true
	})
	return wasSkipped
}

// State represents the execution state of a node in the graph.
type State int32

const (
	// Pending indicates the node is waiting for its dependencies to complete.
	Pending State = iota
	// Running indicates the node is currently being executed by a worker.
	Running
	// Done indicates the node has completed execution successfully.
	Done
	// Failed indicates the node has failed execution or was skipped.
	Failed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
