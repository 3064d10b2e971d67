package executor

import (
	"github.com/vk/memogrid/internal/dag"
)

// TaskStatus is a point-in-time view of one task, shaped for the status
// endpoint's JSON response.
type TaskStatus struct {
	Task    string   `json:"task"`
	App     string   `json:"app"`
	State   string   `json:"state"`
	Phase   string   `json:"phase,omitempty"`
	Digest  string   `json:"digest,omitempty"`
	Store   string   `json:"store,omitempty"`
	Loaded  bool     `json:"loaded,omitempty"`
	Error   string   `json:"error,omitempty"`
	Results []string `json:"results,omitempty"`
}

// Snapshot reports every task's current status, in run-name order with
// variants in index order. It is safe to call while Execute is running.
func (e *Executor) Snapshot() []TaskStatus {
	out := make([]TaskStatus, 0, len(e.Graph.Nodes))
	for _, name := range e.Graph.RunNames() {
		for _, n := range e.Graph.RunNodes(name) {
			s := TaskStatus{
				Task:  n.ID(),
				App:   n.Run.App,
				State: n.GetState().String(),
			}
			if t, ok := e.Task(n.ID()); ok {
				s.Phase = t.Phase().String()
				s.Digest = t.Digest
				s.Store = t.Store.String()
				s.Loaded = t.WasLoaded()
				s.Results = t.Results.Names()
			}
			if n.GetState() == dag.Failed && n.Error != nil {
				s.Error = n.Error.Error()
			}
			out = append(out, s)
		}
	}
	return out
}
