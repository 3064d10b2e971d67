package task

import (
	"github.com/google/uuid"

	"github.com/vk/memogrid/internal/datastore"
	"github.com/vk/memogrid/internal/taskid"
)

// Env is the capability surface handed to app handlers. It exposes the
// parts of the task a handler may touch, without granting access to the
// lifecycle machinery.
type Env struct {
	task *Task
}

// NewEnv wraps a task for handler consumption.
func NewEnv(t *Task) *Env {
	return &Env{task: t}
}

// Store returns the task's data store, where handlers persist artifacts.
func (e *Env) Store() datastore.Store {
	return e.task.Store
}

// Addr returns the task's address.
func (e *Env) Addr() taskid.ID {
	return e.task.Addr
}

// RunID returns the identifier of this execution attempt.
func (e *Env) RunID() uuid.UUID {
	return e.task.RunID
}

// Defer schedules f to run when the task's lifecycle ends, regardless of
// outcome.
func (e *Env) Defer(f func()) {
	e.task.Defer(f)
}
