package task

import "context"

// Plugin observes and augments a task's lifecycle. Hooks fire in plugin
// registration order at every stage; an error from any hook fails the task.
//
// The stages split into two paths after Prepare. A computing task fires
// PreRun, the handler, PostRun and Save; a loading task fires Load instead.
// Finish fires on both paths, but never after a failure.
type Plugin interface {
	// Name identifies the plugin in logs and error messages.
	Name() string
	// Prepare fires before the load-or-compute decision.
	Prepare(ctx context.Context, t *Task) error
	// PreRun fires before the handler computes.
	PreRun(ctx context.Context, t *Task) error
	// PostRun fires after the handler computed successfully.
	PostRun(ctx context.Context, t *Task) error
	// Save persists whatever the plugin owns into the task's store.
	Save(ctx context.Context, t *Task) error
	// Load restores the plugin's data from a completed store.
	Load(ctx context.Context, t *Task) error
	// Finish fires once the task has completed, by either path.
	Finish(ctx context.Context, t *Task) error
}

// Hooks is a no-op implementation of every lifecycle stage except Name.
// Embed it to implement only the stages a plugin cares about.
type Hooks struct{}

// Prepare implements Plugin.
func (Hooks) Prepare(context.Context, *Task) error { return nil }

// PreRun implements Plugin.
func (Hooks) PreRun(context.Context, *Task) error { return nil }

// PostRun implements Plugin.
func (Hooks) PostRun(context.Context, *Task) error { return nil }

// Save implements Plugin.
func (Hooks) Save(context.Context, *Task) error { return nil }

// Load implements Plugin.
func (Hooks) Load(context.Context, *Task) error { return nil }

// Finish implements Plugin.
func (Hooks) Finish(context.Context, *Task) error { return nil }
