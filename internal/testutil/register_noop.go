package testutil

import (
	"context"
	"reflect"

	"github.com/vk/memogrid/internal/registry"
	"github.com/vk/memogrid/internal/task"
)

// NoOpModule registers a single "NoOp" app handler. It's useful for tests
// that should fail before execution begins but still need valid HCL that
// can pass registry validation.
type NoOpModule struct{}

// Register registers a "NoOp" app that takes no inputs and does nothing.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterApp("NoOp", &registry.RegisteredApp{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		Fn: func(ctx context.Context, env *task.Env, input *struct{}) (*struct{}, error) {
			// No operation
			return nil, nil
		},
	})
}
