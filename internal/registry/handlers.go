package registry

import (
	"fmt"
	"log/slog"
	"reflect"
)

// RegisteredApp holds the compiled Go parts of an app's run handler.
//
// Fn is invoked by reflection and must have the shape
// func(ctx context.Context, env *task.Env, input *Input) (*Output, error),
// where Input matches InputType and Output is any struct (or nil for apps
// producing no results).
type RegisteredApp struct {
	NewInput  func() any
	InputType reflect.Type
	Fn        any
}

// RegisterApp registers a Go function for an app's run lifecycle event.
func (r *Registry) RegisterApp(name string, handler *RegisteredApp) {
	if _, exists := r.HandlerRegistry[name]; exists {
		panic(fmt.Sprintf("app handler with name '%s' already registered", name))
	}
	slog.Debug("Registering app handler.", "name", name)
	r.HandlerRegistry[name] = handler
}
