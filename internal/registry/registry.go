package registry

import (
	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/params"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered handlers, manifest definitions, and
// derived parameter classes for a single application instance.
type Registry struct {
	HandlerRegistry    map[string]*RegisteredApp
	DefinitionRegistry map[string]*config.AppDefinition

	// apps and classes bind app names to their Go parts. Both are derived
	// by Validate; lookups before validation find nothing.
	apps    map[string]*RegisteredApp
	classes map[string]*params.Class
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		HandlerRegistry:    make(map[string]*RegisteredApp),
		DefinitionRegistry: make(map[string]*config.AppDefinition),
		apps:               make(map[string]*RegisteredApp),
		classes:            make(map[string]*params.Class),
	}
}

// PopulateDefinitionsFromModel copies the loaded app definitions from the
// config model into the registry for easy access during execution.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for key, val := range model.Apps {
		r.DefinitionRegistry[key] = val
	}
}

// App returns the Go handler bound to an app name.
func (r *Registry) App(name string) (*RegisteredApp, bool) {
	h, ok := r.apps[name]
	return h, ok
}

// Class returns the parameter class derived for an app name.
func (r *Registry) Class(name string) (*params.Class, bool) {
	c, ok := r.classes[name]
	return c, ok
}
