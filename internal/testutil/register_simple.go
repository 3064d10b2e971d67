package testutil

import "github.com/vk/memogrid/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single app handler.
type SimpleModule struct {
	AppName string
	App     *registry.RegisteredApp
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.AppName != "" && m.App != nil {
		r.RegisterApp(m.AppName, m.App)
	}
}
