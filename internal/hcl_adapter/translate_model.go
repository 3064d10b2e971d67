// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
)

// translateRun converts the HCL-specific run schema into the agnostic model.
func (l *Loader) translateRun(ctx context.Context, b *runBlock) (*config.Run, error) {
	logger := ctxlog.FromContext(ctx).With("run_app", b.App, "run_name", b.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	logger.Debug("Translating HCL run to internal config model.")

	switch b.Mode {
	case "", "auto", "run", "load":
	default:
		return nil, fmt.Errorf("run %q: unknown mode %q (want auto, run or load)", b.Name, b.Mode)
	}

	var store *config.StoreConfig
	if b.Store != nil {
		sc, err := translateStore(b.Store)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", b.Name, err)
		}
		store = sc
	}

	return &config.Run{
		App:        b.App,
		Name:       b.Name,
		Arguments:  l.extractBodyAttributes(b.Params),
		Matrix:     l.extractBodyAttributes(b.Matrix),
		ParamsFile: b.ParamsFile,
		Store:      store,
		DependsOn:  b.DependsOn,
		Mode:       b.Mode,
	}, nil
}

// translateStore converts a store block, enforcing that only the attributes
// belonging to the declared kind are present.
func translateStore(b *storeBlock) (*config.StoreConfig, error) {
	sc := &config.StoreConfig{
		Kind: b.Kind,
		Root: b.Root,
		Path: b.Path,
		Of:   b.Of,
		Name: b.Name,
	}
	switch b.Kind {
	case config.StoreKindHash:
		if b.Path != "" || b.Of != "" || b.Name != "" {
			return nil, fmt.Errorf("store %q accepts only the root attribute", b.Kind)
		}
	case config.StoreKindDir:
		if b.Path == "" {
			return nil, fmt.Errorf("store %q requires a path", b.Kind)
		}
		if b.Root != "" || b.Of != "" || b.Name != "" {
			return nil, fmt.Errorf("store %q accepts only the path attribute", b.Kind)
		}
	case config.StoreKindSub:
		if b.Of == "" {
			return nil, fmt.Errorf("store %q requires the owning run in of", b.Kind)
		}
		if b.Root != "" || b.Path != "" {
			return nil, fmt.Errorf("store %q accepts only of and name", b.Kind)
		}
	default:
		return nil, fmt.Errorf("unknown store kind %q (want hash, dir or sub)", b.Kind)
	}
	return sc, nil
}

// translateMonitor converts a monitor block into the agnostic model.
func translateMonitor(b *monitorBlock) (*config.MonitorConfig, error) {
	mc := &config.MonitorConfig{
		URL:         b.URL,
		Namespace:   b.Namespace,
		EventPrefix: b.EventPrefix,
		Required:    b.Required,
	}
	if b.Timeout != "" {
		d, err := time.ParseDuration(b.Timeout)
		if err != nil {
			return nil, fmt.Errorf("monitor: invalid timeout %q: %w", b.Timeout, err)
		}
		mc.Timeout = d
	}
	return mc, nil
}

// translateAppDefinition converts the HCL-specific app schema into the agnostic model.
func (l *Loader) translateAppDefinition(ctx context.Context, b *appBlock) (*config.AppDefinition, error) {
	def := &config.AppDefinition{
		Name:        b.Name,
		Description: b.Description,
		Inputs:      make(map[string]*config.InputDefinition),
		Groups:      make(map[string]*config.GroupDefinition),
	}
	if b.Lifecycle != nil {
		def.Lifecycle = &config.Lifecycle{OnRun: b.Lifecycle.OnRun}
	}

	for _, in := range b.Inputs {
		translated, err := translateInputDefinition(ctx, in, "app", b.Name)
		if err != nil {
			return nil, err
		}
		if _, exists := def.Inputs[in.Name]; exists {
			return nil, fmt.Errorf("duplicate input %q in app %q", in.Name, b.Name)
		}
		def.Inputs[in.Name] = translated
		def.InputOrder = append(def.InputOrder, in.Name)
	}

	for _, g := range b.Groups {
		translated, err := l.translateGroupDefinition(ctx, g, b.Name)
		if err != nil {
			return nil, err
		}
		if _, exists := def.Groups[g.Name]; exists {
			return nil, fmt.Errorf("duplicate group %q in app %q", g.Name, b.Name)
		}
		if _, exists := def.Inputs[g.Name]; exists {
			return nil, fmt.Errorf("group %q collides with input %q in app %q", g.Name, g.Name, b.Name)
		}
		def.Groups[g.Name] = translated
		def.GroupOrder = append(def.GroupOrder, g.Name)
	}
	return def, nil
}

// translateGroupDefinition converts a nested group block. ownerName carries
// the dotted path for error messages.
func (l *Loader) translateGroupDefinition(ctx context.Context, b *groupBlock, ownerName string) (*config.GroupDefinition, error) {
	path := ownerName + "." + b.Name
	def := &config.GroupDefinition{
		Name:        b.Name,
		Description: b.Description,
		Inputs:      make(map[string]*config.InputDefinition),
		Groups:      make(map[string]*config.GroupDefinition),
	}

	for _, in := range b.Inputs {
		translated, err := translateInputDefinition(ctx, in, "group", path)
		if err != nil {
			return nil, err
		}
		if _, exists := def.Inputs[in.Name]; exists {
			return nil, fmt.Errorf("duplicate input %q in group %q", in.Name, path)
		}
		def.Inputs[in.Name] = translated
		def.InputOrder = append(def.InputOrder, in.Name)
	}

	for _, g := range b.Groups {
		translated, err := l.translateGroupDefinition(ctx, g, path)
		if err != nil {
			return nil, err
		}
		if _, exists := def.Groups[g.Name]; exists {
			return nil, fmt.Errorf("duplicate group %q in group %q", g.Name, path)
		}
		if _, exists := def.Inputs[g.Name]; exists {
			return nil, fmt.Errorf("group %q collides with input %q in group %q", g.Name, g.Name, path)
		}
		def.Groups[g.Name] = translated
		def.GroupOrder = append(def.GroupOrder, g.Name)
	}
	return def, nil
}
