package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load orchestrates the entire HCL configuration loading process. It is
// agnostic to the origin of the paths and parses any valid block from any
// file, so app manifests and experiment files can be mixed freely.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{
		Apps:       make(map[string]*config.AppDefinition),
		Experiment: &config.Experiment{},
	}

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		// Translate and merge all discovered blocks into the model.
		for _, app := range root.Apps {
			def, err := l.translateAppDefinition(ctx, app)
			if err != nil {
				return nil, nil, err
			}
			model.Apps[def.Name] = def
		}
		for _, run := range root.Runs {
			r, err := l.translateRun(ctx, run)
			if err != nil {
				return nil, nil, err
			}
			model.Experiment.Runs = append(model.Experiment.Runs, r)
		}
		for _, store := range root.Stores {
			sc, err := translateStore(store)
			if err != nil {
				return nil, nil, fmt.Errorf("in %s: %w", file, err)
			}
			if sc.Kind == config.StoreKindSub {
				return nil, nil, fmt.Errorf("in %s: the experiment-wide store cannot be of kind \"sub\"", file)
			}
			if model.Experiment.Store != nil {
				return nil, nil, fmt.Errorf("in %s: duplicate experiment-wide store block", file)
			}
			model.Experiment.Store = sc
		}
		for _, mon := range root.Monitors {
			mc, err := translateMonitor(mon)
			if err != nil {
				return nil, nil, fmt.Errorf("in %s: %w", file, err)
			}
			if model.Experiment.Monitor != nil {
				return nil, nil, fmt.Errorf("in %s: duplicate monitor block", file)
			}
			model.Experiment.Monitor = mc
		}
	}

	logger.Debug("HCL loading complete.",
		"apps", len(model.Apps),
		"runs", len(model.Experiment.Runs),
	)
	return model, NewConverter(), nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
