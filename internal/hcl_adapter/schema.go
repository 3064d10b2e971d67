package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Experiment Structures ---

// bodyBlock captures the raw content of a `params` or `matrix` block.
// Attributes stay unevaluated until the run's dependencies have finished.
type bodyBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// runBlock represents a `run` block from a user's experiment file. It is an
// executable instance of a defined app.
type runBlock struct {
	App        string      `hcl:"app,label"`
	Name       string      `hcl:"name,label"`
	Params     *bodyBlock  `hcl:"params,block"`
	Matrix     *bodyBlock  `hcl:"matrix,block"`
	ParamsFile string      `hcl:"params_file,optional"`
	Store      *storeBlock `hcl:"store,block"`
	DependsOn  []string    `hcl:"depends_on,optional"`
	Mode       string      `hcl:"mode,optional"`
}

// storeBlock selects where a run keeps its files. The label is the store
// kind; the body carries the kind-specific attributes.
type storeBlock struct {
	Kind string `hcl:"kind,label"`
	Root string `hcl:"root,optional"`
	Path string `hcl:"path,optional"`
	Of   string `hcl:"of,optional"`
	Name string `hcl:"name,optional"`
}

// monitorBlock configures the experiment-wide progress monitor.
type monitorBlock struct {
	URL         string `hcl:"url"`
	Namespace   string `hcl:"namespace,optional"`
	EventPrefix string `hcl:"event_prefix,optional"`
	Required    bool   `hcl:"required,optional"`
	Timeout     string `hcl:"timeout,optional"`
}

// --- App Manifest Schemas ---

// lifecycleBlock defines the mapping from an app's lifecycle event to a
// registered Go handler function.
type lifecycleBlock struct {
	OnRun string `hcl:"on_run,optional"`
}

// inputBlock defines a single input parameter for an app. Type, default,
// choices and the bounds are kept as expressions so that absence can be
// told apart from an explicit value.
type inputBlock struct {
	Name         string         `hcl:"name,label"`
	Type         hcl.Expression `hcl:"type,optional"`
	Description  string         `hcl:"description,optional"`
	Default      hcl.Expression `hcl:"default,optional"`
	Optional     bool           `hcl:"optional,optional"`
	Required     bool           `hcl:"required,optional"`
	HashContents bool           `hcl:"hash_contents,optional"`
	Choices      hcl.Expression `hcl:"choices,optional"`
	Min          hcl.Expression `hcl:"min,optional"`
	Max          hcl.Expression `hcl:"max,optional"`
}

// groupBlock is a nested namespace of inputs inside an app manifest.
// Groups may nest further groups.
type groupBlock struct {
	Name        string        `hcl:"name,label"`
	Description string        `hcl:"description,optional"`
	Inputs      []*inputBlock `hcl:"input,block"`
	Groups      []*groupBlock `hcl:"group,block"`
}

// appBlock represents the HCL manifest for a registered app.
type appBlock struct {
	Name        string          `hcl:"name,label"`
	Description string          `hcl:"description,optional"`
	Lifecycle   *lifecycleBlock `hcl:"lifecycle,block"`
	Inputs      []*inputBlock   `hcl:"input,block"`
	Groups      []*groupBlock   `hcl:"group,block"`
}

// fileRoot is a struct used to decode all possible top-level blocks from
// any file. Manifests and experiment files share one vocabulary; any block
// may appear in any file.
type fileRoot struct {
	Apps     []*appBlock     `hcl:"app,block"`
	Runs     []*runBlock     `hcl:"run,block"`
	Stores   []*storeBlock   `hcl:"store,block"`
	Monitors []*monitorBlock `hcl:"monitor,block"`
	Remain   hcl.Body        `hcl:",remain"`
}
