package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of everything the
// engine needs: the app manifests and the experiment to execute.
type Model struct {
	Apps       map[string]*AppDefinition
	Experiment *Experiment
}

// Experiment represents the user's experiment definition.
type Experiment struct {
	Runs    []*Run
	Store   *StoreConfig
	Monitor *MonitorConfig
}

// Run is the format-agnostic representation of a `run` block. Arguments and
// Matrix hold unevaluated expressions; evaluation is deferred until the
// run's dependencies have produced their values.
type Run struct {
	App        string
	Name       string
	Arguments  map[string]hcl.Expression
	Matrix     map[string]hcl.Expression
	ParamsFile string
	Store      *StoreConfig
	DependsOn  []string
	Mode       string
}

// Store kinds selectable in a `store` block.
const (
	// StoreKindHash is a content-addressed directory under a sharded root.
	StoreKindHash = "hash"
	// StoreKindDir is an explicit, fixed directory.
	StoreKindDir = "dir"
	// StoreKindSub shares another run's directory under a file prefix.
	StoreKindSub = "sub"
)

// StoreConfig is the format-agnostic representation of a `store` block.
// Kind selects the layout; the remaining fields are kind-specific.
type StoreConfig struct {
	// Kind is one of StoreKindHash, StoreKindDir or StoreKindSub.
	Kind string
	// Root is the sharded root for hash stores.
	Root string
	// Path is the explicit directory for dir stores.
	Path string
	// Of names the owning run for sub stores; Name is the file prefix.
	Of   string
	Name string
}

// MonitorConfig is the format-agnostic representation of a `monitor` block.
type MonitorConfig struct {
	URL         string
	Namespace   string
	EventPrefix string
	Required    bool
	Timeout     time.Duration
}

// --- App Manifest Models ---

// AppDefinition is the format-agnostic representation of an app's manifest.
// InputOrder and GroupOrder preserve declaration order for deterministic
// registry construction and help output.
type AppDefinition struct {
	Name        string
	Description string
	Lifecycle   *Lifecycle
	Inputs      map[string]*InputDefinition
	InputOrder  []string
	Groups      map[string]*GroupDefinition
	GroupOrder  []string
}

// GroupDefinition is a nested parameter namespace inside an app manifest.
type GroupDefinition struct {
	Name        string
	Description string
	Inputs      map[string]*InputDefinition
	InputOrder  []string
	Groups      map[string]*GroupDefinition
	GroupOrder  []string
}

// Lifecycle maps an app's events to Go handler names.
type Lifecycle struct {
	OnRun string
}

// InputDefinition defines a single input parameter for an app.
type InputDefinition struct {
	Name         string
	Type         cty.Type
	Description  string
	Default      *cty.Value
	Optional     bool
	Required     bool
	HashContents bool
	Choices      []cty.Value
	Min          *cty.Value
	Max          *cty.Value
}
