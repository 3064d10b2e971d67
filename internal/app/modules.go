package app

import (
	"github.com/vk/memogrid/internal/registry"
	"github.com/vk/memogrid/modules/logistic"
	"github.com/vk/memogrid/modules/report"
	"github.com/vk/memogrid/modules/seriesstats"
)

// coreModules is the definitive list of all modules that are compiled into
// the memogrid binary.
var coreModules = []registry.Module{
	&logistic.Module{},
	&seriesstats.Module{},
	&report.Module{},
}
