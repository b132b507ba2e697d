package app

import (
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/modules/export"
	"github.com/specialistvlad/assetgrid/modules/fonts"
	"github.com/specialistvlad/assetgrid/modules/htmlinclude"
	"github.com/specialistvlad/assetgrid/modules/images"
	"github.com/specialistvlad/assetgrid/modules/libs"
	"github.com/specialistvlad/assetgrid/modules/scripts"
	"github.com/specialistvlad/assetgrid/modules/server"
	"github.com/specialistvlad/assetgrid/modules/sprites"
	"github.com/specialistvlad/assetgrid/modules/styles"
	"github.com/specialistvlad/assetgrid/modules/watch"
)

// coreModules returns the definitive list of all modules that are compiled
// into the assetgrid binary. Modules may hold state (such as a running Sass
// compiler), so every App gets fresh instances.
func coreModules() []registry.Module {
	return []registry.Module{
		&styles.Module{},
		&scripts.Module{},
		&libs.Module{},
		&images.Module{},
		&htmlinclude.Module{},
		&sprites.Module{},
		&fonts.Module{},
		&export.Module{},
		&server.Module{},
		&watch.Module{},
		&Pipelines{},
	}
}
