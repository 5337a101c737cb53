package app

import (
	"github.com/specialistvlad/ioclient/internal/handlers"
	"github.com/specialistvlad/ioclient/internal/registry"
	"github.com/specialistvlad/ioclient/modules/print"
	"github.com/specialistvlad/ioclient/modules/status"
)

// Module contributes components and handler tags to an App.
type Module interface {
	Register(r *registry.Registry, hs *handlers.Handlers)
}

// coreModules is the list of modules compiled into the ioclient binary.
func (a *App) coreModules() []Module {
	return []Module{
		&status.Module{},
		&print.Module{Events: a.config.PrintEvents, Out: a.outW},
	}
}
