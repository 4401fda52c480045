package corepipeline

import (
	"fmt"
	"reflect"
)

// RenderBackendTag records which module provided the RenderDevice.
// Only one backend (window or headless) may be installed.
type RenderBackendTag struct {
	Name string
}

var typeOfRenderBackendTag = reflect.TypeOf(RenderBackendTag{})

// ensureSingleRenderBackend panics when a different backend is already installed.
func ensureSingleRenderBackend(app *App, name string) {
	if app == nil {
		panic("ensureSingleRenderBackend: app is nil")
	}
	if res, ok := app.resources[typeOfRenderBackendTag]; ok {
		tag := res.(*RenderBackendTag)
		if tag.Name != name {
			app.Logger().Errorf("Multiple render backends installed: %s and %s", tag.Name, name)
			panic(fmt.Sprintf("Multiple render backends installed: %s and %s", tag.Name, name))
		}
		return
	}
	app.addResources(&RenderBackendTag{Name: name})
}

// requireResource panics with a module-ordering hint when t is missing.
func requireResource(app *App, t reflect.Type, module string) {
	if !app.hasResource(t) {
		panic(fmt.Sprintf("%s requires resource %s; install the module providing it first", module, t))
	}
}
