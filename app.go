package corepipeline

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

type App struct {
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	ecs       *Ecs

	pending []pendingCommand
	exit    bool
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

// Run calls Update until Exit is requested.
func (app *App) Run() {
	app.Logger().Infof("running with %d stages", len(app.stages))
	for !app.exit {
		app.Update()
	}
}

// Update runs one frame: every stage in order, flushing commands after each.
func (app *App) Update() {
	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
		app.FlushCommands()
	}
}

func (app *App) Exit() {
	app.exit = true
}

func (app *App) ShouldExit() bool {
	return app.exit
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}
		app.resources[resourceType.Elem()] = resource
	}
	return app
}

func (app *App) hasResource(t reflect.Type) bool {
	_, ok := app.resources[t]
	return ok
}

var typeOfCommands = reflect.TypeOf(Commands{})

// callSystem resolves every pointer parameter to *Commands or to a resource.
func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())
	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			app.panicUnresolved(systemValue, systemType, argType)
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, ok := app.resources[underlyingType]; ok {
			args[i] = reflect.ValueOf(resource)
		} else {
			app.panicUnresolved(systemValue, systemType, argType)
		}
	}
	systemValue.Call(args)
}

func (app *App) panicUnresolved(systemValue reflect.Value, systemType, argType reflect.Type) {
	msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
		runtime.FuncForPC(systemValue.Pointer()).Name(),
		systemType,
		argType,
	)
	app.Logger().Errorf("%s", msg)
	panic(msg)
}

// FlushCommands applies buffered structural changes in the order they were issued.
func (app *App) FlushCommands() {
	if len(app.pending) == 0 {
		return
	}
	pending := app.pending
	app.pending = nil

	for _, c := range pending {
		switch c.kind {
		case cmdAddEntity:
			app.ecs.insertEntity(c.eid, c.components...)
		case cmdRemoveEntity:
			app.ecs.removeEntity(c.eid)
		case cmdAddComponents:
			app.ecs.addComponents(c.eid, c.components...)
		case cmdRemoveComponents:
			app.ecs.removeComponents(c.eid, c.components...)
		}
	}
}
