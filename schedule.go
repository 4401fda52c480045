package corepipeline

import (
	"fmt"
	"slices"
)

type Stage struct {
	Name string
}

// Simulation stages run first, then the render stages. Structural changes made
// in a stage are visible from the next stage on.
var (
	Prelude    = Stage{Name: "Prelude"}
	PreUpdate  = Stage{Name: "PreUpdate"}
	Update     = Stage{Name: "Update"}
	PostUpdate = Stage{Name: "PostUpdate"}

	// Extract copies cameras into per-frame render entities and acquires the surface.
	Extract = Stage{Name: "Extract"}
	// Prepare creates GPU resources: uploads, view uniforms, targets, pipeline specialization.
	Prepare           = Stage{Name: "Prepare"}
	PrepareBindGroups = Stage{Name: "PrepareBindGroups"}
	// Queue fills render phases.
	Queue     = Stage{Name: "Queue"}
	PhaseSort = Stage{Name: "PhaseSort"}
	Render    = Stage{Name: "Render"}
	// Cleanup presents, then drops the frame's render entities.
	Cleanup = Stage{Name: "Cleanup"}
)

func defaultStages() []Stage {
	return []Stage{
		Prelude, PreUpdate, Update, PostUpdate,
		Extract, Prepare, PrepareBindGroups, Queue, PhaseSort, Render, Cleanup,
	}
}

type systemScheduleBuilder struct {
	inStage Stage
	system  systemFn
}

// System schedules fn in the Update stage unless InStage says otherwise.
func System(system systemFn) systemScheduleBuilder {
	return systemScheduleBuilder{system: system, inStage: Update}
}

func (sched systemScheduleBuilder) InStage(s Stage) systemScheduleBuilder {
	return systemScheduleBuilder{system: sched.system, inStage: s}
}

type stagePosition int

const (
	stageBefore stagePosition = iota
	stageAfter
)

type stagePositionBuilder struct {
	position stagePosition
	target   Stage
}

func BeforeStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{position: stageBefore, target: s}
}

func AfterStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{position: stageAfter, target: s}
}

func (app *App) UseStage(stage Stage, where stagePositionBuilder) *App {
	stageIdx := slices.IndexFunc(app.stages, func(s Stage) bool { return s.Name == where.target.Name })
	if stageIdx == -1 {
		panic(fmt.Sprintf("Stage %v not found", where.target.Name))
	}
	if slices.ContainsFunc(app.stages, func(s Stage) bool { return s.Name == stage.Name }) {
		panic(fmt.Sprintf("Stage %v already exists", stage.Name))
	}

	insertAt := stageIdx
	if where.position == stageAfter {
		insertAt = stageIdx + 1
	}
	app.stages = slices.Insert(app.stages, insertAt, stage)
	app.systems[stage.Name] = nil
	return app
}

// UseSystem appends a system to its stage; systems in a stage run in registration order.
func (app *App) UseSystem(system systemScheduleBuilder) *App {
	if _, ok := app.systems[system.inStage.Name]; !ok {
		panic(fmt.Sprintf("Stage %v doesn't exist", system.inStage.Name))
	}
	app.systems[system.inStage.Name] = append(app.systems[system.inStage.Name], system.system)
	return app
}
