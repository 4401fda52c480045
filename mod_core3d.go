package corepipeline

import "reflect"

// MainPass3dNodeName is the render graph name of the main 3D pass.
const MainPass3dNodeName = "main_pass_3d"

// Core3dModule extracts 3D cameras into views, sorts their phases and adds the
// main pass to the render graph. Install it after RenderModule.
type Core3dModule struct {
	// ResetViewportQuirk enables the extra viewport-reset pass; resolved once here.
	ResetViewportQuirk bool
}

var typeOfRenderGraph = reflect.TypeOf(RenderGraph{})

func (m Core3dModule) Install(app *App, cmd *Commands) {
	requireResource(app, typeOfRenderGraph, "Core3dModule")
	graph := app.resources[typeOfRenderGraph].(*RenderGraph)

	graph.AddNode(MainPass3dNodeName, NewMainPass3dNode(m.ResetViewportQuirk))
	if err := graph.AddSlotEdge(GraphInputNode, ViewSlot, MainPass3dNodeName, ViewSlot); err != nil {
		panic(err)
	}

	app.UseSystem(System(extractCamerasSystem).InStage(Extract))
	app.UseSystem(System(sortPhaseSystem).InStage(PhaseSort))
}
