package corepipeline

import (
	"reflect"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/corepipeline/render/core"
	"github.com/gekko3d/corepipeline/render/gpu"
	"github.com/gekko3d/corepipeline/render/shaders"
)

// RenderDevice is the device and queue every render system draws with.
type RenderDevice struct {
	Device gpu.Device
	Queue  gpu.Queue
}

// RenderSettings is the render configuration resolved at install time.
type RenderSettings struct {
	MaxConcurrentCompiles int
	// AssetBytesPerFrame caps image upload bytes per frame; 0 means unlimited.
	AssetBytesPerFrame uint64
}

// RenderModule installs the pipeline cache, view preparation, image uploads and
// the render graph. A WindowModule or HeadlessModule must be installed before it.
type RenderModule struct {
	MaxConcurrentCompiles int
	AssetBytesPerFrame    uint64
}

var (
	typeOfRenderDevice  = reflect.TypeOf(RenderDevice{})
	typeOfPrimaryWindow = reflect.TypeOf(PrimaryWindow{})
	typeOfClearColor    = reflect.TypeOf(core.ClearColor{})
	typeOfMsaa          = reflect.TypeOf(core.Msaa{})
	typeOfImages        = reflect.TypeOf((*Images)(nil)).Elem()
)

func (m RenderModule) Install(app *App, cmd *Commands) {
	requireResource(app, typeOfRenderDevice, "RenderModule")
	requireResource(app, typeOfPrimaryWindow, "RenderModule")
	device := app.resources[typeOfRenderDevice].(*RenderDevice)

	settings := &RenderSettings{
		MaxConcurrentCompiles: m.MaxConcurrentCompiles,
		AssetBytesPerFrame:    m.AssetBytesPerFrame,
	}
	if settings.MaxConcurrentCompiles <= 0 {
		settings.MaxConcurrentCompiles = 4
	}

	pipelineCache := gpu.NewPipelineCache(device.Device, settings.MaxConcurrentCompiles, app.Logger())
	for handle, source := range shaders.Builtin() {
		pipelineCache.SetShader(handle, source)
	}

	graph := NewRenderGraph()
	graph.SetInput(SlotInfo{Name: ViewSlot, Type: SlotEntity})

	app.addResources(
		settings,
		pipelineCache,
		gpu.NewTextureCache(),
		NewViewUniforms(),
		graph,
		NewRenderImages(),
		NewUpscalingPipeline(device.Device),
		gpu.NewSpecializedRenderPipelines[UpscalingPipelineKey](),
		&ExtractedViews{BySource: make(map[EntityId]EntityId)},
	)
	if !app.hasResource(typeOfImages) {
		app.addResources(NewImages())
	}
	if !app.hasResource(typeOfClearColor) {
		clearColor := core.DefaultClearColor()
		app.addResources(&clearColor)
	}
	if !app.hasResource(typeOfMsaa) {
		msaa := core.DefaultMsaa()
		app.addResources(&msaa)
	}

	app.UseSystem(System(prepareRenderImagesSystem).InStage(Prepare))
	app.UseSystem(System(prepareViewUniformsSystem).InStage(Prepare))
	app.UseSystem(System(prepareViewTargetsSystem).InStage(Prepare))
	app.UseSystem(System(prepareUpscalingSystem).InStage(PrepareBindGroups))
	app.UseSystem(System(pipelineCacheSystem).InStage(Render))
	app.UseSystem(System(renderSystem).InStage(Render))
	app.UseSystem(System(cleanupRenderEntitiesSystem).InStage(Cleanup))

	app.Logger().Infof("render module installed (max concurrent compiles %d)", settings.MaxConcurrentCompiles)
}

// pipelineCacheSystem starts compiling pipelines specialized this frame.
func pipelineCacheSystem(cache *gpu.PipelineCache) {
	cache.ProcessQueue()
}

// renderSystem runs the render graph once per window view and submits a single
// command buffer. HDR views reach the surface through an upscaling pass after the
// last of a run of consecutive HDR views. A surface nothing was drawn to is cleared.
func renderSystem(cmd *Commands, device *RenderDevice, graph *RenderGraph, window *PrimaryWindow, clearColor *core.ClearColor, cache *gpu.PipelineCache) {
	surface, ok := window.SurfaceView()
	if !ok {
		return
	}

	rc := gpu.NewRenderContext(device.Device, "render_frame")
	graph.Update(cmd)
	clearOp := gpu.ClearTo(toWgpuColor(clearColor.Color))

	views := windowViews(cmd)
	surfaceWritten := false
	for i, view := range views {
		if err := graph.Run(rc, cmd, EntitySlot(view)); err != nil {
			cmd.Logger().Errorf("render graph, view %d: %v", view, err)
		}
		if !isHdrView(cmd, view) {
			surfaceWritten = true
			continue
		}
		if i+1 < len(views) && isHdrView(cmd, views[i+1]) {
			continue
		}
		load := clearOp
		if surfaceWritten {
			load = gpu.Load[wgpu.Color]()
		}
		if upscale(rc, cmd, cache, view, surface, load) {
			surfaceWritten = true
		}
	}

	if !surfaceWritten {
		pass := rc.BeginTrackedRenderPass(gpu.RenderPassDescriptor{
			Label: "clear_window",
			ColorAttachments: []gpu.ColorAttachment{{
				View: surface,
				Ops:  gpu.Operations[wgpu.Color]{Load: clearOp, Store: true},
			}},
		})
		if err := pass.End(); err != nil {
			cmd.Logger().Errorf("clear window pass: %v", err)
		}
	}

	device.Queue.Submit(rc.Finish())
}

func isHdrView(cmd *Commands, view EntityId) bool {
	target, ok := Get[gpu.ViewTarget](cmd, view)
	return ok && target.Hdr
}
