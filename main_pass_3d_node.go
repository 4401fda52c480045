package corepipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/corepipeline/render/core"
	"github.com/gekko3d/corepipeline/render/gpu"
)

// ViewSlot is the entity input of the main pass.
const ViewSlot = "view"

// mainPassView is everything the main pass reads for one view.
type mainPassView struct {
	camera      *core.ExtractedCamera
	camera3d    *core.Camera3d
	opaque      *RenderPhase[Opaque3d]
	alphaMask   *RenderPhase[AlphaMask3d]
	transparent *RenderPhase[Transparent3d]
	target      *gpu.ViewTarget
	depth       *gpu.ViewDepthTexture

	skybox *skyboxDraw
}

type skyboxDraw struct {
	pipeline   *gpu.RenderPipeline
	bindGroup  *gpu.BindGroup
	viewOffset uint32
}

// MainPass3dNode draws the opaque, alpha-mask and transparent phases of one view.
type MainPass3dNode struct {
	// ResetViewportQuirk adds an empty full-target pass after views with a custom
	// viewport, for backends that keep the last viewport across passes.
	ResetViewportQuirk bool

	views map[EntityId]mainPassView
}

func NewMainPass3dNode(resetViewportQuirk bool) *MainPass3dNode {
	return &MainPass3dNode{
		ResetViewportQuirk: resetViewportQuirk,
		views:              make(map[EntityId]mainPassView),
	}
}

func (n *MainPass3dNode) Input() []SlotInfo {
	return []SlotInfo{{Name: ViewSlot, Type: SlotEntity}}
}

func (n *MainPass3dNode) Output() []SlotInfo {
	return nil
}

// Update rebuilds the view table. Views missing any required component are left out.
func (n *MainPass3dNode) Update(cmd *Commands) {
	clear(n.views)
	cache, _ := Resource[gpu.PipelineCache](cmd)

	MakeQuery2[core.ExtractedCamera, core.ExtractedView](cmd).Map(func(eid EntityId, camera *core.ExtractedCamera, _ *core.ExtractedView) bool {
		view := mainPassView{camera: camera}
		var ok bool
		if view.camera3d, ok = Get[core.Camera3d](cmd, eid); !ok {
			return true
		}
		if view.opaque, ok = Get[RenderPhase[Opaque3d]](cmd, eid); !ok {
			return true
		}
		if view.alphaMask, ok = Get[RenderPhase[AlphaMask3d]](cmd, eid); !ok {
			return true
		}
		if view.transparent, ok = Get[RenderPhase[Transparent3d]](cmd, eid); !ok {
			return true
		}
		if view.target, ok = Get[gpu.ViewTarget](cmd, eid); !ok {
			return true
		}
		if view.depth, ok = Get[gpu.ViewDepthTexture](cmd, eid); !ok {
			return true
		}
		if cache != nil {
			view.skybox = resolveSkyboxDraw(cmd, cache, eid)
		}
		n.views[eid] = view
		return true
	})
}

// resolveSkyboxDraw returns nil until the view's skybox pipeline compiled and its bind group exists.
func resolveSkyboxDraw(cmd *Commands, cache *gpu.PipelineCache, view EntityId) *skyboxDraw {
	id, ok := Get[SkyboxPipelineId](cmd, view)
	if !ok {
		return nil
	}
	bindGroup, ok := Get[SkyboxBindGroup](cmd, view)
	if !ok {
		return nil
	}
	offset, ok := Get[ViewUniformOffset](cmd, view)
	if !ok {
		return nil
	}
	pipeline, ok := cache.GetRenderPipeline(id.ID)
	if !ok {
		return nil
	}
	return &skyboxDraw{pipeline: pipeline, bindGroup: bindGroup.BindGroup, viewOffset: offset.Offset}
}

func (n *MainPass3dNode) Run(graph *GraphContext, rc *gpu.RenderContext, cmd *Commands) error {
	viewEntity, err := graph.GetInputEntity(ViewSlot)
	if err != nil {
		return err
	}
	view, ok := n.views[viewEntity]
	if !ok {
		return nil
	}

	// The opaque pass always runs: its load op clears the target for the frame.
	{
		colorOps := gpu.Operations[wgpu.Color]{Store: true}
		switch view.camera3d.ClearColor.Mode {
		case core.ClearColorDefault:
			clearColor := core.DefaultClearColor()
			if global, ok := Resource[core.ClearColor](cmd); ok {
				clearColor = *global
			}
			colorOps.Load = gpu.ClearTo(toWgpuColor(clearColor.Color))
		case core.ClearColorCustom:
			colorOps.Load = gpu.ClearTo(toWgpuColor(view.camera3d.ClearColor.Color))
		case core.ClearColorNone:
			colorOps.Load = gpu.Load[wgpu.Color]()
		}

		// 0.0 is the far plane with reversed-Z.
		depthOps := gpu.Operations[float32]{Store: true}
		if view.camera3d.DepthLoadOp.Load {
			depthOps.Load = gpu.Load[float32]()
		} else {
			depthOps.Load = gpu.ClearTo(view.camera3d.DepthLoadOp.Value)
		}

		pass := rc.BeginCameraPass("main_opaque_pass_3d", view.target.ColorAttachment(colorOps), view.depth.Attachment(depthOps), view.camera.Viewport)
		view.opaque.Render(pass, viewEntity, cmd)
		if sky := view.skybox; sky != nil {
			pass.SetRenderPipeline(sky.pipeline)
			pass.SetBindGroup(0, sky.bindGroup, []uint32{sky.viewOffset})
			pass.Draw(3, 1, 0, 0)
		}
		if err := pass.End(); err != nil {
			cmd.Logger().Errorf("main opaque pass: %v", err)
		}
	}

	loadStore := gpu.Operations[wgpu.Color]{Load: gpu.Load[wgpu.Color](), Store: true}
	depthLoadStore := gpu.Operations[float32]{Load: gpu.Load[float32](), Store: true}

	if view.alphaMask.Len() > 0 {
		pass := rc.BeginCameraPass("main_alpha_mask_pass_3d", view.target.ColorAttachment(loadStore), view.depth.Attachment(depthLoadStore), view.camera.Viewport)
		view.alphaMask.Render(pass, viewEntity, cmd)
		if err := pass.End(); err != nil {
			cmd.Logger().Errorf("main alpha mask pass: %v", err)
		}
	}

	if view.transparent.Len() > 0 {
		// Transparent items only test depth, but the depth store stays enabled:
		// some backends clear the depth buffer otherwise.
		pass := rc.BeginCameraPass("main_transparent_pass_3d", view.target.ColorAttachment(loadStore), view.depth.Attachment(depthLoadStore), view.camera.Viewport)
		view.transparent.Render(pass, viewEntity, cmd)
		if err := pass.End(); err != nil {
			cmd.Logger().Errorf("main transparent pass: %v", err)
		}
	}

	if n.ResetViewportQuirk && view.camera.Viewport != nil {
		pass := rc.BeginCameraPass("reset_viewport_pass_3d", view.target.ColorAttachment(loadStore), nil, nil)
		if err := pass.End(); err != nil {
			cmd.Logger().Errorf("reset viewport pass: %v", err)
		}
	}

	return nil
}

func toWgpuColor(c mgl32.Vec4) wgpu.Color {
	return wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
}
