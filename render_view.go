package corepipeline

import (
	"cmp"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/corepipeline/render/core"
	"github.com/gekko3d/corepipeline/render/gpu"
)

// RenderEntity marks an entity that only lives for the current frame.
// Source is the camera it was extracted from.
type RenderEntity struct {
	Source EntityId
}

// ExtractedViews maps camera entities to the render view spawned for them this frame.
type ExtractedViews struct {
	BySource map[EntityId]EntityId
}

// ViewUniforms holds the view uniforms of every view this frame.
type ViewUniforms struct {
	Uniforms *gpu.DynamicUniformBuffer[core.ViewUniform]
}

func NewViewUniforms() *ViewUniforms {
	return &ViewUniforms{Uniforms: gpu.NewDynamicUniformBuffer[core.ViewUniform]("view_uniforms")}
}

// Binding is the view uniform buffer range, available once uniforms were uploaded.
func (u *ViewUniforms) Binding() (*gpu.BufferBinding, bool) {
	return u.Uniforms.Binding()
}

// ViewUniformOffset is the view's dynamic offset into ViewUniforms.
type ViewUniformOffset struct {
	Offset uint32
}

// extractCamerasSystem spawns one render view per active 3D camera.
func extractCamerasSystem(cmd *Commands, window *PrimaryWindow, views *ExtractedViews) {
	clear(views.BySource)

	MakeQuery4[core.Camera, core.Camera3d, core.Projection, core.Transform](cmd).Map(
		func(eid EntityId, camera *core.Camera, camera3d *core.Camera3d, projection *core.Projection, transform *core.Transform) bool {
			if !camera.Active {
				return true
			}

			var size [2]uint32
			if camera.Target == core.TargetPrimaryWindow {
				size = [2]uint32{window.Width, window.Height}
			}
			viewport := [4]uint32{0, 0, size[0], size[1]}
			if camera.Viewport != nil {
				viewport = [4]uint32{
					camera.Viewport.PhysicalPosition[0], camera.Viewport.PhysicalPosition[1],
					camera.Viewport.PhysicalSize[0], camera.Viewport.PhysicalSize[1],
				}
			}

			proj := *projection
			if viewport[3] > 0 {
				proj.AspectRatio = float32(viewport[2]) / float32(viewport[3])
			}

			var cameraViewport *core.Viewport
			if camera.Viewport != nil {
				vp := *camera.Viewport
				cameraViewport = &vp
			}

			view := cmd.AddEntity(
				RenderEntity{Source: eid},
				core.ExtractedCamera{
					Target:       camera.Target,
					Viewport:     cameraViewport,
					PhysicalSize: size,
					Order:        camera.Order,
				},
				core.ExtractedView{
					Projection: proj.Matrix(),
					Transform:  *transform,
					Hdr:        camera.Hdr,
					Viewport:   viewport,
				},
				*camera3d,
				RenderPhase[Opaque3d]{},
				RenderPhase[AlphaMask3d]{},
				RenderPhase[Transparent3d]{},
			)
			views.BySource[eid] = view
			return true
		})
}

// ExtractComponentSystem copies a camera's T onto its render view.
func ExtractComponentSystem[T any]() func(cmd *Commands, views *ExtractedViews) {
	return func(cmd *Commands, views *ExtractedViews) {
		for source, view := range views.BySource {
			if c, ok := Get[T](cmd, source); ok {
				cmd.AddComponents(view, *c)
			}
		}
	}
}

func prepareViewUniformsSystem(cmd *Commands, device *RenderDevice, uniforms *ViewUniforms) {
	uniforms.Uniforms.Clear()

	MakeQuery2[RenderEntity, core.ExtractedView](cmd).Map(func(eid EntityId, _ *RenderEntity, view *core.ExtractedView) bool {
		offset := uniforms.Uniforms.Push(core.NewViewUniform(view))
		cmd.AddComponents(eid, ViewUniformOffset{Offset: offset})
		return true
	})

	uniforms.Uniforms.Write(device.Device, device.Queue)
}

// mainTextureKey groups views that draw into the same main textures. Views on
// one target share them so a later camera can load what an earlier one drew.
type mainTextureKey struct {
	target core.RenderTarget
	hdr    bool
}

type mainTextures struct {
	main    *gpu.TextureView
	sampled *gpu.TextureView
}

// prepareViewTargetsSystem attaches color and depth targets to views drawing into
// the primary window. Views get nothing when no surface texture was acquired.
func prepareViewTargetsSystem(cmd *Commands, device *RenderDevice, window *PrimaryWindow, msaa *core.Msaa, textures *gpu.TextureCache) {
	surface, ok := window.SurfaceView()
	if !ok {
		return
	}
	samples := max(msaa.Samples, 1)
	size := wgpu.Extent3D{Width: window.Width, Height: window.Height, DepthOrArrayLayers: 1}
	shared := make(map[mainTextureKey]mainTextures)

	MakeQuery2[core.ExtractedCamera, core.ExtractedView](cmd).Map(func(eid EntityId, camera *core.ExtractedCamera, view *core.ExtractedView) bool {
		if camera.Target != core.TargetPrimaryWindow {
			return true
		}

		format := window.Format
		if view.Hdr {
			format = gpu.HdrFormat
		}
		key := mainTextureKey{target: camera.Target, hdr: view.Hdr}
		mt, ok := shared[key]
		if !ok {
			mt.main = surface
			if view.Hdr {
				mt.main = textures.Get(device.Device, &wgpu.TextureDescriptor{
					Label:         "main_texture_hdr",
					Size:          size,
					MipLevelCount: 1,
					SampleCount:   1,
					Dimension:     wgpu.TextureDimension2D,
					Format:        gpu.HdrFormat,
					Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
				}).View
			}
			if samples > 1 {
				mt.sampled = textures.Get(device.Device, &wgpu.TextureDescriptor{
					Label:         "main_texture_sampled",
					Size:          size,
					MipLevelCount: 1,
					SampleCount:   samples,
					Dimension:     wgpu.TextureDimension2D,
					Format:        format,
					Usage:         wgpu.TextureUsageRenderAttachment,
				}).View
			}
			shared[key] = mt
		}

		// Depth stays per view; every camera starts from its own depth load op.
		depth := textures.Get(device.Device, &wgpu.TextureDescriptor{
			Label:         "view_depth_texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   samples,
			Dimension:     wgpu.TextureDimension2D,
			Format:        gpu.DepthFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})

		target := gpu.ViewTarget{Main: mt.main, Sampled: mt.sampled, Format: format, Hdr: view.Hdr}
		cmd.AddComponents(eid, target, gpu.ViewDepthTexture{Texture: depth.Texture, View: depth.View})
		return true
	})
}

func cleanupRenderEntitiesSystem(cmd *Commands, device *RenderDevice, textures *gpu.TextureCache) {
	MakeQuery1[RenderEntity](cmd).Map(func(eid EntityId, _ *RenderEntity) bool {
		cmd.RemoveEntity(eid)
		return true
	})
	textures.Update(device.Device)
}

// windowViews returns the views drawing into the primary window this frame,
// ordered by camera order and then entity id.
func windowViews(cmd *Commands) []EntityId {
	type ordered struct {
		id    EntityId
		order int
	}
	var views []ordered
	MakeQuery2[core.ExtractedCamera, gpu.ViewTarget](cmd).Map(func(eid EntityId, camera *core.ExtractedCamera, _ *gpu.ViewTarget) bool {
		views = append(views, ordered{id: eid, order: camera.Order})
		return true
	})
	slices.SortFunc(views, func(a, b ordered) int {
		if c := cmp.Compare(a.order, b.order); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	ids := make([]EntityId, len(views))
	for i, v := range views {
		ids[i] = v.id
	}
	return ids
}
