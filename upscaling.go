package corepipeline

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/corepipeline/render/gpu"
	"github.com/gekko3d/corepipeline/render/shaders"
)

// UpscalingPipelineKey selects the upscaling variant for a window format.
type UpscalingPipelineKey struct {
	Format wgpu.TextureFormat
}

// UpscalingPipeline copies an HDR main texture into the window surface.
type UpscalingPipeline struct {
	layout  *gpu.BindGroupLayout
	sampler *gpu.Sampler
}

func NewUpscalingPipeline(device gpu.Device) *UpscalingPipeline {
	layout := device.CreateBindGroupLayout(&gpu.BindGroupLayoutDescriptor{
		Label: "upscaling_bind_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	})
	sampler := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "upscaling_sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	return &UpscalingPipeline{layout: layout, sampler: sampler}
}

func (p *UpscalingPipeline) Layout() *gpu.BindGroupLayout {
	return p.layout
}

func (p *UpscalingPipeline) Specialize(key UpscalingPipelineKey) gpu.RenderPipelineDescriptor {
	format := key.Format
	if format == wgpu.TextureFormatUndefined {
		format = gpu.StandardFormat
	}
	return gpu.RenderPipelineDescriptor{
		Label:  "upscaling_pipeline",
		Layout: []*gpu.BindGroupLayout{p.layout},
		Vertex: gpu.VertexState{
			Shader:     shaders.UpscalingHandle,
			EntryPoint: "fullscreen_vertex",
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Fragment: &gpu.FragmentState{
			Shader:     shaders.UpscalingHandle,
			EntryPoint: "upscaling_fragment",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
	}
}

func (p *UpscalingPipeline) BindGroup(device gpu.Device, source *gpu.TextureView) *gpu.BindGroup {
	return device.CreateBindGroup("upscaling_bind_group", p.layout, gpu.SequentialEntries(source, p.sampler))
}

// ViewUpscaling is attached to HDR views: the pipeline and bind group that show
// the view's main texture in the window.
type ViewUpscaling struct {
	Pipeline  gpu.CachedRenderPipelineID
	BindGroup *gpu.BindGroup
}

// prepareUpscalingSystem specializes the upscaling pipeline for the window format
// and binds each HDR main texture once per frame.
func prepareUpscalingSystem(
	cmd *Commands,
	device *RenderDevice,
	cache *gpu.PipelineCache,
	pipelines *gpu.SpecializedRenderPipelines[UpscalingPipelineKey],
	pipeline *UpscalingPipeline,
	window *PrimaryWindow,
) {
	bindGroups := make(map[gpu.ResourceID]*gpu.BindGroup)
	MakeQuery2[RenderEntity, gpu.ViewTarget](cmd).Map(func(eid EntityId, _ *RenderEntity, target *gpu.ViewTarget) bool {
		if !target.Hdr {
			return true
		}
		bindGroup, ok := bindGroups[target.Main.ID]
		if !ok {
			bindGroup = pipeline.BindGroup(device.Device, target.Main)
			bindGroups[target.Main.ID] = bindGroup
		}
		cmd.AddComponents(eid, ViewUpscaling{
			Pipeline:  pipelines.Specialize(cache, pipeline, UpscalingPipelineKey{Format: window.Format}),
			BindGroup: bindGroup,
		})
		return true
	})
}

// upscale draws the view's HDR main texture over the whole surface. It reports
// false while the pipeline is still compiling.
func upscale(rc *gpu.RenderContext, cmd *Commands, cache *gpu.PipelineCache, view EntityId, surface *gpu.TextureView, load gpu.LoadOp[wgpu.Color]) bool {
	upscaling, ok := Get[ViewUpscaling](cmd, view)
	if !ok {
		return false
	}
	pipeline, ok := cache.GetRenderPipeline(upscaling.Pipeline)
	if !ok {
		return false
	}

	pass := rc.BeginTrackedRenderPass(gpu.RenderPassDescriptor{
		Label: "upscaling_pass",
		ColorAttachments: []gpu.ColorAttachment{{
			View: surface,
			Ops:  gpu.Operations[wgpu.Color]{Load: load, Store: true},
		}},
	})
	pass.SetRenderPipeline(pipeline)
	pass.SetBindGroup(0, upscaling.BindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		cmd.Logger().Errorf("upscaling pass: %v", err)
	}
	return true
}
