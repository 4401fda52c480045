package corepipeline

import (
	"reflect"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/sync/errgroup"

	"github.com/gekko3d/corepipeline/render/core"
	"github.com/gekko3d/corepipeline/render/gpu"
	"github.com/gekko3d/corepipeline/render/shaders"
)

// Skybox draws a cubemap image behind everything a 3D camera sees.
type Skybox struct {
	Image Handle
}

// SkyboxPipelineKey selects one variant of the skybox pipeline.
type SkyboxPipelineKey struct {
	Hdr         bool
	Samples     uint32
	DepthFormat wgpu.TextureFormat
}

// SkyboxPipelineId is the view's specialized skybox pipeline.
type SkyboxPipelineId struct {
	ID gpu.CachedRenderPipelineID
}

// SkyboxBindGroup is the view's skybox bind group for this frame.
type SkyboxBindGroup struct {
	BindGroup *gpu.BindGroup
}

type SkyboxPipeline struct {
	layout *gpu.BindGroupLayout
	// colorFormat is the target format of non-HDR views.
	colorFormat wgpu.TextureFormat
}

func NewSkyboxPipeline(device gpu.Device, colorFormat wgpu.TextureFormat) *SkyboxPipeline {
	if colorFormat == wgpu.TextureFormatUndefined {
		colorFormat = gpu.StandardFormat
	}
	layout := device.CreateBindGroupLayout(&gpu.BindGroupLayoutDescriptor{
		Label: "skybox_bind_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimensionCube,
					Multisampled:  false,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   core.ViewUniformSize,
				},
			},
		},
	})
	return &SkyboxPipeline{layout: layout, colorFormat: colorFormat}
}

func (p *SkyboxPipeline) Layout() *gpu.BindGroupLayout {
	return p.layout
}

// Specialize builds the descriptor for key. Depth is tested with GreaterEqual
// against the reversed-Z depth buffer and never written.
func (p *SkyboxPipeline) Specialize(key SkyboxPipelineKey) gpu.RenderPipelineDescriptor {
	format := p.colorFormat
	if key.Hdr {
		format = gpu.HdrFormat
	}
	ignore := wgpu.StencilFaceState{
		Compare:     wgpu.CompareFunctionAlways,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}

	return gpu.RenderPipelineDescriptor{
		Label:  "skybox_pipeline",
		Layout: []*gpu.BindGroupLayout{p.layout},
		Vertex: gpu.VertexState{
			Shader:     shaders.SkyboxHandle,
			EntryPoint: "skybox_vertex",
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              key.DepthFormat,
			DepthWriteEnabled:   false,
			DepthCompare:        wgpu.CompareFunctionGreaterEqual,
			StencilFront:        ignore,
			StencilBack:         ignore,
			StencilReadMask:     0,
			StencilWriteMask:    0,
			DepthBias:           0,
			DepthBiasSlopeScale: 0,
			DepthBiasClamp:      0,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  key.Samples,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
		Fragment: &gpu.FragmentState{
			Shader:     shaders.SkyboxHandle,
			EntryPoint: "skybox_fragment",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     nil,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
	}
}

// BindGroup assembles the skybox bind group, or reports false while the image
// or the view uniforms are not on the GPU yet.
func (p *SkyboxPipeline) BindGroup(device gpu.Device, image *gpu.GpuImage, viewUniforms *gpu.BufferBinding) (*gpu.BindGroup, bool) {
	if image == nil || viewUniforms == nil {
		return nil, false
	}
	return device.CreateBindGroup("skybox_bind_group", p.layout, gpu.SequentialEntries(
		image.TextureView,
		image.Sampler,
		viewUniforms,
	)), true
}

// SkyboxModule draws Skybox components of 3D cameras. Install it after Core3dModule.
type SkyboxModule struct{}

var typeOfPipelineCache = reflect.TypeOf((*gpu.PipelineCache)(nil)).Elem()

func (SkyboxModule) Install(app *App, cmd *Commands) {
	requireResource(app, typeOfPipelineCache, "SkyboxModule")
	device := app.resources[typeOfRenderDevice].(*RenderDevice)
	window := app.resources[typeOfPrimaryWindow].(*PrimaryWindow)

	app.addResources(
		NewSkyboxPipeline(device.Device, window.Format),
		gpu.NewSpecializedRenderPipelines[SkyboxPipelineKey](),
	)

	app.UseSystem(System(ExtractComponentSystem[Skybox]()).InStage(Extract))
	app.UseSystem(System(prepareSkyboxPipelinesSystem).InStage(Prepare))
	app.UseSystem(System(prepareSkyboxBindGroupsSystem).InStage(PrepareBindGroups))
}

// prepareSkyboxPipelinesSystem specializes the skybox pipeline for every view
// with a skybox. Views are specialized concurrently.
func prepareSkyboxPipelinesSystem(
	cmd *Commands,
	cache *gpu.PipelineCache,
	pipelines *gpu.SpecializedRenderPipelines[SkyboxPipelineKey],
	pipeline *SkyboxPipeline,
	msaa *core.Msaa,
) {
	type pending struct {
		view EntityId
		key  SkyboxPipelineKey
		id   gpu.CachedRenderPipelineID
	}
	var views []pending
	MakeQuery2[Skybox, core.ExtractedView](cmd).Map(func(eid EntityId, _ *Skybox, view *core.ExtractedView) bool {
		views = append(views, pending{
			view: eid,
			key: SkyboxPipelineKey{
				Hdr:         view.Hdr,
				Samples:     max(msaa.Samples, 1),
				DepthFormat: gpu.DepthFormat,
			},
		})
		return true
	})

	var g errgroup.Group
	for i := range views {
		g.Go(func() error {
			views[i].id = pipelines.Specialize(cache, pipeline, views[i].key)
			return nil
		})
	}
	_ = g.Wait()

	for _, v := range views {
		cmd.AddComponents(v.view, SkyboxPipelineId{ID: v.id})
	}
}

func prepareSkyboxBindGroupsSystem(
	cmd *Commands,
	device *RenderDevice,
	pipeline *SkyboxPipeline,
	viewUniforms *ViewUniforms,
	images *RenderImages,
) {
	MakeQuery2[RenderEntity, Skybox](cmd).Map(func(eid EntityId, _ *RenderEntity, skybox *Skybox) bool {
		image, _ := images.Get(skybox.Image)
		binding, _ := viewUniforms.Binding()
		if bindGroup, ok := pipeline.BindGroup(device.Device, image, binding); ok {
			cmd.AddComponents(eid, SkyboxBindGroup{BindGroup: bindGroup})
		}
		return true
	})
}
