package gpu

import (
	"slices"

	"github.com/gekko3d/corepipeline/render/core"
)

// RenderContext owns the command encoder for one frame.
type RenderContext struct {
	device  Device
	encoder CommandEncoder
}

func NewRenderContext(device Device, label string) *RenderContext {
	return &RenderContext{device: device, encoder: device.CreateCommandEncoder(label)}
}

func (rc *RenderContext) Device() Device {
	return rc.device
}

func (rc *RenderContext) BeginTrackedRenderPass(desc RenderPassDescriptor) *TrackedRenderPass {
	return &TrackedRenderPass{
		pass:       rc.encoder.BeginRenderPass(&desc),
		bindGroups: make(map[uint32]boundGroup),
	}
}

// BeginCameraPass begins a pass with one color attachment, an optional depth
// attachment and, when viewport is non-nil, the camera viewport applied.
func (rc *RenderContext) BeginCameraPass(label string, color ColorAttachment, depth *DepthStencilAttachment, viewport *core.Viewport) *TrackedRenderPass {
	pass := rc.BeginTrackedRenderPass(RenderPassDescriptor{
		Label:                  label,
		ColorAttachments:       []ColorAttachment{color},
		DepthStencilAttachment: depth,
	})
	if viewport != nil {
		pass.SetCameraViewport(viewport)
	}
	return pass
}

// Finish closes the encoder. The context must not be used afterwards.
func (rc *RenderContext) Finish() *CommandBuffer {
	return rc.encoder.Finish()
}

type boundGroup struct {
	id      ResourceID
	offsets []uint32
}

// TrackedRenderPass drops SetPipeline and SetBindGroup calls that would not change state.
type TrackedRenderPass struct {
	pass       RenderPassRecorder
	pipeline   ResourceID
	bindGroups map[uint32]boundGroup
}

func (p *TrackedRenderPass) SetRenderPipeline(pipeline *RenderPipeline) {
	if p.pipeline == pipeline.ID {
		return
	}
	p.pipeline = pipeline.ID
	p.pass.SetPipeline(pipeline)
}

func (p *TrackedRenderPass) SetBindGroup(index uint32, group *BindGroup, dynamicOffsets []uint32) {
	if bound, ok := p.bindGroups[index]; ok && bound.id == group.ID && slices.Equal(bound.offsets, dynamicOffsets) {
		return
	}
	p.bindGroups[index] = boundGroup{id: group.ID, offsets: slices.Clone(dynamicOffsets)}
	p.pass.SetBindGroup(index, group, dynamicOffsets)
}

func (p *TrackedRenderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.pass.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (p *TrackedRenderPass) SetCameraViewport(viewport *core.Viewport) {
	p.SetViewport(
		float32(viewport.PhysicalPosition[0]),
		float32(viewport.PhysicalPosition[1]),
		float32(viewport.PhysicalSize[0]),
		float32(viewport.PhysicalSize[1]),
		viewport.Depth[0],
		viewport.Depth[1],
	)
}

func (p *TrackedRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *TrackedRenderPass) End() error {
	return p.pass.End()
}
