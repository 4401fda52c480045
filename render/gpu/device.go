package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Device creates GPU objects. Creation of layouts, bind groups, buffers, textures
// and samplers does not fail; backends panic on invalid descriptors.
type Device interface {
	CreateBuffer(desc *wgpu.BufferDescriptor) *Buffer
	DestroyBuffer(buffer *Buffer)
	CreateTexture(desc *wgpu.TextureDescriptor) *Texture
	CreateTextureView(texture *Texture, desc *wgpu.TextureViewDescriptor) *TextureView
	DestroyTexture(texture *Texture)
	CreateSampler(desc *wgpu.SamplerDescriptor) *Sampler
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) *BindGroupLayout
	CreateBindGroup(label string, layout *BindGroupLayout, entries []BindGroupEntry) *BindGroup
	CreateShaderModule(label string, source string) (*ShaderModule, error)
	CreateRenderPipeline(desc *RenderPipelineDescriptor, vertex, fragment *ShaderModule) (*RenderPipeline, error)
	CreateCommandEncoder(label string) CommandEncoder
}

type Queue interface {
	WriteBuffer(buffer *Buffer, offset uint64, data []byte)
	// WriteTexture fills one array layer of mip level 0.
	WriteTexture(texture *Texture, layer uint32, data []byte, bytesPerRow uint32)
	Submit(buffers ...*CommandBuffer)
}

type CommandEncoder interface {
	BeginRenderPass(desc *RenderPassDescriptor) RenderPassRecorder
	Finish() *CommandBuffer
}

// RenderPassRecorder is the raw pass encoder; TrackedRenderPass wraps it.
type RenderPassRecorder interface {
	SetPipeline(pipeline *RenderPipeline)
	SetBindGroup(index uint32, group *BindGroup, dynamicOffsets []uint32)
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End() error
}

type CommandBuffer struct {
	Label  string
	Passes []PassRecord
	raw    *wgpu.CommandBuffer
}

// Logger is the subset of the application logger used by this package.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Errorf(format string, args ...any) {}
