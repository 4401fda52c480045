package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/corepipeline/render/shaders"
)

type VertexState struct {
	Shader     shaders.Handle
	EntryPoint string
	Buffers    []wgpu.VertexBufferLayout
}

type FragmentState struct {
	Shader     shaders.Handle
	EntryPoint string
	Targets    []wgpu.ColorTargetState
}

// RenderPipelineDescriptor names shaders by handle so it can be built before any
// shader module exists; the pipeline cache resolves the handles at compile time.
type RenderPipelineDescriptor struct {
	Label        string
	Layout       []*BindGroupLayout
	Vertex       VertexState
	Primitive    wgpu.PrimitiveState
	DepthStencil *wgpu.DepthStencilState
	Multisample  wgpu.MultisampleState
	Fragment     *FragmentState
}

// LoadOp is either "clear to Value" or "load existing contents".
type LoadOp[V any] struct {
	Clear bool
	Value V
}

func ClearTo[V any](value V) LoadOp[V] {
	return LoadOp[V]{Clear: true, Value: value}
}

func Load[V any]() LoadOp[V] {
	return LoadOp[V]{}
}

func (op LoadOp[V]) wgpuLoadOp() wgpu.LoadOp {
	if op.Clear {
		return wgpu.LoadOpClear
	}
	return wgpu.LoadOpLoad
}

type Operations[V any] struct {
	Load  LoadOp[V]
	Store bool
}

func wgpuStoreOp(store bool) wgpu.StoreOp {
	if store {
		return wgpu.StoreOpStore
	}
	return wgpu.StoreOpDiscard
}

type ColorAttachment struct {
	View          *TextureView
	ResolveTarget *TextureView
	Ops           Operations[wgpu.Color]
}

type DepthStencilAttachment struct {
	View     *TextureView
	DepthOps *Operations[float32]
}

type RenderPassDescriptor struct {
	Label                  string
	ColorAttachments       []ColorAttachment
	DepthStencilAttachment *DepthStencilAttachment
}
