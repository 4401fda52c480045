package gpu

import (
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// ResourceID identifies a GPU object independently of the backend handle.
type ResourceID uint64

var resourceCounter atomic.Uint64

func nextResourceID() ResourceID {
	return ResourceID(resourceCounter.Add(1))
}

// The wrappers below hold the backend handle in raw; raw is nil on the recording device.

type Buffer struct {
	ID    ResourceID
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
	raw   *wgpu.Buffer
}

type Texture struct {
	ID      ResourceID
	Label   string
	Size    wgpu.Extent3D
	Format  wgpu.TextureFormat
	Samples uint32
	Usage   wgpu.TextureUsage
	raw     *wgpu.Texture
}

type TextureView struct {
	ID        ResourceID
	Texture   ResourceID
	Label     string
	Format    wgpu.TextureFormat
	Dimension wgpu.TextureViewDimension
	raw       *wgpu.TextureView
}

type Sampler struct {
	ID    ResourceID
	Label string
	raw   *wgpu.Sampler
}

type ShaderModule struct {
	ID    ResourceID
	Label string
	raw   *wgpu.ShaderModule
}

type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []wgpu.BindGroupLayoutEntry
}

type BindGroupLayout struct {
	ID      ResourceID
	Label   string
	Entries []wgpu.BindGroupLayoutEntry
	raw     *wgpu.BindGroupLayout
}

// BufferBinding is a range of a buffer bound to a shader slot.
type BufferBinding struct {
	Buffer *Buffer
	Offset uint64
	Size   uint64
}

// BindGroupEntry binds exactly one of TextureView, Sampler or Buffer.
type BindGroupEntry struct {
	Binding     uint32
	TextureView *TextureView
	Sampler     *Sampler
	Buffer      *BufferBinding
}

// SequentialEntries numbers resources from binding 0 in argument order.
// Accepted resources are *TextureView, *Sampler and *BufferBinding.
func SequentialEntries(resources ...any) []BindGroupEntry {
	entries := make([]BindGroupEntry, 0, len(resources))
	for i, r := range resources {
		entry := BindGroupEntry{Binding: uint32(i)}
		switch v := r.(type) {
		case *TextureView:
			entry.TextureView = v
		case *Sampler:
			entry.Sampler = v
		case *BufferBinding:
			entry.Buffer = v
		default:
			panic("gpu: unsupported bind group resource")
		}
		entries = append(entries, entry)
	}
	return entries
}

type BindGroup struct {
	ID      ResourceID
	Label   string
	Layout  ResourceID
	Entries []BindGroupEntry
	raw     *wgpu.BindGroup
}

type RenderPipeline struct {
	ID    ResourceID
	Label string
	raw   *wgpu.RenderPipeline
}

// GpuImage is an uploaded image ready to be sampled.
type GpuImage struct {
	Texture     *Texture
	TextureView *TextureView
	Sampler     *Sampler
	Size        [2]uint32
}
