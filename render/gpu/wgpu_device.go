package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// WgpuDevice is the Device and Queue backed by a real wgpu device.
type WgpuDevice struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	logger Logger
}

func NewWgpuDevice(device *wgpu.Device, logger Logger) *WgpuDevice {
	if logger == nil {
		logger = nopLogger{}
	}
	return &WgpuDevice{device: device, queue: device.GetQueue(), logger: logger}
}

func (d *WgpuDevice) Raw() *wgpu.Device {
	return d.device
}

func (d *WgpuDevice) CreateBuffer(desc *wgpu.BufferDescriptor) *Buffer {
	raw, err := d.device.CreateBuffer(desc)
	if err != nil {
		panic(err)
	}
	return &Buffer{ID: nextResourceID(), Label: desc.Label, Size: desc.Size, Usage: desc.Usage, raw: raw}
}

func (d *WgpuDevice) DestroyBuffer(buffer *Buffer) {
	if buffer.raw == nil {
		return
	}
	buffer.raw.Release()
	buffer.raw = nil
}

func (d *WgpuDevice) CreateTexture(desc *wgpu.TextureDescriptor) *Texture {
	raw, err := d.device.CreateTexture(desc)
	if err != nil {
		panic(err)
	}
	samples := desc.SampleCount
	if samples == 0 {
		samples = 1
	}
	return &Texture{
		ID:      nextResourceID(),
		Label:   desc.Label,
		Size:    desc.Size,
		Format:  desc.Format,
		Samples: samples,
		Usage:   desc.Usage,
		raw:     raw,
	}
}

// WrapSurfaceTexture adopts the swapchain texture acquired for this frame.
func (d *WgpuDevice) WrapSurfaceTexture(raw *wgpu.Texture, format wgpu.TextureFormat, width, height uint32) *Texture {
	return &Texture{
		ID:      nextResourceID(),
		Label:   "surface_texture",
		Size:    wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		Format:  format,
		Samples: 1,
		Usage:   wgpu.TextureUsageRenderAttachment,
		raw:     raw,
	}
}

func (d *WgpuDevice) CreateTextureView(texture *Texture, desc *wgpu.TextureViewDescriptor) *TextureView {
	raw, err := texture.raw.CreateView(desc)
	if err != nil {
		panic(err)
	}
	v := &TextureView{ID: nextResourceID(), Texture: texture.ID, Label: texture.Label, Format: texture.Format, Dimension: wgpu.TextureViewDimension2D, raw: raw}
	if desc != nil {
		if desc.Label != "" {
			v.Label = desc.Label
		}
		if desc.Format != wgpu.TextureFormatUndefined {
			v.Format = desc.Format
		}
		if desc.Dimension != wgpu.TextureViewDimensionUndefined {
			v.Dimension = desc.Dimension
		}
	}
	return v
}

func (d *WgpuDevice) DestroyTexture(texture *Texture) {
	if texture.raw == nil {
		return
	}
	texture.raw.Release()
	texture.raw = nil
}

// ReleaseTextureView frees a view created for a single frame, such as the surface view.
func (d *WgpuDevice) ReleaseTextureView(view *TextureView) {
	if view.raw == nil {
		return
	}
	view.raw.Release()
	view.raw = nil
}

func (d *WgpuDevice) CreateSampler(desc *wgpu.SamplerDescriptor) *Sampler {
	raw, err := d.device.CreateSampler(desc)
	if err != nil {
		panic(err)
	}
	return &Sampler{ID: nextResourceID(), Label: desc.Label, raw: raw}
}

func (d *WgpuDevice) CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) *BindGroupLayout {
	raw, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: desc.Entries,
	})
	if err != nil {
		panic(err)
	}
	return &BindGroupLayout{ID: nextResourceID(), Label: desc.Label, Entries: desc.Entries, raw: raw}
}

func (d *WgpuDevice) CreateBindGroup(label string, layout *BindGroupLayout, entries []BindGroupEntry) *BindGroup {
	rawEntries := make([]wgpu.BindGroupEntry, 0, len(entries))
	for _, e := range entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.TextureView != nil:
			entry.TextureView = e.TextureView.raw
		case e.Sampler != nil:
			entry.Sampler = e.Sampler.raw
		case e.Buffer != nil:
			entry.Buffer = e.Buffer.Buffer.raw
			entry.Offset = e.Buffer.Offset
			entry.Size = e.Buffer.Size
			if entry.Size == 0 {
				entry.Size = wgpu.WholeSize
			}
		}
		rawEntries = append(rawEntries, entry)
	}

	raw, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout.raw,
		Entries: rawEntries,
	})
	if err != nil {
		panic(err)
	}
	return &BindGroup{ID: nextResourceID(), Label: label, Layout: layout.ID, Entries: entries, raw: raw}
}

func (d *WgpuDevice) CreateShaderModule(label string, source string) (*ShaderModule, error) {
	raw, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return nil, err
	}
	return &ShaderModule{ID: nextResourceID(), Label: label, raw: raw}, nil
}

func (d *WgpuDevice) CreateRenderPipeline(desc *RenderPipelineDescriptor, vertex, fragment *ShaderModule) (*RenderPipeline, error) {
	layouts := make([]*wgpu.BindGroupLayout, 0, len(desc.Layout))
	for _, l := range desc.Layout {
		layouts = append(layouts, l.raw)
	}
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + "_layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline layout: %w", err)
	}
	defer layout.Release()

	rawDesc := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vertex.raw,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    desc.Vertex.Buffers,
		},
		Primitive:    desc.Primitive,
		DepthStencil: desc.DepthStencil,
		Multisample:  desc.Multisample,
	}
	if desc.Fragment != nil {
		rawDesc.Fragment = &wgpu.FragmentState{
			Module:     fragment.raw,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    desc.Fragment.Targets,
		}
	}

	raw, err := d.device.CreateRenderPipeline(rawDesc)
	if err != nil {
		return nil, err
	}
	return &RenderPipeline{ID: nextResourceID(), Label: desc.Label, raw: raw}, nil
}

func (d *WgpuDevice) CreateCommandEncoder(label string) CommandEncoder {
	raw, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		panic(err)
	}
	return &wgpuEncoder{label: label, raw: raw}
}

func (d *WgpuDevice) WriteBuffer(buffer *Buffer, offset uint64, data []byte) {
	if err := d.queue.WriteBuffer(buffer.raw, offset, data); err != nil {
		d.logger.Errorf("write buffer %q: %v", buffer.Label, err)
	}
}

func (d *WgpuDevice) WriteTexture(texture *Texture, layer uint32, data []byte, bytesPerRow uint32) {
	extent := wgpu.Extent3D{Width: texture.Size.Width, Height: texture.Size.Height, DepthOrArrayLayers: 1}
	err := d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  texture.raw,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: texture.Size.Height,
		},
		&extent,
	)
	if err != nil {
		d.logger.Errorf("write texture %q layer %d: %v", texture.Label, layer, err)
	}
}

func (d *WgpuDevice) Submit(buffers ...*CommandBuffer) {
	raws := make([]*wgpu.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if b.raw != nil {
			raws = append(raws, b.raw)
		}
	}
	d.queue.Submit(raws...)
	for _, r := range raws {
		r.Release()
	}
}

type wgpuEncoder struct {
	label  string
	raw    *wgpu.CommandEncoder
	passes []PassRecord
}

func (e *wgpuEncoder) BeginRenderPass(desc *RenderPassDescriptor) RenderPassRecorder {
	colors := make([]wgpu.RenderPassColorAttachment, 0, len(desc.ColorAttachments))
	for _, c := range desc.ColorAttachments {
		att := wgpu.RenderPassColorAttachment{
			View:       c.View.raw,
			LoadOp:     c.Ops.Load.wgpuLoadOp(),
			StoreOp:    wgpuStoreOp(c.Ops.Store),
			ClearValue: c.Ops.Load.Value,
		}
		if c.ResolveTarget != nil {
			att.ResolveTarget = c.ResolveTarget.raw
		}
		colors = append(colors, att)
	}

	rawDesc := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: colors,
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		att := &wgpu.RenderPassDepthStencilAttachment{View: ds.View.raw}
		if ds.DepthOps != nil {
			att.DepthLoadOp = ds.DepthOps.Load.wgpuLoadOp()
			att.DepthStoreOp = wgpuStoreOp(ds.DepthOps.Store)
			att.DepthClearValue = ds.DepthOps.Load.Value
		} else {
			att.DepthReadOnly = true
		}
		rawDesc.DepthStencilAttachment = att
	}

	e.passes = append(e.passes, PassRecord{
		Label:                  desc.Label,
		ColorAttachments:       desc.ColorAttachments,
		DepthStencilAttachment: desc.DepthStencilAttachment,
	})
	return &wgpuPass{raw: e.raw.BeginRenderPass(rawDesc)}
}

func (e *wgpuEncoder) Finish() *CommandBuffer {
	raw, err := e.raw.Finish(nil)
	if err != nil {
		panic(err)
	}
	e.raw.Release()
	return &CommandBuffer{Label: e.label, Passes: e.passes, raw: raw}
}

type wgpuPass struct {
	raw *wgpu.RenderPassEncoder
}

func (p *wgpuPass) SetPipeline(pipeline *RenderPipeline) {
	p.raw.SetPipeline(pipeline.raw)
}

func (p *wgpuPass) SetBindGroup(index uint32, group *BindGroup, dynamicOffsets []uint32) {
	p.raw.SetBindGroup(index, group.raw, dynamicOffsets)
}

func (p *wgpuPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.raw.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (p *wgpuPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.raw.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *wgpuPass) End() error {
	err := p.raw.End()
	p.raw.Release()
	return err
}
