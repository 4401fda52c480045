package gpu

import (
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

type CommandKind int

const (
	CmdSetPipeline CommandKind = iota
	CmdSetBindGroup
	CmdSetViewport
	CmdDraw
)

// RecordedCommand is one call made on a recorded render pass.
type RecordedCommand struct {
	Kind CommandKind

	Pipeline ResourceID

	Index     uint32
	BindGroup ResourceID
	Offsets   []uint32

	// x, y, width, height, minDepth, maxDepth
	Viewport [6]float32

	// vertexCount, instanceCount, firstVertex, firstInstance
	Draw [4]uint32
}

type PassRecord struct {
	Label                  string
	ColorAttachments       []ColorAttachment
	DepthStencilAttachment *DepthStencilAttachment
	Commands               []RecordedCommand
	Ended                  bool
}

// Count returns how many commands of kind were recorded.
func (p PassRecord) Count(kind CommandKind) int {
	n := 0
	for _, c := range p.Commands {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

type TextureWrite struct {
	Texture     ResourceID
	Layer       uint32
	Bytes       int
	BytesPerRow uint32
}

// RecordingDevice implements Device and Queue in memory. It creates no GPU objects
// and keeps everything submitted so tests and the headless surface can inspect it.
type RecordingDevice struct {
	// ShaderError, when set, decides whether a shader module fails to compile.
	ShaderError func(label, source string) error
	// PipelineError, when set, decides whether a pipeline fails to compile.
	PipelineError func(desc *RenderPipelineDescriptor) error
	// PipelineGate, when set, blocks every pipeline compilation until it is closed.
	PipelineGate chan struct{}

	ShaderModulesCreated atomic.Int64
	PipelinesCreated     atomic.Int64

	mu               sync.Mutex
	submitted        []*CommandBuffer
	buffers          map[ResourceID][]byte
	textureWrites    []TextureWrite
	liveTextures     map[ResourceID]*Texture
	bindGroups       int
	bindGroupLayouts int
}

func NewRecordingDevice() *RecordingDevice {
	return &RecordingDevice{
		buffers:      make(map[ResourceID][]byte),
		liveTextures: make(map[ResourceID]*Texture),
	}
}

func (d *RecordingDevice) CreateBuffer(desc *wgpu.BufferDescriptor) *Buffer {
	b := &Buffer{ID: nextResourceID(), Label: desc.Label, Size: desc.Size, Usage: desc.Usage}
	d.mu.Lock()
	d.buffers[b.ID] = make([]byte, desc.Size)
	d.mu.Unlock()
	return b
}

func (d *RecordingDevice) DestroyBuffer(buffer *Buffer) {
	d.mu.Lock()
	delete(d.buffers, buffer.ID)
	d.mu.Unlock()
}

func (d *RecordingDevice) CreateTexture(desc *wgpu.TextureDescriptor) *Texture {
	samples := desc.SampleCount
	if samples == 0 {
		samples = 1
	}
	t := &Texture{
		ID:      nextResourceID(),
		Label:   desc.Label,
		Size:    desc.Size,
		Format:  desc.Format,
		Samples: samples,
		Usage:   desc.Usage,
	}
	d.mu.Lock()
	d.liveTextures[t.ID] = t
	d.mu.Unlock()
	return t
}

func (d *RecordingDevice) CreateTextureView(texture *Texture, desc *wgpu.TextureViewDescriptor) *TextureView {
	v := &TextureView{ID: nextResourceID(), Texture: texture.ID, Label: texture.Label, Format: texture.Format, Dimension: wgpu.TextureViewDimension2D}
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

func (d *RecordingDevice) DestroyTexture(texture *Texture) {
	d.mu.Lock()
	delete(d.liveTextures, texture.ID)
	d.mu.Unlock()
}

func (d *RecordingDevice) CreateSampler(desc *wgpu.SamplerDescriptor) *Sampler {
	return &Sampler{ID: nextResourceID(), Label: desc.Label}
}

func (d *RecordingDevice) CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) *BindGroupLayout {
	d.mu.Lock()
	d.bindGroupLayouts++
	d.mu.Unlock()
	return &BindGroupLayout{ID: nextResourceID(), Label: desc.Label, Entries: desc.Entries}
}

func (d *RecordingDevice) CreateBindGroup(label string, layout *BindGroupLayout, entries []BindGroupEntry) *BindGroup {
	d.mu.Lock()
	d.bindGroups++
	d.mu.Unlock()
	return &BindGroup{ID: nextResourceID(), Label: label, Layout: layout.ID, Entries: entries}
}

func (d *RecordingDevice) CreateShaderModule(label string, source string) (*ShaderModule, error) {
	if d.ShaderError != nil {
		if err := d.ShaderError(label, source); err != nil {
			return nil, err
		}
	}
	d.ShaderModulesCreated.Add(1)
	return &ShaderModule{ID: nextResourceID(), Label: label}, nil
}

func (d *RecordingDevice) CreateRenderPipeline(desc *RenderPipelineDescriptor, vertex, fragment *ShaderModule) (*RenderPipeline, error) {
	if d.PipelineGate != nil {
		<-d.PipelineGate
	}
	if d.PipelineError != nil {
		if err := d.PipelineError(desc); err != nil {
			return nil, err
		}
	}
	d.PipelinesCreated.Add(1)
	return &RenderPipeline{ID: nextResourceID(), Label: desc.Label}, nil
}

func (d *RecordingDevice) CreateCommandEncoder(label string) CommandEncoder {
	return &recordingEncoder{label: label}
}

func (d *RecordingDevice) WriteBuffer(buffer *Buffer, offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	contents := d.buffers[buffer.ID]
	if end := offset + uint64(len(data)); end > uint64(len(contents)) {
		grown := make([]byte, end)
		copy(grown, contents)
		contents = grown
	}
	copy(contents[offset:], data)
	d.buffers[buffer.ID] = contents
}

func (d *RecordingDevice) WriteTexture(texture *Texture, layer uint32, data []byte, bytesPerRow uint32) {
	d.mu.Lock()
	d.textureWrites = append(d.textureWrites, TextureWrite{Texture: texture.ID, Layer: layer, Bytes: len(data), BytesPerRow: bytesPerRow})
	d.mu.Unlock()
}

func (d *RecordingDevice) Submit(buffers ...*CommandBuffer) {
	d.mu.Lock()
	d.submitted = append(d.submitted, buffers...)
	d.mu.Unlock()
}

// Submitted returns every command buffer submitted so far, in order.
func (d *RecordingDevice) Submitted() []*CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*CommandBuffer(nil), d.submitted...)
}

// Passes flattens the passes of all submitted command buffers.
func (d *RecordingDevice) Passes() []PassRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	var passes []PassRecord
	for _, cb := range d.submitted {
		passes = append(passes, cb.Passes...)
	}
	return passes
}

// ResetSubmitted forgets submitted command buffers.
func (d *RecordingDevice) ResetSubmitted() {
	d.mu.Lock()
	d.submitted = nil
	d.mu.Unlock()
}

func (d *RecordingDevice) BufferContents(buffer *Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.buffers[buffer.ID]...)
}

func (d *RecordingDevice) TextureWrites() []TextureWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]TextureWrite(nil), d.textureWrites...)
}

func (d *RecordingDevice) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

func (d *RecordingDevice) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.liveTextures)
}

func (d *RecordingDevice) BindGroupsCreated() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bindGroups
}

func (d *RecordingDevice) BindGroupLayoutsCreated() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bindGroupLayouts
}

type recordingEncoder struct {
	label  string
	passes []PassRecord
}

func (e *recordingEncoder) BeginRenderPass(desc *RenderPassDescriptor) RenderPassRecorder {
	e.passes = append(e.passes, PassRecord{
		Label:                  desc.Label,
		ColorAttachments:       append([]ColorAttachment(nil), desc.ColorAttachments...),
		DepthStencilAttachment: desc.DepthStencilAttachment,
	})
	return &recordingPass{encoder: e, index: len(e.passes) - 1}
}

func (e *recordingEncoder) Finish() *CommandBuffer {
	return &CommandBuffer{Label: e.label, Passes: e.passes}
}

type recordingPass struct {
	encoder *recordingEncoder
	index   int
}

func (p *recordingPass) record(c RecordedCommand) {
	rec := &p.encoder.passes[p.index]
	rec.Commands = append(rec.Commands, c)
}

func (p *recordingPass) SetPipeline(pipeline *RenderPipeline) {
	p.record(RecordedCommand{Kind: CmdSetPipeline, Pipeline: pipeline.ID})
}

func (p *recordingPass) SetBindGroup(index uint32, group *BindGroup, dynamicOffsets []uint32) {
	p.record(RecordedCommand{
		Kind:      CmdSetBindGroup,
		Index:     index,
		BindGroup: group.ID,
		Offsets:   append([]uint32(nil), dynamicOffsets...),
	})
}

func (p *recordingPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.record(RecordedCommand{Kind: CmdSetViewport, Viewport: [6]float32{x, y, width, height, minDepth, maxDepth}})
}

func (p *recordingPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.record(RecordedCommand{Kind: CmdDraw, Draw: [4]uint32{vertexCount, instanceCount, firstVertex, firstInstance}})
}

func (p *recordingPass) End() error {
	p.encoder.passes[p.index].Ended = true
	return nil
}
