package gpu

import "github.com/cogentcore/webgpu/wgpu"

const (
	// DepthFormat is the format of every view depth texture.
	DepthFormat = wgpu.TextureFormatDepth32Float
	// HdrFormat is the main texture format of HDR views.
	HdrFormat = wgpu.TextureFormatRGBA16Float
	// StandardFormat is the 8-bit color format used when no window surface dictates one.
	StandardFormat = wgpu.TextureFormatRGBA8UnormSrgb
)

// ViewTarget is where a view's color output goes. With MSAA, Sampled is the
// multisampled texture drawn into and Main receives the resolve.
type ViewTarget struct {
	Main    *TextureView
	Sampled *TextureView
	Format  wgpu.TextureFormat
	Hdr     bool
}

func (t *ViewTarget) ColorAttachment(ops Operations[wgpu.Color]) ColorAttachment {
	if t.Sampled != nil {
		return ColorAttachment{View: t.Sampled, ResolveTarget: t.Main, Ops: ops}
	}
	return ColorAttachment{View: t.Main, Ops: ops}
}

type ViewDepthTexture struct {
	Texture *Texture
	View    *TextureView
}

func (d *ViewDepthTexture) Attachment(ops Operations[float32]) *DepthStencilAttachment {
	return &DepthStencilAttachment{View: d.View, DepthOps: &ops}
}
