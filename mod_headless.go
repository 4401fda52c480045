package corepipeline

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/corepipeline/render/gpu"
)

// HeadlessModule provides the render device and primary window without a display.
// Device defaults to a fresh gpu.RecordingDevice.
type HeadlessModule struct {
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
	Device *gpu.RecordingDevice
}

func (m HeadlessModule) Install(app *App, cmd *Commands) {
	ensureSingleRenderBackend(app, "headless")

	width, height := m.Width, m.Height
	if width == 0 {
		width = 1280
	}
	if height == 0 {
		height = 720
	}
	format := m.Format
	if format == wgpu.TextureFormatUndefined {
		format = gpu.StandardFormat
	}
	device := m.Device
	if device == nil {
		device = gpu.NewRecordingDevice()
	}

	app.addResources(
		&RenderDevice{Device: device, Queue: device},
		&PrimaryWindow{
			Width:   width,
			Height:  height,
			Format:  format,
			surface: newHeadlessSurface(device, width, height, format),
		},
	)

	app.UseSystem(System(acquireSurfaceSystem).InStage(Extract))
	app.UseSystem(System(presentSurfaceSystem).InStage(Cleanup))
}
