package corepipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/corepipeline/render/gpu"
)

func TestChooseSurfaceFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []wgpu.TextureFormat
		want    wgpu.TextureFormat
	}{
		{"prefers bgra srgb", []wgpu.TextureFormat{wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatBGRA8UnormSrgb}, wgpu.TextureFormatBGRA8UnormSrgb},
		{"falls back to rgba srgb", []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb}, wgpu.TextureFormatRGBA8UnormSrgb},
		{"first reported", []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA16Float}, wgpu.TextureFormatBGRA8Unorm},
		{"nothing reported", nil, gpu.StandardFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chooseSurfaceFormat(tt.formats))
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []wgpu.PresentMode{wgpu.PresentModeFifo, wgpu.PresentModeImmediate, wgpu.PresentModeMailbox}

	assert.Equal(t, wgpu.PresentModeFifo, choosePresentMode(all, true))
	assert.Equal(t, wgpu.PresentModeMailbox, choosePresentMode(all, false))
	assert.Equal(t, wgpu.PresentModeImmediate, choosePresentMode([]wgpu.PresentMode{wgpu.PresentModeFifo, wgpu.PresentModeImmediate}, false))
	assert.Equal(t, wgpu.PresentModeFifo, choosePresentMode([]wgpu.PresentMode{wgpu.PresentModeFifo}, false))
}

func TestHeadlessSurface(t *testing.T) {
	device := gpu.NewRecordingDevice()
	surface := newHeadlessSurface(device, 8, 4, wgpu.TextureFormatBGRA8UnormSrgb)

	texture, view, err := surface.Acquire(8, 4)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, view.Format)
	assert.Equal(t, texture.ID, view.Texture)
	assert.Equal(t, uint32(8), texture.Size.Width)

	surface.Present(texture, view)
	again, _, err := surface.Acquire(8, 4)
	require.NoError(t, err)
	assert.Same(t, texture, again, "the headless target is reused every frame")
	assert.Equal(t, 1, surface.frames)

	_, _, err = surface.Acquire(0, 4)
	assert.ErrorIs(t, err, errSurfaceMinimized)
}

func TestHeadlessModule_Defaults(t *testing.T) {
	app := NewAppBuilder().UseModule(HeadlessModule{}).Build()
	cmd := app.Commands()

	window, ok := Resource[PrimaryWindow](cmd)
	require.True(t, ok)
	assert.Equal(t, uint32(1280), window.Width)
	assert.Equal(t, uint32(720), window.Height)
	assert.Equal(t, gpu.StandardFormat, window.Format)
	_, ok = window.SurfaceView()
	assert.False(t, ok, "nothing is acquired before the first frame")

	device, ok := Resource[RenderDevice](cmd)
	require.True(t, ok)
	assert.IsType(t, &gpu.RecordingDevice{}, device.Device)
}

func TestHeadlessModule_AcquiresAndPresentsEachFrame(t *testing.T) {
	app, _ := newHeadlessApp(t)
	window, _ := Resource[PrimaryWindow](app.Commands())
	surface := window.surface.(*headlessSurface)

	app.Update()
	app.Update()

	assert.Equal(t, 2, surface.frames)
	_, ok := window.SurfaceView()
	assert.False(t, ok, "the surface view does not outlive the frame")
}

func TestHeadlessModule_MinimizedWindowSkipsPresent(t *testing.T) {
	app, _ := newHeadlessApp(t)
	window, _ := Resource[PrimaryWindow](app.Commands())
	surface := window.surface.(*headlessSurface)
	window.Height = 0

	app.Update()

	assert.Zero(t, surface.frames)
}

func TestEnsureSingleRenderBackend(t *testing.T) {
	app := NewAppBuilder().UseModule(HeadlessModule{}).Build()

	assert.NotPanics(t, func() { ensureSingleRenderBackend(app, "headless") })
	assert.Panics(t, func() { ensureSingleRenderBackend(app, "window") })
}
