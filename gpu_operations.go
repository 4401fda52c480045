package corepipeline

import (
	"errors"
	"runtime"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/corepipeline/render/gpu"
)

var errSurfaceMinimized = errors.New("window surface has zero size")

// WindowState owns the glfw window behind the primary window.
type WindowState struct {
	windowGlfw   *glfw.Window
	WindowWidth  int
	WindowHeight int
	windowTitle  string
}

type gpuState struct {
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	surfaceConfig *wgpu.SurfaceConfiguration
}

func createWindowState(windowWidth int, windowHeight int, windowTitle string) *WindowState {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		panic(err)
	}

	return &WindowState{
		windowGlfw:   win,
		WindowWidth:  windowWidth,
		WindowHeight: windowHeight,
		windowTitle:  windowTitle,
	}
}

func createGpuState(s *WindowState, vsync bool) *gpuState {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(s.windowGlfw))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		panic(err)
	}

	width, height := s.windowGlfw.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      chooseSurfaceFormat(caps.Formats),
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: choosePresentMode(caps.PresentModes, vsync),
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &gpuState{
		surface:       surface,
		adapter:       adapter,
		device:        device,
		surfaceConfig: &surfaceConfig,
	}
}

// chooseSurfaceFormat prefers an sRGB 8-bit format so the main pass and the
// skybox pipeline agree on the non-HDR color format.
func chooseSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, preferred := range []wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatRGBA8UnormSrgb} {
		if slices.Contains(formats, preferred) {
			return preferred
		}
	}
	if len(formats) == 0 {
		return gpu.StandardFormat
	}
	return formats[0]
}

func choosePresentMode(modes []wgpu.PresentMode, vsync bool) wgpu.PresentMode {
	if !vsync {
		for _, mode := range []wgpu.PresentMode{wgpu.PresentModeMailbox, wgpu.PresentModeImmediate} {
			if slices.Contains(modes, mode) {
				return mode
			}
		}
	}
	return wgpu.PresentModeFifo
}

// wgpuSurface acquires swapchain textures and reconfigures the surface when the
// framebuffer size changes.
type wgpuSurface struct {
	state  *gpuState
	device *gpu.WgpuDevice
}

func (s *wgpuSurface) Acquire(width, height uint32) (*gpu.Texture, *gpu.TextureView, error) {
	if width == 0 || height == 0 {
		return nil, nil, errSurfaceMinimized
	}
	config := s.state.surfaceConfig
	if config.Width != width || config.Height != height {
		config.Width, config.Height = width, height
		s.state.surface.Configure(s.state.adapter, s.state.device, config)
	}

	raw, err := s.state.surface.GetCurrentTexture()
	if err != nil {
		return nil, nil, err
	}
	texture := s.device.WrapSurfaceTexture(raw, config.Format, width, height)
	return texture, s.device.CreateTextureView(texture, nil), nil
}

func (s *wgpuSurface) Present(texture *gpu.Texture, view *gpu.TextureView) {
	s.state.surface.Present()
	s.device.ReleaseTextureView(view)
	s.device.DestroyTexture(texture)
}

// headlessSurface hands out one offscreen texture every frame.
type headlessSurface struct {
	texture *gpu.Texture
	view    *gpu.TextureView
	frames  int
}

func newHeadlessSurface(device gpu.Device, width, height uint32, format wgpu.TextureFormat) *headlessSurface {
	texture := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "headless_surface",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	return &headlessSurface{texture: texture, view: device.CreateTextureView(texture, nil)}
}

func (s *headlessSurface) Acquire(width, height uint32) (*gpu.Texture, *gpu.TextureView, error) {
	if width == 0 || height == 0 {
		return nil, nil, errSurfaceMinimized
	}
	return s.texture, s.view, nil
}

func (s *headlessSurface) Present(texture *gpu.Texture, view *gpu.TextureView) {
	s.frames++
}
