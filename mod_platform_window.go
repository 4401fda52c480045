package corepipeline

import (
	"errors"
	"reflect"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/corepipeline/render/gpu"
)

// windowSurface is where the primary window's frames come from.
type windowSurface interface {
	Acquire(width, height uint32) (*gpu.Texture, *gpu.TextureView, error)
	Present(texture *gpu.Texture, view *gpu.TextureView)
}

// PrimaryWindow is the render target of cameras targeting the window. Width and
// Height are the framebuffer size in physical pixels.
type PrimaryWindow struct {
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat

	surface windowSurface
	texture *gpu.Texture
	view    *gpu.TextureView
}

// SurfaceView is the texture view acquired for the current frame, if any.
func (w *PrimaryWindow) SurfaceView() (*gpu.TextureView, bool) {
	return w.view, w.view != nil
}

// WindowModule opens a glfw window and creates the wgpu device rendering into it.
type WindowModule struct {
	Width  int
	Height int
	Title  string
	VSync  bool
}

// NewWindowModule fills in defaults for zero values.
func NewWindowModule(width, height int, title string) *WindowModule {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "Gekko"
	}
	return &WindowModule{
		Width:  width,
		Height: height,
		Title:  title,
		VSync:  true,
	}
}

var typeOfWindowState = reflect.TypeOf(WindowState{})

func (m WindowModule) Install(app *App, cmd *Commands) {
	ensureSingleRenderBackend(app, "window")
	if app.hasResource(typeOfWindowState) {
		return
	}

	ws := createWindowState(m.Width, m.Height, m.Title)
	state := createGpuState(ws, m.VSync)
	device := gpu.NewWgpuDevice(state.device, app.Logger())

	app.addResources(
		ws,
		&RenderDevice{Device: device, Queue: device},
		&PrimaryWindow{
			Width:   state.surfaceConfig.Width,
			Height:  state.surfaceConfig.Height,
			Format:  state.surfaceConfig.Format,
			surface: &wgpuSurface{state: state, device: device},
		},
	)

	app.UseSystem(System(windowEventsSystem).InStage(Prelude))
	app.UseSystem(System(acquireSurfaceSystem).InStage(Extract))
	app.UseSystem(System(presentSurfaceSystem).InStage(Cleanup))

	app.Logger().Infof("window %q %dx%d, surface format %v", m.Title, state.surfaceConfig.Width, state.surfaceConfig.Height, state.surfaceConfig.Format)
}

// windowEventsSystem polls glfw, tracks the framebuffer size and exits on close.
func windowEventsSystem(cmd *Commands, ws *WindowState, window *PrimaryWindow) {
	glfw.PollEvents()
	if ws.windowGlfw.ShouldClose() {
		cmd.Exit()
		return
	}
	width, height := ws.windowGlfw.GetFramebufferSize()
	ws.WindowWidth, ws.WindowHeight = width, height
	window.Width, window.Height = uint32(width), uint32(height)
}

func acquireSurfaceSystem(cmd *Commands, window *PrimaryWindow) {
	if window.surface == nil || window.view != nil {
		return
	}
	texture, view, err := window.surface.Acquire(window.Width, window.Height)
	if err != nil {
		if !errors.Is(err, errSurfaceMinimized) {
			cmd.Logger().Warnf("acquire surface texture: %v", err)
		}
		return
	}
	window.texture, window.view = texture, view
}

func presentSurfaceSystem(window *PrimaryWindow) {
	if window.view == nil {
		return
	}
	window.surface.Present(window.texture, window.view)
	window.texture, window.view = nil, nil
}
