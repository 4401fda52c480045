package corepipeline

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/corepipeline/render/core"
	"github.com/gekko3d/corepipeline/render/gpu"
)

// captureLogger is a Logger resource that keeps warnings and errors.
type captureLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *captureLogger) DebugEnabled() bool                { return false }
func (l *captureLogger) SetDebug(enabled bool)             {}
func (l *captureLogger) Debugf(format string, args ...any) {}
func (l *captureLogger) Infof(format string, args ...any)  {}

func (l *captureLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Errorf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

type captureLoggerModule struct {
	logger *captureLogger
}

func (m captureLoggerModule) Install(app *App, cmd *Commands) {
	app.addResources(m.logger)
}

const (
	testWindowWidth  = 64
	testWindowHeight = 32
)

// newHeadlessApp builds an app on a RecordingDevice with modules installed after the headless backend.
func newHeadlessApp(t *testing.T, modules ...Module) (*App, *gpu.RecordingDevice) {
	t.Helper()
	device := gpu.NewRecordingDevice()
	app := NewAppBuilder().
		UseModule(HeadlessModule{Width: testWindowWidth, Height: testWindowHeight, Device: device}).
		UseModule(modules...).
		Build()
	return app, device
}

func spawnCamera(app *App, camera core.Camera, camera3d core.Camera3d, extra ...any) EntityId {
	components := append([]any{camera, camera3d, core.DefaultProjection(), core.NewTransform()}, extra...)
	id := app.Commands().AddEntity(components...)
	app.FlushCommands()
	return id
}

func TestRenderModule_RequiresBackend(t *testing.T) {
	assert.Panics(t, func() {
		NewAppBuilder().UseModule(RenderModule{}).Build()
	})
}

func TestRenderModule_InstallsResources(t *testing.T) {
	app, _ := newHeadlessApp(t, RenderModule{})
	cmd := app.Commands()

	settings, ok := Resource[RenderSettings](cmd)
	require.True(t, ok)
	assert.Equal(t, 4, settings.MaxConcurrentCompiles)

	_, ok = Resource[gpu.PipelineCache](cmd)
	assert.True(t, ok, "PipelineCache")
	_, ok = Resource[gpu.TextureCache](cmd)
	assert.True(t, ok, "TextureCache")
	_, ok = Resource[ViewUniforms](cmd)
	assert.True(t, ok, "ViewUniforms")
	_, ok = Resource[RenderGraph](cmd)
	assert.True(t, ok, "RenderGraph")
	_, ok = Resource[Images](cmd)
	assert.True(t, ok, "Images")
	_, ok = Resource[RenderImages](cmd)
	assert.True(t, ok, "RenderImages")
	_, ok = Resource[ExtractedViews](cmd)
	assert.True(t, ok, "ExtractedViews")

	clearColor, ok := Resource[core.ClearColor](cmd)
	require.True(t, ok)
	assert.Equal(t, core.DefaultClearColor(), *clearColor)
	msaa, ok := Resource[core.Msaa](cmd)
	require.True(t, ok)
	assert.Equal(t, uint32(4), msaa.Samples)
}

type presetResources struct {
	clear core.ClearColor
	msaa  core.Msaa
}

func (m presetResources) Install(app *App, cmd *Commands) {
	cmd.AddResources(&m.clear, &m.msaa)
}

func TestRenderModule_KeepsUserResources(t *testing.T) {
	clear := core.ClearColor{Color: [4]float32{1, 0, 0, 1}}
	app, _ := newHeadlessApp(t, presetResources{clear: clear, msaa: core.Msaa{Samples: 1}}, RenderModule{MaxConcurrentCompiles: 2})
	cmd := app.Commands()

	got, _ := Resource[core.ClearColor](cmd)
	assert.Equal(t, clear, *got)
	msaa, _ := Resource[core.Msaa](cmd)
	assert.Equal(t, uint32(1), msaa.Samples)
	settings, _ := Resource[RenderSettings](cmd)
	assert.Equal(t, 2, settings.MaxConcurrentCompiles)
}

func TestRenderSystem_ClearsWindowWithoutViews(t *testing.T) {
	app, device := newHeadlessApp(t, RenderModule{}, Core3dModule{})

	app.Update()

	require.Len(t, device.Submitted(), 1)
	passes := device.Passes()
	require.Len(t, passes, 1)
	assert.Equal(t, "clear_window", passes[0].Label)
	require.Len(t, passes[0].ColorAttachments, 1)
	ops := passes[0].ColorAttachments[0].Ops
	assert.Equal(t, gpu.ClearTo(toWgpuColor(core.DefaultClearColor().Color)), ops.Load)
	assert.True(t, ops.Store)
	assert.True(t, passes[0].Ended)
}

func TestRenderSystem_SubmitsOnceForAllViews(t *testing.T) {
	app, device := newHeadlessApp(t, RenderModule{}, Core3dModule{})

	second := core.NewCamera()
	second.Order = 1
	spawnCamera(app, second, core.Camera3d{ClearColor: core.CustomClearColor([4]float32{0, 0, 1, 1})})
	spawnCamera(app, core.NewCamera(), core.Camera3d{ClearColor: core.CustomClearColor([4]float32{1, 0, 0, 1})})

	app.Update()

	require.Len(t, device.Submitted(), 1)
	passes := device.Passes()
	require.Len(t, passes, 2)
	assert.Equal(t, gpu.ClearTo(wgpu.Color{R: 1, A: 1}), passes[0].ColorAttachments[0].Ops.Load, "lower order renders first")
	assert.Equal(t, gpu.ClearTo(wgpu.Color{B: 1, A: 1}), passes[1].ColorAttachments[0].Ops.Load)
}

func TestRenderSystem_SkipsFrameWithoutSurface(t *testing.T) {
	app, device := newHeadlessApp(t, RenderModule{}, Core3dModule{})
	window, _ := Resource[PrimaryWindow](app.Commands())
	window.Width = 0

	app.Update()

	assert.Empty(t, device.Submitted())
}

func TestRenderSystem_RenderEntitiesLiveOneFrame(t *testing.T) {
	app, _ := newHeadlessApp(t, RenderModule{}, Core3dModule{})
	spawnCamera(app, core.NewCamera(), core.Camera3d{})

	app.Update()

	count := 0
	MakeQuery1[RenderEntity](app.Commands()).Map(func(EntityId, *RenderEntity) bool {
		count++
		return true
	})
	assert.Zero(t, count)
}

func TestPipelineCacheSystem_CompilesQueuedPipelines(t *testing.T) {
	app, _ := newHeadlessApp(t, RenderModule{})
	cache, _ := Resource[gpu.PipelineCache](app.Commands())
	device, _ := Resource[RenderDevice](app.Commands())

	skybox := NewSkyboxPipeline(device.Device, gpu.StandardFormat)
	id := cache.QueueRenderPipeline(skybox.Specialize(SkyboxPipelineKey{Samples: 1, DepthFormat: gpu.DepthFormat}))

	app.Update()
	cache.Wait()

	assert.Equal(t, gpu.PipelineOk, cache.GetRenderPipelineState(id))
}
