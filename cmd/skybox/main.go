package main

import (
	"flag"
	"image"
	"image/color"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"

	corepipeline "github.com/gekko3d/corepipeline"
	"github.com/gekko3d/corepipeline/render/core"
)

func init() {
	runtime.LockOSThread()
}

// faceTints colors the +X, -X, +Y, -Y, +Z, -Z faces so orientation is visible.
var faceTints = [6]color.RGBA{
	{220, 90, 80, 255},
	{90, 200, 110, 255},
	{120, 170, 250, 255},
	{60, 50, 40, 255},
	{230, 200, 90, 255},
	{170, 100, 210, 255},
}

func gradientFace(size int, tint color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		shade := 0.35 + 0.65*float64(size-y)/float64(size)
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(tint.R) * shade),
				G: uint8(float64(tint.G) * shade),
				B: uint8(float64(tint.B) * shade),
				A: 255,
			})
		}
	}
	return img
}

type orbit struct {
	Radius float32
	// Speed is in radians per second.
	Speed  float32
	Angle  float32
	Paused bool
}

type sceneModule struct {
	hdr bool
}

func (m sceneModule) Install(app *corepipeline.App, cmd *corepipeline.Commands) {
	var faces [6]image.Image
	for i, tint := range faceTints {
		faces[i] = gradientFace(256, tint)
	}
	cubemap, err := corepipeline.NewCubemapImage(faces)
	if err != nil {
		panic(err)
	}
	images, _ := corepipeline.Resource[corepipeline.Images](cmd)
	sky := images.Add(cubemap)

	camera := core.NewCamera()
	camera.Hdr = m.hdr
	cmd.AddEntity(
		camera,
		core.Camera3d{ClearColor: core.ClearColorConfig{Mode: core.ClearColorDefault}, DepthLoadOp: core.DepthClear(0)},
		core.DefaultProjection(),
		core.NewTransform(),
		corepipeline.Skybox{Image: sky},
		orbit{Radius: 1, Speed: 0.2},
	)

	app.UseSystem(corepipeline.System(controlsSystem).InStage(corepipeline.Update))
	app.UseSystem(corepipeline.System(orbitCameraSystem).InStage(corepipeline.Update))
}

// controlsSystem: Space pauses the orbit, H toggles HDR, M toggles MSAA, Escape quits.
func controlsSystem(cmd *corepipeline.Commands, input *corepipeline.Input, msaa *core.Msaa) {
	if input.JustPressed[corepipeline.KeyEscape] {
		cmd.Exit()
		return
	}
	if input.JustPressed[corepipeline.KeyM] {
		if msaa.Samples > 1 {
			msaa.Samples = 1
		} else {
			msaa.Samples = 4
		}
		cmd.Logger().Infof("msaa samples: %d", msaa.Samples)
	}
	corepipeline.MakeQuery2[core.Camera, orbit](cmd).Map(func(_ corepipeline.EntityId, camera *core.Camera, o *orbit) bool {
		if input.JustPressed[corepipeline.KeySpace] {
			o.Paused = !o.Paused
		}
		if input.JustPressed[corepipeline.KeyH] {
			camera.Hdr = !camera.Hdr
			cmd.Logger().Infof("hdr: %v", camera.Hdr)
		}
		return true
	})
}

func orbitCameraSystem(cmd *corepipeline.Commands, t *corepipeline.Time) {
	dt := float32(t.Dt.Seconds())
	corepipeline.MakeQuery2[core.Transform, orbit](cmd).Map(func(_ corepipeline.EntityId, transform *core.Transform, o *orbit) bool {
		if !o.Paused {
			o.Angle = float32(math.Mod(float64(o.Angle+o.Speed*dt), 2*math.Pi))
		}
		target := mgl32.Vec3{
			float32(math.Cos(float64(o.Angle))) * o.Radius,
			0.2,
			float32(math.Sin(float64(o.Angle))) * o.Radius,
		}
		*transform = core.LookingAt(mgl32.Vec3{}, target, mgl32.Vec3{0, 1, 0})
		return true
	})
}

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	hdr := flag.Bool("hdr", false, "Render the camera into an HDR target")
	samples := flag.Uint("msaa", 4, "MSAA sample count")
	flag.Parse()

	msaa := core.Msaa{Samples: uint32(*samples)}
	app := corepipeline.NewAppBuilder().
		UseModule(
			corepipeline.LoggingModule{Prefix: "skybox", Debug: *debug},
			corepipeline.TimeModule{},
			corepipeline.NewWindowModule(1280, 720, "Skybox"),
			corepipeline.InputModule{},
			msaaModule{msaa: &msaa},
			corepipeline.RenderModule{},
			corepipeline.Core3dModule{},
			corepipeline.SkyboxModule{},
			sceneModule{hdr: *hdr},
		).
		Build()
	app.Run()
}

type msaaModule struct {
	msaa *core.Msaa
}

func (m msaaModule) Install(app *corepipeline.App, cmd *corepipeline.Commands) {
	cmd.AddResources(m.msaa)
}
