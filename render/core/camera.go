package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ClearColor is the global clear color used by cameras configured with ClearColorDefault.
type ClearColor struct {
	Color mgl32.Vec4
}

func DefaultClearColor() ClearColor {
	return ClearColor{Color: mgl32.Vec4{0.4, 0.4, 0.4, 1.0}}
}

type ClearColorMode int

const (
	// ClearColorDefault clears to the global ClearColor resource.
	ClearColorDefault ClearColorMode = iota
	// ClearColorCustom clears to ClearColorConfig.Color.
	ClearColorCustom
	// ClearColorNone keeps whatever the target already holds.
	ClearColorNone
)

type ClearColorConfig struct {
	Mode  ClearColorMode
	Color mgl32.Vec4
}

func CustomClearColor(c mgl32.Vec4) ClearColorConfig {
	return ClearColorConfig{Mode: ClearColorCustom, Color: c}
}

func NoClearColor() ClearColorConfig {
	return ClearColorConfig{Mode: ClearColorNone}
}

// DepthLoadOp selects how the opaque pass treats the depth attachment.
// The zero value clears to 0.0, the far plane under reversed-Z.
type DepthLoadOp struct {
	Load  bool
	Value float32
}

func DepthClear(value float32) DepthLoadOp {
	return DepthLoadOp{Value: value}
}

func DepthLoad() DepthLoadOp {
	return DepthLoadOp{Load: true}
}

// Viewport is a sub-rectangle of the render target, in physical pixels.
type Viewport struct {
	PhysicalPosition [2]uint32
	PhysicalSize     [2]uint32
	Depth            [2]float32
}

func NewViewport(x, y, width, height uint32) *Viewport {
	return &Viewport{
		PhysicalPosition: [2]uint32{x, y},
		PhysicalSize:     [2]uint32{width, height},
		Depth:            [2]float32{0, 1},
	}
}

type RenderTarget int

const (
	TargetPrimaryWindow RenderTarget = iota
	// TargetNone renders nowhere; such cameras still get a view but no target.
	TargetNone
)

type Camera struct {
	Active   bool
	Order    int
	Hdr      bool
	Viewport *Viewport
	Target   RenderTarget
}

func NewCamera() Camera {
	return Camera{Active: true, Target: TargetPrimaryWindow}
}

type Camera3d struct {
	ClearColor  ClearColorConfig
	DepthLoadOp DepthLoadOp
}

// Projection is a perspective projection with an infinite far plane and reversed depth.
type Projection struct {
	FovY        float32
	AspectRatio float32
	Near        float32
}

func DefaultProjection() Projection {
	return Projection{
		FovY:        math.Pi / 4,
		AspectRatio: 1,
		Near:        0.1,
	}
}

// Matrix maps the near plane to depth 1 and infinity to depth 0.
func (p Projection) Matrix() mgl32.Mat4 {
	f := float32(1.0 / math.Tan(float64(p.FovY)/2.0))
	aspect := p.AspectRatio
	if aspect <= 0 {
		aspect = 1
	}
	// column-major
	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, 0, -1,
		0, 0, p.Near, 0,
	}
}

// Msaa is the sample count shared by all main-pass pipelines.
type Msaa struct {
	Samples uint32
}

func DefaultMsaa() Msaa {
	return Msaa{Samples: 4}
}
