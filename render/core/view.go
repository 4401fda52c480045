package core

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// ExtractedCamera is the render-side copy of a camera for the current frame.
type ExtractedCamera struct {
	Target       RenderTarget
	Viewport     *Viewport
	PhysicalSize [2]uint32
	Order        int
}

// ExtractedView carries what view uniforms and pipeline keys need.
type ExtractedView struct {
	Projection mgl32.Mat4
	Transform  Transform
	Hdr        bool
	// Viewport is x, y, width, height in physical pixels.
	Viewport [4]uint32
}

// ViewUniform mirrors the WGSL View struct; layout follows WGSL uniform alignment rules.
type ViewUniform struct {
	ViewProj          mgl32.Mat4
	InverseView       mgl32.Mat4
	Projection        mgl32.Mat4
	InverseProjection mgl32.Mat4
	WorldPosition     mgl32.Vec3
	_                 float32
	Viewport          mgl32.Vec4
}

// ViewUniformSize is the minimum binding size of one ViewUniform.
const ViewUniformSize = uint64(unsafe.Sizeof(ViewUniform{}))

func NewViewUniform(view *ExtractedView) ViewUniform {
	inverseView := view.Transform.Matrix()
	viewMatrix := view.Transform.InverseMatrix()

	return ViewUniform{
		ViewProj:          view.Projection.Mul4(viewMatrix),
		InverseView:       inverseView,
		Projection:        view.Projection,
		InverseProjection: view.Projection.Inv(),
		WorldPosition:     view.Transform.Position,
		Viewport: mgl32.Vec4{
			float32(view.Viewport[0]),
			float32(view.Viewport[1]),
			float32(view.Viewport[2]),
			float32(view.Viewport[3]),
		},
	}
}
