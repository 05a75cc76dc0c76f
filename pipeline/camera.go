package pipeline

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vantage3d/vantage/geometry"
)

// Camera holds the matrices of the point of view culling runs for.
type Camera struct {
	View       mgl32.Mat4 `json:"view"`
	Projection mgl32.Mat4 `json:"projection"`
	Position   mgl32.Vec3 `json:"position"`

	// Viewport size in pixels.
	Viewport mgl32.Vec2 `json:"viewport"`
}

// NewPerspectiveCamera returns a camera at eye looking at target. fovY is in
// degrees.
func NewPerspectiveCamera(eye, target, up mgl32.Vec3, fovY, near, far float32, viewport mgl32.Vec2) Camera {
	aspect := float32(1)
	if viewport[1] > 0 {
		aspect = viewport[0] / viewport[1]
	}

	return Camera{
		View:       mgl32.LookAtV(eye, target, up),
		Projection: mgl32.Perspective(mgl32.DegToRad(fovY), aspect, near, far),
		Position:   eye,
		Viewport:   viewport,
	}
}

func (c Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.View)
}

// Direction returns the world space direction the camera looks at, which is
// the opposite of the view space z axis.
func (c Camera) Direction() mgl32.Vec3 {
	return geometry.Normalize(c.View.Row(2).Vec3().Mul(-1))
}
