package models

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
)

// Transform places an object in its parent space. Rotation is expressed in
// degrees and applied in Y, X, Z order.
type Transform struct {
	Position        mgl32.Vec3 `json:"position"`
	RotationDegrees mgl32.Vec3 `json:"rotation"`
	Scale           mgl32.Vec3 `json:"scale"`
}

func IdentityTransform() Transform {
	return Transform{
		Scale: mgl32.Vec3{1, 1, 1},
	}
}

// Matrix returns the affine matrix translation * rotation * scale.
func (t Transform) Matrix() mgl32.Mat4 {
	rotation := mgl32.HomogRotate3DY(mgl32.DegToRad(t.RotationDegrees.Y())).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(t.RotationDegrees.X()))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(t.RotationDegrees.Z())))

	return mgl32.Translate3D(t.Position.Elem()).
		Mul4(rotation).
		Mul4(mgl32.Scale3D(t.Scale.Elem()))
}

// UnmarshalJSON decodes a transform where omitted fields keep their identity
// value.
func (t *Transform) UnmarshalJSON(data []byte) error {
	type transform Transform
	v := transform(IdentityTransform())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = Transform(v)
	return nil
}
