package geometry

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// ErrTypeInvalidBounds is the error type returned when a box is built
	// with a min corner greater than its max corner.
	ErrTypeInvalidBounds = "invalid_bounds"
)

// Aabb is an axis-aligned bounding box. Min is lower or equal to Max on every
// axis.
type Aabb struct {
	Min mgl32.Vec3 `json:"min"`
	Max mgl32.Vec3 `json:"max"`
}

// NewAabb returns the box delimited by min and max.
func NewAabb(min, max mgl32.Vec3) (Aabb, error) {
	for i := 0; i < 3; i++ {
		if !IsFinite(min[i]) || !IsFinite(max[i]) || min[i] > max[i] {
			return Aabb{}, errors.New("invalid bounds").
				WithType(ErrTypeInvalidBounds).
				WithTag("min", min).
				WithTag("max", max).
				WithTag("axis", i)
		}
	}
	return Aabb{Min: min, Max: max}, nil
}

// EmptyAabb returns an inverted box that any Expand call collapses onto the
// expanded point.
func EmptyAabb() Aabb {
	return Aabb{
		Min: mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

func AabbFromCenterSize(center, size mgl32.Vec3) Aabb {
	half := size.Mul(0.5)
	return Aabb{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

// AabbFromPoints returns the smallest box containing every point. A zero box
// is returned when no point is given.
func AabbFromPoints(points ...mgl32.Vec3) Aabb {
	if len(points) == 0 {
		return Aabb{}
	}

	box := Aabb{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box.Expand(p)
	}
	return box
}

func (b Aabb) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Aabb) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b Aabb) HalfSize() mgl32.Vec3 {
	return b.Size().Mul(0.5)
}

// Corners returns the 8 corners of the box.
func (b Aabb) Corners() [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{b.Min[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Min[1], b.Min[2]},
		{b.Min[0], b.Max[1], b.Min[2]},
		{b.Max[0], b.Max[1], b.Min[2]},
		{b.Min[0], b.Min[1], b.Max[2]},
		{b.Max[0], b.Min[1], b.Max[2]},
		{b.Min[0], b.Max[1], b.Max[2]},
		{b.Max[0], b.Max[1], b.Max[2]},
	}
}

// Transform returns the axis-aligned box enclosing the 8 corners of b once
// transformed by m. The receiver is not modified.
func (b Aabb) Transform(m mgl32.Mat4) Aabb {
	corners := b.Corners()
	for i := range corners {
		corners[i] = TransformPoint(m, corners[i])
	}
	return AabbFromPoints(corners[:]...)
}

// Intersects reports whether both boxes overlap on every axis. Touching boxes
// intersect.
func (b Aabb) Intersects(o Aabb) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

func (b Aabb) ContainsPoint(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

func (b *Aabb) Expand(p mgl32.Vec3) {
	b.Min = MinVec3(b.Min, p)
	b.Max = MaxVec3(b.Max, p)
}

func (b Aabb) Union(o Aabb) Aabb {
	return Aabb{
		Min: MinVec3(b.Min, o.Min),
		Max: MaxVec3(b.Max, o.Max),
	}
}

func (b Aabb) IsFinite() bool {
	return IsFiniteVec3(b.Min) && IsFiniteVec3(b.Max)
}

// EqualWithEpsilon compares both corners component-wise.
func (b Aabb) EqualWithEpsilon(o Aabb, epsilon float64) bool {
	return Vec3EqualWithEpsilon(b.Min, o.Min, epsilon) &&
		Vec3EqualWithEpsilon(b.Max, o.Max, epsilon)
}
