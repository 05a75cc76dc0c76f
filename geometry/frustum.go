package geometry

import (
	"github.com/go-gl/mathgl/mgl32"
)

// IntersectionResult is the outcome of a volume test against a frustum.
type IntersectionResult int

const (
	Outside IntersectionResult = iota
	Intersecting
	Inside
)

func (r IntersectionResult) String() string {
	switch r {
	case Outside:
		return "outside"
	case Intersecting:
		return "intersecting"
	case Inside:
		return "inside"
	default:
		return "unknown"
	}
}

// Plane is the set of points p where Normal·p + Distance = 0. Points with a
// positive signed distance are on the inner side.
type Plane struct {
	Normal   mgl32.Vec3 `json:"normal"`
	Distance float32    `json:"distance"`
}

func planeFromVec4(v mgl32.Vec4) Plane {
	p := Plane{
		Normal:   v.Vec3(),
		Distance: v.W(),
	}

	if length := p.Normal.Len(); length > 0 {
		p.Normal = p.Normal.Mul(1 / length)
		p.Distance /= length
	}
	return p
}

func (p Plane) SignedDistance(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

// Frustum plane indexes.
const (
	LeftPlane = iota
	RightPlane
	TopPlane
	BottomPlane
	NearPlane
	FarPlane
)

// Frustum is the camera view volume. Every plane normal points inward.
type Frustum struct {
	Planes [6]Plane `json:"planes"`
}

// FrustumFromViewProjection extracts the 6 clipping planes from a combined
// view-projection matrix, using OpenGL clip conventions (-w <= x, y, z <= w).
func FrustumFromViewProjection(vp mgl32.Mat4) Frustum {
	r0 := vp.Row(0)
	r1 := vp.Row(1)
	r2 := vp.Row(2)
	r3 := vp.Row(3)

	var f Frustum
	f.Planes[LeftPlane] = planeFromVec4(r3.Add(r0))
	f.Planes[RightPlane] = planeFromVec4(r3.Sub(r0))
	f.Planes[TopPlane] = planeFromVec4(r3.Sub(r1))
	f.Planes[BottomPlane] = planeFromVec4(r3.Add(r1))
	f.Planes[NearPlane] = planeFromVec4(r3.Add(r2))
	f.Planes[FarPlane] = planeFromVec4(r3.Sub(r2))
	return f
}

// TestPoint reports whether p is on the inner side of every plane. Points
// lying on a plane are inside.
func (f Frustum) TestPoint(p mgl32.Vec3) bool {
	for _, plane := range f.Planes {
		if plane.SignedDistance(p) < 0 {
			return false
		}
	}
	return true
}

func (f Frustum) TestSphere(center mgl32.Vec3, radius float32) IntersectionResult {
	result := Inside
	for _, plane := range f.Planes {
		d := plane.SignedDistance(center)
		if d < -radius {
			return Outside
		}
		if d < radius {
			result = Intersecting
		}
	}
	return result
}

// TestAabb classifies the box with the positive/negative vertex method. A box
// is only reported Outside when it lies entirely on the outer side of one
// plane, so it never rejects a visible box.
func (f Frustum) TestAabb(box Aabb) IntersectionResult {
	result := Inside
	for _, plane := range f.Planes {
		positive := box.Min
		negative := box.Max
		for i := 0; i < 3; i++ {
			if plane.Normal[i] >= 0 {
				positive[i] = box.Max[i]
				negative[i] = box.Min[i]
			}
		}

		if plane.SignedDistance(positive) < 0 {
			return Outside
		}
		if plane.SignedDistance(negative) < 0 {
			result = Intersecting
		}
	}
	return result
}

func (f Frustum) IsVisiblePoint(p mgl32.Vec3) bool {
	return f.TestPoint(p)
}

func (f Frustum) IsVisibleSphere(center mgl32.Vec3, radius float32) bool {
	return f.TestSphere(center, radius) != Outside
}

func (f Frustum) IsVisibleAabb(box Aabb) bool {
	return f.TestAabb(box) != Outside
}
