package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func EqualWithEpsilon(a float32, b float32, epsilon float64) bool {
	return math.Abs((float64)(a-b)) <= epsilon
}

// Vec3EqualWithEpsilon compares two vectors component-wise.
func Vec3EqualWithEpsilon(a, b mgl32.Vec3, epsilon float64) bool {
	return EqualWithEpsilon(a[0], b[0], epsilon) &&
		EqualWithEpsilon(a[1], b[1], epsilon) &&
		EqualWithEpsilon(a[2], b[2], epsilon)
}

// Normalize returns v scaled to unit length. A zero vector is returned as is
// instead of producing NaN components.
func Normalize(v mgl32.Vec3) mgl32.Vec3 {
	length := v.Len()
	if length == 0 {
		return v
	}
	return v.Mul(1 / length)
}

func IsFinite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

func IsFiniteVec3(v mgl32.Vec3) bool {
	return IsFinite(v[0]) && IsFinite(v[1]) && IsFinite(v[2])
}

// IsFiniteMat4 reports whether every component of m is a finite number.
func IsFiniteMat4(m mgl32.Mat4) bool {
	for _, f := range m {
		if !IsFinite(f) {
			return false
		}
	}
	return true
}

// TransformPoint applies m to p as a point (w = 1). The perspective divide is
// only applied when the resulting w is neither 0 nor 1, so affine transforms
// are exact.
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	v := m.Mul4x1(p.Vec4(1))
	if w := v.W(); w != 0 && w != 1 {
		return v.Vec3().Mul(1 / w)
	}
	return v.Vec3()
}

func MinVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Min(float64(a[0]), float64(b[0]))),
		float32(math.Min(float64(a[1]), float64(b[1]))),
		float32(math.Min(float64(a[2]), float64(b[2]))),
	}
}

func MaxVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Max(float64(a[0]), float64(b[0]))),
		float32(math.Max(float64(a[1]), float64(b[1]))),
		float32(math.Max(float64(a[2]), float64(b[2]))),
	}
}
