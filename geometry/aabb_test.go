package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestNewAabb(t *testing.T) {
	t.Run("valid bounds", func(t *testing.T) {
		box, err := NewAabb(mgl32.Vec3{-1, -2, -3}, mgl32.Vec3{1, 2, 3})
		require.NoError(t, err)
		require.Equal(t, mgl32.Vec3{0, 0, 0}, box.Center())
		require.Equal(t, mgl32.Vec3{2, 4, 6}, box.Size())
		require.Equal(t, mgl32.Vec3{1, 2, 3}, box.HalfSize())
	})

	t.Run("flat bounds", func(t *testing.T) {
		_, err := NewAabb(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1})
		require.NoError(t, err)
	})

	t.Run("min greater than max", func(t *testing.T) {
		_, err := NewAabb(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{1, 1, 1})
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidBounds))
	})

	t.Run("nan component", func(t *testing.T) {
		nan := float32(math.NaN())
		_, err := NewAabb(mgl32.Vec3{nan, 0, 0}, mgl32.Vec3{1, 1, 1})
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidBounds, errors.Type(err))
	})
}

func TestAabbFromPoints(t *testing.T) {
	box := AabbFromPoints(
		mgl32.Vec3{1, 0, 0},
		mgl32.Vec3{-1, 5, 2},
		mgl32.Vec3{0, -3, 1},
	)
	require.Equal(t, mgl32.Vec3{-1, -3, 0}, box.Min)
	require.Equal(t, mgl32.Vec3{1, 5, 2}, box.Max)

	require.Equal(t, Aabb{}, AabbFromPoints())
}

func TestAabbExpandAndUnion(t *testing.T) {
	box := EmptyAabb()
	box.Expand(mgl32.Vec3{1, 2, 3})
	require.Equal(t, mgl32.Vec3{1, 2, 3}, box.Min)
	require.Equal(t, mgl32.Vec3{1, 2, 3}, box.Max)

	box.Expand(mgl32.Vec3{-1, 0, 4})
	require.Equal(t, mgl32.Vec3{-1, 0, 3}, box.Min)
	require.Equal(t, mgl32.Vec3{1, 2, 4}, box.Max)

	union := box.Union(AabbFromCenterSize(mgl32.Vec3{10, 0, 0}, mgl32.Vec3{2, 2, 2}))
	require.Equal(t, mgl32.Vec3{-1, -1, -1}, union.Min)
	require.Equal(t, mgl32.Vec3{11, 2, 4}, union.Max)
}

func TestAabbIntersects(t *testing.T) {
	tests := []struct {
		name     string
		a        Aabb
		b        Aabb
		expected bool
	}{
		{
			name:     "overlapping",
			a:        Aabb{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{2, 2, 2}},
			b:        Aabb{Min: mgl32.Vec3{1, 1, 1}, Max: mgl32.Vec3{3, 3, 3}},
			expected: true,
		},
		{
			name:     "touching",
			a:        Aabb{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}},
			b:        Aabb{Min: mgl32.Vec3{1, 0, 0}, Max: mgl32.Vec3{2, 1, 1}},
			expected: true,
		},
		{
			name:     "contained",
			a:        Aabb{Min: mgl32.Vec3{-5, -5, -5}, Max: mgl32.Vec3{5, 5, 5}},
			b:        Aabb{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}},
			expected: true,
		},
		{
			name:     "separated on y",
			a:        Aabb{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}},
			b:        Aabb{Min: mgl32.Vec3{0, 1.5, 0}, Max: mgl32.Vec3{1, 2, 1}},
			expected: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, test.a.Intersects(test.b))
			require.Equal(t, test.expected, test.b.Intersects(test.a))
		})
	}
}

func TestAabbIntersectsIsSymmetric(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	randomBox := func() Aabb {
		return AabbFromPoints(
			mgl32.Vec3{rnd.Float32()*20 - 10, rnd.Float32()*20 - 10, rnd.Float32()*20 - 10},
			mgl32.Vec3{rnd.Float32()*20 - 10, rnd.Float32()*20 - 10, rnd.Float32()*20 - 10},
		)
	}

	for i := 0; i < 1000; i++ {
		a := randomBox()
		b := randomBox()
		require.Equal(t, a.Intersects(b), b.Intersects(a))
	}
}

func TestAabbContainsPoint(t *testing.T) {
	box := Aabb{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}}

	require.True(t, box.ContainsPoint(mgl32.Vec3{0.5, 0.5, 0.5}))
	require.True(t, box.ContainsPoint(mgl32.Vec3{1, 1, 1}))
	require.True(t, box.ContainsPoint(mgl32.Vec3{0, 0.5, 1}))
	require.False(t, box.ContainsPoint(mgl32.Vec3{1.01, 0.5, 0.5}))
	require.False(t, box.ContainsPoint(mgl32.Vec3{0.5, -0.01, 0.5}))
}

func TestAabbTransform(t *testing.T) {
	t.Run("identity round trip", func(t *testing.T) {
		box := Aabb{Min: mgl32.Vec3{-1.5, 0.25, 3}, Max: mgl32.Vec3{2, 7, 3.5}}
		transformed := box.Transform(mgl32.Ident4())
		require.True(t, box.EqualWithEpsilon(transformed, 1e-6))
	})

	t.Run("translation", func(t *testing.T) {
		box := Aabb{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
		transformed := box.Transform(mgl32.Translate3D(5, 0, -2))
		require.True(t, transformed.EqualWithEpsilon(Aabb{
			Min: mgl32.Vec3{4, -1, -3},
			Max: mgl32.Vec3{6, 1, -1},
		}, 1e-6))
	})

	t.Run("quarter turn around y", func(t *testing.T) {
		box := Aabb{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 2, 3}}
		transformed := box.Transform(mgl32.HomogRotate3DY(mgl32.DegToRad(90)))
		require.True(t, transformed.EqualWithEpsilon(Aabb{
			Min: mgl32.Vec3{0, 0, -1},
			Max: mgl32.Vec3{3, 2, 0},
		}, 1e-5))
	})

	t.Run("rotation encloses every corner", func(t *testing.T) {
		box := Aabb{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
		m := mgl32.HomogRotate3DY(mgl32.DegToRad(45))
		transformed := box.Transform(m)

		sqrt2 := float32(math.Sqrt2)
		require.True(t, EqualWithEpsilon(transformed.Max[0], sqrt2, 1e-5))
		require.True(t, EqualWithEpsilon(transformed.Min[2], -sqrt2, 1e-5))
		for _, c := range box.Corners() {
			p := TransformPoint(m, c)
			require.True(t, transformed.Union(AabbFromPoints(p)).EqualWithEpsilon(transformed, 1e-5))
		}
	})

	t.Run("receiver is not modified", func(t *testing.T) {
		box := Aabb{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}}
		box.Transform(mgl32.Scale3D(4, 4, 4))
		require.Equal(t, mgl32.Vec3{1, 1, 1}, box.Max)
	})
}

func TestNormalize(t *testing.T) {
	require.Equal(t, mgl32.Vec3{}, Normalize(mgl32.Vec3{}))
	require.True(t, Vec3EqualWithEpsilon(mgl32.Vec3{0, 1, 0}, Normalize(mgl32.Vec3{0, 5, 0}), 1e-6))
}

func TestIsFiniteMat4(t *testing.T) {
	require.True(t, IsFiniteMat4(mgl32.Ident4()))

	m := mgl32.Ident4()
	m[5] = float32(math.Inf(1))
	require.False(t, IsFiniteMat4(m))
}
