package models

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"github.com/vantage3d/vantage/geometry"
)

func unitBounds() *geometry.Aabb {
	b := geometry.AabbFromCenterSize(mgl32.Vec3{}, mgl32.Vec3{2, 2, 2})
	return &b
}

func TestTransformMatrix(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		require.True(t, IdentityTransform().Matrix().ApproxEqual(mgl32.Ident4()))
	})

	t.Run("translation rotation scale", func(t *testing.T) {
		tr := Transform{
			Position:        mgl32.Vec3{10, 0, 0},
			RotationDegrees: mgl32.Vec3{0, 90, 0},
			Scale:           mgl32.Vec3{2, 2, 2},
		}

		p := geometry.TransformPoint(tr.Matrix(), mgl32.Vec3{1, 0, 0})
		require.True(t, geometry.Vec3EqualWithEpsilon(mgl32.Vec3{10, 0, -2}, p, 1e-5), "%v", p)
	})

	t.Run("rotation order is y x z", func(t *testing.T) {
		tr := IdentityTransform()
		tr.RotationDegrees = mgl32.Vec3{90, 90, 0}

		p := geometry.TransformPoint(tr.Matrix(), mgl32.Vec3{0, 1, 0})
		require.True(t, geometry.Vec3EqualWithEpsilon(mgl32.Vec3{1, 0, 0}, p, 1e-5), "%v", p)
	})
}

func TestTransformUnmarshalJSON(t *testing.T) {
	var tr Transform
	err := json.Unmarshal([]byte(`{"position":[1,2,3]}`), &tr)
	require.NoError(t, err)
	require.Equal(t, mgl32.Vec3{1, 2, 3}, tr.Position)
	require.Equal(t, mgl32.Vec3{1, 1, 1}, tr.Scale)

	var n MeshNode
	err = json.Unmarshal([]byte(`{"name":"wheel"}`), &n)
	require.NoError(t, err)
	require.Equal(t, "wheel", n.Name)
	require.Equal(t, IdentityTransform(), n.Local)
}

func TestNewCompound(t *testing.T) {
	_, err := NewCompound(nil)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeInvalidScene))

	c, err := NewCompound([]MeshNode{{Name: "a"}, {Name: "b"}})
	require.NoError(t, err)
	require.Len(t, c.Nodes(), 2)

	e := SceneElement{Shape: c}
	require.True(t, e.IsCompound())
	require.Equal(t, 2, e.NodeCount())
	require.Nil(t, e.Bounds())
}

func TestSceneElementSetBounds(t *testing.T) {
	e := SceneElement{ID: 1}
	require.False(t, e.IsCompound())
	require.Equal(t, 1, e.NodeCount())
	require.Nil(t, e.Bounds())

	err := e.SetBounds(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	require.NoError(t, err)
	require.Equal(t, unitBounds(), e.Bounds())

	err = e.SetBounds(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{1, 1, 1})
	require.Error(t, err)
	require.Equal(t, geometry.ErrTypeInvalidBounds, errors.Type(err))
	require.Equal(t, unitBounds(), e.Bounds())

	compound, _ := NewCompound([]MeshNode{{}})
	e.Shape = compound
	require.Error(t, e.SetBounds(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}))
}

func TestSceneElementFingerprint(t *testing.T) {
	e := SceneElement{
		Transform: IdentityTransform(),
		Shape:     Simple{Bounds: unitBounds()},
	}
	fp := e.Fingerprint()
	require.Equal(t, fp, e.Clone().Fingerprint())

	e.Visibility.Visible = true
	require.Equal(t, fp, e.Fingerprint())

	e.Transform.Position[1] = 1
	require.NotEqual(t, fp, e.Fingerprint())

	e.Transform.Position[1] = 0
	e.Shape = Simple{}
	require.NotEqual(t, fp, e.Fingerprint())

	compound, _ := NewCompound([]MeshNode{{Local: IdentityTransform(), Bounds: unitBounds()}})
	e.Shape = compound
	require.NotEqual(t, fp, e.Fingerprint())

	t.Run("mesh swap", func(t *testing.T) {
		e := SceneElement{
			Transform: IdentityTransform(),
			Shape:     Simple{Bounds: unitBounds()},
			Mesh:      &Mesh{Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}},
		}
		fp := e.Fingerprint()
		require.Equal(t, fp, e.Clone().Fingerprint())

		previous := e.Mesh
		e.Mesh = &Mesh{Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
		require.NotSame(t, previous, e.Mesh)
		require.NotEqual(t, fp, e.Fingerprint())

		node := MeshNode{Local: IdentityTransform(), Bounds: unitBounds(), Mesh: e.Mesh}
		compound, _ := NewCompound([]MeshNode{node})
		e.Shape = compound
		fp = e.Fingerprint()

		node.Mesh = &Mesh{}
		compound, _ = NewCompound([]MeshNode{node})
		e.Shape = compound
		require.NotEqual(t, fp, e.Fingerprint())
	})
}

func TestSceneElementClone(t *testing.T) {
	compound, _ := NewCompound([]MeshNode{{Bounds: unitBounds()}})
	e := &SceneElement{
		ID:    1,
		Shape: compound,
		Visibility: Visibility{
			Nodes: []NodeVisibility{{Visible: true}},
		},
	}

	c := e.Clone()
	c.Nodes()[0].Bounds.Max[0] = 42
	c.Visibility.Nodes[0].Visible = false

	require.Equal(t, float32(1), e.Nodes()[0].Bounds.Max[0])
	require.True(t, e.Visibility.Nodes[0].Visible)
}

func TestMesh(t *testing.T) {
	material := uint32(3)
	m := &Mesh{
		Vertices:   []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 2}},
		Indices:    []uint32{0, 1, 2, 0, 2, 3},
		MaterialID: &material,
	}

	tris := m.Triangles()
	require.Len(t, tris, 2)
	require.Equal(t, &material, tris[1].MaterialID)

	b, ok := m.Bounds()
	require.True(t, ok)
	require.Equal(t, mgl32.Vec3{1, 1, 2}, b.Max)

	_, ok = (&Mesh{}).Bounds()
	require.False(t, ok)
}

func TestCullReasonMarshalText(t *testing.T) {
	b, err := json.Marshal(Visibility{Reason: OcclusionCulled})
	require.NoError(t, err)
	require.Contains(t, string(b), `"reason":"occlusion"`)
}

func TestCullReasonUnmarshalText(t *testing.T) {
	var v Visibility
	require.NoError(t, json.Unmarshal([]byte(`{"visible":false,"reason":"frustum"}`), &v))
	require.Equal(t, FrustumCulled, v.Reason)

	require.Error(t, json.Unmarshal([]byte(`{"reason":"teleported"}`), &v))
}
