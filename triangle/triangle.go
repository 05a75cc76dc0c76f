package triangle

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vantage3d/vantage/geometry"
)

// Triangle is a single face built from mesh data for culling tests. Vertices
// are wound counter-clockwise when seen from the front.
type Triangle struct {
	Vertices   [3]mgl32.Vec3  `json:"vertices"`
	Normals    [3]mgl32.Vec3  `json:"normals"`
	UVs        *[3]mgl32.Vec2 `json:"uvs,omitempty"`
	MaterialID *uint32        `json:"material_id,omitempty"`
}

// NewTriangle returns a triangle whose vertex normals are its face normal.
func NewTriangle(v0, v1, v2 mgl32.Vec3) Triangle {
	t := Triangle{
		Vertices: [3]mgl32.Vec3{v0, v1, v2},
	}

	n := t.FaceNormal()
	t.Normals = [3]mgl32.Vec3{n, n, n}
	return t
}

// FaceNormal returns the unit normal given by the vertex winding. It is a
// zero vector for collapsed triangles.
func (t Triangle) FaceNormal() mgl32.Vec3 {
	return geometry.Normalize(t.cross())
}

func (t Triangle) Area() float32 {
	return t.cross().Len() * 0.5
}

func (t Triangle) Center() mgl32.Vec3 {
	return t.Vertices[0].Add(t.Vertices[1]).Add(t.Vertices[2]).Mul(1.0 / 3)
}

// Transform returns the triangle with vertices transformed by m and normals by
// its inverse transpose.
func (t Triangle) Transform(m mgl32.Mat4) Triangle {
	res := t
	for i, v := range t.Vertices {
		res.Vertices[i] = geometry.TransformPoint(m, v)
	}

	normalMatrix := m.Mat3()
	if normalMatrix.Det() == 0 {
		n := res.FaceNormal()
		res.Normals = [3]mgl32.Vec3{n, n, n}
		return res
	}

	normalMatrix = normalMatrix.Inv().Transpose()
	for i, n := range t.Normals {
		res.Normals[i] = geometry.Normalize(normalMatrix.Mul3x1(n))
	}
	return res
}

func (t Triangle) cross() mgl32.Vec3 {
	e1 := t.Vertices[1].Sub(t.Vertices[0])
	e2 := t.Vertices[2].Sub(t.Vertices[0])
	return e1.Cross(e2)
}

// Supplier provides the triangles of an object in its local space.
type Supplier interface {
	Triangles() []Triangle
}

// FromIndexed builds triangles from a vertex buffer and a triangle list index
// buffer. Vertices are read three by three when indices is empty. Triangles
// referencing a vertex out of range are skipped. Normals and UVs are used
// only when they have one entry per vertex, otherwise flat normals are used.
func FromIndexed(vertices []mgl32.Vec3, indices []uint32, normals []mgl32.Vec3, uvs []mgl32.Vec2) []Triangle {
	if len(indices) == 0 {
		indices = make([]uint32, len(vertices)-len(vertices)%3)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	hasNormals := len(normals) == len(vertices)
	hasUVs := len(uvs) == len(vertices) && len(uvs) != 0

	triangles := make([]Triangle, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(vertices) || int(b) >= len(vertices) || int(c) >= len(vertices) {
			continue
		}

		t := NewTriangle(vertices[a], vertices[b], vertices[c])
		if hasNormals {
			t.Normals = [3]mgl32.Vec3{normals[a], normals[b], normals[c]}
		}
		if hasUVs {
			t.UVs = &[3]mgl32.Vec2{uvs[a], uvs[b], uvs[c]}
		}
		triangles = append(triangles, t)
	}
	return triangles
}

// boxFaces lists the outward wound triangles of a box, as indexes of
// geometry.Aabb.Corners.
var boxFaces = [12][3]int{
	{0, 2, 1}, {1, 2, 3}, // -z
	{4, 5, 6}, {5, 7, 6}, // +z
	{0, 4, 2}, {2, 4, 6}, // -x
	{1, 3, 5}, {3, 7, 5}, // +x
	{0, 1, 4}, {1, 5, 4}, // -y
	{2, 6, 3}, {3, 6, 7}, // +y
}

// FromAabb returns the 12 triangles of the box surface, facing outward. It is
// used as a stand-in for objects without mesh data.
func FromAabb(box geometry.Aabb) []Triangle {
	corners := box.Corners()
	triangles := make([]Triangle, len(boxFaces))
	for i, f := range boxFaces {
		triangles[i] = NewTriangle(corners[f[0]], corners[f[1]], corners[f[2]])
	}
	return triangles
}
