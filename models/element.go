package models

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
	"github.com/vantage3d/vantage/geometry"
	"github.com/vantage3d/vantage/triangle"
)

const (
	ErrTypeInvalidScene     = "invalid_scene"
	ErrTypeElementNotFound  = "element_not_found"
	ErrTypeMissingBounds    = "missing_bounds"
	ErrTypeInvalidTransform = "invalid_transform"
)

// InstanceHandle references the render instance drawn for a scene element.
type InstanceHandle uint32

// CullReason tells which pass hid an object.
type CullReason int

const (
	NotCulled CullReason = iota
	FrustumCulled
	OcclusionCulled
)

func (r CullReason) String() string {
	switch r {
	case FrustumCulled:
		return "frustum"
	case OcclusionCulled:
		return "occlusion"
	default:
		return ""
	}
}

func (r CullReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *CullReason) UnmarshalText(b []byte) error {
	switch string(b) {
	case "":
		*r = NotCulled
	case "frustum":
		*r = FrustumCulled
	case "occlusion":
		*r = OcclusionCulled
	default:
		return errors.New("unknown cull reason").WithTag("reason", string(b))
	}
	return nil
}

// MeshNode is one mesh of a compound element, placed relative to the
// element.
type MeshNode struct {
	Name   string         `json:"name,omitempty"`
	Local  Transform      `json:"local_transform"`
	Bounds *geometry.Aabb `json:"bounds,omitempty"`
	Mesh   *Mesh          `json:"mesh,omitempty"`
}

// UnmarshalJSON decodes a mesh node whose omitted local transform is the
// identity.
func (n *MeshNode) UnmarshalJSON(data []byte) error {
	type meshNode MeshNode
	v := meshNode{Local: IdentityTransform()}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = MeshNode(v)
	return nil
}

// Shape is either Simple or Compound.
type Shape interface {
	isShape()
}

// Simple is the shape of an element drawn as a single mesh. Bounds are in the
// element local space and may be missing.
type Simple struct {
	Bounds *geometry.Aabb
}

func (Simple) isShape() {}

// Compound is the shape of an element made of several mesh nodes.
type Compound struct {
	nodes []MeshNode
}

// NewCompound returns a compound shape. At least one node is required.
func NewCompound(nodes []MeshNode) (Compound, error) {
	if len(nodes) == 0 {
		return Compound{}, errors.New("compound shape without mesh nodes").
			WithType(ErrTypeInvalidScene)
	}
	return Compound{nodes: nodes}, nil
}

func (c Compound) Nodes() []MeshNode {
	return c.nodes
}

func (Compound) isShape() {}

// Mesh is the vertex data of an object in its local space.
type Mesh struct {
	Vertices   []mgl32.Vec3 `json:"vertices"`
	Indices    []uint32     `json:"indices,omitempty"`
	Normals    []mgl32.Vec3 `json:"normals,omitempty"`
	UVs        []mgl32.Vec2 `json:"uvs,omitempty"`
	MaterialID *uint32      `json:"material_id,omitempty"`
}

// Triangles returns the mesh triangles.
func (m *Mesh) Triangles() []triangle.Triangle {
	triangles := triangle.FromIndexed(m.Vertices, m.Indices, m.Normals, m.UVs)
	if m.MaterialID != nil {
		for i := range triangles {
			triangles[i].MaterialID = m.MaterialID
		}
	}
	return triangles
}

// Bounds returns the box enclosing every vertex. The boolean is false when
// the mesh has no vertex.
func (m *Mesh) Bounds() (geometry.Aabb, bool) {
	if len(m.Vertices) == 0 {
		return geometry.Aabb{}, false
	}
	return geometry.AabbFromPoints(m.Vertices...), true
}

// NodeVisibility is the visibility of a mesh node of a compound element.
type NodeVisibility struct {
	Visible bool       `json:"visible"`
	Reason  CullReason `json:"reason,omitempty"`
}

// Visibility is the state written by the culling pipeline every frame.
type Visibility struct {
	Visible           bool             `json:"visible"`
	Reason            CullReason       `json:"reason,omitempty"`
	Nodes             []NodeVisibility `json:"nodes,omitempty"`
	TrianglesRendered int              `json:"triangles_rendered"`
	TrianglesCulled   int              `json:"triangles_culled"`
}

// SceneElement is an object of the scene.
type SceneElement struct {
	ID         uint32         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Instance   InstanceHandle `json:"instance"`
	Source     string         `json:"source,omitempty"`
	Transform  Transform      `json:"transform"`
	Shape      Shape          `json:"-"`
	Mesh       *Mesh          `json:"-"`
	Visibility Visibility     `json:"visibility"`
}

func (e *SceneElement) IsCompound() bool {
	c, ok := e.Shape.(Compound)
	return ok && len(c.nodes) != 0
}

// Nodes returns the mesh nodes of a compound element, or nil.
func (e *SceneElement) Nodes() []MeshNode {
	if c, ok := e.Shape.(Compound); ok {
		return c.nodes
	}
	return nil
}

// NodeCount returns the number of objects the element is culled as: its node
// count when compound, 1 otherwise.
func (e *SceneElement) NodeCount() int {
	if e.IsCompound() {
		return len(e.Nodes())
	}
	return 1
}

// Bounds returns the local bounds of a simple element, or nil.
func (e *SceneElement) Bounds() *geometry.Aabb {
	if s, ok := e.Shape.(Simple); ok {
		return s.Bounds
	}
	return nil
}

// SetBounds sets the bounds of a simple element. Invalid bounds are rejected
// and the previous bounds are kept.
func (e *SceneElement) SetBounds(min, max mgl32.Vec3) error {
	if e.IsCompound() {
		return errors.New("bounds of a compound element are set on its nodes").
			WithType(ErrTypeInvalidScene).
			WithTag("element_id", e.ID)
	}

	b, err := geometry.NewAabb(min, max)
	if err != nil {
		return errors.New("setting element bounds failed").
			WithType(errors.Type(err)).
			WithTag("element_id", e.ID).
			Wrap(err)
	}
	e.Shape = Simple{Bounds: &b}
	return nil
}

// Fingerprint returns a hash of everything the world space bounds and
// triangle sources of an element depend on: its transform, its local bounds
// and the identity of its meshes.
func (e *SceneElement) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [4]byte

	writeFloat := func(f float32) {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		h.Write(buf[:])
	}
	writeVec3 := func(v mgl32.Vec3) {
		writeFloat(v[0])
		writeFloat(v[1])
		writeFloat(v[2])
	}
	writeTransform := func(t Transform) {
		writeVec3(t.Position)
		writeVec3(t.RotationDegrees)
		writeVec3(t.Scale)
	}
	writeBounds := func(b *geometry.Aabb) {
		if b == nil {
			h.Write([]byte{0})
			return
		}
		h.Write([]byte{1})
		writeVec3(b.Min)
		writeVec3(b.Max)
	}
	writeMesh := func(m *Mesh) {
		var ptr [8]byte
		binary.LittleEndian.PutUint64(ptr[:], uint64(reflect.ValueOf(m).Pointer()))
		h.Write(ptr[:])
	}

	writeTransform(e.Transform)
	switch s := e.Shape.(type) {
	case Compound:
		h.Write([]byte{'c'})
		for _, n := range s.nodes {
			writeTransform(n.Local)
			writeBounds(n.Bounds)
			writeMesh(n.Mesh)
		}

	case Simple:
		h.Write([]byte{'s'})
		writeBounds(s.Bounds)
		writeMesh(e.Mesh)
	}
	return h.Sum64()
}

// Clone returns a deep copy of the element. Meshes are shared since they are
// never modified once loaded.
func (e *SceneElement) Clone() *SceneElement {
	c := *e

	switch s := e.Shape.(type) {
	case Simple:
		if s.Bounds != nil {
			b := *s.Bounds
			c.Shape = Simple{Bounds: &b}
		}

	case Compound:
		nodes := make([]MeshNode, len(s.nodes))
		for i, n := range s.nodes {
			nodes[i] = n
			if n.Bounds != nil {
				b := *n.Bounds
				nodes[i].Bounds = &b
			}
		}
		c.Shape = Compound{nodes: nodes}
	}

	if e.Visibility.Nodes != nil {
		c.Visibility.Nodes = make([]NodeVisibility, len(e.Visibility.Nodes))
		copy(c.Visibility.Nodes, e.Visibility.Nodes)
	}
	return &c
}
