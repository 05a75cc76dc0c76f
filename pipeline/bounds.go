package pipeline

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vantage3d/vantage/geometry"
	"github.com/vantage3d/vantage/models"
)

// object is a simple element or a mesh node of a compound element, with its
// world space bounds.
type object struct {
	element int
	node    int

	matrix mgl32.Mat4
	local  geometry.Aabb
	world  geometry.Aabb
	mesh   *models.Mesh

	sphereCenter mgl32.Vec3
	sphereRadius float32

	missingBounds    bool
	invalidTransform bool
}

type boundsEntry struct {
	fingerprint uint64
	defaultSize float32
	objects     []object
	lastFrame   uint64
}

// boundsCache keeps the world bounds of elements whose transform and bounds
// did not change since the previous frame.
type boundsCache struct {
	entries map[uint32]*boundsEntry
	hits    int
	misses  int
}

func newBoundsCache() *boundsCache {
	return &boundsCache{
		entries: make(map[uint32]*boundsEntry),
	}
}

// objects returns the objects an element is culled as. The returned slice
// must not be modified.
func (c *boundsCache) objects(e *models.SceneElement, defaultSize float32, frame uint64) []object {
	fp := e.Fingerprint()
	if entry, ok := c.entries[e.ID]; ok && entry.fingerprint == fp && entry.defaultSize == defaultSize {
		entry.lastFrame = frame
		c.hits++
		return entry.objects
	}

	c.misses++
	objects := worldObjects(e, defaultSize)
	c.entries[e.ID] = &boundsEntry{
		fingerprint: fp,
		defaultSize: defaultSize,
		objects:     objects,
		lastFrame:   frame,
	}
	return objects
}

// prune removes the entries of elements not seen during the given frame.
func (c *boundsCache) prune(frame uint64) {
	for id, entry := range c.entries {
		if entry.lastFrame != frame {
			delete(c.entries, id)
		}
	}
}

func (c *boundsCache) len() int {
	return len(c.entries)
}

func worldObjects(e *models.SceneElement, defaultSize float32) []object {
	m := e.Transform.Matrix()
	defaultBounds := geometry.AabbFromCenterSize(mgl32.Vec3{}, mgl32.Vec3{defaultSize, defaultSize, defaultSize})

	if !e.IsCompound() {
		o := object{
			node:   -1,
			matrix: m,
			mesh:   e.Mesh,
		}

		if b := e.Bounds(); b != nil {
			o.local = *b
		} else {
			o.local = defaultBounds
			o.missingBounds = true
		}

		if !geometry.IsFiniteMat4(m) {
			o.invalidTransform = true
			return []object{o}
		}

		o.world = o.local.Transform(m)
		o.sphereCenter = geometry.TransformPoint(m, o.local.Center())
		o.sphereRadius = o.local.HalfSize().Len() * maxAbsElement(e.Transform.Scale)
		o.invalidTransform = !o.world.IsFinite()
		return []object{o}
	}

	nodes := e.Nodes()
	objects := make([]object, len(nodes))
	for i, n := range nodes {
		nm := m.Mul4(n.Local.Matrix())
		o := object{
			node:   i,
			matrix: nm,
			mesh:   n.Mesh,
		}

		if n.Bounds != nil {
			o.local = *n.Bounds
		} else {
			o.local = defaultBounds
			o.missingBounds = true
		}

		if !geometry.IsFiniteMat4(nm) {
			o.invalidTransform = true
			objects[i] = o
			continue
		}

		o.world = o.local.Transform(nm)
		o.sphereCenter = o.world.Center()
		o.sphereRadius = o.world.HalfSize().Len()
		o.invalidTransform = !o.world.IsFinite()
		objects[i] = o
	}
	return objects
}

func maxAbsElement(v mgl32.Vec3) float32 {
	return float32(math.Max(
		math.Abs(float64(v[0])),
		math.Max(math.Abs(float64(v[1])), math.Abs(float64(v[2]))),
	))
}
