package triangle

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vantage3d/vantage/geometry"
)

// View is the camera state triangles are tested against.
type View struct {
	CameraPosition mgl32.Vec3
	ViewDirection  mgl32.Vec3
	ViewProjection mgl32.Mat4

	// Viewport size in pixels.
	Viewport mgl32.Vec2
}

// Decision is the result of evaluating every enabled method on a triangle.
type Decision struct {
	Culled bool
	By     Methods
}

// Statistics are the counters accumulated by a culler since its last reset.
type Statistics struct {
	Tested              int `json:"tested"`
	Rendered            int `json:"rendered"`
	Culled              int `json:"culled"`
	BackfaceCulled      int `json:"backface_culled"`
	DegenerateCulled    int `json:"degenerate_culled"`
	SmallCulled         int `json:"small_culled"`
	ViewDependentCulled int `json:"view_dependent_culled"`
}

// Efficiency returns the percentage of tested triangles that were culled.
func (s Statistics) Efficiency() float32 {
	if s.Tested == 0 {
		return 0
	}
	return float32(s.Culled) / float32(s.Tested) * 100
}

func (s Statistics) Add(o Statistics) Statistics {
	return Statistics{
		Tested:              s.Tested + o.Tested,
		Rendered:            s.Rendered + o.Rendered,
		Culled:              s.Culled + o.Culled,
		BackfaceCulled:      s.BackfaceCulled + o.BackfaceCulled,
		DegenerateCulled:    s.DegenerateCulled + o.DegenerateCulled,
		SmallCulled:         s.SmallCulled + o.SmallCulled,
		ViewDependentCulled: s.ViewDependentCulled + o.ViewDependentCulled,
	}
}

func (s Statistics) Sub(o Statistics) Statistics {
	return Statistics{
		Tested:              s.Tested - o.Tested,
		Rendered:            s.Rendered - o.Rendered,
		Culled:              s.Culled - o.Culled,
		BackfaceCulled:      s.BackfaceCulled - o.BackfaceCulled,
		DegenerateCulled:    s.DegenerateCulled - o.DegenerateCulled,
		SmallCulled:         s.SmallCulled - o.SmallCulled,
		ViewDependentCulled: s.ViewDependentCulled - o.ViewDependentCulled,
	}
}

// Culler rejects individual triangles of objects that passed object level
// culling. A triangle is culled when any enabled method culls it.
type Culler struct {
	config Config
	stats  Statistics
	frames int
}

func NewCuller(c Config) *Culler {
	return &Culler{config: c}
}

func (c *Culler) Config() Config {
	return c.config
}

func (c *Culler) UpdateConfig(cfg Config) {
	c.config = cfg
}

// Backface reports whether the triangle faces away from the camera.
func (c *Culler) Backface(t Triangle, cameraPos mgl32.Vec3) bool {
	toCamera := geometry.Normalize(cameraPos.Sub(t.Vertices[0]))
	return t.FaceNormal().Dot(toCamera) <= c.config.BackfaceEpsilon
}

// Degenerate reports whether the triangle is collapsed or too small in world
// space.
func (c *Culler) Degenerate(t Triangle) bool {
	area := t.Area()
	return area < c.config.DegenerateEpsilon || area < c.config.MinWorldArea
}

// Small reports whether the triangle covers less than the minimum number of
// pixels once projected. Triangles with a vertex behind the near plane, or
// without a viewport to project onto, are never culled.
func (c *Culler) Small(t Triangle, viewProj mgl32.Mat4, viewport mgl32.Vec2) bool {
	if viewport[0] <= 0 || viewport[1] <= 0 {
		return false
	}

	var screen [3]mgl32.Vec2
	for i, v := range t.Vertices {
		clip := viewProj.Mul4x1(v.Vec4(1))
		w := clip.W()
		if w <= 0 || clip.Z() < -w || !geometry.IsFinite(w) || !geometry.IsFiniteVec3(clip.Vec3()) {
			return false
		}

		screen[i] = mgl32.Vec2{
			(clip.X()/w + 1) * 0.5 * viewport[0],
			(1 - clip.Y()/w) * 0.5 * viewport[1],
		}
	}

	e1 := screen[1].Sub(screen[0])
	e2 := screen[2].Sub(screen[0])
	area := float32(math.Abs(float64(e1[0]*e2[1]-e1[1]*e2[0]))) * 0.5
	return area < c.config.MinTriangleArea
}

// ViewDependent reports whether the triangle is too far from the camera or
// seen edge-on.
func (c *Culler) ViewDependent(t Triangle, cameraPos, viewDir mgl32.Vec3) bool {
	if c.config.MaxDistance > 0 && t.Center().Sub(cameraPos).Len() > c.config.MaxDistance {
		return true
	}

	if c.config.AngleThreshold <= 0 {
		return false
	}

	dir := geometry.Normalize(viewDir)
	if dir.Len() == 0 {
		return false
	}
	cos := float32(math.Abs(float64(dir.Dot(t.FaceNormal()))))
	return cos < c.config.AngleThreshold
}

// Evaluate runs every enabled method on the triangle without recording
// statistics.
func (c *Culler) Evaluate(t Triangle, v View) Decision {
	if !c.config.Enabled {
		return Decision{}
	}

	var d Decision
	m := c.config.Methods
	if m.Has(Backface) && c.Backface(t, v.CameraPosition) {
		d.By |= Backface
	}
	if m.Has(Degenerate) && c.Degenerate(t) {
		d.By |= Degenerate
	}
	if m.Has(Small) && c.Small(t, v.ViewProjection, v.Viewport) {
		d.By |= Small
	}
	if m.Has(ViewDependent) && c.ViewDependent(t, v.CameraPosition, v.ViewDirection) {
		d.By |= ViewDependent
	}

	d.Culled = d.By != 0
	return d
}

// Record accumulates a decision into the statistics. Every method that culled
// the triangle is counted, while the triangle itself is counted once.
func (c *Culler) Record(d Decision) {
	c.stats.Tested++
	if !d.Culled {
		c.stats.Rendered++
		return
	}

	c.stats.Culled++
	if d.By.Has(Backface) {
		c.stats.BackfaceCulled++
	}
	if d.By.Has(Degenerate) {
		c.stats.DegenerateCulled++
	}
	if d.By.Has(Small) {
		c.stats.SmallCulled++
	}
	if d.By.Has(ViewDependent) {
		c.stats.ViewDependentCulled++
	}
}

// ShouldCull evaluates the triangle, records the decision and reports whether
// the triangle must be skipped.
func (c *Culler) ShouldCull(t Triangle, v View) bool {
	if !c.config.Enabled {
		return false
	}

	d := c.Evaluate(t, v)
	c.Record(d)
	return d.Culled
}

// Cull returns the triangles that must be rendered.
func (c *Culler) Cull(triangles []Triangle, v View) []Triangle {
	rendered := make([]Triangle, 0, len(triangles))
	for _, t := range triangles {
		if !c.ShouldCull(t, v) {
			rendered = append(rendered, t)
		}
	}
	return rendered
}

// EndFrame marks the end of a frame. When debug logging is enabled, a summary
// of the statistics is logged every LogIntervalFrames frames and the
// statistics are reset.
func (c *Culler) EndFrame() {
	c.frames++
	if !c.config.DebugLogging || c.config.LogIntervalFrames <= 0 {
		return
	}
	if c.frames%c.config.LogIntervalFrames != 0 {
		return
	}

	s := c.stats
	logs.WithTag("frames", c.frames).
		WithTag("tested", s.Tested).
		WithTag("rendered", s.Rendered).
		WithTag("culled", s.Culled).
		WithTag("backface_culled", s.BackfaceCulled).
		WithTag("degenerate_culled", s.DegenerateCulled).
		WithTag("small_culled", s.SmallCulled).
		WithTag("view_dependent_culled", s.ViewDependentCulled).
		WithTag("efficiency", s.Efficiency()).
		Info("triangle culling summary")
	c.ResetStatistics()
}

func (c *Culler) Statistics() Statistics {
	return c.stats
}

func (c *Culler) ResetStatistics() {
	c.stats = Statistics{}
}
