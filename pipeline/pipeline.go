package pipeline

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vantage3d/vantage/geometry"
	"github.com/vantage3d/vantage/models"
	"github.com/vantage3d/vantage/occlusion"
	"github.com/vantage3d/vantage/triangle"
	"golang.org/x/sync/errgroup"
)

// Statistics are the counters of one or several frames.
type Statistics struct {
	Frames   int           `json:"frames"`
	Elements int           `json:"elements"`
	Duration time.Duration `json:"duration"`

	// Objects are simple elements and mesh nodes of compound elements.
	Objects           int `json:"objects"`
	Visible           int `json:"visible"`
	FrustumCulled     int `json:"frustum_culled"`
	OcclusionCulled   int `json:"occlusion_culled"`
	MissingBounds     int `json:"missing_bounds"`
	InvalidTransforms int `json:"invalid_transforms"`

	Occlusion occlusion.Statistics `json:"occlusion"`
	Triangles triangle.Statistics  `json:"triangles"`
}

// Add returns the sum of both statistics. Depth buffer properties are the
// ones of o.
func (s Statistics) Add(o Statistics) Statistics {
	res := Statistics{
		Frames:            s.Frames + o.Frames,
		Elements:          s.Elements + o.Elements,
		Duration:          s.Duration + o.Duration,
		Objects:           s.Objects + o.Objects,
		Visible:           s.Visible + o.Visible,
		FrustumCulled:     s.FrustumCulled + o.FrustumCulled,
		OcclusionCulled:   s.OcclusionCulled + o.OcclusionCulled,
		MissingBounds:     s.MissingBounds + o.MissingBounds,
		InvalidTransforms: s.InvalidTransforms + o.InvalidTransforms,
		Triangles:         s.Triangles.Add(o.Triangles),
	}

	res.Occlusion = occlusion.Statistics{
		OccludersRegistered:   s.Occlusion.OccludersRegistered + o.Occlusion.OccludersRegistered,
		OccludersSkipped:      s.Occlusion.OccludersSkipped + o.Occlusion.OccludersSkipped,
		Tested:                s.Occlusion.Tested + o.Occlusion.Tested,
		Occluded:              s.Occlusion.Occluded + o.Occlusion.Occluded,
		Visible:               s.Occlusion.Visible + o.Occlusion.Visible,
		Degenerate:            s.Occlusion.Degenerate + o.Occlusion.Degenerate,
		BeyondRange:           s.Occlusion.BeyondRange + o.Occlusion.BeyondRange,
		Offscreen:             s.Occlusion.Offscreen + o.Occlusion.Offscreen,
		DepthBufferResolution: o.Occlusion.DepthBufferResolution,
		DepthBufferUsage:      o.Occlusion.DepthBufferUsage,
	}
	return res
}

// FrameResult is the outcome of a culling frame. The visibility of each
// element is written to the element itself.
type FrameResult struct {
	Frame      uint64     `json:"frame"`
	Statistics Statistics `json:"statistics"`
}

// Pipeline culls scene elements for a camera, frame after frame. It owns its
// depth buffer and statistics and must not be used by several goroutines at
// once.
type Pipeline struct {
	config    Config
	occlusion *occlusion.Culler
	triangles *triangle.Culler
	bounds    *boundsCache

	frame    uint64
	last     Statistics
	interval Statistics

	objects []object
	results []objectResult
}

type objectResult struct {
	visible bool
	reason  models.CullReason
	query   occlusion.QueryResult
}

func New(c Config) *Pipeline {
	return &Pipeline{
		config:    c,
		occlusion: occlusion.NewCuller(c.Occlusion),
		triangles: triangle.NewCuller(c.Triangle),
		bounds:    newBoundsCache(),
	}
}

func (p *Pipeline) Config() Config {
	return p.config
}

// UpdateConfig replaces the configuration used by the next frames.
func (p *Pipeline) UpdateConfig(c Config) {
	p.config = c
	p.occlusion.UpdateConfig(c.Occlusion)
	p.triangles.UpdateConfig(c.Triangle)
}

// Statistics returns the statistics of the last frame.
func (p *Pipeline) Statistics() Statistics {
	return p.last
}

// IntervalStatistics returns the statistics accumulated since the last
// periodic summary.
func (p *Pipeline) IntervalStatistics() Statistics {
	return p.interval
}

// RunFrame culls the elements for the camera. Passes run in a strict order:
// frustum extraction, occluder registration, visibility, triangles, and
// finally hiding culled elements through the renderer, which can be nil.
func (p *Pipeline) RunFrame(cam Camera, elements []*models.SceneElement, renderer models.InstanceRenderer) FrameResult {
	start := time.Now()
	p.frame++

	viewProj := cam.ViewProjection()
	frustum := geometry.FrustumFromViewProjection(viewProj)

	stats := Statistics{
		Frames:   1,
		Elements: len(elements),
	}

	p.objects = p.objects[:0]
	for i, e := range elements {
		for _, o := range p.bounds.objects(e, p.config.Frustum.DefaultObjectSize, p.frame) {
			o.element = i
			p.objects = append(p.objects, o)
		}
	}
	p.bounds.prune(p.frame)
	stats.Objects = len(p.objects)

	p.occlusion.ResetStatistics()
	if p.config.Occlusion.Enabled {
		p.registerOccluders(viewProj)
	}

	p.testVisibility(frustum, viewProj)
	p.applyVisibility(elements, &stats)

	trianglesBefore := p.triangles.Statistics()
	if p.config.Triangle.Enabled {
		p.cullTriangles(cam, viewProj, elements)
	}
	stats.Triangles = p.triangles.Statistics().Sub(trianglesBefore)
	p.triangles.EndFrame()

	if renderer != nil {
		p.hide(elements, renderer)
	}

	stats.Occlusion = p.occlusion.Statistics()
	stats.Duration = time.Since(start)
	p.last = stats
	instrumentFrame(stats)

	p.interval = p.interval.Add(stats)
	if p.config.LogIntervalFrames > 0 && p.frame%uint64(p.config.LogIntervalFrames) == 0 {
		if p.config.DebugLogging {
			logSummary(p.interval.Frames, p.interval)
		}
		p.interval = Statistics{}
	}

	return FrameResult{
		Frame:      p.frame,
		Statistics: stats,
	}
}

func (p *Pipeline) registerOccluders(viewProj mgl32.Mat4) {
	p.occlusion.Clear()
	for _, o := range p.objects {
		if o.invalidTransform || o.missingBounds {
			continue
		}
		if !p.occlusion.IsOccluderCandidate(o.world) {
			continue
		}
		p.occlusion.AddOccluder(o.world, viewProj)
	}
}

// testVisibility runs the frustum and occlusion tests on every object. The
// tests only read shared state, so objects are split between workers when
// more than one is configured. Occlusion statistics are recorded afterwards,
// in object order.
func (p *Pipeline) testVisibility(frustum geometry.Frustum, viewProj mgl32.Mat4) {
	n := len(p.objects)
	if cap(p.results) < n {
		p.results = make([]objectResult, n)
	}
	p.results = p.results[:n]

	test := func(from, to int) {
		for i := from; i < to; i++ {
			p.results[i] = p.testObject(p.objects[i], frustum, viewProj)
		}
	}

	workers := p.config.Workers
	if workers < 2 || n < 2*workers {
		test(0, n)
	} else {
		var g errgroup.Group
		g.SetLimit(workers)

		chunk := (n + workers - 1) / workers
		for from := 0; from < n; from += chunk {
			from, to := from, min(from+chunk, n)
			g.Go(func() error {
				test(from, to)
				return nil
			})
		}
		g.Wait()
	}

	for _, r := range p.results {
		p.occlusion.Record(r.query)
	}
}

func (p *Pipeline) testObject(o object, frustum geometry.Frustum, viewProj mgl32.Mat4) objectResult {
	if o.invalidTransform {
		return objectResult{visible: true, query: occlusion.Disabled}
	}

	if p.config.Frustum.Enabled {
		var res geometry.IntersectionResult
		if p.config.Frustum.UseSphereCulling {
			res = frustum.TestSphere(o.sphereCenter, o.sphereRadius)
		} else {
			res = frustum.TestAabb(o.world)
		}

		if res == geometry.Outside {
			return objectResult{reason: models.FrustumCulled, query: occlusion.Disabled}
		}
	}

	q := p.occlusion.Query(o.world, viewProj)
	if q == occlusion.Occluded {
		return objectResult{reason: models.OcclusionCulled, query: q}
	}
	return objectResult{visible: true, query: q}
}

// applyVisibility writes the object results to the elements. A compound
// element is visible when any of its nodes is.
func (p *Pipeline) applyVisibility(elements []*models.SceneElement, stats *Statistics) {
	for _, e := range elements {
		e.Visibility = models.Visibility{}
		if e.IsCompound() {
			e.Visibility.Nodes = make([]models.NodeVisibility, len(e.Nodes()))
		}
	}

	for i, o := range p.objects {
		r := p.results[i]
		e := elements[o.element]

		if o.missingBounds {
			stats.MissingBounds++
		}
		if o.invalidTransform {
			stats.InvalidTransforms++
		}

		switch r.reason {
		case models.FrustumCulled:
			stats.FrustumCulled++
		case models.OcclusionCulled:
			stats.OcclusionCulled++
		default:
			stats.Visible++
		}

		if o.node >= 0 {
			e.Visibility.Nodes[o.node] = models.NodeVisibility{
				Visible: r.visible,
				Reason:  r.reason,
			}
		}

		if r.visible {
			e.Visibility.Visible = true
			e.Visibility.Reason = models.NotCulled
		} else if !e.Visibility.Visible && e.Visibility.Reason != models.OcclusionCulled {
			e.Visibility.Reason = r.reason
		}
	}
}

func (p *Pipeline) cullTriangles(cam Camera, viewProj mgl32.Mat4, elements []*models.SceneElement) {
	view := triangle.View{
		CameraPosition: cam.Position,
		ViewDirection:  cam.Direction(),
		ViewProjection: viewProj,
		Viewport:       cam.Viewport,
	}

	for i, o := range p.objects {
		if !p.results[i].visible || o.invalidTransform {
			continue
		}

		var local []triangle.Triangle
		if o.mesh != nil {
			local = o.mesh.Triangles()
		} else {
			local = triangle.FromAabb(o.local)
		}

		e := elements[o.element]
		for _, t := range local {
			if p.triangles.ShouldCull(t.Transform(o.matrix), view) {
				e.Visibility.TrianglesCulled++
			} else {
				e.Visibility.TrianglesRendered++
			}
		}
	}
}

// hide applies the configured hide method to culled elements and restores
// visible ones.
func (p *Pipeline) hide(elements []*models.SceneElement, renderer models.InstanceRenderer) {
	for _, e := range elements {
		if e.Visibility.Visible {
			renderer.SetEmissiveMultiplier(e.Instance, p.config.EmissiveMultiplier)
			renderer.SetInstanceTransform(e.Instance, e.Transform.Matrix())
			continue
		}

		renderer.SetEmissiveMultiplier(e.Instance, 0)

		switch p.config.Frustum.CullingMethod {
		case HideMoveAway:
			t := e.Transform
			d := p.config.MoveAwayDistance
			t.Position = mgl32.Vec3{d, d, d}
			renderer.SetInstanceTransform(e.Instance, t.Matrix())

		case HideScaleToZero:
			t := e.Transform
			t.Scale = mgl32.Vec3{}
			renderer.SetInstanceTransform(e.Instance, t.Matrix())

		case HideEmissiveMultiplier:

		default:
			logs.WithTag("culling_method", int(p.config.Frustum.CullingMethod)).
				Debug("unknown culling method")
		}
	}
}
