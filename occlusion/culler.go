package occlusion

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vantage3d/vantage/geometry"
)

// QueryResult is the outcome of an occlusion query.
type QueryResult int

const (
	Visible QueryResult = iota
	Occluded
	Degenerate
	BeyondRange
	Offscreen
	Disabled
)

func (r QueryResult) String() string {
	switch r {
	case Visible:
		return "visible"
	case Occluded:
		return "occluded"
	case Degenerate:
		return "degenerate"
	case BeyondRange:
		return "beyond_range"
	case Offscreen:
		return "offscreen"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Statistics are the counters accumulated by a culler since its last reset.
type Statistics struct {
	OccludersRegistered   int     `json:"occluders_registered"`
	OccludersSkipped      int     `json:"occluders_skipped"`
	Tested                int     `json:"tested"`
	Occluded              int     `json:"occluded"`
	Visible               int     `json:"visible"`
	Degenerate            int     `json:"degenerate"`
	BeyondRange           int     `json:"beyond_range"`
	Offscreen             int     `json:"offscreen"`
	DepthBufferResolution int     `json:"depth_buffer_resolution"`
	DepthBufferUsage      float32 `json:"depth_buffer_usage"`
}

// Culler rasterizes occluder bounds into a depth buffer and tests object
// bounds against it.
//
// Every occluder of a frame must be added before the first query of that
// frame. AddOccluder must not run concurrently with anything else, while Query
// is a pure read and can be called from several goroutines.
type Culler struct {
	config Config
	buffer *DepthBuffer
	stats  Statistics
}

func NewCuller(c Config) *Culler {
	res := c.DepthBufferResolution
	if res <= 0 {
		res = DefaultConfig().DepthBufferResolution
	}

	return &Culler{
		config: c,
		buffer: NewDepthBuffer(res, res),
	}
}

func (c *Culler) Config() Config {
	return c.config
}

// UpdateConfig replaces the culler configuration. The depth buffer is only
// reallocated when the resolution changes.
func (c *Culler) UpdateConfig(cfg Config) {
	if cfg.DepthBufferResolution > 0 && cfg.DepthBufferResolution != c.buffer.Width() {
		c.buffer = NewDepthBuffer(cfg.DepthBufferResolution, cfg.DepthBufferResolution)
		logs.WithTag("resolution", cfg.DepthBufferResolution).
			Debug("occlusion depth buffer resized")
	}
	c.config = cfg
}

func (c *Culler) DepthBuffer() *DepthBuffer {
	return c.buffer
}

// Clear resets the depth buffer. It must be called once per frame before
// registering occluders.
func (c *Culler) Clear() {
	c.buffer.Clear()
}

// IsOccluderCandidate reports whether bounds are large enough to be
// registered as an occluder.
func (c *Culler) IsOccluderCandidate(bounds geometry.Aabb) bool {
	return bounds.Size().Len() > c.config.MinOccluderSize
}

// AddOccluder writes the nearest depth of the projected bounds into every
// depth buffer cell covered by their screen rectangle. Bounds that cannot be
// projected, project to an empty area or are offscreen are skipped and false
// is returned.
func (c *Culler) AddOccluder(bounds geometry.Aabb, viewProj mgl32.Mat4) bool {
	rect, err := project(bounds, viewProj)
	if err != nil {
		c.stats.OccludersSkipped++
		logs.WithTag("reason", errors.Type(err)).Debug("occluder skipped")
		return false
	}
	if rect.offscreen() {
		c.stats.OccludersSkipped++
		return false
	}

	x0, y0, x1, y1 := rect.cells(c.buffer.Width(), c.buffer.Height())
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c.buffer.Write(x, y, rect.nearest)
		}
	}

	c.stats.OccludersRegistered++
	return true
}

// Query tests bounds against the depth buffer without recording statistics.
func (c *Culler) Query(bounds geometry.Aabb, viewProj mgl32.Mat4) QueryResult {
	if !c.config.Enabled {
		return Disabled
	}

	rect, err := project(bounds, viewProj)
	if err != nil {
		return Degenerate
	}
	if rect.offscreen() {
		return Offscreen
	}
	if c.config.MaxTestDistance > 0 && rect.nearest > c.config.MaxTestDistance {
		return BeyondRange
	}

	threshold := rect.nearest - c.config.DepthBias
	x0, y0, x1, y1 := rect.cells(c.buffer.Width(), c.buffer.Height())

	occluded := true
	sampleCells(x0, y0, x1, y1, c.config.SampleCount, func(x, y int) bool {
		depth, _ := c.buffer.Depth(x, y)
		if depth >= threshold {
			occluded = false
			return false
		}
		return true
	})

	if occluded {
		return Occluded
	}
	return Visible
}

// Record accumulates the result of a query into the statistics.
func (c *Culler) Record(r QueryResult) {
	switch r {
	case Disabled:
		return
	case Occluded:
		c.stats.Occluded++
	case Visible:
		c.stats.Visible++
	case Degenerate:
		c.stats.Degenerate++
	case BeyondRange:
		c.stats.BeyondRange++
	case Offscreen:
		c.stats.Offscreen++
	}
	c.stats.Tested++
}

// IsOccluded queries bounds, records the result and reports whether the
// object is hidden by registered occluders. Every result other than Occluded
// means the object must be drawn.
func (c *Culler) IsOccluded(bounds geometry.Aabb, viewProj mgl32.Mat4) bool {
	r := c.Query(bounds, viewProj)
	c.Record(r)
	return r == Occluded
}

func (c *Culler) Statistics() Statistics {
	stats := c.stats
	stats.DepthBufferResolution = c.buffer.Width()
	stats.DepthBufferUsage = c.buffer.Coverage()
	return stats
}

func (c *Culler) ResetStatistics() {
	c.stats = Statistics{}
}

// screenRect is the normalized device coordinates rectangle covered by
// projected bounds, with the nearest clip space w of their corners.
type screenRect struct {
	min     mgl32.Vec2
	max     mgl32.Vec2
	nearest float32
}

func project(bounds geometry.Aabb, viewProj mgl32.Mat4) (screenRect, error) {
	rect := screenRect{
		min:     mgl32.Vec2{math.MaxFloat32, math.MaxFloat32},
		max:     mgl32.Vec2{-math.MaxFloat32, -math.MaxFloat32},
		nearest: math.MaxFloat32,
	}

	for _, corner := range bounds.Corners() {
		clip := viewProj.Mul4x1(corner.Vec4(1))
		w := clip.W()

		if !geometry.IsFinite(w) || !geometry.IsFiniteVec3(clip.Vec3()) || w <= 0 {
			return screenRect{}, errors.New("bounds corner behind the camera").
				WithType(ErrTypeDegenerateProjection).
				WithTag("corner", corner).
				WithTag("w", w)
		}

		x := clip.X() / w
		y := clip.Y() / w
		rect.min[0] = float32(math.Min(float64(rect.min[0]), float64(x)))
		rect.min[1] = float32(math.Min(float64(rect.min[1]), float64(y)))
		rect.max[0] = float32(math.Max(float64(rect.max[0]), float64(x)))
		rect.max[1] = float32(math.Max(float64(rect.max[1]), float64(y)))
		rect.nearest = float32(math.Min(float64(rect.nearest), float64(w)))
	}

	if rect.max[0] <= rect.min[0] || rect.max[1] <= rect.min[1] {
		return screenRect{}, errors.New("bounds project to an empty screen area").
			WithType(ErrTypeDegenerateProjection).
			WithTag("min", rect.min).
			WithTag("max", rect.max)
	}
	return rect, nil
}

func (r screenRect) offscreen() bool {
	return r.max[0] < -1 || r.min[0] > 1 || r.max[1] < -1 || r.min[1] > 1
}

// cells returns the inclusive cell range covered by the rectangle in a grid
// of the given size. Row 0 maps to the top of the screen.
func (r screenRect) cells(width, height int) (x0, y0, x1, y1 int) {
	x0 = ndcToCell(r.min[0], width)
	x1 = ndcToCell(r.max[0], width)
	y0 = ndcToCell(-r.max[1], height)
	y1 = ndcToCell(-r.min[1], height)
	return x0, y0, x1, y1
}

func ndcToCell(v float32, size int) int {
	v = mgl32.Clamp(v, -1, 1)
	cell := int(math.Floor(float64((v + 1) * 0.5 * float32(size))))
	if cell >= size {
		cell = size - 1
	}
	if cell < 0 {
		cell = 0
	}
	return cell
}

// sampleCells calls fn on the cells of the inclusive range. When count is
// positive and lower than the number of cells, a stratified grid of count
// cells is visited instead. Iteration stops when fn returns false.
func sampleCells(x0, y0, x1, y1, count int, fn func(x, y int) bool) {
	width := x1 - x0 + 1
	height := y1 - y0 + 1

	if count <= 0 || count >= width*height {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if !fn(x, y) {
					return
				}
			}
		}
		return
	}

	k := int(math.Ceil(math.Sqrt(float64(count))))
	visited := 0
	for j := 0; j < k; j++ {
		y := y0 + int((float32(j)+0.5)*float32(height)/float32(k))
		for i := 0; i < k; i++ {
			if visited == count {
				return
			}
			x := x0 + int((float32(i)+0.5)*float32(width)/float32(k))
			if !fn(x, y) {
				return
			}
			visited++
		}
	}
}
