package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	passLabel   = "pass"
	methodLabel = "method"
	reasonLabel = "reason"
)

var (
	cullingFrameCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "culling_frame_count_total",
		Help: "The total number of culled frames.",
	})

	cullingObjectCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "culling_object_count_total",
		Help: "The total number of objects tested for visibility.",
	})

	cullingObjectCulledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "culling_object_culled_total",
		Help: "The total number of objects culled, by pass.",
	}, []string{passLabel})

	cullingFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "culling_fallback_total",
		Help: "The total number of objects tested with fallback data or kept visible without test.",
	}, []string{reasonLabel})

	cullingTriangleCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "culling_triangle_count_total",
		Help: "The total number of triangles tested.",
	})

	cullingTriangleCulledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "culling_triangle_culled_total",
		Help: "The total number of triangles culled, by method. A triangle culled by several methods is counted for each of them.",
	}, []string{methodLabel})

	cullingFrameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "culling_frame_duration_seconds",
		Help:    "The time spent culling a frame.",
		Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
	})

	cullingDepthBufferUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "culling_depth_buffer_usage",
		Help: "The fraction of depth buffer cells covered by occluders during the last frame.",
	})
)

func instrumentFrame(s Statistics) {
	cullingFrameCountTotal.Inc()
	cullingObjectCountTotal.Add(float64(s.Objects))

	cullingObjectCulledTotal.
		With(prometheus.Labels{passLabel: "frustum"}).
		Add(float64(s.FrustumCulled))
	cullingObjectCulledTotal.
		With(prometheus.Labels{passLabel: "occlusion"}).
		Add(float64(s.OcclusionCulled))

	cullingFallbackTotal.
		With(prometheus.Labels{reasonLabel: "missing_bounds"}).
		Add(float64(s.MissingBounds))
	cullingFallbackTotal.
		With(prometheus.Labels{reasonLabel: "invalid_transform"}).
		Add(float64(s.InvalidTransforms))

	cullingTriangleCountTotal.Add(float64(s.Triangles.Tested))
	cullingTriangleCulledTotal.
		With(prometheus.Labels{methodLabel: "backface"}).
		Add(float64(s.Triangles.BackfaceCulled))
	cullingTriangleCulledTotal.
		With(prometheus.Labels{methodLabel: "degenerate"}).
		Add(float64(s.Triangles.DegenerateCulled))
	cullingTriangleCulledTotal.
		With(prometheus.Labels{methodLabel: "small"}).
		Add(float64(s.Triangles.SmallCulled))
	cullingTriangleCulledTotal.
		With(prometheus.Labels{methodLabel: "view_dependent"}).
		Add(float64(s.Triangles.ViewDependentCulled))

	cullingFrameDuration.Observe(s.Duration.Seconds())
	cullingDepthBufferUsage.Set(float64(s.Occlusion.DepthBufferUsage))
}
