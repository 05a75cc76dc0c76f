package pipeline

import (
	"github.com/aukilabs/go-tooling/pkg/logs"
)

func logSummary(frames int, s Statistics) {
	entry := logs.WithTag("frames", frames).
		WithTag("elements", s.Elements).
		WithTag("objects", s.Objects).
		WithTag("visible", s.Visible).
		WithTag("frustum_culled", s.FrustumCulled).
		WithTag("occlusion_culled", s.OcclusionCulled).
		WithTag("missing_bounds", s.MissingBounds).
		WithTag("invalid_transforms", s.InvalidTransforms).
		WithTag("occluders", s.Occlusion.OccludersRegistered).
		WithTag("triangles_tested", s.Triangles.Tested).
		WithTag("triangles_culled", s.Triangles.Culled).
		WithTag("duration", s.Duration.String())

	if s.Objects != 0 {
		entry = entry.WithTag("visible_ratio", float32(s.Visible)/float32(s.Objects))
	}
	entry.Info("culling summary")
}
