package featureflag

type Flag string

const (
	FlagDisableFrustumCulling   Flag = "DISABLE_FRUSTUM_CULLING"
	FlagDisableOcclusionCulling Flag = "DISABLE_OCCLUSION_CULLING"
	FlagDisableTriangleCulling  Flag = "DISABLE_TRIANGLE_CULLING"
	FlagSphereCulling           Flag = "SPHERE_CULLING"
	FlagParallelVisibility      Flag = "PARALLEL_VISIBILITY"
)

var knownFlags = map[Flag]struct{}{
	FlagDisableFrustumCulling:   {},
	FlagDisableOcclusionCulling: {},
	FlagDisableTriangleCulling:  {},
	FlagSphereCulling:           {},
	FlagParallelVisibility:      {},
}

// IsKnown reports whether the flag toggles a feature of this server.
func IsKnown(f Flag) bool {
	_, ok := knownFlags[f]
	return ok
}
