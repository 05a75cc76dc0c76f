package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureFlag(t *testing.T) {
	f := New([]string{string(FlagSphereCulling)})

	t.Run("run if set", func(t *testing.T) {
		var sphere bool
		f.IfSet(FlagSphereCulling, func() {
			sphere = true
		})
		require.True(t, sphere)

		var parallel bool
		f.IfSet(FlagParallelVisibility, func() {
			parallel = true
		})
		require.False(t, parallel)
	})

	t.Run("run if not set", func(t *testing.T) {
		var sphere bool
		f.IfNotSet(FlagSphereCulling, func() {
			sphere = true
		})
		require.False(t, sphere)

		var parallel bool
		f.IfNotSet(FlagParallelVisibility, func() {
			parallel = true
		})
		require.True(t, parallel)
	})
}

func TestParse(t *testing.T) {
	f := Parse(" sphere_culling, DISABLE_TRIANGLE_CULLING,,TELEPORT ")
	require.Len(t, f, 3)
	require.True(t, f.Has(FlagSphereCulling))
	require.True(t, f.Has(FlagDisableTriangleCulling))
	require.Equal(t, []string{"DISABLE_TRIANGLE_CULLING", "SPHERE_CULLING", "TELEPORT"}, f.List())
	require.Equal(t, []string{"TELEPORT"}, f.Unknown())
}

func TestNewEmpty(t *testing.T) {
	f := New(nil)
	require.Empty(t, f.List())
	require.Empty(t, f.Unknown())
	require.False(t, f.Has(FlagParallelVisibility))
}
