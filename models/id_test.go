package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequentialIDGenerator(t *testing.T) {
	t.Run("ids start at 1", func(t *testing.T) {
		var ids SequentialIDGenerator
		for i := uint32(1); i <= 3; i++ {
			require.Equal(t, i, ids.New())
		}
	})

	t.Run("released ids are reused lowest first", func(t *testing.T) {
		var ids SequentialIDGenerator
		for i := 0; i < 6; i++ {
			ids.New()
		}

		ids.Reuse(5)
		ids.Reuse(2)
		ids.Reuse(2)

		require.Equal(t, uint32(2), ids.New())
		require.Equal(t, uint32(5), ids.New())
		require.Equal(t, uint32(7), ids.New())
	})
}
