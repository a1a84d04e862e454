package spatial_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voxelrealm/internal/spatial"
)

func TestWorldToChunkBoundaries(t *testing.T) {
	k := spatial.WorldToChunk("default", spatial.Vec3{X: 32, Y: 256, Z: 32}, 32)
	require.Equal(t, spatial.Key{LayerID: "default", CX: 1, CY: 1, CZ: 1}, k)

	k = spatial.WorldToChunk("default", spatial.Vec3{X: -1, Y: -1, Z: -1}, 32)
	require.Equal(t, spatial.Key{LayerID: "default", CX: -1, CY: -1, CZ: -1}, k)
}

func TestIntersectingChunksNarrowStraddle(t *testing.T) {
	box := spatial.Box{Min: spatial.Vec3{X: -5, Y: 0, Z: -5}, Max: spatial.Vec3{X: 5, Y: 10, Z: 5}}
	got := spatial.IntersectingChunks("default", box, 32)
	require.Equal(t, []spatial.Key{{LayerID: "default", CX: 0, CY: 0, CZ: 0}}, got)
}

func TestIntersectingChunksFourCells(t *testing.T) {
	box := spatial.Box{Min: spatial.Vec3{X: 0, Y: 0, Z: 0}, Max: spatial.Vec3{X: 64, Y: 10, Z: 64}}
	got := spatial.IntersectingChunks("default", box, 32)
	require.Len(t, got, 4)
	for _, k := range got {
		require.Equal(t, 0, k.CY)
	}
}

func TestNeighbors(t *testing.T) {
	center := spatial.Key{LayerID: "default"}
	require.Len(t, spatial.Neighbors(center, 1), 27)
	require.Len(t, spatial.Neighbors(center, 0), 1)
}

func TestChunksInRadius(t *testing.T) {
	got := spatial.ChunksInRadius("default", spatial.Vec3{}, 32, 64)
	require.Len(t, got, 5*5*5)
}
