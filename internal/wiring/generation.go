package wiring

import (
	"fmt"
	"time"

	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

// worldBlockGenerationHook implements the reference procedural
// generation policy: every chunk at vertical index 0 whose horizontal
// coordinates are both multiples of 4 gets one solid entity at the
// chunk's center, plus a solid voxel in the same spot on the chunk's
// static occupancy grid. chunkmgr.Manager.Load only ever invokes the
// hook once per key, so this never needs its own idempotency check.
func worldBlockGenerationHook(st *store.Store, layers *layer.Registry) chunkmgr.GenerationHook {
	return func(key spatial.Key, chunk *chunkmgr.Chunk) {
		if key.CY != 0 || key.CX%4 != 0 || key.CZ%4 != 0 {
			return
		}

		chunkSize := 32.0
		if l, ok := layers.Get(key.LayerID); ok {
			chunkSize = l.ChunkSize
		}
		origin := spatial.ChunkToWorld(key.CX, key.CY, key.CZ, chunkSize)
		center := spatial.Vec3{
			X: origin.X + chunkSize/2,
			Y: origin.Y + spatial.ChunkHeight/2,
			Z: origin.Z + chunkSize/2,
		}

		id := fmt.Sprintf("worldblock-%s-%d-%d-%d", key.LayerID, key.CX, key.CY, key.CZ)
		components := []store.Component{
			{Kind: store.KindIdentity, Fields: map[string]any{"name": "world block"}},
			{Kind: store.KindMobility, Fields: map[string]any{"position": vec3Fields(center)}},
			{Kind: store.KindShape, Fields: map[string]any{
				"min":      vec3Fields(spatial.Vec3{X: -0.5, Y: -0.5, Z: -0.5}),
				"max":      vec3Fields(spatial.Vec3{X: 0.5, Y: 0.5, Z: 0.5}),
				"geometry": "box",
			}},
			{Kind: store.KindVisual, Fields: map[string]any{"material": "stone"}},
			{Kind: store.KindSolidity, Fields: map[string]any{"solid": true}},
		}
		if err := st.Create(id, components); err != nil {
			// Already created by an earlier boot's generation, restored
			// from a snapshot — nothing left to do.
			return
		}
		layers.SetEntityLayer(id, key.LayerID)

		chunk.Members[id] = struct{}{}
		chunk.LastModified = time.Now()
		chunk.Version++

		if chunk.Grid == nil {
			return
		}
		res := chunk.Grid.Resolution()
		gx, gy, gz := chunkmgr.WorldToGrid(chunkSize/2, spatial.ChunkHeight/2, chunkSize/2, chunkSize, spatial.ChunkHeight, res)
		chunk.Grid.SetSolid(gx, gy, gz, true)
	}
}

func vec3Fields(v spatial.Vec3) map[string]any {
	return map[string]any{"x": v.X, "y": v.Y, "z": v.Z}
}
