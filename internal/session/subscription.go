package session

import (
	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/movement"
	"voxelrealm/internal/protocol"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

// playerLocation resolves the world position and layer a bound
// session's player currently occupies.
func (m *Manager) playerLocation(sess *Session) (spatial.Vec3, layer.Layer, bool) {
	if !sess.Bound() {
		return spatial.Vec3{}, layer.Layer{}, false
	}
	mob := m.store.Get(sess.PlayerID, store.KindMobility)
	if mob == nil {
		return spatial.Vec3{}, layer.Layer{}, false
	}
	parsed, ok := movement.ParseMobility(mob)
	if !ok {
		return spatial.Vec3{}, layer.Layer{}, false
	}
	layerID, _ := m.layers.EntityLayer(sess.PlayerID)
	if layerID == "" {
		layerID = layer.DefaultLayerID
	}
	l, ok := m.layers.Get(layerID)
	if !ok {
		return spatial.Vec3{}, layer.Layer{}, false
	}
	return parsed.Position, l, true
}

// desiredChunks computes the chunk neighborhood of the player's
// current cell at radius max(0, ceil(viewRadius/chunkSize)).
func (m *Manager) desiredChunks(sess *Session) map[protocol.ChunkKey]struct{} {
	out := map[protocol.ChunkKey]struct{}{}
	pos, l, ok := m.playerLocation(sess)
	if !ok {
		return out
	}
	for _, k := range spatial.ChunksInRadius(l.ID, pos, l.ChunkSize, sess.ViewRadius) {
		out[fromSpatialKey(k)] = struct{}{}
	}
	return out
}

// snapshotEntities lists every entity in key as chunkmgr.SnapshotEntity
// values carrying that entity's full contract set.
func (m *Manager) snapshotEntities(key spatial.Key) []chunkmgr.SnapshotEntity {
	ids := m.chunks.EntitiesIn(key)
	out := make([]chunkmgr.SnapshotEntity, 0, len(ids))
	for _, id := range ids {
		out = append(out, chunkmgr.SnapshotEntity{ID: id, Contracts: m.store.All(id)})
	}
	return out
}

// refreshSubscriptions diffs sess's current subscription set against
// its desired one and applies the delta: unsubscribe from
// (current - desired), subscribe to (desired - current), snapshotting
// every newly added chunk.
func (m *Manager) refreshSubscriptions(sess *Session) {
	desired := m.desiredChunks(sess)

	for k := range sess.subs {
		if _, keep := desired[k]; !keep {
			m.chunks.Unsubscribe(toSpatialKey(k), sess.ID)
			delete(sess.subs, k)
		}
	}
	for k := range desired {
		if _, have := sess.subs[k]; have {
			continue
		}
		sk := toSpatialKey(k)
		// Load before snapshotting: a chunk touched here for the first
		// time may still owe its one-time procedural generation, and
		// the snapshot handed to Subscribe must include whatever that
		// generates.
		m.chunks.Load(sk)
		m.chunks.Subscribe(sk, sess, m.snapshotEntities(sk))
		sess.subs[k] = struct{}{}
	}
}
