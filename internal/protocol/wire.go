package protocol

import "voxelrealm/internal/chunkmgr"

// ChunkSnapshotWireEntity and the two wire envelopes below are the
// JSON shapes actually put on the wire for chunk_snapshot/chunk_delta;
// chunkmgr's payload types carry the same information keyed by
// spatial.Key rather than the wire ChunkKey form, so this package
// (which owns the wire contract) does the translation.
type ChunkSnapshotWireEntity struct {
	ID        string `json:"id"`
	Contracts any    `json:"contracts"`
}

type ChunkSnapshotWire struct {
	Type     string                    `json:"type"`
	ChunkKey ChunkKey                  `json:"chunkKey"`
	Entities []ChunkSnapshotWireEntity `json:"entities"`
	Version  uint64                    `json:"version"`
	Digest   uint64                    `json:"digest"`
}

type ChunkDeltaWire struct {
	Type     string       `json:"type"`
	ChunkKey ChunkKey     `json:"chunkKey"`
	Delta    ChunkDeltaOp `json:"delta"`
	Version  uint64       `json:"version"`
	Digest   uint64       `json:"digest"`
}

type ChunkDeltaOp struct {
	Type      string `json:"type"`
	EntityID  string `json:"entityId"`
	Contracts any    `json:"contracts,omitempty"`
}

func chunkKeyFromSpatial(layerID string, cx, cy, cz int) ChunkKey {
	return ChunkKey{LayerID: layerID, CX: cx, CY: cy, CZ: cz}
}

// ToWireSnapshot converts a chunkmgr snapshot payload into the JSON shape
// clients expect on a chunk_snapshot message.
func ToWireSnapshot(p chunkmgr.ChunkSnapshotPayload) ChunkSnapshotWire {
	entities := make([]ChunkSnapshotWireEntity, 0, len(p.Entities))
	for _, e := range p.Entities {
		entities = append(entities, ChunkSnapshotWireEntity{ID: e.ID, Contracts: e.Contracts})
	}
	return ChunkSnapshotWire{
		Type:     TypeChunkSnapshot,
		ChunkKey: chunkKeyFromSpatial(p.ChunkKey.LayerID, p.ChunkKey.CX, p.ChunkKey.CY, p.ChunkKey.CZ),
		Entities: entities,
		Version:  p.Version,
		Digest:   p.Digest,
	}
}

// ToWireDelta converts a chunkmgr delta payload into the JSON shape
// clients expect on a chunk_delta message.
func ToWireDelta(p chunkmgr.ChunkDeltaPayload) ChunkDeltaWire {
	return ChunkDeltaWire{
		Type:     TypeChunkDelta,
		ChunkKey: chunkKeyFromSpatial(p.ChunkKey.LayerID, p.ChunkKey.CX, p.ChunkKey.CY, p.ChunkKey.CZ),
		Delta: ChunkDeltaOp{
			Type:      string(p.Delta.Kind),
			EntityID:  p.Delta.EntityID,
			Contracts: p.Delta.Contracts,
		},
		Version: p.Version,
		Digest:  p.Digest,
	}
}
