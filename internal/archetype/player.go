package archetype

import (
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

// baseCommands is the default command_access allow-list granted to
// every freshly spawned player.
var baseCommands = []any{
	"logout", "move", "move_dir", "set_view", "subscribe_chunks",
	"unsubscribe_chunks", "add_contract", "remove_contract", "interact",
}

func playerComponents(pos spatial.Vec3) []store.Component {
	return []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "player"}},
		{Kind: store.KindMobility, Fields: map[string]any{
			"position": map[string]any{"x": pos.X, "y": pos.Y, "z": pos.Z},
		}},
		{Kind: store.KindShape, Fields: map[string]any{
			"min":      map[string]any{"x": -0.3, "y": 0.0, "z": -0.3},
			"max":      map[string]any{"x": 0.3, "y": 1.8, "z": 0.3},
			"geometry": "box",
		}},
		{Kind: store.KindSolidity, Fields: map[string]any{"solid": true}},
		{Kind: store.KindVisual, Fields: map[string]any{"model": "player"}},
		{Kind: store.KindInventory, Fields: map[string]any{"capacity": 10.0}},
		{Kind: store.KindDurability, Fields: map[string]any{"health": 100.0, "maxHealth": 100.0}},
		{Kind: store.KindMovementRules, Fields: map[string]any{
			"stepDistance": 1.0, "allowDiagonal": true, "diagonalNormalized": true,
		}},
		{Kind: store.KindCommandAccess, Fields: map[string]any{"commands": baseCommands}},
		{Kind: store.KindContractLimit, Fields: map[string]any{"entrance": 5.0, "portable": 3.0}},
	}
}

// spawnPlayer builds the standard player component set and creates
// the entity.
func (s *Spawner) spawnPlayer(layerID string, pos spatial.Vec3, overrides Overrides) (string, error) {
	id := freshID(PlayerArchetypeID)
	components := playerComponents(pos)
	for i, c := range components {
		if ov, ok := overrides[c.Kind]; ok {
			components[i] = c.Merge(ov)
		}
	}
	if err := s.store.Create(id, components); err != nil {
		return "", err
	}
	s.layers.SetEntityLayer(id, layerID)
	return id, nil
}
