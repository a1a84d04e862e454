package archetype

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voxelrealm/internal/layer"
	"voxelrealm/internal/schema"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

func newTestSpawner(t *testing.T) (*Spawner, *Catalog, *store.Store) {
	t.Helper()
	reg, err := schema.New()
	require.NoError(t, err)
	st := store.New(reg)
	catalog := NewCatalog()
	layers := layer.NewRegistry()
	return NewSpawner(catalog, st, layers), catalog, st
}

func TestSpawnClonesTemplateAndSetsPosition(t *testing.T) {
	spawner, catalog, st := newTestSpawner(t)
	catalog.Define(Archetype{ID: "torch", Components: []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "torch"}},
		{Kind: store.KindMobility, Fields: map[string]any{
			"position": map[string]any{"x": 0.0, "y": 0.0, "z": 0.0},
		}},
	}})

	id, err := spawner.Spawn("torch", "default", spatial.Vec3{X: 5, Y: 1, Z: 2}, nil)
	require.NoError(t, err)
	require.True(t, st.Exists(id))

	mob := st.Get(id, store.KindMobility)
	require.NotNil(t, mob)
	pos := mob.Fields["position"].(map[string]any)
	require.Equal(t, 5.0, pos["x"])
	require.Equal(t, 1.0, pos["y"])
	require.Equal(t, 2.0, pos["z"])
}

func TestSpawnAppliesOverridesToRecognizedKinds(t *testing.T) {
	spawner, catalog, st := newTestSpawner(t)
	catalog.Define(Archetype{ID: "chest", Components: []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "chest"}},
		{Kind: store.KindMobility, Fields: map[string]any{
			"position": map[string]any{"x": 0.0, "y": 0.0, "z": 0.0},
		}},
	}})

	id, err := spawner.Spawn("chest", "default", spatial.Vec3{}, Overrides{
		store.KindIdentity: {"name": "golden chest"},
	})
	require.NoError(t, err)
	identity := st.Get(id, store.KindIdentity)
	name, _ := identity.String("name")
	require.Equal(t, "golden chest", name)
}

func TestSpawnUnknownArchetypeFails(t *testing.T) {
	spawner, _, _ := newTestSpawner(t)
	_, err := spawner.Spawn("nonexistent", "default", spatial.Vec3{}, nil)
	require.Error(t, err)
}

func TestSpawnPlayerBuildsStandardSet(t *testing.T) {
	spawner, _, st := newTestSpawner(t)
	id, err := spawner.Spawn(PlayerArchetypeID, "default", spatial.Vec3{X: 1, Y: 2, Z: 3}, nil)
	require.NoError(t, err)

	for _, kind := range []string{
		store.KindIdentity, store.KindMobility, store.KindShape, store.KindVisual,
		store.KindInventory, store.KindDurability, store.KindMovementRules,
		store.KindCommandAccess, store.KindContractLimit,
	} {
		require.NotNil(t, st.Get(id, kind), "missing %s", kind)
	}

	durability := st.Get(id, store.KindDurability)
	h, _ := durability.Float("health")
	require.Equal(t, 100.0, h)
}

func TestSpawnRecordsEntityLayer(t *testing.T) {
	spawner, catalog, _ := newTestSpawner(t)
	catalog.Define(Archetype{ID: "rock", Components: []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "rock"}},
	}})
	id, err := spawner.Spawn("rock", "nether", spatial.Vec3{}, nil)
	require.NoError(t, err)

	require.Contains(t, []string{"nether"}, mustLayer(t, spawner, id))
}

func mustLayer(t *testing.T, s *Spawner, entityID string) string {
	t.Helper()
	id, ok := s.layers.EntityLayer(entityID)
	require.True(t, ok)
	return id
}
