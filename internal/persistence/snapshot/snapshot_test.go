package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"voxelrealm/internal/archetype"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/schema"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	reg, err := schema.New()
	require.NoError(t, err)

	st := store.New(reg)
	layers := layer.NewRegistry()
	catalog := archetype.NewCatalog()

	require.NoError(t, layers.Create(&layer.Layer{ID: "nether", Name: "Nether", ChunkSize: 16, Gravity: -9.81, Spawn: spatial.Vec3{X: 1, Y: 2, Z: 3}}))
	catalog.Define(archetype.Archetype{ID: "torch", Components: []store.Component{
		{Kind: store.KindVisual, Fields: map[string]any{"model": "torch"}},
	}})

	require.NoError(t, st.Create("player-1", []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "alice"}},
		{Kind: store.KindMobility, Fields: map[string]any{"position": map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}, "velocity": map[string]any{"x": 0.0, "y": 0.0, "z": 0.0}}},
	}))
	layers.SetEntityLayer("player-1", "nether")

	doc := Capture("server-1", st, layers, catalog)
	require.Len(t, doc.Entities, 1)
	require.Len(t, doc.Layers, 2)
	require.Len(t, doc.Archetypes, 1)
	require.Len(t, doc.Memberships, 1)

	path := filepath.Join(t.TempDir(), "snap.json.zst")
	require.NoError(t, Save(path, doc))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, CurrentVersion, loaded.Header.Version)
	require.Equal(t, "server-1", loaded.Header.ServerID)

	reg2, err := schema.New()
	require.NoError(t, err)
	st2 := store.New(reg2)
	layers2 := layer.NewRegistry()
	catalog2 := archetype.NewCatalog()

	require.NoError(t, Restore(loaded, st2, layers2, catalog2))
	require.True(t, st2.Exists("player-1"))
	require.Equal(t, "alice", st2.Get("player-1", store.KindIdentity).Fields["name"])

	gotLayerID, ok := layers2.EntityLayer("player-1")
	require.True(t, ok)
	require.Equal(t, "nether", gotLayerID)

	l, ok := layers2.Get("nether")
	require.True(t, ok)
	require.Equal(t, 16.0, l.ChunkSize)

	a, ok := catalog2.Get("torch")
	require.True(t, ok)
	require.Len(t, a.Components, 1)
}

func TestLatestPathReturnsNewestSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json.zst"), []byte("x"), 0o644))

	latest, err := LatestPath(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "a.json.zst"), latest)
}

func TestLatestPathMissingDirReturnsEmpty(t *testing.T) {
	latest, err := LatestPath(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	require.Empty(t, latest)
}
