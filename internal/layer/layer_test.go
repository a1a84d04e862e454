package layer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voxelrealm/internal/spatial"
)

func TestNewRegistrySeedsDefaultLayer(t *testing.T) {
	r := NewRegistry()
	l, ok := r.Get(DefaultLayerID)
	require.True(t, ok)
	require.Equal(t, "Default", l.Name)
	require.Equal(t, float64(32), l.ChunkSize)
}

func TestCreateAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create(&Layer{ID: "nether", Name: "Nether", ChunkSize: 16, Gravity: -6}))

	l, ok := r.Get("nether")
	require.True(t, ok)
	require.Equal(t, "Nether", l.Name)
	require.Equal(t, float64(-6), l.Gravity)
}

func TestCreateRejectsDuplicateAndMissingFields(t *testing.T) {
	r := NewRegistry()
	require.Error(t, r.Create(&Layer{ID: "", ChunkSize: 16}))
	require.Error(t, r.Create(&Layer{ID: "x", ChunkSize: 0}))

	require.NoError(t, r.Create(&Layer{ID: "nether", ChunkSize: 16}))
	require.Error(t, r.Create(&Layer{ID: "nether", ChunkSize: 16}))
}

func TestListIsSortedAndIncludesDefault(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create(&Layer{ID: "nether", ChunkSize: 16}))
	require.NoError(t, r.Create(&Layer{ID: "aether", ChunkSize: 16}))

	list := r.List()
	ids := make([]string, len(list))
	for i, l := range list {
		ids[i] = l.ID
	}
	require.Equal(t, []string{"aether", DefaultLayerID, "nether"}, ids)
}

func TestRemoveClearsMembershipButNotDefault(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create(&Layer{ID: "nether", ChunkSize: 16}))
	r.SetEntityLayer("e1", "nether")

	require.NoError(t, r.Remove("nether"))
	_, ok := r.Get("nether")
	require.False(t, ok)
	_, ok = r.EntityLayer("e1")
	require.False(t, ok)

	require.Error(t, r.Remove(DefaultLayerID))
	require.Error(t, r.Remove("nether")) // already gone
}

func TestEntityLayerMembership(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create(&Layer{ID: "nether", ChunkSize: 16, Spawn: spatial.Vec3{X: 1, Y: 2, Z: 3}}))

	r.SetEntityLayer("e1", "nether")
	r.SetEntityLayer("e2", "nether")
	r.SetEntityLayer("e3", DefaultLayerID)

	id, ok := r.EntityLayer("e1")
	require.True(t, ok)
	require.Equal(t, "nether", id)

	require.Equal(t, []string{"e1", "e2"}, r.EntitiesIn("nether"))

	r.ClearEntity("e1")
	_, ok = r.EntityLayer("e1")
	require.False(t, ok)
	require.Equal(t, []string{"e2"}, r.EntitiesIn("nether"))
}
