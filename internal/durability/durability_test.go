package durability

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voxelrealm/internal/schema"
	"voxelrealm/internal/store"
)

func newTestSystem(t *testing.T) (*System, *store.Store) {
	t.Helper()
	reg, err := schema.New()
	require.NoError(t, err)
	st := store.New(reg)
	return NewSystem(st), st
}

func TestEnsureDefaultsGrantsDurability(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("e1", []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "rock"}},
	}))
	sys.EnsureDefaults()
	c := st.Get("e1", store.KindDurability)
	require.NotNil(t, c)
	h, _ := c.Float("health")
	m, _ := c.Float("maxHealth")
	require.Equal(t, 1.0, h)
	require.Equal(t, 1.0, m)
}

func TestEnsureDefaultsLeavesExplicitDurabilityAlone(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("e1", []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "golem"}},
		{Kind: store.KindDurability, Fields: map[string]any{"health": 10.0, "maxHealth": 10.0}},
	}))
	sys.EnsureDefaults()
	c := st.Get("e1", store.KindDurability)
	h, _ := c.Float("health")
	require.Equal(t, 10.0, h)
}

func TestDamageReducesHealthAndLogs(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("e1", []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "golem"}},
		{Kind: store.KindDurability, Fields: map[string]any{"health": 10.0, "maxHealth": 10.0}},
	}))

	require.True(t, sys.Damage("e1", 3, "arrow"))
	c := st.Get("e1", store.KindDurability)
	h, _ := c.Float("health")
	require.Equal(t, 7.0, h)

	events := sys.Events(EventDamage, "e1")
	require.Len(t, events, 1)
	require.Equal(t, 3.0, events[0].Amount)
	require.Equal(t, "arrow", events[0].Source)
}

func TestDamageWithArmorMitigation(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("e1", []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "knight"}},
		{Kind: store.KindDurability, Fields: map[string]any{"health": 10.0, "maxHealth": 10.0, "armor": 50.0}},
	}))

	require.True(t, sys.Damage("e1", 10, ""))
	c := st.Get("e1", store.KindDurability)
	h, _ := c.Float("health")
	require.InDelta(t, 5.0, h, 1e-9) // 10 * (1 - min(0.75, 0.5)) = 5
}

func TestDamageToZeroDestroysEntity(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("e1", []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "vase"}},
		{Kind: store.KindDurability, Fields: map[string]any{"health": 5.0, "maxHealth": 5.0}},
	}))

	var destroyedID string
	sys.OnDestroy(func(id string) { destroyedID = id })

	require.True(t, sys.Damage("e1", 10, "hammer"))
	require.Equal(t, "e1", destroyedID)
	require.False(t, st.Exists("e1"))
	require.Len(t, sys.Events(EventDestroy, "e1"), 1)
}

func TestHealCapsAtMax(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("e1", []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "npc"}},
		{Kind: store.KindDurability, Fields: map[string]any{"health": 8.0, "maxHealth": 10.0}},
	}))

	require.True(t, sys.Heal("e1", 100, "potion"))
	c := st.Get("e1", store.KindDurability)
	h, _ := c.Float("health")
	require.Equal(t, 10.0, h)
	require.False(t, sys.Heal("e1", 0, "potion"))
	require.False(t, sys.Heal("e1", -1, "potion"))
}

func TestRepairSetsFullHealth(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("e1", []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "npc"}},
		{Kind: store.KindDurability, Fields: map[string]any{"health": 1.0, "maxHealth": 10.0}},
	}))

	require.True(t, sys.Repair("e1", "admin"))
	c := st.Get("e1", store.KindDurability)
	h, _ := c.Float("health")
	require.Equal(t, 10.0, h)
}

func TestSweepDestroysExternallyZeroedHealth(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("e1", []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "npc"}},
	}))
	require.NoError(t, st.Add("e1", store.Component{Kind: store.KindDurability, Fields: map[string]any{
		"health": 0.0, "maxHealth": 1.0,
	}}))

	n := sys.Sweep()
	require.Equal(t, 1, n)
	require.False(t, st.Exists("e1"))
}

func TestEventLogRetainsLastHundred(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("e1", []store.Component{
		{Kind: store.KindIdentity, Fields: map[string]any{"name": "punchbag"}},
		{Kind: store.KindDurability, Fields: map[string]any{"health": 1000.0, "maxHealth": 1000.0}},
	}))
	for i := 0; i < 150; i++ {
		sys.Damage("e1", 1, "")
	}
	events := sys.Events(EventDamage, "")
	require.Len(t, events, eventCap)
	require.Equal(t, uint64(150), events[len(events)-1].Seq)
}
