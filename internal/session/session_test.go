package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"voxelrealm/internal/archetype"
	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/durability"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/movement"
	"voxelrealm/internal/protocol"
	"voxelrealm/internal/schema"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

type fakeConn struct {
	alive bool
	sent  []any
}

func newFakeConn() *fakeConn { return &fakeConn{alive: true} }

func (c *fakeConn) Send(msg any) bool { c.sent = append(c.sent, msg); return true }
func (c *fakeConn) IsAlive() bool     { return c.alive }
func (c *fakeConn) Close()            { c.alive = false }

func newTestManager(t *testing.T) (*Manager, *store.Store, *chunkmgr.Manager, *layer.Registry) {
	t.Helper()
	reg, err := schema.New()
	require.NoError(t, err)
	st := store.New(reg)
	chunks := chunkmgr.NewManager(chunkmgr.DefaultGridResolution)
	layers := layer.NewRegistry()
	mv := movement.NewSystem(st, chunks, layers, movement.DefaultConfig())
	dur := durability.NewSystem(st)
	spawner := archetype.NewSpawner(archetype.NewCatalog(), st, layers)
	mgr := NewManager(st, chunks, layers, mv, dur, spawner, "test-server")
	dur.OnDestroy(mgr.HandleEntityDestroyed)
	return mgr, st, chunks, layers
}

func send(t *testing.T, mgr *Manager, sess *Session, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	mgr.Dispatch(sess, b)
}

func TestLoginBindsPlayerAndSubscribesHomeChunk(t *testing.T) {
	mgr, st, chunks, _ := newTestManager(t)
	conn := newFakeConn()
	sess := mgr.Connect(conn)

	send(t, mgr, sess, protocol.LoginMsg{Type: protocol.TypeLogin})

	require.True(t, sess.Bound())
	require.True(t, st.Exists(sess.PlayerID))
	require.NotEmpty(t, sess.subs)

	home, ok := mgr.entityChunkKey(sess.PlayerID)
	require.True(t, ok)
	require.Contains(t, chunks.EntitiesIn(home), sess.PlayerID)
}

func TestMoveWithoutLoginIsRejected(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)
	conn := newFakeConn()
	sess := mgr.Connect(conn)

	send(t, mgr, sess, protocol.MoveMsg{Type: protocol.TypeMove})

	found := false
	for _, m := range conn.sent {
		if e, ok := m.(protocol.ErrorMsg); ok && e.Code == protocol.ErrNotAuthenticated {
			found = true
		}
	}
	require.True(t, found)
}

func TestLogoutClearsPlayerAndSubscriptions(t *testing.T) {
	mgr, st, _, layers := newTestManager(t)
	conn := newFakeConn()
	sess := mgr.Connect(conn)
	send(t, mgr, sess, protocol.LoginMsg{Type: protocol.TypeLogin})
	playerID := sess.PlayerID

	send(t, mgr, sess, protocol.LogoutMsg{Type: protocol.TypeLogout})

	require.False(t, sess.Bound())
	require.False(t, st.Exists(playerID))
	require.Empty(t, sess.subs)
	_, ok := layers.EntityLayer(playerID)
	require.False(t, ok)
}

func TestAddContractOnlyAffectsOwnPlayer(t *testing.T) {
	mgr, st, _, _ := newTestManager(t)
	conn := newFakeConn()
	sess := mgr.Connect(conn)
	send(t, mgr, sess, protocol.LoginMsg{Type: protocol.TypeLogin})

	other := "someone-else"
	send(t, mgr, sess, protocol.AddContractMsg{
		Type:     protocol.TypeAddContract,
		EntityID: other,
		Contract: store.Component{Kind: store.KindVisual, Fields: map[string]any{"model": "x"}},
	})

	found := false
	for _, m := range conn.sent {
		if e, ok := m.(protocol.ErrorMsg); ok && e.Code == protocol.ErrForbidden {
			found = true
		}
	}
	require.True(t, found)
	require.False(t, st.Exists(other))
}

func TestViewRadiusAutoSubscriptionScenario(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)
	conn := newFakeConn()
	sess := mgr.Connect(conn)
	send(t, mgr, sess, protocol.LoginMsg{Type: protocol.TypeLogin})
	// force the player to the world origin regardless of the default
	// layer's spawn point, per the scenario's stated starting position.
	mgr.movement.Teleport(sess.PlayerID, spatial.Vec3{})
	sess.subs = map[protocol.ChunkKey]struct{}{}
	mgr.refreshSubscriptions(sess)

	send(t, mgr, sess, protocol.SetViewMsg{Type: protocol.TypeSetView, Radius: 64})

	require.Len(t, sess.subs, 125)

	conn.sent = nil
	send(t, mgr, sess, protocol.MoveMsg{Type: protocol.TypeMove, Want: protocol.Vec3{X: 40}})

	require.Len(t, sess.subs, 125)

	lowX, highX := 0, 0
	for k := range sess.subs {
		if k.CX == -2 {
			lowX++
		}
		if k.CX == 3 {
			highX++
		}
	}
	require.Equal(t, 0, lowX, "cx=-2 slab must have been fully unsubscribed")
	require.Equal(t, 25, highX, "cx=3 slab must have been fully subscribed")
}
