package chunkmgr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voxelrealm/internal/spatial"
)

type fakeSubscriber struct {
	id     string
	alive  bool
	sent   []any
	reject bool
}

func (s *fakeSubscriber) SubscriberID() string { return s.id }
func (s *fakeSubscriber) IsAlive() bool        { return s.alive }
func (s *fakeSubscriber) Send(msg any) bool {
	if s.reject {
		return false
	}
	s.sent = append(s.sent, msg)
	return true
}

func testKey() spatial.Key {
	return spatial.Key{LayerID: "default", CX: 0, CY: 0, CZ: 0}
}

func TestAddRemoveMoveEntity(t *testing.T) {
	m := NewManager(16)
	key := testKey()
	other := spatial.Key{LayerID: "default", CX: 1, CY: 0, CZ: 0}

	m.AddEntity("e1", key)
	require.Equal(t, []string{"e1"}, m.EntitiesIn(key))

	m.MoveEntity("e1", key, other)
	require.Empty(t, m.EntitiesIn(key))
	require.Equal(t, []string{"e1"}, m.EntitiesIn(other))

	m.RemoveEntity("e1", other)
	require.Empty(t, m.EntitiesIn(other))
}

func TestAddEntityIsIdempotentAndBumpsVersionOnce(t *testing.T) {
	m := NewManager(16)
	key := testKey()

	m.AddEntity("e1", key)
	c, ok := m.Peek(key)
	require.True(t, ok)
	v1 := c.Version

	m.AddEntity("e1", key)
	require.Equal(t, v1, c.Version)
}

func TestTouchMemberBumpsVersion(t *testing.T) {
	m := NewManager(16)
	key := testKey()
	m.AddEntity("e1", key)
	c, _ := m.Peek(key)
	v1 := c.Version

	m.TouchMember(key)
	require.Greater(t, c.Version, v1)
}

func TestLoadRunsGenerationHookOncePerKey(t *testing.T) {
	m := NewManager(16)
	key := testKey()
	calls := 0
	m.SetGenerationHook(func(k spatial.Key, c *Chunk) { calls++ })

	m.Load(key)
	m.Load(key)
	require.Equal(t, 1, calls)

	c, ok := m.Peek(key)
	require.True(t, ok)
	require.True(t, c.Loaded)
	require.NotNil(t, c.Grid)
}

func TestUnloadKeepsMetadata(t *testing.T) {
	m := NewManager(16)
	key := testKey()
	m.Load(key)
	m.AddEntity("e1", key)

	m.Unload(key)
	c, ok := m.Peek(key)
	require.True(t, ok)
	require.False(t, c.Loaded)
	require.Equal(t, []string{"e1"}, m.EntitiesIn(key))
}

func TestSubscribeSendsSnapshotAndTracksSubscriber(t *testing.T) {
	m := NewManager(16)
	key := testKey()
	sub := &fakeSubscriber{id: "sess-1", alive: true}

	m.Subscribe(key, sub, []SnapshotEntity{{ID: "e1", Contracts: "payload"}})
	require.Len(t, sub.sent, 1)
	snap, ok := sub.sent[0].(ChunkSnapshotPayload)
	require.True(t, ok)
	require.Equal(t, key, snap.ChunkKey)
	require.Len(t, snap.Entities, 1)
}

func TestUnsubscribeRemovesFromChunk(t *testing.T) {
	m := NewManager(16)
	key := testKey()
	sub := &fakeSubscriber{id: "sess-1", alive: true}
	m.Subscribe(key, sub, nil)

	m.Unsubscribe(key, "sess-1")
	m.EmitDelta(key, Delta{Kind: DeltaEntityAdd, EntityID: "e1"})
	require.Len(t, sub.sent, 1) // only the initial snapshot, no delta after unsubscribe
}

func TestUnsubscribeAllRemovesFromEveryChunk(t *testing.T) {
	m := NewManager(16)
	key1 := testKey()
	key2 := spatial.Key{LayerID: "default", CX: 1, CY: 0, CZ: 0}
	sub := &fakeSubscriber{id: "sess-1", alive: true}
	m.Subscribe(key1, sub, nil)
	m.Subscribe(key2, sub, nil)

	m.UnsubscribeAll("sess-1")
	m.EmitDelta(key1, Delta{Kind: DeltaEntityAdd, EntityID: "e1"})
	m.EmitDelta(key2, Delta{Kind: DeltaEntityAdd, EntityID: "e1"})
	require.Len(t, sub.sent, 2) // the two initial snapshots only
}

func TestEmitDeltaBroadcastsToAllSubscribersDespiteOneFailing(t *testing.T) {
	m := NewManager(16)
	key := testKey()
	ok1 := &fakeSubscriber{id: "sess-1", alive: true}
	failing := &fakeSubscriber{id: "sess-2", alive: true, reject: true}
	m.Subscribe(key, ok1, nil)
	m.Subscribe(key, failing, nil)

	m.EmitDelta(key, Delta{Kind: DeltaEntityUpdate, EntityID: "e1"})
	require.Len(t, ok1.sent, 2) // snapshot + delta
	require.Len(t, failing.sent, 0)
}

func TestEntitiesInUnknownChunkIsEmpty(t *testing.T) {
	m := NewManager(16)
	require.Empty(t, m.EntitiesIn(testKey()))
}
