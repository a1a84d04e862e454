// Package chunkmgr implements the Chunk Manager:
// per-chunk entity membership, static occupancy grid, subscriber set,
// version counter, and eviction.
package chunkmgr

import (
	"sort"
	"time"

	"voxelrealm/internal/spatial"
)

// DeltaKind names the three shapes a chunk_delta payload can take.
type DeltaKind string

const (
	DeltaEntityAdd    DeltaKind = "entity_add"
	DeltaEntityRemove DeltaKind = "entity_remove"
	DeltaEntityUpdate DeltaKind = "entity_update"
)

// Delta is a single membership or component-set change on a chunk,
// already carrying whatever contract payload the caller wants
// broadcast (chunkmgr itself is agnostic to component shape).
type Delta struct {
	Kind      DeltaKind
	EntityID  string
	Contracts any // nil for DeltaEntityRemove
}

// SnapshotEntity is one entity's full contract set as broadcast in a
// chunk_snapshot.
type SnapshotEntity struct {
	ID        string
	Contracts any
}

// GenerationHook implements the procedural generation policy: it is
// invoked at most once per chunk key, the first time that chunk is
// loaded.
type GenerationHook func(key spatial.Key, chunk *Chunk)

type Manager struct {
	chunks    map[spatial.Key]*Chunk
	gen       GenerationHook
	generated map[spatial.Key]bool

	gridResolution int
}

func NewManager(gridResolution int) *Manager {
	return &Manager{
		chunks:         map[spatial.Key]*Chunk{},
		generated:      map[spatial.Key]bool{},
		gridResolution: gridResolution,
	}
}

func (m *Manager) SetGenerationHook(h GenerationHook) { m.gen = h }

// GetOrCreate returns the chunk for key, creating empty metadata if
// absent, and refreshes lastAccessed.
func (m *Manager) GetOrCreate(key spatial.Key) *Chunk {
	c, ok := m.chunks[key]
	if !ok {
		c = newChunk(key)
		m.chunks[key] = c
	}
	c.LastAccessed = now()
	return c
}

// Peek returns the chunk without creating it or touching lastAccessed.
func (m *Manager) Peek(key spatial.Key) (*Chunk, bool) {
	c, ok := m.chunks[key]
	return c, ok
}

// Load marks the chunk loaded and runs procedural generation exactly
// once per key.
func (m *Manager) Load(key spatial.Key) *Chunk {
	c := m.GetOrCreate(key)
	if !c.Loaded {
		c.Loaded = true
		if c.Grid == nil {
			c.Grid = NewGrid(m.gridResolution)
		}
	}
	if m.gen != nil && !m.generated[key] {
		m.generated[key] = true
		m.gen(key, c)
	}
	return c
}

// Unload marks the chunk unloaded but retains its metadata.
func (m *Manager) Unload(key spatial.Key) {
	c, ok := m.chunks[key]
	if !ok {
		return
	}
	c.Loaded = false
}

func (m *Manager) markModified(c *Chunk) {
	c.LastModified = now()
	c.Version++
}

// AddEntity adds id to the chunk's membership and bumps its version.
func (m *Manager) AddEntity(id string, key spatial.Key) {
	c := m.GetOrCreate(key)
	if _, already := c.Members[id]; already {
		return
	}
	c.Members[id] = struct{}{}
	m.markModified(c)
}

// RemoveEntity removes id from the chunk's membership and bumps its
// version.
func (m *Manager) RemoveEntity(id string, key spatial.Key) {
	c, ok := m.chunks[key]
	if !ok {
		return
	}
	if _, present := c.Members[id]; !present {
		return
	}
	delete(c.Members, id)
	m.markModified(c)
}

// MoveEntity implements move as remove-then-add.
func (m *Manager) MoveEntity(id string, from, to spatial.Key) {
	if from == to {
		return
	}
	m.RemoveEntity(id, from)
	m.AddEntity(id, to)
}

// TouchMember bumps the chunk's version because one of its member's
// components changed, without altering membership.
func (m *Manager) TouchMember(key spatial.Key) {
	c, ok := m.chunks[key]
	if !ok {
		return
	}
	m.markModified(c)
}

func (m *Manager) EntitiesIn(key spatial.Key) []string {
	c, ok := m.chunks[key]
	if !ok {
		return nil
	}
	ids := c.MemberIDs()
	sort.Strings(ids)
	return ids
}

// Subscribe adds sub to the chunk's subscriber set and sends it a
// snapshot (the snapshot payload itself is built by the caller, who
// has access to the entity store; chunkmgr only stamps the version).
func (m *Manager) Subscribe(key spatial.Key, sub Subscriber, entities []SnapshotEntity) {
	c := m.Load(key)
	c.Subscribers[sub.SubscriberID()] = sub
	m.EmitSnapshot(key, sub, entities)
}

func (m *Manager) Unsubscribe(key spatial.Key, subID string) {
	c, ok := m.chunks[key]
	if !ok {
		return
	}
	delete(c.Subscribers, subID)
}

// UnsubscribeAll removes subID from every chunk it is subscribed to.
func (m *Manager) UnsubscribeAll(subID string) {
	for _, c := range m.chunks {
		delete(c.Subscribers, subID)
	}
}

// EmitSnapshot sends a chunk_snapshot-shaped payload to a single
// subscriber, stamped with the chunk's current version.
func (m *Manager) EmitSnapshot(key spatial.Key, sub Subscriber, entities []SnapshotEntity) {
	c, ok := m.chunks[key]
	if !ok {
		return
	}
	sub.Send(ChunkSnapshotPayload{
		ChunkKey: key,
		Entities: entities,
		Version:  c.Version,
		Digest:   c.membershipDigest(),
	})
}

// EmitDelta broadcasts a chunk_delta to every current subscriber of
// key, stamped with the post-mutation version. Delivery failure to any
// one subscriber is isolated: it never aborts the
// broadcast to the others. The subscriber stays in the set until the
// periodic sweep finds its IsAlive reporting false.
func (m *Manager) EmitDelta(key spatial.Key, delta Delta) {
	c, ok := m.chunks[key]
	if !ok {
		return
	}
	payload := ChunkDeltaPayload{ChunkKey: key, Delta: delta, Version: c.Version, Digest: c.membershipDigest()}
	for _, sub := range c.Subscribers {
		sub.Send(payload)
	}
}

// ChunkSnapshotPayload and ChunkDeltaPayload are the values chunkmgr
// hands subscribers; the transport layer marshals them to their wire
// shapes.
type ChunkSnapshotPayload struct {
	ChunkKey spatial.Key
	Entities []SnapshotEntity
	Version  uint64
	Digest   uint64
}

type ChunkDeltaPayload struct {
	ChunkKey spatial.Key
	Delta    Delta
	Version  uint64
	Digest   uint64
}

func now() time.Time { return time.Now() }
