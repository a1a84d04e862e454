// Package session implements the Session Manager: the binding of a
// transport connection to an optional player entity, its chunk
// subscription set, view radius, and liveness state, plus the command
// dispatcher and view-based auto-subscription that keep that binding
// in sync with the simulation.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"voxelrealm/internal/archetype"
	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/durability"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/movement"
	"voxelrealm/internal/protocol"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

// WorldEntityID is the well-known entity that carries global
// world_commands, when a deployment chooses to restrict the command
// surface below the built-in allow-list.
const WorldEntityID = "world"

// DefaultViewRadius is used until a client calls set_view.
const DefaultViewRadius = 32.0

// Sender delivers wire messages to one connected client. The
// transport layer implements it; session never imports transport, so
// dependencies only point one way.
type Sender interface {
	Send(msg any) bool
	IsAlive() bool
	Close()
}

// Session is the server-side state of a single connected client.
type Session struct {
	ID         string
	conn       Sender
	PlayerID   string // empty when unbound
	LayerID    string
	ViewRadius float64

	subs map[protocol.ChunkKey]struct{}

	limiter *tokenBucket

	lastActivity time.Time
}

func newSession(id string, conn Sender, maxMessagesPerSecond int) *Session {
	return &Session{
		ID:           id,
		conn:         conn,
		ViewRadius:   DefaultViewRadius,
		subs:         map[protocol.ChunkKey]struct{}{},
		limiter:      newTokenBucket(maxMessagesPerSecond),
		lastActivity: time.Now(),
	}
}

// SubscriberID and Send/IsAlive satisfy chunkmgr.Subscriber, so a
// Session can be handed directly to the chunk manager's subscribe
// calls.
func (s *Session) SubscriberID() string { return s.ID }
func (s *Session) Send(msg any) bool    { return s.conn.Send(msg) }
func (s *Session) IsAlive() bool        { return s.conn.IsAlive() }

// Bound reports whether a player entity is bound to this session.
func (s *Session) Bound() bool { return s.PlayerID != "" }

func (s *Session) touch() { s.lastActivity = time.Now() }

// LastActivity reports when the session last dispatched a frame, the
// same timestamp Stale compares against the liveness timeout.
func (s *Session) LastActivity() time.Time { return s.lastActivity }

// Manager owns the live session set and every operation that crosses
// from a connection into the simulation core. Like Store, it is not
// internally synchronized: the concurrency model serializes all of
// this on a single executor (internal/worldproc); nothing here spawns
// a goroutine or blocks.
type Manager struct {
	store      *store.Store
	chunks     *chunkmgr.Manager
	layers     *layer.Registry
	movement   *movement.System
	durability *durability.System
	spawner    *archetype.Spawner

	sessions map[string]*Session
	nextID   uint64
	serverID string

	// resumeTokens and playerResumeTokens implement the reconnect/
	// resume flow: a token minted on login lets a later connection
	// rebind to the same still-live player entity instead of a fresh
	// spawn, and is invalidated (deleted from both maps) on explicit
	// logout.
	resumeTokens       map[string]resumeRecord
	playerResumeTokens map[string]string

	maxMessagesPerSecond int
	moveRequestDt        float64
}

type resumeRecord struct {
	PlayerID string
	LayerID  string
}

func NewManager(
	st *store.Store,
	chunks *chunkmgr.Manager,
	layers *layer.Registry,
	mv *movement.System,
	dur *durability.System,
	spawner *archetype.Spawner,
	serverID string,
) *Manager {
	return &Manager{
		store:                st,
		chunks:               chunks,
		layers:               layers,
		movement:             mv,
		durability:           dur,
		spawner:              spawner,
		sessions:             map[string]*Session{},
		serverID:             serverID,
		resumeTokens:         map[string]resumeRecord{},
		playerResumeTokens:   map[string]string{},
		maxMessagesPerSecond: 60,
		moveRequestDt:        1.0 / 60.0,
	}
}

// mintResumeToken replaces any resume token already held by playerID
// with a fresh one and returns it.
func (m *Manager) mintResumeToken(playerID, layerID string) string {
	m.invalidateResumeToken(playerID)
	token := uuid.NewString()
	m.resumeTokens[token] = resumeRecord{PlayerID: playerID, LayerID: layerID}
	m.playerResumeTokens[playerID] = token
	return token
}

// resolveResumeToken returns the still-live player bound to token, if
// any. A token naming a player the durability system has since
// destroyed is treated as stale and dropped.
func (m *Manager) resolveResumeToken(token string) (resumeRecord, bool) {
	rec, ok := m.resumeTokens[token]
	if !ok {
		return resumeRecord{}, false
	}
	if m.store.Get(rec.PlayerID, store.KindIdentity) == nil {
		m.invalidateResumeToken(rec.PlayerID)
		return resumeRecord{}, false
	}
	return rec, true
}

func (m *Manager) invalidateResumeToken(playerID string) {
	if token, ok := m.playerResumeTokens[playerID]; ok {
		delete(m.resumeTokens, token)
		delete(m.playerResumeTokens, playerID)
	}
}

// SetMaxMessagesPerSecond overrides the default per-session rate
// limit budget for sessions connected after the call.
func (m *Manager) SetMaxMessagesPerSecond(n int) { m.maxMessagesPerSecond = n }

// Connect registers a new session for conn and immediately sends
// hello_ok, regardless of whether the client ever sends its own hello.
func (m *Manager) Connect(conn Sender) *Session {
	m.nextID++
	id := fmt.Sprintf("sess-%d", m.nextID)
	sess := newSession(id, conn, m.maxMessagesPerSecond)
	m.sessions[id] = sess

	sess.Send(protocol.HelloOKMsg{
		Type:          protocol.TypeHelloOK,
		ClientID:      id,
		ServerID:      m.serverID,
		ServerVersion: protocol.Version,
	})
	return sess
}

// Disconnect drops a session's transport-level subscriptions and
// forgets the session, but leaves a bound player entity in the world:
// the resume token minted at login still names it, so a later login
// presenting that token rebinds to it instead of spawning a fresh
// player. Only explicit logout tears the entity down.
func (m *Manager) Disconnect(sess *Session) {
	m.chunks.UnsubscribeAll(sess.ID)
	delete(m.sessions, sess.ID)
}

// unbind removes the bound player entity, its chunk membership, and
// clears the session's binding. Used by explicit logout, which also
// invalidates the player's resume token.
func (m *Manager) unbind(sess *Session) {
	if !sess.Bound() {
		return
	}
	playerID := sess.PlayerID
	if key, ok := m.entityChunkKey(playerID); ok {
		m.chunks.RemoveEntity(playerID, key)
		m.chunks.EmitDelta(key, chunkmgr.Delta{Kind: chunkmgr.DeltaEntityRemove, EntityID: playerID})
	}
	m.store.Remove(playerID)
	m.layers.ClearEntity(playerID)
	m.invalidateResumeToken(playerID)
	sess.PlayerID = ""
}

// Sessions returns every currently connected session, for the
// heartbeat sweep and admin stats.
func (m *Manager) Sessions() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Stale returns every session that has missed its liveness deadline:
// its transport reports it dead, or it hasn't produced activity
// within timeout. The caller (worldproc's heartbeat sweep) is
// responsible for calling Disconnect on each.
func (m *Manager) Stale(now time.Time, timeout time.Duration) []*Session {
	var out []*Session
	for _, s := range m.sessions {
		if !s.IsAlive() || now.Sub(s.lastActivity) > timeout {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) entityChunkKey(entityID string) (spatial.Key, bool) {
	mob := m.store.Get(entityID, store.KindMobility)
	if mob == nil {
		return spatial.Key{}, false
	}
	m2, ok := movement.ParseMobility(mob)
	if !ok {
		return spatial.Key{}, false
	}
	layerID, _ := m.layers.EntityLayer(entityID)
	if layerID == "" {
		layerID = layer.DefaultLayerID
	}
	l, ok := m.layers.Get(layerID)
	if !ok {
		return spatial.Key{}, false
	}
	return spatial.WorldToChunk(layerID, m2.Position, l.ChunkSize), true
}

func toSpatialKey(k protocol.ChunkKey) spatial.Key {
	return spatial.Key{LayerID: k.LayerID, CX: k.CX, CY: k.CY, CZ: k.CZ}
}

func fromSpatialKey(k spatial.Key) protocol.ChunkKey {
	return protocol.ChunkKey{LayerID: k.LayerID, CX: k.CX, CY: k.CY, CZ: k.CZ}
}
