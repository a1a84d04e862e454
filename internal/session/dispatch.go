package session

import (
	"encoding/json"
	"math"

	"voxelrealm/internal/archetype"
	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/movement"
	"voxelrealm/internal/protocol"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

// worldAllowList reports the world_commands allow-list, if the world
// entity carries one. A missing world_commands component means no
// restriction beyond a bound player's own command_access; an existing
// component with an empty list permits only login and hello.
func (m *Manager) worldAllowList() (map[string]bool, bool) {
	c := m.store.Get(WorldEntityID, store.KindWorldCommands)
	if c == nil {
		return nil, false
	}
	return commandSet(c), true
}

func (m *Manager) playerAllowList(playerID string) (map[string]bool, bool) {
	c := m.store.Get(playerID, store.KindCommandAccess)
	if c == nil {
		return nil, false
	}
	return commandSet(c), true
}

func commandSet(c *store.Component) map[string]bool {
	raw, _ := c.Fields["commands"].([]any)
	out := make(map[string]bool, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out[s] = true
		}
	}
	return out
}

// Dispatch decodes and handles one inbound frame for sess. It never
// panics on malformed input: a frame rejected by the rate limiter is
// dropped without a reply, and every other failure path replies with
// a client-visible error instead.
func (m *Manager) Dispatch(sess *Session, raw []byte) {
	sess.touch()
	if !sess.limiter.Allow() {
		return
	}

	base, err := protocol.DecodeBase(raw)
	if err != nil || base.Type == "" {
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrInvalidMessage, Message: "malformed message"})
		return
	}
	cmd := base.Type

	if cmd != protocol.TypeLogin && cmd != protocol.TypeHello {
		if allow, has := m.worldAllowList(); has && !allow[cmd] {
			sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrForbidden, Message: "command not permitted by world"})
			return
		}
	}
	if cmd != protocol.TypeLogin && cmd != protocol.TypeHello && !sess.Bound() {
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrNotAuthenticated, Message: "login required"})
		return
	}
	if sess.Bound() {
		if allow, has := m.playerAllowList(sess.PlayerID); has && !allow[cmd] {
			sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrPermissionDenied, Message: "command not permitted for player"})
			return
		}
	}

	switch cmd {
	case protocol.TypeHello:
		// hello_ok was already sent on Connect; nothing further to do.
	case protocol.TypeLogin:
		var msg protocol.LoginMsg
		json.Unmarshal(raw, &msg)
		m.handleLogin(sess, msg)
	case protocol.TypeLogout:
		m.handleLogout(sess)
	case protocol.TypeSetView:
		var msg protocol.SetViewMsg
		json.Unmarshal(raw, &msg)
		m.handleSetView(sess, msg)
	case protocol.TypeSubscribeChunks:
		var msg protocol.SubscribeChunksMsg
		json.Unmarshal(raw, &msg)
		m.handleSubscribeChunks(sess, msg.ChunkKeys)
	case protocol.TypeUnsubscribeChunk:
		var msg protocol.SubscribeChunksMsg
		json.Unmarshal(raw, &msg)
		m.handleUnsubscribeChunks(sess, msg.ChunkKeys)
	case protocol.TypeMove:
		var msg protocol.MoveMsg
		json.Unmarshal(raw, &msg)
		m.handleMove(sess, spatial.Vec3{X: msg.Want.X, Y: msg.Want.Y, Z: msg.Want.Z})
	case protocol.TypeMoveDir:
		var msg protocol.MoveDirMsg
		json.Unmarshal(raw, &msg)
		m.handleMoveDir(sess, msg.Directions)
	case protocol.TypeAddContract:
		var msg protocol.AddContractMsg
		json.Unmarshal(raw, &msg)
		m.handleAddContract(sess, msg.EntityID, msg.Contract)
	case protocol.TypeRemoveContract:
		var msg protocol.RemoveContractMsg
		json.Unmarshal(raw, &msg)
		m.handleRemoveContract(sess, msg.EntityID, msg.ContractType)
	case protocol.TypeInteract:
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrNotImplemented, Message: "interact is not implemented"})
	default:
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrUnknownMessageType, Message: "unrecognized message type " + cmd})
	}
}

func (m *Manager) handleLogin(sess *Session, msg protocol.LoginMsg) {
	if sess.Bound() {
		token := m.mintResumeToken(sess.PlayerID, sess.LayerID)
		sess.Send(protocol.LoginOKMsg{Type: protocol.TypeLoginOK, PlayerID: sess.PlayerID, LayerID: sess.LayerID, ResumeToken: token})
		return
	}

	if msg.ResumeToken != "" {
		if rec, ok := m.resolveResumeToken(msg.ResumeToken); ok {
			sess.PlayerID = rec.PlayerID
			sess.LayerID = rec.LayerID
			token := m.mintResumeToken(rec.PlayerID, rec.LayerID)
			sess.Send(protocol.LoginOKMsg{Type: protocol.TypeLoginOK, PlayerID: rec.PlayerID, LayerID: rec.LayerID, Resumed: true, ResumeToken: token})
			m.refreshSubscriptions(sess)
			return
		}
	}

	layerID := msg.LayerID
	if layerID == "" {
		layerID = "default"
	}
	l, ok := m.layers.Get(layerID)
	if !ok {
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrJoinFailed, Message: "unknown layer " + layerID})
		return
	}

	id, err := m.spawner.Spawn(archetype.PlayerArchetypeID, layerID, l.Spawn, nil)
	if err != nil {
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrJoinFailed, Message: err.Error()})
		return
	}

	sess.PlayerID = id
	sess.LayerID = layerID

	key := spatial.WorldToChunk(layerID, l.Spawn, l.ChunkSize)
	m.chunks.AddEntity(id, key)
	m.chunks.EmitDelta(key, chunkmgr.Delta{Kind: chunkmgr.DeltaEntityAdd, EntityID: id, Contracts: m.store.All(id)})

	token := m.mintResumeToken(id, layerID)
	sess.Send(protocol.LoginOKMsg{Type: protocol.TypeLoginOK, PlayerID: id, LayerID: layerID, ResumeToken: token})
	m.refreshSubscriptions(sess)
}

func (m *Manager) handleLogout(sess *Session) {
	m.unbind(sess)
	for k := range sess.subs {
		m.chunks.Unsubscribe(toSpatialKey(k), sess.ID)
	}
	sess.subs = map[protocol.ChunkKey]struct{}{}
	sess.Send(protocol.LogoutOKMsg{Type: protocol.TypeLogoutOK})
}

func (m *Manager) handleSetView(sess *Session, msg protocol.SetViewMsg) {
	if msg.Radius < 0 {
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrInvalidMessage, Message: "radius must be >= 0"})
		return
	}
	sess.ViewRadius = msg.Radius
	m.refreshSubscriptions(sess)
	sess.Send(protocol.SetViewOKMsg{Type: protocol.TypeSetViewOK, Radius: msg.Radius})
}

func (m *Manager) handleSubscribeChunks(sess *Session, keys []protocol.ChunkKey) {
	for _, k := range keys {
		if _, ok := sess.subs[k]; ok {
			continue
		}
		sk := toSpatialKey(k)
		m.chunks.Subscribe(sk, sess, m.snapshotEntities(sk))
		sess.subs[k] = struct{}{}
	}
}

func (m *Manager) handleUnsubscribeChunks(sess *Session, keys []protocol.ChunkKey) {
	for _, k := range keys {
		if _, ok := sess.subs[k]; !ok {
			continue
		}
		m.chunks.Unsubscribe(toSpatialKey(k), sess.ID)
		delete(sess.subs, k)
	}
}

func (m *Manager) handleMove(sess *Session, want spatial.Vec3) {
	if !sess.Bound() {
		return
	}
	oldKey, hadOld := m.entityChunkKey(sess.PlayerID)

	dt := m.moveRequestDt
	if mob := m.store.Get(sess.PlayerID, store.KindMobility); mob != nil {
		if current, ok := movement.ParseMobility(mob); ok {
			distance := vecDistance(current.Position, want)
			if maxSpeed := m.movement.MaxSpeedFor(sess.PlayerID); maxSpeed > 0 {
				// A move request names a destination, not a per-tick
				// velocity: give it exactly enough time budget to
				// cover the requested distance, so only collision
				// (never an arbitrary dt) limits how far it lands.
				needed := distance/maxSpeed + moveTimeBudgetEpsilon
				if needed > dt {
					dt = needed
				}
			}
		}
	}

	result := m.movement.AttemptMove(sess.PlayerID, want, dt)
	m.movement.SetPosition(sess.PlayerID, result.Position)

	newKey, hasNew := m.entityChunkKey(sess.PlayerID)
	if hadOld && hasNew && oldKey != newKey {
		m.chunks.MoveEntity(sess.PlayerID, oldKey, newKey)
	} else if hasNew {
		// Same chunk: MoveEntity's implicit mark_modified didn't run,
		// so bump the version ourselves before broadcasting.
		m.chunks.TouchMember(newKey)
	}
	if hasNew {
		m.chunks.EmitDelta(newKey, chunkmgr.Delta{
			Kind: chunkmgr.DeltaEntityUpdate, EntityID: sess.PlayerID, Contracts: m.store.All(sess.PlayerID),
		})
	}

	sess.Send(protocol.MoveResultMsg{
		Type:     protocol.TypeMoveResult,
		Success:  result.OK,
		Position: protocol.Vec3{X: result.Position.X, Y: result.Position.Y, Z: result.Position.Z},
		Reason:   result.Reason,
	})
	m.refreshSubscriptions(sess)
}

const moveTimeBudgetEpsilon = 1e-3

func vecDistance(a, b spatial.Vec3) float64 {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// cardinal direction unit vectors: north=-z, south=+z, west=-x, east=+x.
var cardinalDirections = map[string]spatial.Vec3{
	"north": {Z: -1},
	"south": {Z: 1},
	"west":  {X: -1},
	"east":  {X: 1},
}

func (m *Manager) handleMoveDir(sess *Session, dirs []string) {
	if !sess.Bound() {
		return
	}
	if len(dirs) > 2 {
		dirs = dirs[:2]
	}

	step := 1.0
	allowDiagonal := true
	normalizeDiagonal := false
	if mr := m.store.Get(sess.PlayerID, store.KindMovementRules); mr != nil {
		if v, ok := mr.Float("stepDistance"); ok {
			step = v
		}
		if v, ok := mr.Bool("allowDiagonal"); ok {
			allowDiagonal = v
		}
		if v, ok := mr.Bool("diagonalNormalized"); ok {
			normalizeDiagonal = v
		}
	}

	var disp spatial.Vec3
	count := 0
	for _, d := range dirs {
		v, ok := cardinalDirections[d]
		if !ok {
			continue
		}
		disp.X += v.X
		disp.Z += v.Z
		count++
	}
	if count == 0 {
		return
	}
	if count > 1 && !allowDiagonal {
		disp = cardinalDirections[dirs[0]]
		count = 1
	}
	if count > 1 && normalizeDiagonal {
		length := math.Hypot(disp.X, disp.Z)
		if length > 0 {
			disp.X /= length
			disp.Z /= length
		}
	}
	disp.X *= step
	disp.Z *= step

	mob := m.store.Get(sess.PlayerID, store.KindMobility)
	if mob == nil {
		return
	}
	current, ok := movement.ParseMobility(mob)
	if !ok {
		return
	}
	want := spatial.Vec3{X: current.Position.X + disp.X, Y: current.Position.Y, Z: current.Position.Z + disp.Z}
	m.handleMove(sess, want)
}

func (m *Manager) handleAddContract(sess *Session, entityID string, contract store.Component) {
	if !sess.Bound() || entityID != sess.PlayerID {
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrForbidden, Message: "may only mutate own player entity"})
		return
	}
	if err := m.store.Add(entityID, contract); err != nil {
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrAddContractFailed, Message: err.Error()})
		return
	}
	m.broadcastEntityUpdate(entityID)
}

func (m *Manager) handleRemoveContract(sess *Session, entityID, kind string) {
	if !sess.Bound() || entityID != sess.PlayerID {
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrForbidden, Message: "may only mutate own player entity"})
		return
	}
	if !m.store.RemoveComponent(entityID, kind) {
		sess.Send(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrContractNotFound, Message: "no " + kind + " component on entity"})
		return
	}
	m.broadcastEntityUpdate(entityID)
}

func (m *Manager) broadcastEntityUpdate(entityID string) {
	key, ok := m.entityChunkKey(entityID)
	if !ok {
		return
	}
	m.chunks.TouchMember(key)
	m.chunks.EmitDelta(key, chunkmgr.Delta{Kind: chunkmgr.DeltaEntityUpdate, EntityID: entityID, Contracts: m.store.All(entityID)})
}

// HandleEntityDestroyed is registered with durability.System.OnDestroy
// so a destroyed entity's chunk broadcasts a chunk_delta of kind
// entity_remove before the entity is actually gone from the store.
// No separate entity_despawn message is sent.
func (m *Manager) HandleEntityDestroyed(entityID string) {
	key, ok := m.entityChunkKey(entityID)
	if !ok {
		return
	}
	m.chunks.RemoveEntity(entityID, key)
	m.chunks.EmitDelta(key, chunkmgr.Delta{Kind: chunkmgr.DeltaEntityRemove, EntityID: entityID})
	m.invalidateResumeToken(entityID)
}
