package movement

import (
	"fmt"

	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

// BlockedError reports that a Teleport destination fails the static or
// dynamic collision test.
type BlockedError struct {
	EntityID string
	Reason   string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("movement: teleport of %q blocked: %s", e.EntityID, e.Reason)
}

// Teleport relocates an entity to pos, refusing if pos collides against
// the static or dynamic occupancy test, and zeroing velocity on
// success, so the mover does not retain whatever velocity it had
// before being placed. SetPosition is the raw, unchecked setter for callers
// that already ran their own collision resolution.
func (s *System) Teleport(entityID string, pos spatial.Vec3) error {
	mobComp := s.store.Get(entityID, store.KindMobility)
	if mobComp == nil {
		return &store.UnknownKindError{Kind: store.KindMobility}
	}
	shapeComp := s.store.Get(entityID, store.KindShape)
	if shapeComp == nil {
		return &store.UnknownKindError{Kind: store.KindShape}
	}
	shape, _ := ParseShape(shapeComp)
	if hit, blocked := s.sweep(entityID, pos, pos, shape); blocked {
		reason := "blocked by static geometry"
		if !hit.IsStatic {
			reason = "blocked by entity " + hit.EntityID
		}
		return &BlockedError{EntityID: entityID, Reason: reason}
	}

	mob, _ := ParseMobility(mobComp)
	mob.Position = pos
	mob.Velocity = spatial.Vec3{}
	mob.HasVelocity = false
	return s.store.Add(entityID, mob.ToComponent())
}

// SetPosition sets an entity's position directly, bypassing collision
// resolution and leaving velocity untouched. Used by callers, such as
// handleMove's post-attempt_move commit, that already resolved the
// destination against collision themselves.
func (s *System) SetPosition(entityID string, pos spatial.Vec3) error {
	mobComp := s.store.Get(entityID, store.KindMobility)
	if mobComp == nil {
		return &store.UnknownKindError{Kind: store.KindMobility}
	}
	mob, _ := ParseMobility(mobComp)
	mob.Position = pos
	return s.store.Add(entityID, mob.ToComponent())
}

// SetVelocity overwrites an entity's velocity, leaving position and
// max speed untouched.
func (s *System) SetVelocity(entityID string, v spatial.Vec3) error {
	mobComp := s.store.Get(entityID, store.KindMobility)
	if mobComp == nil {
		return &store.UnknownKindError{Kind: store.KindMobility}
	}
	mob, _ := ParseMobility(mobComp)
	mob.Velocity = v
	mob.HasVelocity = true
	return s.store.Add(entityID, mob.ToComponent())
}

// ApplyImpulse adds delta to the entity's current velocity.
func (s *System) ApplyImpulse(entityID string, delta spatial.Vec3) error {
	mobComp := s.store.Get(entityID, store.KindMobility)
	if mobComp == nil {
		return &store.UnknownKindError{Kind: store.KindMobility}
	}
	mob, _ := ParseMobility(mobComp)
	mob.Velocity = vecAdd(mob.Velocity, delta)
	mob.HasVelocity = true
	return s.store.Add(entityID, mob.ToComponent())
}
