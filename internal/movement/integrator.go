package movement

import (
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

// Tick advances every mobile entity's velocity and position by dt,
// applying gravity, ground friction, and the terminal velocity clamp,
// then resolving the resulting displacement through AttemptMove.
func (s *System) Tick(dt float64) {
	for _, id := range s.store.ListWith(store.KindMobility) {
		s.tickOne(id, dt)
	}
}

func (s *System) tickOne(entityID string, dt float64) {
	mobComp := s.store.Get(entityID, store.KindMobility)
	if mobComp == nil {
		return
	}
	mob, ok := ParseMobility(mobComp)
	if !ok || !mob.HasVelocity {
		return
	}

	grounded := s.isGrounded(entityID, mob)

	vel := mob.Velocity
	gravity := mob.Acceleration
	if gravity == 0 {
		gravity = 9.81
	}
	vel.Y -= gravity * dt
	if vel.Y < s.cfg.TerminalVelocity {
		vel.Y = s.cfg.TerminalVelocity
	}

	friction := s.cfg.AirFriction
	if grounded {
		friction = s.cfg.GroundFriction
	}
	vel.X *= friction
	vel.Z *= friction

	want := vecAdd(mob.Position, vecScale(vel, dt))
	res := s.AttemptMove(entityID, want, dt)

	newMob := mob
	newMob.Position = res.Position
	if !res.OK && res.Normal != nil {
		vel = deflect(vel, *res.Normal)
	}
	newMob.Velocity = vel
	newMob.HasVelocity = true
	_ = s.store.Add(entityID, newMob.ToComponent())
}

// deflect zeroes the velocity component along the collision normal,
// leaving sliding motion along the surface intact.
func deflect(v, normal spatial.Vec3) spatial.Vec3 {
	dot := v.X*normal.X + v.Y*normal.Y + v.Z*normal.Z
	if dot >= 0 {
		return v
	}
	return spatial.Vec3{
		X: v.X - dot*normal.X,
		Y: v.Y - dot*normal.Y,
		Z: v.Z - dot*normal.Z,
	}
}

func (s *System) isGrounded(entityID string, mob Mobility) bool {
	shapeComp := s.store.Get(entityID, store.KindShape)
	if shapeComp == nil {
		return false
	}
	shape, ok := ParseShape(shapeComp)
	if !ok {
		return false
	}
	probe := spatial.Vec3{X: mob.Position.X, Y: mob.Position.Y - s.cfg.GroundProbe, Z: mob.Position.Z}
	endBox := shape.WorldBox(probe)
	chunkSize := s.layerChunkSize(entityID)
	layerID := s.layerID(entityID)
	key := spatial.WorldToChunk(layerID, probe, chunkSize)
	candidates := spatial.Neighbors(key, 1)
	_, hit := sweepStatic(s.chunks, candidates, endBox, chunkSize, s.cfg.GroundProbe)
	return hit
}
