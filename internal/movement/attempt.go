package movement

import (
	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

// Result is the outcome of attempt_move.
type Result struct {
	OK        bool
	Position  spatial.Vec3
	Reason    string
	Normal    *spatial.Vec3
	BlockerID string
}

type System struct {
	store  *store.Store
	chunks *chunkmgr.Manager
	layers *layer.Registry
	cfg    Config
}

func NewSystem(st *store.Store, chunks *chunkmgr.Manager, layers *layer.Registry, cfg Config) *System {
	return &System{store: st, chunks: chunks, layers: layers, cfg: cfg}
}

func (s *System) layerChunkSize(entityID string) float64 {
	layerID, ok := s.layers.EntityLayer(entityID)
	if !ok {
		layerID = layer.DefaultLayerID
	}
	l, ok := s.layers.Get(layerID)
	if !ok {
		return 32
	}
	return l.ChunkSize
}

// MaxSpeedFor returns the entity's effective max speed: its own
// mobility.maxSpeed when set, otherwise the system default.
func (s *System) MaxSpeedFor(entityID string) float64 {
	mobComp := s.store.Get(entityID, store.KindMobility)
	if mobComp != nil {
		if m, ok := ParseMobility(mobComp); ok && m.HasMaxSpeed {
			return m.MaxSpeed
		}
	}
	return s.cfg.DefaultMaxSpeed
}

func (s *System) layerID(entityID string) string {
	if id, ok := s.layers.EntityLayer(entityID); ok {
		return id
	}
	return layer.DefaultLayerID
}

// AttemptMove is the authoritative intent surface.
func (s *System) AttemptMove(entityID string, want spatial.Vec3, dt float64) Result {
	mobComp := s.store.Get(entityID, store.KindMobility)
	shapeComp := s.store.Get(entityID, store.KindShape)

	current := spatial.Vec3{}
	if mobComp != nil {
		if m, ok := ParseMobility(mobComp); ok {
			current = m.Position
		}
	}
	if mobComp == nil {
		return Result{OK: false, Position: current, Reason: "no mobility"}
	}
	if shapeComp == nil {
		return Result{OK: false, Position: current, Reason: "no shape"}
	}
	mob, _ := ParseMobility(mobComp)
	shape, _ := ParseShape(shapeComp)
	current = mob.Position

	direction := vecSub(want, current)
	if vecLen(direction) < 1e-9 {
		return Result{OK: true, Position: current}
	}

	unit, _ := vecNormalize(direction)
	maxSpeed := s.cfg.DefaultMaxSpeed
	if mob.HasMaxSpeed {
		maxSpeed = mob.MaxSpeed
	}
	travel := vecLen(direction)
	maxTravel := maxSpeed * dt
	if travel > maxTravel {
		travel = maxTravel
	}
	proposed := vecAdd(current, vecScale(unit, travel))

	hit, blocked := s.sweep(entityID, current, proposed, shape)
	if !blocked {
		return Result{OK: true, Position: proposed}
	}

	t := hit.Distance/travel - s.cfg.CollisionEpsilon
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	clamped := vecAdd(current, vecScale(unit, travel*t))
	reason := "blocked by static geometry"
	if !hit.IsStatic {
		reason = "blocked by entity " + hit.EntityID
	}
	n := hit.Normal
	return Result{OK: false, Position: clamped, Reason: reason, Normal: &n, BlockerID: hit.EntityID}
}

// sweep runs the swept-AABB test described in and resolves
// the smallest-distance winner, with static losing to dynamic on ties.
func (s *System) sweep(entityID string, from, to spatial.Vec3, shape Shape) (Hit, bool) {
	chunkSize := s.layerChunkSize(entityID)
	layerID := s.layerID(entityID)

	startKey := spatial.WorldToChunk(layerID, from, chunkSize)
	endKey := spatial.WorldToChunk(layerID, to, chunkSize)
	candidateKeys := uniqueKeys(append(spatial.Neighbors(startKey, 1), spatial.Neighbors(endKey, 1)...))

	endBox := shape.WorldBox(to)
	d := vecSub(to, from)
	displacementLen := vecLen(d)

	staticHit, staticOK := sweepStatic(s.chunks, candidateKeys, endBox, chunkSize, displacementLen)

	var dyn []dynamicSolid
	for _, id := range s.store.ListWith(store.KindSolidity) {
		if id == entityID {
			continue
		}
		if !IsSolid(s.store.Get(id, store.KindSolidity)) {
			continue
		}
		otherMob := s.store.Get(id, store.KindMobility)
		otherShape := s.store.Get(id, store.KindShape)
		if otherMob == nil || otherShape == nil {
			continue
		}
		om, _ := ParseMobility(otherMob)
		osh, _ := ParseShape(otherShape)
		dyn = append(dyn, dynamicSolid{EntityID: id, Box: osh.WorldBox(om.Position)})
	}
	moverHalf := shape.HalfExtents()
	moverStartCenter := boxCenter(shape.WorldBox(from))
	moverEndCenter := boxCenter(shape.WorldBox(to))
	dynHit, dynOK := sweepDynamic(dyn, moverStartCenter, moverEndCenter, moverHalf)

	switch {
	case dynOK && staticOK:
		if dynHit.Distance <= staticHit.Distance {
			return dynHit, true
		}
		return staticHit, true
	case dynOK:
		return dynHit, true
	case staticOK:
		return staticHit, true
	default:
		return Hit{}, false
	}
}

func boxCenter(b spatial.Box) spatial.Vec3 {
	return spatial.Vec3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

func uniqueKeys(keys []spatial.Key) []spatial.Key {
	seen := map[spatial.Key]struct{}{}
	out := make([]spatial.Key, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
