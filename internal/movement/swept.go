package movement

import (
	"math"

	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/spatial"
)

// Hit describes the nearest blocker found by a sweep.
type Hit struct {
	Distance float64
	Normal   spatial.Vec3
	EntityID string // set only for dynamic hits
	IsStatic bool
}

// sweepStatic tests the mover's end-position AABB against every
// candidate chunk's occupancy grid. The policy is intentionally
// coarse: end-position overlap rather than a full continuous sweep
// against every voxel boundary the segment crosses.
func sweepStatic(chunks *chunkmgr.Manager, candidates []spatial.Key, endBox spatial.Box, chunkSize float64, displacementLen float64) (Hit, bool) {
	for _, key := range candidates {
		c, ok := chunks.Peek(key)
		if !ok || c.Grid == nil {
			continue
		}
		origin := spatial.ChunkToWorld(key.CX, key.CY, key.CZ, chunkSize)
		res := c.Grid.Resolution()
		if gridOverlapsBox(c.Grid, origin, chunkSize, spatial.ChunkHeight, res, endBox) {
			return Hit{
				Distance: displacementLen / 2,
				Normal:   spatial.Vec3{X: 0, Y: 1, Z: 0},
				IsStatic: true,
			}, true
		}
	}
	return Hit{}, false
}

// gridOverlapsBox reports whether any solid voxel in grid (whose chunk
// occupies [origin, origin+size)) overlaps box.
func gridOverlapsBox(grid *chunkmgr.Grid, origin spatial.Vec3, chunkSize, chunkHeight float64, res int, box spatial.Box) bool {
	cellX := chunkSize / float64(res)
	cellY := chunkHeight / float64(res)
	cellZ := chunkSize / float64(res)

	loX := int(math.Floor((box.Min.X - origin.X) / cellX))
	hiX := int(math.Floor((box.Max.X - origin.X) / cellX))
	loY := int(math.Floor((box.Min.Y - origin.Y) / cellY))
	hiY := int(math.Floor((box.Max.Y - origin.Y) / cellY))
	loZ := int(math.Floor((box.Min.Z - origin.Z) / cellZ))
	hiZ := int(math.Floor((box.Max.Z - origin.Z) / cellZ))

	for x := loX; x <= hiX; x++ {
		for y := loY; y <= hiY; y++ {
			for z := loZ; z <= hiZ; z++ {
				if grid.IsSolid(x, y, z) {
					return true
				}
			}
		}
	}
	return false
}

// dynamicSolid is the minimal shape+position projection sweepDynamic
// needs for one candidate obstacle.
type dynamicSolid struct {
	EntityID string
	Box      spatial.Box // world-space AABB of the obstacle's shape
}

// sweepDynamic intersects the segment from the mover's center at start
// to its center at end against every candidate's Minkowski-expanded
// box using the slab method.
func sweepDynamic(candidates []dynamicSolid, moverStartCenter, moverEndCenter spatial.Vec3, moverHalfExtents spatial.Vec3) (Hit, bool) {
	d := vecSub(moverEndCenter, moverStartCenter)
	var best Hit
	found := false

	for _, cand := range candidates {
		expanded := spatial.Box{
			Min: spatial.Vec3{
				X: cand.Box.Min.X - moverHalfExtents.X,
				Y: cand.Box.Min.Y - moverHalfExtents.Y,
				Z: cand.Box.Min.Z - moverHalfExtents.Z,
			},
			Max: spatial.Vec3{
				X: cand.Box.Max.X + moverHalfExtents.X,
				Y: cand.Box.Max.Y + moverHalfExtents.Y,
				Z: cand.Box.Max.Z + moverHalfExtents.Z,
			},
		}
		tmin, tmax, axis, ok := slabIntersect(moverStartCenter, d, expanded)
		if !ok || tmin < 0 || tmin > 1 || tmin > tmax {
			continue
		}
		dist := tmin * vecLen(d)
		if !found || dist < best.Distance {
			found = true
			best = Hit{
				Distance: dist,
				Normal:   axisNormal(axis, d),
				EntityID: cand.EntityID,
				IsStatic: false,
			}
		}
	}
	return best, found
}

// slabIntersect returns the entry (tmin) and exit (tmax) parametric
// times of the ray start+t*d against box, and which axis produced the
// entry time.
func slabIntersect(start, d spatial.Vec3, box spatial.Box) (tmin, tmax float64, axis int, ok bool) {
	tmin = math.Inf(-1)
	tmax = math.Inf(1)
	axis = -1

	axes := [3]struct {
		s, d, lo, hi float64
	}{
		{start.X, d.X, box.Min.X, box.Max.X},
		{start.Y, d.Y, box.Min.Y, box.Max.Y},
		{start.Z, d.Z, box.Min.Z, box.Max.Z},
	}

	for i, a := range axes {
		if a.d == 0 {
			if a.s < a.lo || a.s > a.hi {
				return 0, 0, -1, false
			}
			continue
		}
		t1 := (a.lo - a.s) / a.d
		t2 := (a.hi - a.s) / a.d
		entry, exit := t1, t2
		if entry > exit {
			entry, exit = exit, entry
		}
		if entry > tmin {
			tmin = entry
			axis = i
		}
		if exit < tmax {
			tmax = exit
		}
	}
	if axis == -1 {
		// Ray started inside the box on every axis with zero
		// displacement handled above; a genuine "no motion" case
		// shouldn't reach here since attempt_move short-circuits it.
		tmin = 0
	}
	return tmin, tmax, axis, tmin <= tmax
}

// axisNormal returns a unit normal on the entry axis, pointing
// opposite to the displacement.
func axisNormal(axis int, d spatial.Vec3) spatial.Vec3 {
	switch axis {
	case 0:
		if d.X > 0 {
			return spatial.Vec3{X: -1}
		}
		return spatial.Vec3{X: 1}
	case 1:
		if d.Y > 0 {
			return spatial.Vec3{Y: -1}
		}
		return spatial.Vec3{Y: 1}
	case 2:
		if d.Z > 0 {
			return spatial.Vec3{Z: -1}
		}
		return spatial.Vec3{Z: 1}
	default:
		return spatial.Vec3{}
	}
}
