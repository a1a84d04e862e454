// Package spatial holds the pure, stateless math for mapping world
// positions to chunk cells and enumerating chunk neighborhoods.
// Nothing here touches the entity store, chunk manager, or any
// mutable state.
package spatial

import "math"

// ChunkHeight is the global vertical chunk size, independent of the
// horizontal per-layer chunk size.
const ChunkHeight = 256

// Epsilon guards against double-counting when a box edge falls
// exactly on a chunk boundary.
const Epsilon = 1e-6

type Vec3 struct {
	X, Y, Z float64
}

// Box is an axis-aligned bounding box in world coordinates.
type Box struct {
	Min, Max Vec3
}

// Key addresses a chunk cell within a layer.
type Key struct {
	LayerID string
	CX, CY, CZ int
}

func WorldToChunk(layerID string, pos Vec3, chunkSize float64) Key {
	return Key{
		LayerID: layerID,
		CX:      floorDiv(pos.X, chunkSize),
		CY:      floorDiv(pos.Y, ChunkHeight),
		CZ:      floorDiv(pos.Z, chunkSize),
	}
}

func floorDiv(v, size float64) int {
	return int(math.Floor(v / size))
}

// ChunkToWorld returns the chunk's origin corner in world space.
func ChunkToWorld(cx, cy, cz int, chunkSize float64) Vec3 {
	return Vec3{
		X: float64(cx) * chunkSize,
		Y: float64(cy) * ChunkHeight,
		Z: float64(cz) * chunkSize,
	}
}

// IntersectingChunks enumerates the chunk cells whose half-open
// interval [min, max-epsilon) overlaps box, on each axis independently.
// As a documented convenience, an axis whose box span is
// narrower than the chunk size and straddles the origin clamps to the
// origin chunk on that axis, so small local volumes centered near
// (0,0,0) don't spuriously touch two cells because of floating point
// noise at the boundary.
func IntersectingChunks(layerID string, box Box, chunkSize float64) []Key {
	xs := axisRangeSize(box.Min.X, box.Max.X, chunkSize)
	ys := axisRangeSize(box.Min.Y, box.Max.Y, ChunkHeight)
	zs := axisRangeSize(box.Min.Z, box.Max.Z, chunkSize)

	out := make([]Key, 0, len(xs)*len(ys)*len(zs))
	for _, cy := range ys {
		for _, cx := range xs {
			for _, cz := range zs {
				out = append(out, Key{LayerID: layerID, CX: cx, CY: cy, CZ: cz})
			}
		}
	}
	return out
}

func axisRangeSize(lo, hi, size float64) []int {
	span := hi - lo
	if span < size && lo <= 0 && hi >= 0 {
		// Narrow-straddle clamp: a span smaller than the
		// chunk size that straddles the origin belongs to chunk 0 on
		// this axis rather than spilling into a neighbor because of
		// where exactly zero falls within the cell.
		return []int{0}
	}
	loChunk := floorDiv(lo, size)
	hiChunk := floorDiv(hi-Epsilon, size)
	if hiChunk < loChunk {
		hiChunk = loChunk
	}
	out := make([]int, 0, hiChunk-loChunk+1)
	for c := loChunk; c <= hiChunk; c++ {
		out = append(out, c)
	}
	return out
}

// Neighbors enumerates the cube [-r..r]^3 around center, inclusive.
func Neighbors(center Key, r int) []Key {
	out := make([]Key, 0, (2*r+1)*(2*r+1)*(2*r+1))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			for dz := -r; dz <= r; dz++ {
				out = append(out, Key{
					LayerID: center.LayerID,
					CX:      center.CX + dx,
					CY:      center.CY + dy,
					CZ:      center.CZ + dz,
				})
			}
		}
	}
	return out
}

// ChunksInRadius converts a world-space radius into a chunk radius via
// ceil(r/chunkSize) and delegates to Neighbors.
func ChunksInRadius(layerID string, centerPos Vec3, chunkSize, rWorld float64) []Key {
	center := WorldToChunk(layerID, centerPos, chunkSize)
	r := int(math.Ceil(rWorld / chunkSize))
	if r < 0 {
		r = 0
	}
	return Neighbors(center, r)
}
