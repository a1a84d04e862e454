package chunkmgr

// Grid is a dense 3D bit volume of fixed resolution per axis, the
// chunk's optional static occupancy grid.
type Grid struct {
	res  int
	bits []bool
}

// DefaultGridResolution is the per-axis voxel count used when a chunk's
// grid resolution isn't otherwise specified.
const DefaultGridResolution = 16

func NewGrid(resolution int) *Grid {
	if resolution <= 0 {
		resolution = DefaultGridResolution
	}
	return &Grid{res: resolution, bits: make([]bool, resolution*resolution*resolution)}
}

func (g *Grid) Resolution() int { return g.res }

func (g *Grid) idx(x, y, z int) (int, bool) {
	if x < 0 || y < 0 || z < 0 || x >= g.res || y >= g.res || z >= g.res {
		return 0, false
	}
	return (y*g.res+x)*g.res + z, true
}

// SetSolid clips out-of-range coordinates to a no-op.
func (g *Grid) SetSolid(x, y, z int, solid bool) {
	i, ok := g.idx(x, y, z)
	if !ok {
		return
	}
	g.bits[i] = solid
}

// IsSolid returns false outside range.
func (g *Grid) IsSolid(x, y, z int) bool {
	i, ok := g.idx(x, y, z)
	if !ok {
		return false
	}
	return g.bits[i]
}

// WorldToGrid maps a world position, relative to the chunk's origin,
// into grid indices.
func WorldToGrid(localX, localY, localZ, chunkSize, chunkHeight float64, resolution int) (int, int, int) {
	gx := int(wrapFrac(localX, chunkSize) * float64(resolution))
	gy := int(wrapFrac(localY, chunkHeight) * float64(resolution))
	gz := int(wrapFrac(localZ, chunkSize) * float64(resolution))
	return gx, gy, gz
}

func wrapFrac(v, size float64) float64 {
	m := modFloat(modFloat(v, size)+size, size)
	return m / size
}

func modFloat(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a - b*float64(int(a/b))
	if r < 0 {
		r += b
	}
	return r
}
