package protocol

import (
	"fmt"
	"regexp"
	"strconv"
)

// ChunkKey is the wire form of a chunk address: {layerId, cx, cy, cz}.
// Its canonical string form is "<layerId>:<cx>,<cy>,<cz>". Internal
// maps are keyed by the struct itself (or by spatial.Key), not by
// that string.
type ChunkKey struct {
	LayerID string `json:"layerId"`
	CX      int    `json:"cx"`
	CY      int    `json:"cy"`
	CZ      int    `json:"cz"`
}

var chunkKeyPattern = regexp.MustCompile(`^([^:]+):(-?\d+),(-?\d+),(-?\d+)$`)

func (k ChunkKey) String() string {
	return fmt.Sprintf("%s:%d,%d,%d", k.LayerID, k.CX, k.CY, k.CZ)
}

// ParseChunkKey parses the canonical string form produced by String.
// It round-trips bit-exactly with String for any ChunkKey whose
// LayerID contains no ':' character.
func ParseChunkKey(s string) (ChunkKey, error) {
	m := chunkKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return ChunkKey{}, fmt.Errorf("protocol: malformed chunk key %q", s)
	}
	cx, err := strconv.Atoi(m[2])
	if err != nil {
		return ChunkKey{}, err
	}
	cy, err := strconv.Atoi(m[3])
	if err != nil {
		return ChunkKey{}, err
	}
	cz, err := strconv.Atoi(m[4])
	if err != nil {
		return ChunkKey{}, err
	}
	return ChunkKey{LayerID: m[1], CX: cx, CY: cy, CZ: cz}, nil
}
