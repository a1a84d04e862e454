package movement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/schema"
	"voxelrealm/internal/spatial"
	"voxelrealm/internal/store"
)

func newTestSystem(t *testing.T) (*System, *store.Store) {
	t.Helper()
	reg, err := schema.New()
	require.NoError(t, err)
	st := store.New(reg)
	chunks := chunkmgr.NewManager(chunkmgr.DefaultGridResolution)
	layers := layer.NewRegistry()
	return NewSystem(st, chunks, layers, DefaultConfig()), st
}

func unitShape() store.Component {
	return store.Component{Kind: store.KindShape, Fields: map[string]any{
		"min":      map[string]any{"x": -0.5, "y": 0.0, "z": -0.5},
		"max":      map[string]any{"x": 0.5, "y": 1.8, "z": 0.5},
		"geometry": "box",
	}}
}

func mobilityAt(pos spatial.Vec3, maxSpeed float64) store.Component {
	fields := map[string]any{
		"position": map[string]any{"x": pos.X, "y": pos.Y, "z": pos.Z},
	}
	if maxSpeed > 0 {
		fields["maxSpeed"] = maxSpeed
	}
	return store.Component{Kind: store.KindMobility, Fields: fields}
}

func TestAttemptMoveEmptySpaceRespectsSpeedCap(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("player-1", []store.Component{
		mobilityAt(spatial.Vec3{}, 5),
		unitShape(),
	}))

	res := sys.AttemptMove("player-1", spatial.Vec3{X: 100}, 1)
	require.True(t, res.OK)
	require.InDelta(t, 5, res.Position.X, 1e-9)
	require.InDelta(t, 0, res.Position.Y, 1e-9)
}

func TestAttemptMoveBlockedByStaticSolidEntity(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("player-1", []store.Component{
		mobilityAt(spatial.Vec3{X: 0, Y: 0, Z: 0}, 5),
		unitShape(),
	}))
	require.NoError(t, st.Create("wall-1", []store.Component{
		mobilityAt(spatial.Vec3{X: 3, Y: 0, Z: 0}, 0),
		unitShape(),
		{Kind: store.KindSolidity, Fields: map[string]any{"solid": true}},
	}))

	res := sys.AttemptMove("player-1", spatial.Vec3{X: 10, Y: 0, Z: 0}, 1)
	require.False(t, res.OK)
	require.Equal(t, "wall-1", res.BlockerID)
	require.Less(t, res.Position.X, 3.0)
	require.NotNil(t, res.Normal)
}

func TestAttemptMovePassesThroughNonSolidEntity(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("player-1", []store.Component{
		mobilityAt(spatial.Vec3{X: 0, Y: 0, Z: 0}, 5),
		unitShape(),
	}))
	require.NoError(t, st.Create("ghost-1", []store.Component{
		mobilityAt(spatial.Vec3{X: 3, Y: 0, Z: 0}, 0),
		unitShape(),
		{Kind: store.KindSolidity, Fields: map[string]any{"solid": false}},
	}))

	res := sys.AttemptMove("player-1", spatial.Vec3{X: 3, Y: 0, Z: 0}, 1)
	require.True(t, res.OK)
	require.InDelta(t, 3, res.Position.X, 1e-9)
}

func TestAttemptMoveRejectsMissingComponents(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("no-shape", []store.Component{
		mobilityAt(spatial.Vec3{}, 5),
	}))
	require.NoError(t, st.Create("no-mobility", []store.Component{
		unitShape(),
	}))

	res := sys.AttemptMove("no-shape", spatial.Vec3{X: 1}, 1)
	require.False(t, res.OK)
	require.Equal(t, "no shape", res.Reason)

	res = sys.AttemptMove("no-mobility", spatial.Vec3{X: 1}, 1)
	require.False(t, res.OK)
	require.Equal(t, "no mobility", res.Reason)
}

func TestAttemptMoveNoOpWhenAlreadyAtTarget(t *testing.T) {
	sys, st := newTestSystem(t)
	require.NoError(t, st.Create("player-1", []store.Component{
		mobilityAt(spatial.Vec3{X: 2, Y: 0, Z: 2}, 5),
		unitShape(),
	}))

	res := sys.AttemptMove("player-1", spatial.Vec3{X: 2, Y: 0, Z: 2}, 1)
	require.True(t, res.OK)
	require.Equal(t, spatial.Vec3{X: 2, Y: 0, Z: 2}, res.Position)
}
