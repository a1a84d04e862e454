package worldproc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voxelrealm/internal/archetype"
	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/durability"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/movement"
	"voxelrealm/internal/protocol"
	"voxelrealm/internal/schema"
	"voxelrealm/internal/session"
	"voxelrealm/internal/store"
	"voxelrealm/internal/ticksched"
)

type fakeConn struct {
	alive bool
	sent  []any
}

func (c *fakeConn) Send(msg any) bool { c.sent = append(c.sent, msg); return true }
func (c *fakeConn) IsAlive() bool     { return c.alive }
func (c *fakeConn) Close()            { c.alive = false }

func newTestProcess(t *testing.T) *Process {
	t.Helper()
	reg, err := schema.New()
	require.NoError(t, err)
	st := store.New(reg)
	chunks := chunkmgr.NewManager(chunkmgr.DefaultGridResolution)
	layers := layer.NewRegistry()
	mv := movement.NewSystem(st, chunks, layers, movement.DefaultConfig())
	dur := durability.NewSystem(st)
	spawner := archetype.NewSpawner(archetype.NewCatalog(), st, layers)
	sessions := session.NewManager(st, chunks, layers, mv, dur, spawner, "test-server")
	dur.OnDestroy(sessions.HandleEntityDestroyed)

	sched := ticksched.New(ticksched.DefaultConfig(), mv, dur)
	return New(DefaultConfig(), sessions, sched, chunks)
}

func TestConnectDispatchAndDisconnect(t *testing.T) {
	p := newTestProcess(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	conn := &fakeConn{alive: true}
	sess := p.Connect(conn)
	require.NotEmpty(t, sess.ID)
	require.Len(t, conn.sent, 1)

	loginMsg, err := json.Marshal(protocol.LoginMsg{Type: protocol.TypeLogin})
	require.NoError(t, err)
	p.Dispatch(sess, loginMsg)

	require.Eventually(t, func() bool {
		return sess.Bound()
	}, time.Second, time.Millisecond)

	p.Disconnect(sess)
	require.Eventually(t, func() bool {
		var found bool
		p.Query(func() {
			for _, s := range p.sessions.Sessions() {
				if s.ID == sess.ID {
					found = true
				}
			}
		})
		return !found
	}, time.Second, time.Millisecond)
}

func TestHeartbeatDisconnectsDeadSessions(t *testing.T) {
	p := newTestProcess(t)
	p.cfg.HeartbeatInterval = 5 * time.Millisecond
	p.cfg.DeadTimeout = 1 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	conn := &fakeConn{alive: false}
	sess := p.Connect(conn)

	require.Eventually(t, func() bool {
		var found bool
		p.Query(func() {
			for _, s := range p.sessions.Sessions() {
				if s.ID == sess.ID {
					found = true
				}
			}
		})
		return !found
	}, time.Second, 5*time.Millisecond)
}
