// Package worldproc implements the single logical executor the
// concurrency model requires: every mutation of session state, the
// entity store, and the chunk manager is posted through one of this
// process's channels and handled one at a time on its own goroutine.
// It plays the role the teacher's world loop plays for its economy
// simulation, generalized to session dispatch plus tick-driven
// movement and durability.
package worldproc

import (
	"context"
	"time"

	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/session"
	"voxelrealm/internal/ticksched"
)

// Config carries the executor's own tunables, distinct from the tick
// scheduler's (which governs movement/durability cadence).
type Config struct {
	HeartbeatInterval time.Duration // default 30s, matches ws_heartbeat_ms
	DeadTimeout       time.Duration // default 60s, matches ws_connection_timeout_ms

	EvictionInterval time.Duration // default 30s, matches chunk_eviction_interval_ms
	Eviction         chunkmgr.EvictionConfig
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		DeadTimeout:       60 * time.Second,
		EvictionInterval:  30 * time.Second,
		Eviction:          chunkmgr.DefaultEvictionConfig(),
	}
}

type connectRequest struct {
	conn session.Sender
	resp chan *session.Session
}

type inboundMessage struct {
	sess *session.Session
	raw  []byte
}

// Stats reports executor-level throughput for the admin surface.
type Stats struct {
	MessagesHandled uint64
	Connects        uint64
	Disconnects     uint64
	TicksRun        uint64
	EvictionSweeps  uint64
}

// TickLogger receives one structured summary per tick. It plays the
// role of the teacher's own TickLogger seam: an optional, injected
// sink decoupled from the executor's own concerns (persistence,
// metrics, whatever an operator wants) so the core loop never
// depends on a logging backend directly.
type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// TickLogEntry is the per-tick summary of session churn and command
// throughput since the previous tick.
type TickLogEntry struct {
	Tick              uint64
	Joins             uint64
	Leaves            uint64
	Actions           uint64
	EntitiesDestroyed uint64
}

// Process owns the session manager and tick scheduler and drives both
// from a single Run goroutine. Nothing outside Run may touch the
// session manager, entity store, or chunk manager directly; every
// external interaction goes through Connect, Disconnect, Dispatch, or
// a posted read closure via Query.
type Process struct {
	cfg      Config
	sessions *session.Manager
	sched    *ticksched.Scheduler
	chunks   *chunkmgr.Manager

	connects    chan connectRequest
	disconnects chan *session.Session
	inbound     chan inboundMessage
	queries     chan func()
	stop        chan struct{}

	stats Stats

	// onSessionEvent, if set, is invoked with each connect/disconnect on
	// the executor goroutine. The admin index uses this to build an
	// audit trail without the executor depending on sqlite directly.
	onSessionEvent func(sessionID, playerID, event string)

	tickLogger                                     TickLogger
	tickJoins, tickLeaves, tickActions, tickDestroy uint64
}

// SetSessionEventSink registers fn to be called on every connect and
// disconnect. It must be set before Run starts; it is not
// synchronized against a running executor.
func (p *Process) SetSessionEventSink(fn func(sessionID, playerID, event string)) {
	p.onSessionEvent = fn
}

// SetTickLogger registers the per-tick summary sink. Must be set
// before Run starts; not synchronized against a running executor.
func (p *Process) SetTickLogger(tl TickLogger) { p.tickLogger = tl }

// RecordEntityDestroyed counts a durability-driven destruction toward
// the current tick's summary. Registered with durability.System's
// OnDestroy alongside the session manager's own despawn-broadcast hook.
func (p *Process) RecordEntityDestroyed(string) { p.tickDestroy++ }

func New(cfg Config, sessions *session.Manager, sched *ticksched.Scheduler, chunks *chunkmgr.Manager) *Process {
	return &Process{
		cfg:         cfg,
		sessions:    sessions,
		sched:       sched,
		chunks:      chunks,
		connects:    make(chan connectRequest, 64),
		disconnects: make(chan *session.Session, 64),
		inbound:     make(chan inboundMessage, 1024),
		queries:     make(chan func(), 64),
		stop:        make(chan struct{}),
	}
}

// Connect posts a new connection and blocks until the executor has
// registered it and sent hello_ok.
func (p *Process) Connect(conn session.Sender) *session.Session {
	resp := make(chan *session.Session, 1)
	p.connects <- connectRequest{conn: conn, resp: resp}
	return <-resp
}

// Disconnect posts a session teardown. It does not block on the
// teardown completing; the caller's transport connection is already
// gone by the time it calls this.
func (p *Process) Disconnect(sess *session.Session) {
	p.disconnects <- sess
}

// Dispatch posts one inbound frame for handling on the executor
// goroutine, in the order frames from a given session were received.
func (p *Process) Dispatch(sess *session.Session, raw []byte) {
	p.inbound <- inboundMessage{sess: sess, raw: raw}
}

// Query posts a read-only closure and blocks until it has run on the
// executor goroutine, giving external readers (admin HTTP, metrics) a
// consistent view without touching store/chunk state from another
// goroutine.
func (p *Process) Query(fn func()) {
	done := make(chan struct{})
	p.queries <- func() { fn(); close(done) }
	<-done
}

func (p *Process) Stats() Stats { return p.stats }

// Stop asks Run to return at its next loop iteration.
func (p *Process) Stop() { close(p.stop) }

// Run drives the executor until ctx is cancelled or Stop is called.
// Session dispatch happens as soon as a message is received rather
// than being batched to the next tick; tick-driven movement and
// durability run on the scheduler's own cadence through the same
// select loop, so nothing here ever runs concurrently with a tick.
func (p *Process) Run(ctx context.Context) error {
	var tickC <-chan time.Time
	if p.sched.Enabled() {
		ticker := time.NewTicker(p.sched.Interval())
		defer ticker.Stop()
		tickC = ticker.C
	}
	heartbeat := time.NewTicker(p.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	eviction := time.NewTicker(p.cfg.EvictionInterval)
	defer eviction.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stop:
			return nil

		case req := <-p.connects:
			sess := p.sessions.Connect(req.conn)
			p.stats.Connects++
			p.tickJoins++
			if p.onSessionEvent != nil {
				p.onSessionEvent(sess.ID, sess.PlayerID, "connect")
			}
			req.resp <- sess

		case sess := <-p.disconnects:
			p.sessions.Disconnect(sess)
			p.stats.Disconnects++
			p.tickLeaves++
			if p.onSessionEvent != nil {
				p.onSessionEvent(sess.ID, sess.PlayerID, "disconnect")
			}

		case msg := <-p.inbound:
			p.sessions.Dispatch(msg.sess, msg.raw)
			p.stats.MessagesHandled++
			p.tickActions++

		case fn := <-p.queries:
			fn()

		case now := <-tickC:
			dt := now.Sub(last)
			last = now
			p.sched.Step(dt)
			p.stats.TicksRun++
			if p.tickLogger != nil {
				p.tickLogger.WriteTick(TickLogEntry{
					Tick:              p.stats.TicksRun,
					Joins:             p.tickJoins,
					Leaves:            p.tickLeaves,
					Actions:           p.tickActions,
					EntitiesDestroyed: p.tickDestroy,
				})
			}
			p.tickJoins, p.tickLeaves, p.tickActions, p.tickDestroy = 0, 0, 0, 0

		case now := <-heartbeat.C:
			for _, sess := range p.sessions.Stale(now, p.cfg.DeadTimeout) {
				p.sessions.Disconnect(sess)
				p.stats.Disconnects++
				p.tickLeaves++
				if p.onSessionEvent != nil {
					p.onSessionEvent(sess.ID, sess.PlayerID, "disconnect")
				}
			}

		case <-eviction.C:
			p.chunks.Sweep(p.cfg.Eviction)
			p.stats.EvictionSweeps++
		}
	}
}
