// Package ws implements the websocket transport: it upgrades an HTTP
// connection, wraps it as a session.Sender, and pumps inbound frames
// into the world process while draining an outbound queue back to the
// client.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/protocol"
	"voxelrealm/internal/session"
	"voxelrealm/internal/worldproc"
)

// Config carries the transport-level tunables from the recognized
// configuration surface.
type Config struct {
	HeartbeatInterval time.Duration // ws_heartbeat_ms
	ConnTimeout       time.Duration // ws_connection_timeout_ms
	MaxMessageSize    int64         // max_message_size
	OutboundQueueSize int           // per-connection send buffer
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		ConnTimeout:       60 * time.Second,
		MaxMessageSize:    65536,
		OutboundQueueSize: 64,
	}
}

type Server struct {
	proc *worldproc.Process
	log  *zap.Logger
	cfg  Config

	upgrader websocket.Upgrader
}

func NewServer(proc *worldproc.Process, logger *zap.Logger, cfg Config) *Server {
	return &Server{
		proc: proc,
		log:  logger,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// connSender adapts a gorilla websocket connection into a
// session.Sender: sends are non-blocking against a bounded queue, and
// overflow marks the connection stale rather than blocking the caller
// (which, on this transport, is the single simulation executor).
type connSender struct {
	conn  *websocket.Conn
	out   chan []byte
	dead  chan struct{}
	alive bool
}

func newConnSender(conn *websocket.Conn, queueSize int) *connSender {
	return &connSender{
		conn:  conn,
		out:   make(chan []byte, queueSize),
		dead:  make(chan struct{}),
		alive: true,
	}
}

func (c *connSender) Send(msg any) bool {
	if !c.IsAlive() {
		return false
	}
	b, err := marshalMessage(msg)
	if err != nil {
		return false
	}
	select {
	case c.out <- b:
		return true
	default:
		// Outbound queue full: drop the slowest subscriber's stream
		// rather than block the executor. The connection is marked
		// dead and receives nothing further; the heartbeat sweep then
		// disconnects its session.
		c.markDead()
		return false
	}
}

func (c *connSender) IsAlive() bool {
	select {
	case <-c.dead:
		return false
	default:
		return c.alive
	}
}

func (c *connSender) Close() { c.markDead() }

func (c *connSender) markDead() {
	if c.IsAlive() {
		c.alive = false
		close(c.dead)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()
		conn.SetReadLimit(s.cfg.MaxMessageSize)

		sender := newConnSender(conn, s.cfg.OutboundQueueSize)
		sess := s.proc.Connect(sender)
		s.log.Info("session connected", zap.String("sessionId", sess.ID), zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go s.writeLoop(ctx, conn, sender)
		s.readLoop(conn, sess, sender)

		s.proc.Disconnect(sess)
		s.log.Info("session disconnected", zap.String("sessionId", sess.ID))
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, sender *connSender) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sender.dead:
			return
		case b := <-sender.out:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				sender.markDead()
				return
			}
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn, sess *session.Session, sender *connSender) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ConnTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			sender.markDead()
			return
		}
		if len(msg) == 0 {
			continue
		}
		s.proc.Dispatch(sess, msg)
	}
}

// marshalMessage renders a message to its wire JSON. chunkmgr hands
// subscribers its own payload shapes (keyed by spatial.Key rather
// than the wire ChunkKey and missing a "type" discriminator); this is
// the point where the transport translates those into the actual
// chunk_snapshot/chunk_delta wire form.
func marshalMessage(msg any) ([]byte, error) {
	switch v := msg.(type) {
	case chunkmgr.ChunkSnapshotPayload:
		return json.Marshal(protocol.ToWireSnapshot(v))
	case chunkmgr.ChunkDeltaPayload:
		return json.Marshal(protocol.ToWireDelta(v))
	default:
		return json.Marshal(v)
	}
}
