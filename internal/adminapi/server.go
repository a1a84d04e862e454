// Package adminapi implements the loopback-only HTTP admin surface:
// health checks, a point-in-time state dump, and on-demand snapshot
// saves. It mirrors the teacher's admin endpoint set (/healthz,
// /admin/v1/state, /admin/v1/snapshot) adapted to this server's
// entity/session model instead of an economy simulation's.
package adminapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxelrealm/internal/adminapi/index"
	"voxelrealm/internal/archetype"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/persistence/snapshot"
	"voxelrealm/internal/session"
	"voxelrealm/internal/store"
	"voxelrealm/internal/worldproc"
)

type Server struct {
	proc     *worldproc.Process
	sessions *session.Manager
	store    *store.Store
	layers   *layer.Registry
	catalog  *archetype.Catalog
	idx      *index.Index
	log      *zap.Logger
	serverID string

	snapshotDir string
}

func NewServer(
	proc *worldproc.Process,
	sessions *session.Manager,
	st *store.Store,
	layers *layer.Registry,
	catalog *archetype.Catalog,
	idx *index.Index,
	logger *zap.Logger,
	serverID string,
	snapshotDir string,
) *Server {
	return &Server{
		proc:        proc,
		sessions:    sessions,
		store:       st,
		layers:      layers,
		catalog:     catalog,
		idx:         idx,
		log:         logger,
		serverID:    serverID,
		snapshotDir: snapshotDir,
	}
}

// Register attaches every admin route to mux, wrapping each with the
// loopback check. /healthz is registered too, without the loopback
// check, so it stays unauthenticated for load balancer probes.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/admin/v1/state", s.loopbackOnly(s.handleState))
	mux.HandleFunc("/admin/v1/snapshot", s.loopbackOnly(s.handleSnapshot))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type stateResponse struct {
	ServerID       string          `json:"serverId"`
	Stats          worldproc.Stats `json:"stats"`
	ConnectedCount int             `json:"connectedCount"`
	EntityCount    int             `json:"entityCount"`
	LayerCount     int             `json:"layerCount"`
	CatalogDigest  uint64          `json:"catalogDigest"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var resp stateResponse
	resp.ServerID = s.serverID
	resp.Stats = s.proc.Stats()

	s.proc.Query(func() {
		resp.ConnectedCount = len(s.sessions.Sessions())
		resp.EntityCount = len(s.store.AllEntities())
		resp.LayerCount = len(s.layers.List())
		resp.CatalogDigest = s.catalog.Digest()
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type snapshotResponse struct {
	OK   bool   `json:"ok"`
	Path string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var doc snapshot.DocumentV1
	s.proc.Query(func() {
		doc = snapshot.Capture(s.serverID, s.store, s.layers, s.catalog)
	})

	path := snapshotPath(s.snapshotDir)
	w.Header().Set("Content-Type", "application/json")
	if err := snapshot.Save(path, doc); err != nil {
		s.log.Error("snapshot save failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(snapshotResponse{OK: false, Error: err.Error()})
		return
	}

	if s.idx != nil {
		s.idx.RecordSnapshot(path, len(doc.Entities), len(doc.Layers), time.Now())
	}
	_ = json.NewEncoder(w).Encode(snapshotResponse{OK: true, Path: path})
}

func snapshotPath(dir string) string {
	return dir + "/snapshot-" + time.Now().UTC().Format("20060102-150405.000000000") + ".json.zst"
}

func (s *Server) loopbackOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
