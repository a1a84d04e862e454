// Package wiring assembles the dependency graph for one running
// server: schema registry through to the websocket and admin HTTP
// handlers. It follows the pack's convention of a wire injector
// (google/wire) even though nothing here runs the wire code
// generator; wire_gen.go is written by hand in the shape wire would
// produce from wire.go's build.
package wiring

import (
	"go.uber.org/zap"

	"voxelrealm/internal/adminapi"
	"voxelrealm/internal/adminapi/index"
	"voxelrealm/internal/archetype"
	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/durability"
	"voxelrealm/internal/layer"
	"voxelrealm/internal/movement"
	"voxelrealm/internal/schema"
	"voxelrealm/internal/session"
	"voxelrealm/internal/store"
	"voxelrealm/internal/ticksched"
	"voxelrealm/internal/transport/ws"
	"voxelrealm/internal/worldproc"
)

// Graph holds every long-lived component a server instance needs.
// cmd/server owns its lifetime; nothing here starts a goroutine on
// construction except Index's writer, which is safe to run idle.
type Graph struct {
	Logger *zap.Logger

	Schema     *schema.Registry
	Store      *store.Store
	Chunks     *chunkmgr.Manager
	Layers     *layer.Registry
	Movement   *movement.System
	Durability *durability.System
	Catalog    *archetype.Catalog
	Spawner    *archetype.Spawner
	Sessions   *session.Manager
	Scheduler  *ticksched.Scheduler
	Process    *worldproc.Process
	WS         *ws.Server
	Index      *index.Index
	Admin      *adminapi.Server
}
