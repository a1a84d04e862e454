package wiring

import (
	"go.uber.org/zap"

	"voxelrealm/internal/adminapi"
	"voxelrealm/internal/adminapi/index"
	"voxelrealm/internal/archetype"
	"voxelrealm/internal/chunkmgr"
	"voxelrealm/internal/config"
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

func provideSchemaRegistry() (*schema.Registry, error) {
	return schema.New()
}

func provideStore(reg *schema.Registry) *store.Store {
	return store.New(reg)
}

func provideChunkManager(st *store.Store, layers *layer.Registry) *chunkmgr.Manager {
	m := chunkmgr.NewManager(chunkmgr.DefaultGridResolution)
	m.SetGenerationHook(worldBlockGenerationHook(st, layers))
	return m
}

func provideLayerRegistry() *layer.Registry {
	return layer.NewRegistry()
}

func provideMovementSystem(cfg config.Config, st *store.Store, chunks *chunkmgr.Manager, layers *layer.Registry) *movement.System {
	return movement.NewSystem(st, chunks, layers, movement.Config{
		TerminalVelocity: cfg.TerminalVelocity,
		GroundFriction:   cfg.GroundFriction,
		AirFriction:      cfg.AirFriction,
		CollisionEpsilon: cfg.CollisionEpsilon,
		DefaultMaxSpeed:  movement.DefaultConfig().DefaultMaxSpeed,
		GroundProbe:      movement.DefaultConfig().GroundProbe,
	})
}

func provideDurabilitySystem(st *store.Store) *durability.System {
	return durability.NewSystem(st)
}

func provideArchetypeCatalog() *archetype.Catalog {
	return archetype.NewCatalog()
}

func provideSpawner(catalog *archetype.Catalog, st *store.Store, layers *layer.Registry) *archetype.Spawner {
	return archetype.NewSpawner(catalog, st, layers)
}

func provideSessionManager(
	cfg config.Config,
	st *store.Store,
	chunks *chunkmgr.Manager,
	layers *layer.Registry,
	mv *movement.System,
	dur *durability.System,
	spawner *archetype.Spawner,
	serverID string,
) *session.Manager {
	mgr := session.NewManager(st, chunks, layers, mv, dur, spawner, serverID)
	mgr.SetMaxMessagesPerSecond(cfg.MaxMessagesPerSecond)
	dur.OnDestroy(mgr.HandleEntityDestroyed)
	return mgr
}

func provideScheduler(cfg config.Config, mv *movement.System, dur *durability.System) *ticksched.Scheduler {
	return ticksched.New(ticksched.Config{
		RateHz:           cfg.TargetFPS,
		MaxDt:            cfg.MaxDeltaTime(),
		TickRateDisabled: cfg.TickRateDisabled,
	}, mv, dur)
}

func provideProcess(cfg config.Config, sessions *session.Manager, sched *ticksched.Scheduler, chunks *chunkmgr.Manager) *worldproc.Process {
	return worldproc.New(worldproc.Config{
		HeartbeatInterval: cfg.WSHeartbeatInterval(),
		DeadTimeout:       cfg.WSConnectionTimeout(),
		EvictionInterval:  cfg.ChunkEvictionInterval(),
		Eviction: chunkmgr.EvictionConfig{
			MaxLoadedChunks:   cfg.MaxLoadedChunks,
			MaxRetainedChunks: cfg.MaxRetainedChunks,
			UnloadDelay:       cfg.ChunkUnloadDelay(),
		},
	}, sessions, sched, chunks)
}

func provideWSServer(cfg config.Config, proc *worldproc.Process, logger *zap.Logger) *ws.Server {
	return ws.NewServer(proc, logger, ws.Config{
		HeartbeatInterval: cfg.WSHeartbeatInterval(),
		ConnTimeout:       cfg.WSConnectionTimeout(),
		MaxMessageSize:    int64(cfg.MaxMessageSize),
		OutboundQueueSize: cfg.MaxSubsPerClient,
	})
}

func provideIndex(cfg config.Config) (*index.Index, error) {
	return index.Open(cfg.DataDirectory + "/index.sqlite")
}

func provideAdminServer(
	proc *worldproc.Process,
	sessions *session.Manager,
	st *store.Store,
	layers *layer.Registry,
	catalog *archetype.Catalog,
	idx *index.Index,
	logger *zap.Logger,
	serverID string,
	cfg config.Config,
) *adminapi.Server {
	return adminapi.NewServer(proc, sessions, st, layers, catalog, idx, logger, serverID, cfg.DataDirectory+"/snapshots")
}
