// Code generated by hand in the shape wire would produce from
// wire.go; the wire binary is never invoked in this tree. Keep this
// in sync with wire.go's ProviderSet by hand when the graph changes.

package wiring

import (
	"time"

	"go.uber.org/zap"

	"voxelrealm/internal/config"
	"voxelrealm/internal/obslog"
)

// InitializeGraph builds the full dependency graph for one server
// instance, in the same dependency order wire.Build would resolve
// from ProviderSet.
func InitializeGraph(cfg config.Config, logger *zap.Logger, serverID string) (*Graph, error) {
	reg, err := provideSchemaRegistry()
	if err != nil {
		return nil, err
	}
	st := provideStore(reg)
	layers := provideLayerRegistry()
	chunks := provideChunkManager(st, layers)
	mv := provideMovementSystem(cfg, st, chunks, layers)
	dur := provideDurabilitySystem(st)
	catalog := provideArchetypeCatalog()
	spawner := provideSpawner(catalog, st, layers)
	sessions := provideSessionManager(cfg, st, chunks, layers, mv, dur, spawner, serverID)
	sched := provideScheduler(cfg, mv, dur)
	proc := provideProcess(cfg, sessions, sched, chunks)
	proc.SetTickLogger(obslog.NewTickLogger(logger))
	dur.OnDestroy(proc.RecordEntityDestroyed)
	wsServer := provideWSServer(cfg, proc, logger)

	idx, err := provideIndex(cfg)
	if err != nil {
		return nil, err
	}
	proc.SetSessionEventSink(func(sessionID, playerID, event string) {
		idx.RecordSessionEvent(sessionID, playerID, event, time.Now())
	})

	admin := provideAdminServer(proc, sessions, st, layers, catalog, idx, logger, serverID, cfg)

	return &Graph{
		Logger:     logger,
		Schema:     reg,
		Store:      st,
		Chunks:     chunks,
		Layers:     layers,
		Movement:   mv,
		Durability: dur,
		Catalog:    catalog,
		Spawner:    spawner,
		Sessions:   sessions,
		Scheduler:  sched,
		Process:    proc,
		WS:         wsServer,
		Index:      idx,
		Admin:      admin,
	}, nil
}
