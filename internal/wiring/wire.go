//go:build wireinject

// The build tag makes sure this stub never compiles into the real
// binary; wire_gen.go carries the actual injector body. This tree
// never invokes the wire binary, so wire_gen.go is hand-authored to
// match what it would generate from this file.

package wiring

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"voxelrealm/internal/config"
)

var ProviderSet = wire.NewSet(
	provideSchemaRegistry,
	provideStore,
	provideChunkManager,
	provideLayerRegistry,
	provideMovementSystem,
	provideDurabilitySystem,
	provideArchetypeCatalog,
	provideSpawner,
	provideSessionManager,
	provideScheduler,
	provideProcess,
	provideWSServer,
	provideIndex,
	provideAdminServer,
)

func InitializeGraph(cfg config.Config, logger *zap.Logger, serverID string) (*Graph, error) {
	wire.Build(
		ProviderSet,
		wire.Struct(new(Graph), "*"),
	)
	return nil, nil
}
