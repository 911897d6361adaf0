//go:build wireinject
// +build wireinject

package di

import (
	"CrossRisk/pkg/config"
	"CrossRisk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Logging and metrics
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideMacroCache,
		ProvideResponseCache,

		// Data sources
		ProvideCatalog,
		ProvideMarketSource,
		ProvideMacroSource,

		// Sinks
		ProvideSnapshotPublisher,
		ProvideSnapshotArchive,
		ProvideKafkaSnapshotsHandler,

		// Use cases
		ProvideMergePipeline,
		ProvideRiskEngine,
		ProvideSnapshotProcessor,
		ProvideRefresher,

		// HTTP surface
		ProvideHub,
		ProvideDashboardHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
