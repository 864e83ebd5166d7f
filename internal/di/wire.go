//go:build wireinject
// +build wireinject

package di

import (
	"ChumRoom/pkg/config"
	"ChumRoom/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideLedgerClient,
		ProvideWindowCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideArchive,
		ProvidePublisher,

		// Use cases
		ProvideRoomScanner,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
